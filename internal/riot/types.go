package riot

import "strconv"

// Side identifies a team by the Riot team id. Blue (100) is "side A" wherever
// a signed difference or a tie-break is computed.
type Side int

const (
	SideNone Side = 0
	SideBlue Side = 100
	SideRed  Side = 200
)

// Opposite returns the other side. SideNone has no opposite.
func (s Side) Opposite() Side {
	switch s {
	case SideBlue:
		return SideRed
	case SideRed:
		return SideBlue
	default:
		return SideNone
	}
}

func (s Side) String() string {
	switch s {
	case SideBlue:
		return "BLUE"
	case SideRed:
		return "RED"
	default:
		return "NONE"
	}
}

// AccountResponse represents the response from /riot/account/v1/accounts/by-riot-id
type AccountResponse struct {
	PUUID    string `json:"puuid"`
	GameName string `json:"gameName"`
	TagLine  string `json:"tagLine"`
}

// MatchResponse represents the response from /lol/match/v5/matches/{matchId}
type MatchResponse struct {
	Metadata MatchMetadata `json:"metadata"`
	Info     MatchInfo     `json:"info"`
}

type MatchMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type MatchInfo struct {
	GameCreation       int64              `json:"gameCreation"`
	GameStartTimestamp int64              `json:"gameStartTimestamp"`
	GameDuration       int                `json:"gameDuration"`
	GameVersion        string             `json:"gameVersion"`
	QueueID            int                `json:"queueId"`
	Participants       []MatchParticipant `json:"participants"`
	Teams              []MatchTeam        `json:"teams"`
}

// StartedAt returns the match start in epoch milliseconds, falling back to
// the creation timestamp for payloads that predate gameStartTimestamp.
func (i MatchInfo) StartedAt() int64 {
	if i.GameStartTimestamp > 0 {
		return i.GameStartTimestamp
	}
	return i.GameCreation
}

// WinningSide returns the side flagged as winner, or SideNone for remakes.
func (i MatchInfo) WinningSide() Side {
	for _, t := range i.Teams {
		if t.Win {
			return t.TeamID
		}
	}
	return SideNone
}

// Participant returns the participant with the given id.
func (i MatchInfo) Participant(participantID int) (MatchParticipant, bool) {
	for _, p := range i.Participants {
		if p.ParticipantID == participantID {
			return p, true
		}
	}
	return MatchParticipant{}, false
}

type MatchParticipant struct {
	ParticipantID  int    `json:"participantId"`
	PUUID          string `json:"puuid"`
	RiotIdGameName string `json:"riotIdGameName"`
	RiotIdTagline  string `json:"riotIdTagline"`
	ChampionID     int    `json:"championId"`
	ChampionName   string `json:"championName"`
	ChampLevel     int    `json:"champLevel"`
	TeamID         Side   `json:"teamId"`
	TeamPosition   string `json:"teamPosition"` // TOP, JUNGLE, MIDDLE, BOTTOM, UTILITY
	Win            bool   `json:"win"`

	Kills   int `json:"kills"`
	Deaths  int `json:"deaths"`
	Assists int `json:"assists"`

	TotalDamageDealtToChampions int `json:"totalDamageDealtToChampions"`
	TotalDamageTaken            int `json:"totalDamageTaken"`
	TotalMinionsKilled          int `json:"totalMinionsKilled"`
	NeutralMinionsKilled        int `json:"neutralMinionsKilled"`
	GoldEarned                  int `json:"goldEarned"`

	VisionScore         int `json:"visionScore"`
	WardsPlaced         int `json:"wardsPlaced"`
	WardsKilled         int `json:"wardsKilled"`
	DetectorWardsPlaced int `json:"detectorWardsPlaced"`

	Item0 int `json:"item0"`
	Item1 int `json:"item1"`
	Item2 int `json:"item2"`
	Item3 int `json:"item3"`
	Item4 int `json:"item4"`
	Item5 int `json:"item5"`
	Item6 int `json:"item6"` // Trinket

	Summoner1ID int `json:"summoner1Id"`
	Summoner2ID int `json:"summoner2Id"`

	Perks      Perks      `json:"perks"`
	Challenges Challenges `json:"challenges"`
}

// TotalCS is lane minions plus jungle camps.
func (p MatchParticipant) TotalCS() int {
	return p.TotalMinionsKilled + p.NeutralMinionsKilled
}

// Items returns the seven inventory slots in order.
func (p MatchParticipant) Items() [7]int {
	return [7]int{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5, p.Item6}
}

// KeystoneID is the first selection of the primary rune style, 0 if absent.
func (p MatchParticipant) KeystoneID() int {
	if len(p.Perks.Styles) == 0 || len(p.Perks.Styles[0].Selections) == 0 {
		return 0
	}
	return p.Perks.Styles[0].Selections[0].Perk
}

// SubStyleID is the secondary rune tree, 0 if absent.
func (p MatchParticipant) SubStyleID() int {
	if len(p.Perks.Styles) < 2 {
		return 0
	}
	return p.Perks.Styles[1].Style
}

type Perks struct {
	Styles []PerkStyle `json:"styles"`
}

type PerkStyle struct {
	Description string          `json:"description"`
	Style       int             `json:"style"`
	Selections  []PerkSelection `json:"selections"`
}

type PerkSelection struct {
	Perk int `json:"perk"`
}

type Challenges struct {
	KillParticipation *float64 `json:"killParticipation,omitempty"`
}

type MatchTeam struct {
	TeamID     Side                     `json:"teamId"`
	Win        bool                     `json:"win"`
	Objectives map[string]TeamObjective `json:"objectives,omitempty"`
}

type TeamObjective struct {
	First bool `json:"first"`
	Kills int  `json:"kills"`
}

// TimelineResponse represents the response from /lol/match/v5/matches/{matchId}/timeline
type TimelineResponse struct {
	Metadata TimelineMetadata `json:"metadata"`
	Info     TimelineInfo     `json:"info"`
}

type TimelineMetadata struct {
	MatchID      string   `json:"matchId"`
	Participants []string `json:"participants"` // PUUIDs
}

type TimelineInfo struct {
	FrameInterval int64           `json:"frameInterval"`
	Frames        []TimelineFrame `json:"frames"`
}

type TimelineFrame struct {
	Timestamp         int64                       `json:"timestamp"`
	ParticipantFrames map[string]ParticipantFrame `json:"participantFrames"`
	Events            []TimelineEvent             `json:"events"`
}

// Participant returns the frame for a participant id. Riot keys the map by
// the decimal id ("1".."10").
func (f TimelineFrame) Participant(participantID int) (ParticipantFrame, bool) {
	pf, ok := f.ParticipantFrames[strconv.Itoa(participantID)]
	return pf, ok
}

type ParticipantFrame struct {
	ParticipantID       int       `json:"participantId"`
	Position            *Position `json:"position,omitempty"`
	TotalGold           int       `json:"totalGold"`
	CurrentGold         int       `json:"currentGold"`
	XP                  int       `json:"xp"`
	Level               int       `json:"level"`
	MinionsKilled       int       `json:"minionsKilled"`
	JungleMinionsKilled int       `json:"jungleMinionsKilled"`
}

// Position is a point on the Summoner's Rift map in game units.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Timeline event types consumed by the analyzers.
const (
	EventChampionKill     = "CHAMPION_KILL"
	EventEliteMonsterKill = "ELITE_MONSTER_KILL"
	EventBuildingKill     = "BUILDING_KILL"
	EventWardPlaced       = "WARD_PLACED"
	EventWardKill         = "WARD_KILL"
	EventItemPurchased    = "ITEM_PURCHASED"

	BuildingTower = "TOWER_BUILDING"
)

type TimelineEvent struct {
	Type          string    `json:"type"`
	Timestamp     int64     `json:"timestamp"`
	ParticipantID int       `json:"participantId,omitempty"`
	ItemID        int       `json:"itemId,omitempty"`
	KillerID      int       `json:"killerId,omitempty"`
	VictimID      int       `json:"victimId,omitempty"`
	CreatorID     int       `json:"creatorId,omitempty"`
	KillerTeamID  Side      `json:"killerTeamId,omitempty"`
	TeamID        Side      `json:"teamId,omitempty"` // BUILDING_KILL: owner of the destroyed building
	Position      *Position `json:"position,omitempty"`
	MonsterType   string    `json:"monsterType,omitempty"`
	MonsterSub    string    `json:"monsterSubType,omitempty"`
	BuildingType  string    `json:"buildingType,omitempty"`
	LaneType      string    `json:"laneType,omitempty"`
	TowerType     string    `json:"towerType,omitempty"`
	WardType      string    `json:"wardType,omitempty"`
}

// ExtractBuildOrder extracts completed item purchases for a participant in
// purchase order, skipping duplicates.
func ExtractBuildOrder(timeline *TimelineResponse, participantID int) []int {
	var buildOrder []int
	seenItems := make(map[int]bool)

	for _, frame := range timeline.Info.Frames {
		for _, event := range frame.Events {
			if event.Type == EventItemPurchased && event.ParticipantID == participantID {
				if IsCompletedItem(event.ItemID) && !seenItems[event.ItemID] {
					buildOrder = append(buildOrder, event.ItemID)
					seenItems[event.ItemID] = true
				}
			}
		}
	}

	return buildOrder
}

// Items that should be excluded from build order (consumables, components, etc.)
var ExcludedItems = map[int]bool{
	// Potions and consumables
	2003: true, // Health Potion
	2031: true, // Refillable Potion
	2033: true, // Corrupting Potion
	2055: true, // Control Ward
	2138: true, // Elixir of Iron
	2139: true, // Elixir of Sorcery
	2140: true, // Elixir of Wrath

	// Trinkets
	3340: true, // Stealth Ward
	3363: true, // Farsight Alteration
	3364: true, // Oracle Lens

	1001: true, // Boots

	// Early components and starters
	1036: true, 1037: true, 1038: true, 1052: true, 1058: true, 1026: true,
	1027: true, 1028: true, 1029: true, 1031: true, 1033: true, 1057: true,
	1042: true, 1043: true, 1018: true, 1053: true, 1054: true, 1055: true,
	1056: true, 1082: true, 1083: true,
}

// IsCompletedItem returns true if the item is a completed item worth tracking
func IsCompletedItem(itemID int) bool {
	if itemID == 0 {
		return false
	}
	if ExcludedItems[itemID] {
		return false
	}
	return itemID >= 2000
}
