package analysis

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"match-sync/internal/riot"
)

// FlowKind is the category of a flow event.
type FlowKind string

const (
	KindTeamfight FlowKind = "TEAMFIGHT"
	KindObjective FlowKind = "OBJECTIVE"
	KindStructure FlowKind = "STRUCTURE"
)

// Formation describes how the destroying side stood around a tower.
type Formation string

const (
	FormationGrouped Formation = "GROUPED"
	FormationSplit   Formation = "SPLIT"
)

// flowNamespace seeds the name-based event ids.
var flowNamespace = uuid.MustParse("6f1d2a5e-3c4b-4e8f-9a7d-2b5c8e1f0a34")

// FlowEvent is one notable moment of a match.
type FlowEvent struct {
	ID             string        `json:"id"`
	Timestamp      int64         `json:"timestamp"`
	Kind           FlowKind      `json:"kind"`
	Position       riot.Position `json:"position"`
	TriggeringSide riot.Side     `json:"triggeringSide"`
	WinningSide    riot.Side     `json:"winningSide"`

	Teamfight *TeamfightDetail `json:"teamfight,omitempty"`
	Objective *ObjectiveDetail `json:"objective,omitempty"`
	Structure *StructureDetail `json:"structure,omitempty"`
	Vision    *VisionStats     `json:"vision,omitempty"`

	PlayerPositions []PlayerPosition `json:"playerPositions"`
	DeadPositions   []PlayerPosition `json:"deadPositions"`
}

type TeamfightDetail struct {
	BlueKills  int   `json:"blueKills"`
	RedKills   int   `json:"redKills"`
	DurationMs int64 `json:"durationMs"`
}

type ObjectiveDetail struct {
	MonsterType    string `json:"monsterType"`
	MonsterSubType string `json:"monsterSubType,omitempty"`
}

type StructureDetail struct {
	Formation       Formation `json:"formation"`
	Lane            string    `json:"lane"`
	TowerType       string    `json:"towerType,omitempty"`
	NearbyAttackers int       `json:"nearbyAttackers"`
}

// VisionStats tallies ward activity per side in the window before an event.
type VisionStats struct {
	Blue SideVision `json:"blue"`
	Red  SideVision `json:"red"`
}

type SideVision struct {
	Placed int `json:"placed"`
	Killed int `json:"killed"`
}

// flowInput is the shared, read-only view handed to each detector.
type flowInput struct {
	cfg      Config
	matchID  string
	roster   roster
	timeline *riot.TimelineResponse
	interval int64
	events   []riot.TimelineEvent
}

// AnalyzeFlow extracts team fights, objective takes and tower kills, merged
// in ascending timestamp order. It never fails: a match without clusterable
// events yields an empty slice.
func AnalyzeFlow(match *riot.MatchResponse, timeline *riot.TimelineResponse, cfg Config) []FlowEvent {
	in := newFlowInput(match, timeline, cfg.withDefaults())

	out := make([]FlowEvent, 0)
	out = append(out, detectTeamfights(in)...)
	out = append(out, detectObjectives(in)...)
	out = append(out, detectStructures(in)...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

func newFlowInput(match *riot.MatchResponse, timeline *riot.TimelineResponse, cfg Config) flowInput {
	in := flowInput{
		cfg:      cfg,
		roster:   newRoster(match),
		timeline: timeline,
		interval: cfg.FrameInterval.Milliseconds(),
	}
	if match != nil {
		in.matchID = match.Metadata.MatchID
	}
	if timeline == nil {
		return in
	}
	if timeline.Info.FrameInterval > 0 {
		in.interval = timeline.Info.FrameInterval
	}
	for _, f := range timeline.Info.Frames {
		in.events = append(in.events, f.Events...)
	}
	// frames are chronological but events inside a frame are not guaranteed to be
	sort.SliceStable(in.events, func(i, j int) bool {
		return in.events[i].Timestamp < in.events[j].Timestamp
	})
	return in
}

// eventID is stable for a given match, kind, timestamp and ordinal.
func eventID(matchID string, kind FlowKind, ts int64, seq int) string {
	return uuid.NewSHA1(flowNamespace, []byte(fmt.Sprintf("%s:%s:%d:%d", matchID, kind, ts, seq))).String()
}

// detectTeamfights clusters kills in two passes. Pass one walks the kills in
// time order and assigns each unconsumed seed every later kill inside the
// window and radius, consumed or not. Consumption only keeps a kill from
// seeding, so one kill can count toward two overlapping fights. Pass two turns
// clusters that reached the threshold into events. Kills of a cluster that
// fell short stay available as seeds.
func detectTeamfights(in flowInput) []FlowEvent {
	var kills []riot.TimelineEvent
	for _, ev := range in.events {
		if ev.Type == riot.EventChampionKill && ev.Position != nil {
			kills = append(kills, ev)
		}
	}

	window := in.cfg.TeamfightWindow.Milliseconds()
	consumed := make([]bool, len(kills))
	var clusters [][]int

	for i, seed := range kills {
		if consumed[i] {
			continue
		}
		members := []int{i}
		for j := i + 1; j < len(kills); j++ {
			if kills[j].Timestamp-seed.Timestamp > window {
				break
			}
			if distance(*seed.Position, *kills[j].Position) <= in.cfg.TeamfightRadius {
				members = append(members, j)
			}
		}
		if len(members) < in.cfg.TeamfightMinKills {
			continue
		}
		for _, m := range members {
			consumed[m] = true
		}
		clusters = append(clusters, members)
	}

	events := make([]FlowEvent, 0, len(clusters))
	seq := make(map[int64]int)
	for _, members := range clusters {
		anchor := kills[members[0]]
		last := kills[members[len(members)-1]]

		detail := &TeamfightDetail{DurationMs: last.Timestamp - anchor.Timestamp}
		dead := make([]PlayerPosition, 0, len(members))
		for _, m := range members {
			switch in.roster.killerSide(kills[m]) {
			case riot.SideBlue:
				detail.BlueKills++
			case riot.SideRed:
				detail.RedKills++
			}
			if pos, ok := in.roster.deathPosition(kills[m]); ok {
				dead = append(dead, pos)
			}
		}

		// ties go to blue
		winner := riot.SideBlue
		if detail.RedKills > detail.BlueKills {
			winner = riot.SideRed
		}

		events = append(events, FlowEvent{
			ID:              eventID(in.matchID, KindTeamfight, anchor.Timestamp, seq[anchor.Timestamp]),
			Timestamp:       anchor.Timestamp,
			Kind:            KindTeamfight,
			Position:        *anchor.Position,
			TriggeringSide:  in.roster.killerSide(anchor),
			WinningSide:     winner,
			Teamfight:       detail,
			Vision:          visionBefore(in, anchor.Timestamp),
			PlayerPositions: in.roster.positionsAt(in.timeline, in.interval, anchor.Timestamp),
			DeadPositions:   dead,
		})
		seq[anchor.Timestamp]++
	}
	return events
}

func detectObjectives(in flowInput) []FlowEvent {
	var events []FlowEvent
	seq := make(map[int64]int)
	for _, ev := range in.events {
		if ev.Type != riot.EventEliteMonsterKill {
			continue
		}

		side := in.roster.side(ev.KillerID)
		if side == riot.SideNone {
			side = ev.KillerTeamID
		}

		events = append(events, FlowEvent{
			ID:             eventID(in.matchID, KindObjective, ev.Timestamp, seq[ev.Timestamp]),
			Timestamp:      ev.Timestamp,
			Kind:           KindObjective,
			Position:       positionOrZero(ev.Position),
			TriggeringSide: side,
			WinningSide:    side,
			Objective: &ObjectiveDetail{
				MonsterType:    ev.MonsterType,
				MonsterSubType: ev.MonsterSub,
			},
			Vision:          visionBefore(in, ev.Timestamp),
			PlayerPositions: in.roster.positionsAt(in.timeline, in.interval, ev.Timestamp),
			DeadPositions:   killsAround(in, ev.Timestamp),
		})
		seq[ev.Timestamp]++
	}
	return events
}

// detectStructures handles tower kills. The headcount for a grouped push uses
// the frame positions of every player on the destroying side, dead or alive:
// frames are sampled once a minute and carry no respawn state.
func detectStructures(in flowInput) []FlowEvent {
	var events []FlowEvent
	seq := make(map[int64]int)
	for _, ev := range in.events {
		if ev.Type != riot.EventBuildingKill || ev.BuildingType != riot.BuildingTower {
			continue
		}

		attacker := ev.TeamID.Opposite()
		positions := in.roster.positionsAt(in.timeline, in.interval, ev.Timestamp)

		nearby := 0
		if ev.Position != nil {
			for _, p := range positions {
				if p.Side == attacker && distance(riot.Position{X: p.X, Y: p.Y}, *ev.Position) <= in.cfg.GroupedPushRadius {
					nearby++
				}
			}
		}
		formation := FormationSplit
		if nearby >= in.cfg.GroupedPushMinPlayers {
			formation = FormationGrouped
		}

		events = append(events, FlowEvent{
			ID:             eventID(in.matchID, KindStructure, ev.Timestamp, seq[ev.Timestamp]),
			Timestamp:      ev.Timestamp,
			Kind:           KindStructure,
			Position:       positionOrZero(ev.Position),
			TriggeringSide: attacker,
			WinningSide:    attacker,
			Structure: &StructureDetail{
				Formation:       formation,
				Lane:            laneName(ev.LaneType),
				TowerType:       ev.TowerType,
				NearbyAttackers: nearby,
			},
			Vision:          visionBefore(in, ev.Timestamp),
			PlayerPositions: positions,
			DeadPositions:   killsAround(in, ev.Timestamp),
		})
		seq[ev.Timestamp]++
	}
	return events
}

// visionBefore counts wards placed and cleared per side in the window ending
// at timestamp (inclusive at both ends).
func visionBefore(in flowInput, timestamp int64) *VisionStats {
	from := timestamp - in.cfg.VisionWindow.Milliseconds()
	stats := &VisionStats{}

	for _, ev := range in.events {
		if ev.Timestamp < from {
			continue
		}
		if ev.Timestamp > timestamp {
			break
		}

		var actor int
		switch ev.Type {
		case riot.EventWardPlaced:
			actor = ev.CreatorID
		case riot.EventWardKill:
			actor = ev.KillerID
		default:
			continue
		}
		if actor == 0 {
			continue
		}

		var sv *SideVision
		switch in.roster.side(actor) {
		case riot.SideBlue:
			sv = &stats.Blue
		case riot.SideRed:
			sv = &stats.Red
		default:
			continue
		}
		if ev.Type == riot.EventWardPlaced {
			sv.Placed++
		} else {
			sv.Killed++
		}
	}
	return stats
}

// killsAround returns where champions died within the context window on
// either side of timestamp.
func killsAround(in flowInput, timestamp int64) []PlayerPosition {
	window := in.cfg.KillContextWindow.Milliseconds()
	out := make([]PlayerPosition, 0)
	for _, ev := range in.events {
		if ev.Type != riot.EventChampionKill || abs64(ev.Timestamp-timestamp) > window {
			continue
		}
		if pos, ok := in.roster.deathPosition(ev); ok {
			out = append(out, pos)
		}
	}
	return out
}

func laneName(laneType string) string {
	switch laneType {
	case "TOP_LANE":
		return "TOP"
	case "MID_LANE":
		return "MID"
	case "BOT_LANE":
		return "BOT"
	default:
		return "BASE"
	}
}

func positionOrZero(p *riot.Position) riot.Position {
	if p == nil {
		return riot.Position{}
	}
	return *p
}
