package analysis

import (
	"fmt"

	"match-sync/internal/riot"
)

// Role is a standard team position as reported in teamPosition.
type Role string

const (
	RoleTop     Role = "TOP"
	RoleJungle  Role = "JUNGLE"
	RoleMiddle  Role = "MIDDLE"
	RoleBottom  Role = "BOTTOM"
	RoleUtility Role = "UTILITY"
)

// StandardRoles in display order.
var StandardRoles = []Role{RoleTop, RoleJungle, RoleMiddle, RoleBottom, RoleUtility}

// CurveMarker kinds.
const (
	MarkerObjective = "OBJECTIVE"
	MarkerTower     = "TOWER"
	MarkerKill      = "KILL"
)

// GrowthAnalysis is the per-match economy summary.
type GrowthAnalysis struct {
	Curve        []CurvePoint            `json:"curve"`
	Laning       map[Role]LaneComparison `json:"laning"`
	TurningPoint *TurningPoint           `json:"turningPoint"`
}

// CurvePoint is one timeline frame. GoldDiff is blue minus red.
type CurvePoint struct {
	Minute   int           `json:"minute"`
	BlueGold int           `json:"blueGold"`
	RedGold  int           `json:"redGold"`
	GoldDiff int           `json:"goldDiff"`
	Markers  []CurveMarker `json:"markers"`
}

type CurveMarker struct {
	Type        string    `json:"type"`
	Timestamp   int64     `json:"timestamp"`
	Side        riot.Side `json:"side"`
	MonsterType string    `json:"monsterType,omitempty"`
	Lane        string    `json:"lane,omitempty"`
}

type LaneComparison struct {
	Blue        LanePlayer `json:"blue"`
	Red         LanePlayer `json:"red"`
	GoldDiff    int        `json:"goldDiff"`
	XPDiff      int        `json:"xpDiff"`
	CSDiff      int        `json:"csDiff"`
	LeadingSide riot.Side  `json:"leadingSide"`
}

type LanePlayer struct {
	ParticipantID int    `json:"participantId"`
	ChampionName  string `json:"championName"`
	PlayerName    string `json:"playerName"`
	PlayerTag     string `json:"playerTag"`
	Gold          int    `json:"gold"`
	XP            int    `json:"xp"`
	CS            int    `json:"cs"`
	Level         int    `json:"level"`
}

// TurningPoint is the minute with the largest swing in GoldDiff. Change is
// signed: positive means blue gained.
type TurningPoint struct {
	Minute      int       `json:"minute"`
	Change      int       `json:"change"`
	GainingSide riot.Side `json:"gainingSide"`
	Description string    `json:"description"`
}

// AnalyzeGrowth builds the gold curve, the laning snapshot and the turning
// point. A missing or empty timeline yields an empty analysis.
func AnalyzeGrowth(match *riot.MatchResponse, timeline *riot.TimelineResponse, cfg Config) GrowthAnalysis {
	cfg = cfg.withDefaults()
	r := newRoster(match)

	out := GrowthAnalysis{
		Curve:  make([]CurvePoint, 0),
		Laning: make(map[Role]LaneComparison),
	}
	if timeline == nil || len(timeline.Info.Frames) == 0 {
		return out
	}

	out.Curve = goldCurve(r, timeline, cfg)
	if match != nil {
		out.Laning = laningSnapshot(match, timeline, cfg.LaningMinute)
	}
	out.TurningPoint = turningPoint(out.Curve, cfg.TurningPointThreshold)
	return out
}

// goldCurve builds one point per frame. Kill markers credit sides the same way
// team fights do, so executions count for the victim's opponents.
func goldCurve(r roster, timeline *riot.TimelineResponse, cfg Config) []CurvePoint {
	frames := timeline.Info.Frames

	var objectiveTimes []int64
	for _, f := range frames {
		for _, ev := range f.Events {
			if ev.Type == riot.EventEliteMonsterKill {
				objectiveTimes = append(objectiveTimes, ev.Timestamp)
			}
		}
	}
	window := cfg.CurveKillWindow.Milliseconds()
	nearObjective := func(ts int64) bool {
		for _, ot := range objectiveTimes {
			if abs64(ts-ot) <= window {
				return true
			}
		}
		return false
	}

	curve := make([]CurvePoint, 0, len(frames))
	for minute, f := range frames {
		point := CurvePoint{Minute: minute, Markers: make([]CurveMarker, 0)}

		for id := 1; id <= 10; id++ {
			pf, ok := f.Participant(id)
			if !ok {
				continue
			}
			switch r.side(id) {
			case riot.SideBlue:
				point.BlueGold += pf.TotalGold
			case riot.SideRed:
				point.RedGold += pf.TotalGold
			}
		}
		point.GoldDiff = point.BlueGold - point.RedGold

		for _, ev := range f.Events {
			switch {
			case ev.Type == riot.EventEliteMonsterKill:
				side := r.side(ev.KillerID)
				if side == riot.SideNone {
					side = ev.KillerTeamID
				}
				point.Markers = append(point.Markers, CurveMarker{
					Type:        MarkerObjective,
					Timestamp:   ev.Timestamp,
					Side:        side,
					MonsterType: ev.MonsterType,
				})
			case ev.Type == riot.EventBuildingKill && ev.BuildingType == riot.BuildingTower:
				point.Markers = append(point.Markers, CurveMarker{
					Type:      MarkerTower,
					Timestamp: ev.Timestamp,
					Side:      ev.TeamID.Opposite(),
					Lane:      laneName(ev.LaneType),
				})
			case ev.Type == riot.EventChampionKill && nearObjective(ev.Timestamp):
				point.Markers = append(point.Markers, CurveMarker{
					Type:      MarkerKill,
					Timestamp: ev.Timestamp,
					Side:      r.killerSide(ev),
				})
			}
		}
		curve = append(curve, point)
	}
	return curve
}

// laningSnapshot compares role opponents at the checkpoint frame, or the last
// frame for shorter games. Roles without a player on both sides are omitted.
func laningSnapshot(match *riot.MatchResponse, timeline *riot.TimelineResponse, minute int) map[Role]LaneComparison {
	frames := timeline.Info.Frames
	idx := minute
	if idx > len(frames)-1 {
		idx = len(frames) - 1
	}
	frame := frames[idx]

	out := make(map[Role]LaneComparison)
	for _, role := range StandardRoles {
		blue, okBlue := findRole(match, riot.SideBlue, role)
		red, okRed := findRole(match, riot.SideRed, role)
		if !okBlue || !okRed {
			continue
		}
		bf, okBlue := frame.Participant(blue.ParticipantID)
		rf, okRed := frame.Participant(red.ParticipantID)
		if !okBlue || !okRed {
			continue
		}

		cmp := LaneComparison{
			Blue: lanePlayer(blue, bf),
			Red:  lanePlayer(red, rf),
		}
		cmp.GoldDiff = cmp.Blue.Gold - cmp.Red.Gold
		cmp.XPDiff = cmp.Blue.XP - cmp.Red.XP
		cmp.CSDiff = cmp.Blue.CS - cmp.Red.CS
		switch {
		case cmp.GoldDiff > 0:
			cmp.LeadingSide = riot.SideBlue
		case cmp.GoldDiff < 0:
			cmp.LeadingSide = riot.SideRed
		}
		out[role] = cmp
	}
	return out
}

func findRole(match *riot.MatchResponse, side riot.Side, role Role) (riot.MatchParticipant, bool) {
	for _, p := range match.Info.Participants {
		if p.TeamID == side && Role(p.TeamPosition) == role {
			return p, true
		}
	}
	return riot.MatchParticipant{}, false
}

func lanePlayer(p riot.MatchParticipant, f riot.ParticipantFrame) LanePlayer {
	return LanePlayer{
		ParticipantID: p.ParticipantID,
		ChampionName:  p.ChampionName,
		PlayerName:    p.RiotIdGameName,
		PlayerTag:     p.RiotIdTagline,
		Gold:          f.TotalGold,
		XP:            f.XP,
		CS:            f.MinionsKilled + f.JungleMinionsKilled,
		Level:         f.Level,
	}
}

// turningPoint picks the largest minute-over-minute change in GoldDiff. The
// earliest minute wins ties. Swings below threshold are reported as nil.
func turningPoint(curve []CurvePoint, threshold int) *TurningPoint {
	if len(curve) < 2 {
		return nil
	}

	best, bestMinute := 0, 0
	for i := 1; i < len(curve); i++ {
		change := curve[i].GoldDiff - curve[i-1].GoldDiff
		if absInt(change) > absInt(best) {
			best = change
			bestMinute = curve[i].Minute
		}
	}
	if best == 0 || absInt(best) < threshold {
		return nil
	}

	tp := &TurningPoint{Minute: bestMinute, Change: best, GainingSide: riot.SideBlue}
	if best < 0 {
		tp.GainingSide = riot.SideRed
	}
	tp.Description = fmt.Sprintf("minute %d: %s gained %d gold on the swing", bestMinute, tp.GainingSide, absInt(best))
	return tp
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
