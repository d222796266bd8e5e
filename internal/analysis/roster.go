package analysis

import (
	"math"

	"match-sync/internal/riot"
)

// PlayerPosition places one participant on the map.
type PlayerPosition struct {
	ParticipantID int       `json:"participantId"`
	ChampionName  string    `json:"championName"`
	Side          riot.Side `json:"side"`
	X             int       `json:"x"`
	Y             int       `json:"y"`
}

// roster resolves participant ids against the match detail.
type roster struct {
	byID map[int]riot.MatchParticipant
}

func newRoster(match *riot.MatchResponse) roster {
	r := roster{byID: make(map[int]riot.MatchParticipant)}
	if match == nil {
		return r
	}
	for _, p := range match.Info.Participants {
		r.byID[p.ParticipantID] = p
	}
	return r
}

// side returns the participant's team. Ids missing from the detail fall back
// to the standard slot layout: 1-5 blue, 6-10 red.
func (r roster) side(participantID int) riot.Side {
	if p, ok := r.byID[participantID]; ok && p.TeamID != riot.SideNone {
		return p.TeamID
	}
	switch {
	case participantID >= 1 && participantID <= 5:
		return riot.SideBlue
	case participantID >= 6 && participantID <= 10:
		return riot.SideRed
	default:
		return riot.SideNone
	}
}

// killerSide credits a champion kill. Executions (killer 0) go to the side
// opposite the victim.
func (r roster) killerSide(ev riot.TimelineEvent) riot.Side {
	if ev.KillerID > 0 {
		return r.side(ev.KillerID)
	}
	return r.side(ev.VictimID).Opposite()
}

// deathPosition records where a kill's victim died. ok is false when the
// victim is unknown or the event carries no position.
func (r roster) deathPosition(ev riot.TimelineEvent) (PlayerPosition, bool) {
	p, ok := r.byID[ev.VictimID]
	if !ok || ev.Position == nil {
		return PlayerPosition{}, false
	}
	return PlayerPosition{
		ParticipantID: ev.VictimID,
		ChampionName:  p.ChampionName,
		Side:          r.side(ev.VictimID),
		X:             ev.Position.X,
		Y:             ev.Position.Y,
	}, true
}

// frameIndex maps a timestamp onto the nearest frame, clamped to the last one.
func frameIndex(timestamp, interval int64, frames int) int {
	if frames == 0 {
		return -1
	}
	if interval <= 0 {
		interval = 60000
	}
	idx := int(math.Round(float64(timestamp) / float64(interval)))
	if idx < 0 {
		idx = 0
	}
	if idx > frames-1 {
		idx = frames - 1
	}
	return idx
}

// positionsAt returns every known participant's position in the frame nearest
// to timestamp, ordered by participant id.
func (r roster) positionsAt(timeline *riot.TimelineResponse, interval, timestamp int64) []PlayerPosition {
	if timeline == nil {
		return nil
	}
	idx := frameIndex(timestamp, interval, len(timeline.Info.Frames))
	if idx < 0 {
		return nil
	}
	frame := timeline.Info.Frames[idx]

	var out []PlayerPosition
	for id := 1; id <= 10; id++ {
		pf, ok := frame.Participant(id)
		if !ok || pf.Position == nil {
			continue
		}
		p, ok := r.byID[id]
		if !ok {
			continue
		}
		out = append(out, PlayerPosition{
			ParticipantID: id,
			ChampionName:  p.ChampionName,
			Side:          r.side(id),
			X:             pf.Position.X,
			Y:             pf.Position.Y,
		})
	}
	return out
}

func distance(a, b riot.Position) float64 {
	dx := float64(a.X - b.X)
	dy := float64(a.Y - b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
