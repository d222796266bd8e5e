package analysis

import (
	"strconv"

	"match-sync/internal/riot"
)

var testRoles = []string{"TOP", "JUNGLE", "MIDDLE", "BOTTOM", "UTILITY"}

// standardMatch returns a 5v5 detail: ids 1-5 blue, 6-10 red, roles in
// standard order on each side.
func standardMatch() *riot.MatchResponse {
	m := &riot.MatchResponse{Metadata: riot.MatchMetadata{MatchID: "NA1_100"}}
	for id := 1; id <= 10; id++ {
		side := riot.SideBlue
		if id > 5 {
			side = riot.SideRed
		}
		m.Info.Participants = append(m.Info.Participants, riot.MatchParticipant{
			ParticipantID:  id,
			PUUID:          "puuid-" + string(rune('a'+id-1)),
			ChampionName:   "Champ" + string(rune('A'+id-1)),
			RiotIdGameName: "player" + string(rune('a'+id-1)),
			RiotIdTagline:  "NA1",
			TeamID:         side,
			TeamPosition:   testRoles[(id-1)%5],
		})
	}
	return m
}

// uniformFrames builds n frames where every participant stands at pos and
// holds gold given by goldFor(minute, id).
func uniformFrames(n int, pos riot.Position, goldFor func(minute, id int) int) []riot.TimelineFrame {
	frames := make([]riot.TimelineFrame, n)
	for minute := range frames {
		pfs := make(map[string]riot.ParticipantFrame)
		for id := 1; id <= 10; id++ {
			p := pos
			pfs[strconv.Itoa(id)] = riot.ParticipantFrame{
				ParticipantID:       id,
				Position:            &p,
				TotalGold:           goldFor(minute, id),
				XP:                  100 * minute,
				Level:               1 + minute/2,
				MinionsKilled:       8 * minute,
				JungleMinionsKilled: 0,
			}
		}
		frames[minute] = riot.TimelineFrame{Timestamp: int64(minute) * 60000, ParticipantFrames: pfs}
	}
	return frames
}

func timelineOf(frames []riot.TimelineFrame) *riot.TimelineResponse {
	return &riot.TimelineResponse{Info: riot.TimelineInfo{FrameInterval: 60000, Frames: frames}}
}

// addEvent appends ev to the frame covering its timestamp.
func addEvent(tl *riot.TimelineResponse, ev riot.TimelineEvent) {
	idx := int(ev.Timestamp / 60000)
	if idx >= len(tl.Info.Frames) {
		idx = len(tl.Info.Frames) - 1
	}
	tl.Info.Frames[idx].Events = append(tl.Info.Frames[idx].Events, ev)
}

func kill(ts int64, killer, victim, x, y int) riot.TimelineEvent {
	return riot.TimelineEvent{
		Type:      riot.EventChampionKill,
		Timestamp: ts,
		KillerID:  killer,
		VictimID:  victim,
		Position:  &riot.Position{X: x, Y: y},
	}
}

func flatGold(int, int) int { return 500 }
