package collector

import (
	"errors"
	"fmt"

	"match-sync/internal/riot"
	"match-sync/internal/store"
)

// ErrMalformedMatch marks a match payload that cannot be normalized. The
// match is skipped and stays eligible for the next run.
var ErrMalformedMatch = errors.New("malformed match")

const (
	playersPerMatch = 10
	playersPerSide  = 5
)

// normalizedMatch is everything persisted for one match, independent of
// which group members played it.
type normalizedMatch struct {
	record       store.MatchRecord
	teams        []store.TeamSnapshot
	participants []store.ParticipantSnapshot
}

func normalizeMatch(groupID, matchID string, m *riot.MatchResponse) (*normalizedMatch, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedMatch)
	}
	if m.Metadata.MatchID != "" {
		matchID = m.Metadata.MatchID
	}

	info := m.Info
	if len(info.Participants) != playersPerMatch {
		return nil, fmt.Errorf("%w: %s has %d participants", ErrMalformedMatch, matchID, len(info.Participants))
	}
	var blue, red int
	for _, p := range info.Participants {
		switch p.TeamID {
		case riot.SideBlue:
			blue++
		case riot.SideRed:
			red++
		}
	}
	if blue != playersPerSide || red != playersPerSide {
		return nil, fmt.Errorf("%w: %s has %d blue and %d red participants", ErrMalformedMatch, matchID, blue, red)
	}

	nm := &normalizedMatch{
		record: store.MatchRecord{
			GroupID:         groupID,
			MatchID:         matchID,
			QueueID:         info.QueueID,
			GameVersion:     info.GameVersion,
			DurationSeconds: info.GameDuration,
			StartedAt:       info.StartedAt(),
			WinningSide:     info.WinningSide(),
		},
		participants: make([]store.ParticipantSnapshot, 0, playersPerMatch),
	}

	for _, t := range info.Teams {
		nm.teams = append(nm.teams, store.TeamSnapshot{
			MatchID:    matchID,
			Side:       t.TeamID,
			Win:        t.Win,
			Objectives: t.Objectives,
		})
	}

	for _, p := range info.Participants {
		nm.participants = append(nm.participants, participantSnapshot(matchID, p))
	}
	return nm, nil
}

func participantSnapshot(matchID string, p riot.MatchParticipant) store.ParticipantSnapshot {
	return store.ParticipantSnapshot{
		MatchID:           matchID,
		ParticipantID:     p.ParticipantID,
		PUUID:             p.PUUID,
		GameName:          p.RiotIdGameName,
		TagLine:           p.RiotIdTagline,
		ChampionID:        p.ChampionID,
		ChampionName:      p.ChampionName,
		ChampLevel:        p.ChampLevel,
		Side:              p.TeamID,
		TeamPosition:      p.TeamPosition,
		Win:               p.Win,
		Kills:             p.Kills,
		Deaths:            p.Deaths,
		Assists:           p.Assists,
		DamageDealt:       p.TotalDamageDealtToChampions,
		DamageTaken:       p.TotalDamageTaken,
		CS:                p.TotalCS(),
		GoldEarned:        p.GoldEarned,
		VisionScore:       p.VisionScore,
		WardsPlaced:       p.WardsPlaced,
		WardsKilled:       p.WardsKilled,
		ControlWards:      p.DetectorWardsPlaced,
		Items:             p.Items(),
		Summoner1ID:       p.Summoner1ID,
		Summoner2ID:       p.Summoner2ID,
		KeystoneID:        p.KeystoneID(),
		SubStyleID:        p.SubStyleID(),
		Perks:             p.Perks,
		KillParticipation: p.Challenges.KillParticipation,
	}
}

// memberRow builds the group-scoped row for a tracked member. Build order is
// empty when the timeline is missing.
func memberRow(rec store.MatchRecord, acct store.TrackedAccount, p riot.MatchParticipant, timeline *riot.TimelineResponse) store.GroupMatchPlayerRow {
	var order []int
	if timeline != nil {
		order = riot.ExtractBuildOrder(timeline, p.ParticipantID)
	}
	return store.GroupMatchPlayerRow{
		GroupID:      rec.GroupID,
		MatchID:      rec.MatchID,
		MemberID:     acct.MemberID,
		PUUID:        acct.PUUID,
		StartedAt:    rec.StartedAt,
		ChampionID:   p.ChampionID,
		ChampionName: p.ChampionName,
		TeamPosition: p.TeamPosition,
		Win:          p.Win,
		Kills:        p.Kills,
		Deaths:       p.Deaths,
		Assists:      p.Assists,
		CS:           p.TotalCS(),
		DamageDealt:  p.TotalDamageDealtToChampions,
		GoldEarned:   p.GoldEarned,
		VisionScore:  p.VisionScore,
		Items:        p.Items(),
		BuildOrder:   order,
	}
}
