package collector

import (
	"math"
	"sort"

	"match-sync/internal/store"
)

// minSharedMembers is how many tracked members must appear in a match for it
// to count toward group stats.
const minSharedMembers = 2

// GroupSummary aggregates matches where at least two members played together.
type GroupSummary struct {
	GroupID        string          `json:"groupId"`
	TotalMatches   int             `json:"totalMatches"`
	WinCount       int             `json:"winCount"`
	WinRatePercent float64         `json:"winRatePercent"`
	Members        []MemberSummary `json:"members"`
}

// MemberSummary is one member's record within shared matches.
type MemberSummary struct {
	MemberID       string  `json:"memberId"`
	MatchCount     int     `json:"matchCount"`
	WinCount       int     `json:"winCount"`
	WinRatePercent float64 `json:"winRatePercent"`
}

type sharedMatch struct {
	members map[string]bool // member id -> won
	won     bool
}

// Summarize builds the group summary from member rows. Every account in
// accounts gets a member entry, including those with no shared matches.
func Summarize(groupID string, accounts []store.TrackedAccount, rows []store.GroupMatchPlayerRow) GroupSummary {
	matches := make(map[string]*sharedMatch)
	for _, r := range rows {
		m, ok := matches[r.MatchID]
		if !ok {
			m = &sharedMatch{members: make(map[string]bool)}
			matches[r.MatchID] = m
		}
		m.members[r.MemberID] = r.Win
		if r.Win {
			m.won = true
		}
	}

	summary := GroupSummary{GroupID: groupID, Members: []MemberSummary{}}
	perMember := make(map[string]*MemberSummary)

	for _, m := range matches {
		if len(m.members) < minSharedMembers {
			continue
		}
		summary.TotalMatches++
		if m.won {
			summary.WinCount++
		}
		for memberID, won := range m.members {
			ms, ok := perMember[memberID]
			if !ok {
				ms = &MemberSummary{MemberID: memberID}
				perMember[memberID] = ms
			}
			ms.MatchCount++
			if won {
				ms.WinCount++
			}
		}
	}
	summary.WinRatePercent = winRatePercent(summary.WinCount, summary.TotalMatches)

	for _, a := range accounts {
		ms := MemberSummary{MemberID: a.MemberID}
		if agg, ok := perMember[a.MemberID]; ok {
			ms = *agg
		}
		ms.WinRatePercent = winRatePercent(ms.WinCount, ms.MatchCount)
		summary.Members = append(summary.Members, ms)
	}
	sort.Slice(summary.Members, func(i, j int) bool {
		return summary.Members[i].MemberID < summary.Members[j].MemberID
	})

	return summary
}

// winRatePercent rounds to one decimal place, 0 when there are no matches.
func winRatePercent(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(wins)/float64(total)*1000) / 10
}
