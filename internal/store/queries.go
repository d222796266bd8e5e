package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"match-sync/internal/riot"
)

// Queries are written with ? placeholders and rebound to $n for Postgres.
// Both engines understand INSERT ... ON CONFLICT ... DO UPDATE with excluded.
const (
	qTrackedAccounts = `
		SELECT group_id, member_id, puuid, game_name, tag_line
		FROM tracked_accounts
		WHERE group_id = ?
		ORDER BY member_id`

	qSyncCursors = `
		SELECT group_id, member_id, puuid, last_match_started_at, last_synced_at
		FROM sync_cursors
		WHERE group_id = ?`

	qGroupIDs = `
		SELECT DISTINCT group_id FROM tracked_accounts ORDER BY group_id`

	qLastSyncedAt = `
		SELECT COALESCE(MAX(last_synced_at), 0) FROM sync_cursors WHERE group_id = ?`

	qGroupMatchPlayers = `
		SELECT group_id, match_id, member_id, puuid, started_at, champion_id, champion_name,
			team_position, win, kills, deaths, assists, cs, damage_dealt, gold_earned,
			vision_score, items, build_order
		FROM group_match_players
		WHERE group_id = ?
		ORDER BY started_at DESC, match_id, member_id`

	qFlowEvents = `
		SELECT events, updated_at FROM match_game_flows WHERE match_id = ?`

	qGrowth = `
		SELECT analysis, updated_at FROM match_growth WHERE match_id = ?`

	qUpsertTrackedAccount = `
		INSERT INTO tracked_accounts (group_id, member_id, puuid, game_name, tag_line)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (group_id, member_id) DO UPDATE SET
			puuid = excluded.puuid,
			game_name = excluded.game_name,
			tag_line = excluded.tag_line`

	// the cursor never moves backwards for the same puuid; a relinked member
	// starts over
	qUpsertSyncCursor = `
		INSERT INTO sync_cursors (group_id, member_id, puuid, last_match_started_at, last_synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (group_id, member_id) DO UPDATE SET
			last_match_started_at = CASE
				WHEN excluded.puuid <> sync_cursors.puuid
					OR excluded.last_match_started_at > sync_cursors.last_match_started_at
				THEN excluded.last_match_started_at
				ELSE sync_cursors.last_match_started_at END,
			puuid = excluded.puuid,
			last_synced_at = excluded.last_synced_at`

	qUpsertMatch = `
		INSERT INTO group_matches (group_id, match_id, queue_id, game_version, duration_seconds, started_at, winning_side)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (group_id, match_id) DO NOTHING`

	qUpsertTeam = `
		INSERT INTO match_teams (match_id, side, win, objectives)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (match_id, side) DO UPDATE SET
			win = excluded.win,
			objectives = excluded.objectives`

	qUpsertParticipant = `
		INSERT INTO match_participants (
			match_id, participant_id, puuid, game_name, tag_line, champion_id, champion_name,
			champ_level, side, team_position, win, kills, deaths, assists, damage_dealt,
			damage_taken, cs, gold_earned, vision_score, wards_placed, wards_killed,
			control_wards, items, summoner1_id, summoner2_id, keystone_id, sub_style_id,
			perks, kill_participation)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (match_id, participant_id) DO UPDATE SET
			puuid = excluded.puuid,
			game_name = excluded.game_name,
			tag_line = excluded.tag_line,
			champion_id = excluded.champion_id,
			champion_name = excluded.champion_name,
			champ_level = excluded.champ_level,
			side = excluded.side,
			team_position = excluded.team_position,
			win = excluded.win,
			kills = excluded.kills,
			deaths = excluded.deaths,
			assists = excluded.assists,
			damage_dealt = excluded.damage_dealt,
			damage_taken = excluded.damage_taken,
			cs = excluded.cs,
			gold_earned = excluded.gold_earned,
			vision_score = excluded.vision_score,
			wards_placed = excluded.wards_placed,
			wards_killed = excluded.wards_killed,
			control_wards = excluded.control_wards,
			items = excluded.items,
			summoner1_id = excluded.summoner1_id,
			summoner2_id = excluded.summoner2_id,
			keystone_id = excluded.keystone_id,
			sub_style_id = excluded.sub_style_id,
			perks = excluded.perks,
			kill_participation = excluded.kill_participation`

	qUpsertGroupMatchPlayer = `
		INSERT INTO group_match_players (
			group_id, match_id, member_id, puuid, started_at, champion_id, champion_name,
			team_position, win, kills, deaths, assists, cs, damage_dealt, gold_earned,
			vision_score, items, build_order)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (group_id, match_id, member_id) DO UPDATE SET
			puuid = excluded.puuid,
			started_at = excluded.started_at,
			champion_id = excluded.champion_id,
			champion_name = excluded.champion_name,
			team_position = excluded.team_position,
			win = excluded.win,
			kills = excluded.kills,
			deaths = excluded.deaths,
			assists = excluded.assists,
			cs = excluded.cs,
			damage_dealt = excluded.damage_dealt,
			gold_earned = excluded.gold_earned,
			vision_score = excluded.vision_score,
			items = excluded.items,
			build_order = excluded.build_order`

	qUpsertFlowEvents = `
		INSERT INTO match_game_flows (match_id, events, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (match_id) DO UPDATE SET
			events = excluded.events,
			updated_at = excluded.updated_at`

	qUpsertGrowth = `
		INSERT INTO match_growth (match_id, analysis, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (match_id) DO UPDATE SET
			analysis = excluded.analysis,
			updated_at = excluded.updated_at`
)

// rebind rewrites ? placeholders as $1, $2, ...
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrackedAccount(s scanner) (TrackedAccount, error) {
	var a TrackedAccount
	err := s.Scan(&a.GroupID, &a.MemberID, &a.PUUID, &a.GameName, &a.TagLine)
	return a, err
}

func scanSyncCursor(s scanner) (SyncCursor, error) {
	var (
		c        SyncCursor
		syncedAt int64
	)
	if err := s.Scan(&c.GroupID, &c.MemberID, &c.PUUID, &c.LastMatchStartedAt, &syncedAt); err != nil {
		return c, err
	}
	c.LastSyncedAt = fromMillis(syncedAt)
	return c, nil
}

func scanGroupMatchPlayer(s scanner) (GroupMatchPlayerRow, error) {
	var (
		r                 GroupMatchPlayerRow
		items, buildOrder string
	)
	err := s.Scan(&r.GroupID, &r.MatchID, &r.MemberID, &r.PUUID, &r.StartedAt, &r.ChampionID,
		&r.ChampionName, &r.TeamPosition, &r.Win, &r.Kills, &r.Deaths, &r.Assists, &r.CS,
		&r.DamageDealt, &r.GoldEarned, &r.VisionScore, &items, &buildOrder)
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(items), &r.Items); err != nil {
		return r, fmt.Errorf("decode items: %w", err)
	}
	if err := json.Unmarshal([]byte(buildOrder), &r.BuildOrder); err != nil {
		return r, fmt.Errorf("decode build order: %w", err)
	}
	return r, nil
}

func cursorArgs(c SyncCursor) []any {
	return []any{c.GroupID, c.MemberID, c.PUUID, c.LastMatchStartedAt, toMillis(c.LastSyncedAt)}
}

func matchArgs(m MatchRecord) []any {
	return []any{m.GroupID, m.MatchID, m.QueueID, m.GameVersion, m.DurationSeconds, m.StartedAt, int(m.WinningSide)}
}

func teamArgs(t TeamSnapshot) ([]any, error) {
	objectives := t.Objectives
	if objectives == nil {
		objectives = map[string]riot.TeamObjective{}
	}
	blob, err := json.Marshal(objectives)
	if err != nil {
		return nil, fmt.Errorf("encode objectives: %w", err)
	}
	return []any{t.MatchID, int(t.Side), t.Win, string(blob)}, nil
}

func participantArgs(p ParticipantSnapshot) ([]any, error) {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	perks, err := json.Marshal(p.Perks)
	if err != nil {
		return nil, fmt.Errorf("encode perks: %w", err)
	}
	return []any{
		p.MatchID, p.ParticipantID, p.PUUID, p.GameName, p.TagLine, p.ChampionID, p.ChampionName,
		p.ChampLevel, int(p.Side), p.TeamPosition, p.Win, p.Kills, p.Deaths, p.Assists, p.DamageDealt,
		p.DamageTaken, p.CS, p.GoldEarned, p.VisionScore, p.WardsPlaced, p.WardsKilled,
		p.ControlWards, string(items), p.Summoner1ID, p.Summoner2ID, p.KeystoneID, p.SubStyleID,
		string(perks), p.KillParticipation,
	}, nil
}

func groupMatchPlayerArgs(r GroupMatchPlayerRow) ([]any, error) {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	buildOrder := r.BuildOrder
	if buildOrder == nil {
		buildOrder = []int{}
	}
	order, err := json.Marshal(buildOrder)
	if err != nil {
		return nil, fmt.Errorf("encode build order: %w", err)
	}
	return []any{
		r.GroupID, r.MatchID, r.MemberID, r.PUUID, r.StartedAt, r.ChampionID, r.ChampionName,
		r.TeamPosition, r.Win, r.Kills, r.Deaths, r.Assists, r.CS, r.DamageDealt, r.GoldEarned,
		r.VisionScore, string(items), string(order),
	}, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
