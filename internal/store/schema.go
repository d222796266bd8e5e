package store

// sqliteSchema serves both modernc sqlite and libsql (Turso).
var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS tracked_accounts (
		group_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		puuid TEXT NOT NULL DEFAULT '',
		game_name TEXT NOT NULL DEFAULT '',
		tag_line TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (group_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_cursors (
		group_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		puuid TEXT NOT NULL,
		last_match_started_at INTEGER NOT NULL DEFAULT 0,
		last_synced_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (group_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS group_matches (
		group_id TEXT NOT NULL,
		match_id TEXT NOT NULL,
		queue_id INTEGER NOT NULL,
		game_version TEXT NOT NULL DEFAULT '',
		duration_seconds INTEGER NOT NULL,
		started_at INTEGER NOT NULL,
		winning_side INTEGER NOT NULL,
		PRIMARY KEY (group_id, match_id)
	)`,
	`CREATE TABLE IF NOT EXISTS match_teams (
		match_id TEXT NOT NULL,
		side INTEGER NOT NULL,
		win INTEGER NOT NULL,
		objectives TEXT NOT NULL,
		PRIMARY KEY (match_id, side)
	)`,
	`CREATE TABLE IF NOT EXISTS match_participants (
		match_id TEXT NOT NULL,
		participant_id INTEGER NOT NULL,
		puuid TEXT NOT NULL,
		game_name TEXT NOT NULL,
		tag_line TEXT NOT NULL,
		champion_id INTEGER NOT NULL,
		champion_name TEXT NOT NULL,
		champ_level INTEGER NOT NULL,
		side INTEGER NOT NULL,
		team_position TEXT NOT NULL,
		win INTEGER NOT NULL,
		kills INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		assists INTEGER NOT NULL,
		damage_dealt INTEGER NOT NULL,
		damage_taken INTEGER NOT NULL,
		cs INTEGER NOT NULL,
		gold_earned INTEGER NOT NULL,
		vision_score INTEGER NOT NULL,
		wards_placed INTEGER NOT NULL,
		wards_killed INTEGER NOT NULL,
		control_wards INTEGER NOT NULL,
		items TEXT NOT NULL,
		summoner1_id INTEGER NOT NULL,
		summoner2_id INTEGER NOT NULL,
		keystone_id INTEGER NOT NULL,
		sub_style_id INTEGER NOT NULL,
		perks TEXT NOT NULL,
		kill_participation REAL,
		PRIMARY KEY (match_id, participant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS group_match_players (
		group_id TEXT NOT NULL,
		match_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		puuid TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		champion_id INTEGER NOT NULL,
		champion_name TEXT NOT NULL,
		team_position TEXT NOT NULL,
		win INTEGER NOT NULL,
		kills INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		assists INTEGER NOT NULL,
		cs INTEGER NOT NULL,
		damage_dealt INTEGER NOT NULL,
		gold_earned INTEGER NOT NULL,
		vision_score INTEGER NOT NULL,
		items TEXT NOT NULL,
		build_order TEXT NOT NULL,
		PRIMARY KEY (group_id, match_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS match_game_flows (
		match_id TEXT PRIMARY KEY,
		events TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_growth (
		match_id TEXT PRIMARY KEY,
		analysis TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_group_match_players_started ON group_match_players(group_id, started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_match_participants_puuid ON match_participants(puuid)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS tracked_accounts (
		group_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		puuid TEXT NOT NULL DEFAULT '',
		game_name TEXT NOT NULL DEFAULT '',
		tag_line TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (group_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_cursors (
		group_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		puuid TEXT NOT NULL,
		last_match_started_at BIGINT NOT NULL DEFAULT 0,
		last_synced_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (group_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS group_matches (
		group_id TEXT NOT NULL,
		match_id TEXT NOT NULL,
		queue_id INTEGER NOT NULL,
		game_version TEXT NOT NULL DEFAULT '',
		duration_seconds INTEGER NOT NULL,
		started_at BIGINT NOT NULL,
		winning_side INTEGER NOT NULL,
		PRIMARY KEY (group_id, match_id)
	)`,
	`CREATE TABLE IF NOT EXISTS match_teams (
		match_id TEXT NOT NULL,
		side INTEGER NOT NULL,
		win BOOLEAN NOT NULL,
		objectives JSONB NOT NULL,
		PRIMARY KEY (match_id, side)
	)`,
	`CREATE TABLE IF NOT EXISTS match_participants (
		match_id TEXT NOT NULL,
		participant_id INTEGER NOT NULL,
		puuid TEXT NOT NULL,
		game_name TEXT NOT NULL,
		tag_line TEXT NOT NULL,
		champion_id INTEGER NOT NULL,
		champion_name TEXT NOT NULL,
		champ_level INTEGER NOT NULL,
		side INTEGER NOT NULL,
		team_position TEXT NOT NULL,
		win BOOLEAN NOT NULL,
		kills INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		assists INTEGER NOT NULL,
		damage_dealt INTEGER NOT NULL,
		damage_taken INTEGER NOT NULL,
		cs INTEGER NOT NULL,
		gold_earned INTEGER NOT NULL,
		vision_score INTEGER NOT NULL,
		wards_placed INTEGER NOT NULL,
		wards_killed INTEGER NOT NULL,
		control_wards INTEGER NOT NULL,
		items JSONB NOT NULL,
		summoner1_id INTEGER NOT NULL,
		summoner2_id INTEGER NOT NULL,
		keystone_id INTEGER NOT NULL,
		sub_style_id INTEGER NOT NULL,
		perks JSONB NOT NULL,
		kill_participation DOUBLE PRECISION,
		PRIMARY KEY (match_id, participant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS group_match_players (
		group_id TEXT NOT NULL,
		match_id TEXT NOT NULL,
		member_id TEXT NOT NULL,
		puuid TEXT NOT NULL,
		started_at BIGINT NOT NULL,
		champion_id INTEGER NOT NULL,
		champion_name TEXT NOT NULL,
		team_position TEXT NOT NULL,
		win BOOLEAN NOT NULL,
		kills INTEGER NOT NULL,
		deaths INTEGER NOT NULL,
		assists INTEGER NOT NULL,
		cs INTEGER NOT NULL,
		damage_dealt INTEGER NOT NULL,
		gold_earned INTEGER NOT NULL,
		vision_score INTEGER NOT NULL,
		items JSONB NOT NULL,
		build_order JSONB NOT NULL,
		PRIMARY KEY (group_id, match_id, member_id)
	)`,
	`CREATE TABLE IF NOT EXISTS match_game_flows (
		match_id TEXT PRIMARY KEY,
		events JSONB NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS match_growth (
		match_id TEXT PRIMARY KEY,
		analysis JSONB NOT NULL,
		updated_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_group_match_players_started ON group_match_players(group_id, started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_match_participants_puuid ON match_participants(puuid)`,
}
