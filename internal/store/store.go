// Package store persists tracked accounts, sync cursors, normalized match
// snapshots and analysis blobs. Every write is an upsert keyed by the natural
// identity of the row, so repeating a write is always safe.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"match-sync/internal/riot"
)

// ErrNotFound is returned by single-row reads with no match.
var ErrNotFound = errors.New("store: not found")

// TrackedAccount is a group member with a linked Riot account. PUUID may be
// empty for members who have not linked yet.
type TrackedAccount struct {
	GroupID  string
	MemberID string
	PUUID    string
	GameName string
	TagLine  string
}

// SyncCursor is the per-member watermark. LastMatchStartedAt is epoch
// milliseconds; zero means nothing has been synced yet.
type SyncCursor struct {
	GroupID            string
	MemberID           string
	PUUID              string
	LastMatchStartedAt int64
	LastSyncedAt       time.Time
}

// MatchRecord is a match as seen by one group.
type MatchRecord struct {
	GroupID         string
	MatchID         string
	QueueID         int
	GameVersion     string
	DurationSeconds int
	StartedAt       int64
	WinningSide     riot.Side
}

// TeamSnapshot is one side's result and objective tally.
type TeamSnapshot struct {
	MatchID    string
	Side       riot.Side
	Win        bool
	Objectives map[string]riot.TeamObjective
}

// ParticipantSnapshot is one of the ten players of a match at game end.
type ParticipantSnapshot struct {
	MatchID       string
	ParticipantID int
	PUUID         string
	GameName      string
	TagLine       string
	ChampionID    int
	ChampionName  string
	ChampLevel    int
	Side          riot.Side
	TeamPosition  string
	Win           bool

	Kills   int
	Deaths  int
	Assists int

	DamageDealt int
	DamageTaken int
	CS          int
	GoldEarned  int

	VisionScore  int
	WardsPlaced  int
	WardsKilled  int
	ControlWards int

	Items       [7]int
	Summoner1ID int
	Summoner2ID int
	KeystoneID  int
	SubStyleID  int
	Perks       riot.Perks

	KillParticipation *float64
}

// GroupMatchPlayerRow joins a tracked member to a match they played.
type GroupMatchPlayerRow struct {
	GroupID      string
	MatchID      string
	MemberID     string
	PUUID        string
	StartedAt    int64
	ChampionID   int
	ChampionName string
	TeamPosition string
	Win          bool
	Kills        int
	Deaths       int
	Assists      int
	CS           int
	DamageDealt  int
	GoldEarned   int
	VisionScore  int
	Items        [7]int
	BuildOrder   []int
}

// MatchAnalysis holds the encoded analyzer outputs of one match. Either blob
// may be nil when that analyzer has not produced output.
type MatchAnalysis struct {
	MatchID   string
	Flow      []byte
	Growth    []byte
	UpdatedAt time.Time
}

// Store is the persistence contract used by the sync engine and the API.
type Store interface {
	TrackedAccounts(ctx context.Context, groupID string) ([]TrackedAccount, error)
	SyncCursors(ctx context.Context, groupID string) (map[string]SyncCursor, error)
	GroupIDs(ctx context.Context) ([]string, error)
	LastSyncedAt(ctx context.Context, groupID string) (time.Time, error)
	GroupMatchPlayers(ctx context.Context, groupID string) ([]GroupMatchPlayerRow, error)
	MatchAnalysis(ctx context.Context, matchID string) (*MatchAnalysis, error)

	UpsertTrackedAccount(ctx context.Context, a TrackedAccount) error
	UpsertSyncCursor(ctx context.Context, c SyncCursor) error
	UpsertMatch(ctx context.Context, m MatchRecord) error
	UpsertTeams(ctx context.Context, teams []TeamSnapshot) error
	UpsertParticipants(ctx context.Context, ps []ParticipantSnapshot) error
	UpsertGroupMatchPlayer(ctx context.Context, row GroupMatchPlayerRow) error
	UpsertFlowEvents(ctx context.Context, matchID string, blob []byte) error
	UpsertGrowth(ctx context.Context, matchID string, blob []byte) error

	Migrate(ctx context.Context) error
	Close() error
}

// Open picks a backend from the URL scheme: postgres:// and postgresql:// use
// pgx, libsql:// and https:// use the Turso client, anything else is treated
// as a local SQLite path or DSN.
func Open(ctx context.Context, url, authToken string) (Store, error) {
	switch {
	case url == "":
		return nil, errors.New("store: database url is empty")
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url)
	case strings.HasPrefix(url, "libsql://"), strings.HasPrefix(url, "https://"):
		return OpenLibSQL(ctx, url, authToken)
	default:
		s, err := OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
		if err != nil {
			return nil, fmt.Errorf("open sqlite %q: %w", url, err)
		}
		return s, nil
	}
}
