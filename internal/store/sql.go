package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on database/sql for SQLite-family engines.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens a local database file, or an in-memory database for
// ":memory:". In-memory databases are private to a connection, so the pool
// is pinned to one.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	dsn := ":memory:"
	if path != ":memory:" && path != "" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if dsn == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return newSQLStore(ctx, db)
}

// OpenLibSQL connects to a Turso database.
func OpenLibSQL(ctx context.Context, url, authToken string) (*SQLStore, error) {
	connStr := url
	if authToken != "" {
		connStr = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Turso: %w", err)
	}
	return newSQLStore(ctx, db)
}

func newSQLStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &SQLStore{db: db, now: time.Now}, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate creates the tables if they don't exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, query := range sqliteSchema {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

func (s *SQLStore) TrackedAccounts(ctx context.Context, groupID string) ([]TrackedAccount, error) {
	rows, err := s.db.QueryContext(ctx, qTrackedAccounts, groupID)
	if err != nil {
		return nil, fmt.Errorf("query tracked accounts: %w", err)
	}
	defer rows.Close()

	var out []TrackedAccount
	for rows.Next() {
		a, err := scanTrackedAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) SyncCursors(ctx context.Context, groupID string) (map[string]SyncCursor, error) {
	rows, err := s.db.QueryContext(ctx, qSyncCursors, groupID)
	if err != nil {
		return nil, fmt.Errorf("query sync cursors: %w", err)
	}
	defer rows.Close()

	out := make(map[string]SyncCursor)
	for rows.Next() {
		c, err := scanSyncCursor(rows)
		if err != nil {
			return nil, err
		}
		out[c.MemberID] = c
	}
	return out, rows.Err()
}

func (s *SQLStore) GroupIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, qGroupIDs)
	if err != nil {
		return nil, fmt.Errorf("query group ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (s *SQLStore) LastSyncedAt(ctx context.Context, groupID string) (time.Time, error) {
	var ms int64
	if err := s.db.QueryRowContext(ctx, qLastSyncedAt, groupID).Scan(&ms); err != nil {
		return time.Time{}, err
	}
	if ms == 0 {
		return time.Time{}, ErrNotFound
	}
	return fromMillis(ms), nil
}

func (s *SQLStore) GroupMatchPlayers(ctx context.Context, groupID string) ([]GroupMatchPlayerRow, error) {
	rows, err := s.db.QueryContext(ctx, qGroupMatchPlayers, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group match players: %w", err)
	}
	defer rows.Close()

	var out []GroupMatchPlayerRow
	for rows.Next() {
		r, err := scanGroupMatchPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) MatchAnalysis(ctx context.Context, matchID string) (*MatchAnalysis, error) {
	a := &MatchAnalysis{MatchID: matchID}
	var latest int64

	for _, q := range []struct {
		query string
		dst   *[]byte
	}{{qFlowEvents, &a.Flow}, {qGrowth, &a.Growth}} {
		var (
			blob string
			at   int64
		)
		err := s.db.QueryRowContext(ctx, q.query, matchID).Scan(&blob, &at)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		*q.dst = []byte(blob)
		latest = max(latest, at)
	}

	if a.Flow == nil && a.Growth == nil {
		return nil, ErrNotFound
	}
	a.UpdatedAt = fromMillis(latest)
	return a, nil
}

func (s *SQLStore) UpsertTrackedAccount(ctx context.Context, a TrackedAccount) error {
	_, err := s.db.ExecContext(ctx, qUpsertTrackedAccount, a.GroupID, a.MemberID, a.PUUID, a.GameName, a.TagLine)
	return err
}

func (s *SQLStore) UpsertSyncCursor(ctx context.Context, c SyncCursor) error {
	_, err := s.db.ExecContext(ctx, qUpsertSyncCursor, cursorArgs(c)...)
	return err
}

func (s *SQLStore) UpsertMatch(ctx context.Context, m MatchRecord) error {
	_, err := s.db.ExecContext(ctx, qUpsertMatch, matchArgs(m)...)
	return err
}

func (s *SQLStore) UpsertTeams(ctx context.Context, teams []TeamSnapshot) error {
	args := make([][]any, 0, len(teams))
	for _, t := range teams {
		a, err := teamArgs(t)
		if err != nil {
			return err
		}
		args = append(args, a)
	}
	return s.execBatch(ctx, qUpsertTeam, args)
}

// UpsertParticipants writes all rows in one transaction.
func (s *SQLStore) UpsertParticipants(ctx context.Context, ps []ParticipantSnapshot) error {
	args := make([][]any, 0, len(ps))
	for _, p := range ps {
		a, err := participantArgs(p)
		if err != nil {
			return err
		}
		args = append(args, a)
	}
	return s.execBatch(ctx, qUpsertParticipant, args)
}

func (s *SQLStore) UpsertGroupMatchPlayer(ctx context.Context, row GroupMatchPlayerRow) error {
	args, err := groupMatchPlayerArgs(row)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, qUpsertGroupMatchPlayer, args...)
	return err
}

func (s *SQLStore) UpsertFlowEvents(ctx context.Context, matchID string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, qUpsertFlowEvents, matchID, string(blob), s.now().UnixMilli())
	return err
}

func (s *SQLStore) UpsertGrowth(ctx context.Context, matchID string, blob []byte) error {
	_, err := s.db.ExecContext(ctx, qUpsertGrowth, matchID, string(blob), s.now().UnixMilli())
	return err
}

func (s *SQLStore) execBatch(ctx context.Context, query string, args [][]any) error {
	if len(args) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		tx.Rollback()
		return err
	}

	for _, a := range args {
		if _, err := stmt.ExecContext(ctx, a...); err != nil {
			stmt.Close()
			tx.Rollback()
			return err
		}
	}

	stmt.Close()
	return tx.Commit()
}
