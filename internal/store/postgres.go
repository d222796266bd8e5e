package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store on a pgx connection pool.
type PGStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres creates a pool and verifies connectivity.
func OpenPostgres(ctx context.Context, url string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PGStore{pool: pool, now: time.Now}, nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PGStore) Migrate(ctx context.Context) error {
	for _, query := range postgresSchema {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}
	return nil
}

func (s *PGStore) TrackedAccounts(ctx context.Context, groupID string) ([]TrackedAccount, error) {
	rows, err := s.pool.Query(ctx, rebind(qTrackedAccounts), groupID)
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

func (s *PGStore) SyncCursors(ctx context.Context, groupID string) (map[string]SyncCursor, error) {
	rows, err := s.pool.Query(ctx, rebind(qSyncCursors), groupID)
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

func (s *PGStore) GroupIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, qGroupIDs)
	if err != nil {
		return nil, fmt.Errorf("query group ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (s *PGStore) LastSyncedAt(ctx context.Context, groupID string) (time.Time, error) {
	var ms int64
	if err := s.pool.QueryRow(ctx, rebind(qLastSyncedAt), groupID).Scan(&ms); err != nil {
		return time.Time{}, err
	}
	if ms == 0 {
		return time.Time{}, ErrNotFound
	}
	return fromMillis(ms), nil
}

func (s *PGStore) GroupMatchPlayers(ctx context.Context, groupID string) ([]GroupMatchPlayerRow, error) {
	rows, err := s.pool.Query(ctx, rebind(qGroupMatchPlayers), groupID)
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

func (s *PGStore) MatchAnalysis(ctx context.Context, matchID string) (*MatchAnalysis, error) {
	a := &MatchAnalysis{MatchID: matchID}
	var latest int64

	batch := &pgx.Batch{}
	batch.Queue(rebind(qFlowEvents), matchID)
	batch.Queue(rebind(qGrowth), matchID)
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, dst := range []*[]byte{&a.Flow, &a.Growth} {
		var (
			blob string
			at   int64
		)
		err := br.QueryRow().Scan(&blob, &at)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, err
		}
		*dst = []byte(blob)
		latest = max(latest, at)
	}

	if a.Flow == nil && a.Growth == nil {
		return nil, ErrNotFound
	}
	a.UpdatedAt = fromMillis(latest)
	return a, nil
}

func (s *PGStore) UpsertTrackedAccount(ctx context.Context, a TrackedAccount) error {
	_, err := s.pool.Exec(ctx, rebind(qUpsertTrackedAccount), a.GroupID, a.MemberID, a.PUUID, a.GameName, a.TagLine)
	return err
}

func (s *PGStore) UpsertSyncCursor(ctx context.Context, c SyncCursor) error {
	_, err := s.pool.Exec(ctx, rebind(qUpsertSyncCursor), cursorArgs(c)...)
	return err
}

func (s *PGStore) UpsertMatch(ctx context.Context, m MatchRecord) error {
	_, err := s.pool.Exec(ctx, rebind(qUpsertMatch), matchArgs(m)...)
	return err
}

func (s *PGStore) UpsertTeams(ctx context.Context, teams []TeamSnapshot) error {
	batch := &pgx.Batch{}
	query := rebind(qUpsertTeam)
	for _, t := range teams {
		args, err := teamArgs(t)
		if err != nil {
			return err
		}
		batch.Queue(query, args...)
	}
	return s.sendTx(ctx, batch)
}

func (s *PGStore) UpsertParticipants(ctx context.Context, ps []ParticipantSnapshot) error {
	batch := &pgx.Batch{}
	query := rebind(qUpsertParticipant)
	for _, p := range ps {
		args, err := participantArgs(p)
		if err != nil {
			return err
		}
		batch.Queue(query, args...)
	}
	return s.sendTx(ctx, batch)
}

func (s *PGStore) UpsertGroupMatchPlayer(ctx context.Context, row GroupMatchPlayerRow) error {
	args, err := groupMatchPlayerArgs(row)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, rebind(qUpsertGroupMatchPlayer), args...)
	return err
}

func (s *PGStore) UpsertFlowEvents(ctx context.Context, matchID string, blob []byte) error {
	_, err := s.pool.Exec(ctx, rebind(qUpsertFlowEvents), matchID, string(blob), s.now().UnixMilli())
	return err
}

func (s *PGStore) UpsertGrowth(ctx context.Context, matchID string, blob []byte) error {
	_, err := s.pool.Exec(ctx, rebind(qUpsertGrowth), matchID, string(blob), s.now().UnixMilli())
	return err
}

// sendTx runs a batch inside one transaction so a match's rows land together.
func (s *PGStore) sendTx(ctx context.Context, batch *pgx.Batch) error {
	if batch.Len() == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
