package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/pagekeeper/internal/domain"
	"github.com/hamed0406/pagekeeper/internal/repo"
)

var _ repo.SnapshotStore = (*Store)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS keeper_snapshot (
  id         SMALLINT PRIMARY KEY CHECK (id = 1),
  summary    JSONB NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

// Store mirrors the last cycle summary into a single Postgres row so a
// restarted process can serve it before its first cycle.
type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Save(ctx context.Context, sum domain.CycleSummary) error {
	body, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO keeper_snapshot (id, summary, updated_at)
		 VALUES (1, $1, now())
		 ON CONFLICT (id) DO UPDATE SET summary = EXCLUDED.summary, updated_at = EXCLUDED.updated_at`,
		body)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	s.log.Debug("snapshot_saved", zap.String("cycle_id", sum.CycleID))
	return nil
}

func (s *Store) Latest(ctx context.Context) (domain.CycleSummary, error) {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT summary FROM keeper_snapshot WHERE id = 1`).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CycleSummary{}, repo.ErrNoSnapshot
	}
	if err != nil {
		return domain.CycleSummary{}, fmt.Errorf("latest snapshot: %w", err)
	}
	var sum domain.CycleSummary
	if err := json.Unmarshal(body, &sum); err != nil {
		return domain.CycleSummary{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return sum, nil
}
