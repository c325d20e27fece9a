package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hamed0406/pagekeeper/internal/domain"
	"github.com/hamed0406/pagekeeper/internal/repo"
)

var _ repo.SnapshotStore = (*Store)(nil)

// Store keeps the last cycle summary in a local SQLite file, for hosts
// without a Postgres database.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("error open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error ping db: %w", err)
	}
	_, err = db.Exec(`
	CREATE TABLE IF NOT EXISTS keeper_snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		summary TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating keeper_snapshot table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Save(ctx context.Context, sum domain.CycleSummary) error {
	body, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
	INSERT INTO keeper_snapshot (id, summary, updated_at) VALUES (1, ?, ?)
	ON CONFLICT(id) DO UPDATE SET summary = excluded.summary, updated_at = excluded.updated_at
	`, string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context) (domain.CycleSummary, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT summary FROM keeper_snapshot WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CycleSummary{}, repo.ErrNoSnapshot
	}
	if err != nil {
		return domain.CycleSummary{}, fmt.Errorf("latest snapshot: %w", err)
	}
	var sum domain.CycleSummary
	if err := json.Unmarshal([]byte(body), &sum); err != nil {
		return domain.CycleSummary{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return sum, nil
}
