package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/internal/security"

	_ "modernc.org/sqlite"
)

// Store is a single-file pad store for local and single-node deployments.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, err
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("sqlite store opened", "path", dbPath)
	return &Store{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pads (
		id TEXT PRIMARY KEY,
		key_hash TEXT NOT NULL,
		language TEXT NOT NULL,
		code TEXT NOT NULL DEFAULT '',
		output TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Create(ctx context.Context, pad *domain.Pad) error {
	output, err := domain.MarshalOutput(pad.Output)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO pads (id, key_hash, language, code, output, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, pad.ID, pad.KeyHash, string(pad.Language), pad.Code, output, now, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPadExists
	}
	pad.CreatedAt, pad.UpdatedAt = now, now
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Pad, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, key_hash, language, code, output, created_at, updated_at FROM pads WHERE id = ?",
		id,
	)

	var (
		p        domain.Pad
		language string
		output   string
	)
	err := row.Scan(&p.ID, &p.KeyHash, &language, &p.Code, &output, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPadNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Language = domain.Language(language)
	p.Output, err = domain.UnmarshalOutput(output)
	if err != nil {
		slog.Warn("stored output is not valid json, using empty log", "pad", id, "err", err)
	}
	return &p, nil
}

func (s *Store) Update(ctx context.Context, cp domain.Checkpoint) error {
	output, err := domain.MarshalOutput(cp.Output)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE pads SET language = ?, code = ?, output = ?, updated_at = ? WHERE id = ?",
		string(cp.Language), cp.Code, output, time.Now().UTC(), cp.PadID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrPadNotFound
	}
	return nil
}

func (s *Store) VerifyKey(ctx context.Context, id, key string) (bool, error) {
	var hash string
	err := s.db.QueryRowContext(ctx, "SELECT key_hash FROM pads WHERE id = ?", id).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return false, domain.ErrPadNotFound
	}
	if err != nil {
		return false, err
	}
	return security.CompareKey(hash, key), nil
}

// Count returns the number of stored pads.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pads").Scan(&n)
	return n, err
}
