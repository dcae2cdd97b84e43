package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/internal/security"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PadRepository struct {
	db *pgxpool.Pool
	q  querier
}

func NewPadRepository(db *pgxpool.Pool) *PadRepository {
	return &PadRepository{db: db, q: db}
}

func (r *PadRepository) Ping(ctx context.Context) error {
	return Ping(ctx, r.db)
}

func (r *PadRepository) Create(ctx context.Context, pad *domain.Pad) error {
	output, err := domain.MarshalOutput(pad.Output)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO pads (id, key_hash, language, code, output)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	err = r.q.QueryRow(ctx, query, pad.ID, pad.KeyHash, string(pad.Language), pad.Code, output).
		Scan(&pad.CreatedAt, &pad.UpdatedAt)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PadRepository) Get(ctx context.Context, id string) (*domain.Pad, error) {
	var (
		p        domain.Pad
		language string
		output   string
	)
	query := `SELECT id, key_hash, language, code, output, created_at, updated_at FROM pads WHERE id=$1`
	err := r.q.QueryRow(ctx, query, id).
		Scan(&p.ID, &p.KeyHash, &language, &p.Code, &output, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPadNotFound
		}
		return nil, err
	}

	p.Language = domain.Language(language)
	p.Output, err = domain.UnmarshalOutput(output)
	if err != nil {
		slog.Warn("stored output is not valid json, using empty log", "pad", id, "err", err)
	}
	return &p, nil
}

func (r *PadRepository) Update(ctx context.Context, cp domain.Checkpoint) error {
	output, err := domain.MarshalOutput(cp.Output)
	if err != nil {
		return err
	}
	query := `
		UPDATE pads SET language=$2, code=$3, output=$4, updated_at=$5
		WHERE id=$1`
	tag, err := r.q.Exec(ctx, query, cp.PadID, string(cp.Language), cp.Code, output, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPadNotFound
	}
	return nil
}

func (r *PadRepository) VerifyKey(ctx context.Context, id, key string) (bool, error) {
	var hash string
	err := r.q.QueryRow(ctx, `SELECT key_hash FROM pads WHERE id=$1`, id).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, domain.ErrPadNotFound
		}
		return false, err
	}
	return security.CompareKey(hash, key), nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 - unique violation
		if pgErr.Code == "23505" {
			return domain.ErrPadExists
		}
	}
	return err
}
