package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/internal/security"

	"github.com/redis/go-redis/v9"
)

const maxUpdateRetries = 16

type Config struct {
	Addr     string
	DB       int
	Password string
}

// record is the JSON value stored under pad:<id>. Output keeps the same
// JSON-text form the SQL stores use.
type record struct {
	ID        string    `json:"id"`
	KeyHash   string    `json:"keyHash"`
	Language  string    `json:"language"`
	Code      string    `json:"code"`
	Output    string    `json:"output"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// getter is satisfied by *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

type Store struct {
	rdb *redis.Client
}

// New connects to redis and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return &Store{rdb: rdb}, nil
}

func (s *Store) Close() error { return s.rdb.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.rdb.Ping(ctx).Err() }

func (s *Store) Create(ctx context.Context, pad *domain.Pad) error {
	output, err := domain.MarshalOutput(pad.Output)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	raw, err := json.Marshal(record{
		ID:        pad.ID,
		KeyHash:   pad.KeyHash,
		Language:  string(pad.Language),
		Code:      pad.Code,
		Output:    output,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return err
	}

	ok, err := s.rdb.SetNX(ctx, key(pad.ID), raw, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrPadExists
	}
	pad.CreatedAt, pad.UpdatedAt = now, now
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Pad, error) {
	rec, err := s.load(ctx, s.rdb, id)
	if err != nil {
		return nil, err
	}

	pad := &domain.Pad{
		ID:        rec.ID,
		KeyHash:   rec.KeyHash,
		Language:  domain.Language(rec.Language),
		Code:      rec.Code,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
	pad.Output, err = domain.UnmarshalOutput(rec.Output)
	if err != nil {
		slog.Warn("stored output is not valid json, using empty log", "pad", id, "err", err)
	}
	return pad, nil
}

// Update rewrites the durable fields under WATCH so a concurrent writer
// cannot resurrect stale fields.
func (s *Store) Update(ctx context.Context, cp domain.Checkpoint) error {
	output, err := domain.MarshalOutput(cp.Output)
	if err != nil {
		return err
	}
	k := key(cp.PadID)

	txf := func(tx *redis.Tx) error {
		rec, err := s.load(ctx, tx, cp.PadID)
		if err != nil {
			return err
		}
		rec.Language = string(cp.Language)
		rec.Code = cp.Code
		rec.Output = output
		rec.UpdatedAt = time.Now().UTC()
		raw, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, raw, 0)
			return nil
		})
		return err
	}

	for range maxUpdateRetries {
		err := s.rdb.Watch(ctx, txf, k)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return redis.TxFailedErr
}

func (s *Store) VerifyKey(ctx context.Context, id, key string) (bool, error) {
	rec, err := s.load(ctx, s.rdb, id)
	if err != nil {
		return false, err
	}
	return security.CompareKey(rec.KeyHash, key), nil
}

func (s *Store) load(ctx context.Context, c getter, id string) (*record, error) {
	raw, err := c.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrPadNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// key namespaces pad records.
func key(id string) string { return "pad:" + id }
