package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/internal/security"
)

const maxCreateAttempts = 100

var ErrIDSpaceExhausted = errors.New("failed to generate a unique pad id")

// PadService creates pads and serves authorised reads outside a session.
type PadService struct {
	store   PadStore
	keyCost int
}

// NewPadService; keyCost is the bcrypt cost for access keys, 0 for default.
func NewPadService(store PadStore, keyCost int) *PadService {
	return &PadService{store: store, keyCost: keyCost}
}

// Create stores a new pad and returns it with its plaintext access key. The
// key is not recoverable afterwards; only its hash is kept.
func (s *PadService) Create(ctx context.Context) (*domain.Pad, string, error) {
	key, err := security.NewAccessKey()
	if err != nil {
		return nil, "", err
	}
	hash, err := security.HashKey(key, s.keyCost)
	if err != nil {
		return nil, "", err
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		id, err := security.NewPadID(domain.PadIDLength)
		if err != nil {
			return nil, "", err
		}
		pad := domain.NewPad(id, hash)
		err = s.store.Create(ctx, pad)
		if errors.Is(err, domain.ErrPadExists) {
			slog.Debug("pad id collision", "pad", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("create pad: %w", err)
		}
		slog.Info("pad created", "pad", id)
		return pad, key, nil
	}
	return nil, "", ErrIDSpaceExhausted
}

// Get returns the stored pad if key opens it.
func (s *PadService) Get(ctx context.Context, id, key string) (*domain.Pad, error) {
	if !domain.ValidPadID(id) {
		return nil, domain.ErrInvalidPadID
	}
	ok, err := s.store.VerifyKey(ctx, id, key)
	switch {
	case errors.Is(err, domain.ErrPadNotFound):
		return nil, domain.ErrPadNotFound
	case err != nil:
		return nil, fmt.Errorf("verify key: %w", err)
	case !ok:
		return nil, domain.ErrBadKey
	}
	return s.store.Get(ctx, id)
}
