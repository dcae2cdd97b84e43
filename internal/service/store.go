package service

import (
	"context"

	"github.com/cwrk-planet/coderjam/internal/domain"
)

// PadStore is the durable pad repository. Get, Update and VerifyKey return
// domain.ErrPadNotFound for unknown ids; Create returns domain.ErrPadExists
// on an id collision.
type PadStore interface {
	Get(ctx context.Context, id string) (*domain.Pad, error)
	Create(ctx context.Context, pad *domain.Pad) error
	Update(ctx context.Context, cp domain.Checkpoint) error
	VerifyKey(ctx context.Context, id, key string) (bool, error)
}
