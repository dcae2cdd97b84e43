package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
)

const DefaultGrantTTL = 24 * time.Hour

// KeyVerifier checks a pad access key. Unknown pads yield
// domain.ErrPadNotFound.
type KeyVerifier interface {
	VerifyKey(ctx context.Context, padID, key string) (bool, error)
}

// Grant records that a connection proved knowledge of a pad's key.
type Grant struct {
	PadID     string
	GrantedAt time.Time
}

// GrantCache holds at most one grant per connection. A grant is valid while
// now-GrantedAt < ttl and every successful check slides it forward.
type GrantCache struct {
	verifier KeyVerifier
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	grants map[string]Grant
}

func NewGrantCache(v KeyVerifier, ttl time.Duration) *GrantCache {
	if ttl <= 0 {
		ttl = DefaultGrantTTL
	}
	return &GrantCache{
		verifier: v,
		ttl:      ttl,
		now:      time.Now,
		grants:   make(map[string]Grant),
	}
}

func (c *GrantCache) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// Authorize reports whether connID may act on padID. See Check.
func (c *GrantCache) Authorize(ctx context.Context, connID, padID, key string) bool {
	return c.Check(ctx, connID, padID, key) == nil
}

// Check grants connID access to padID or says why not. A live grant for the
// same pad is refreshed and accepted. Otherwise key must verify against the
// store, which replaces any grant the connection held for another pad.
// Unknown pads yield domain.ErrPadNotFound and a missing or wrong key
// domain.ErrBadKey; any other error comes from the verifier. Failed checks
// leave existing grants alone, except that an expired grant is dropped.
func (c *GrantCache) Check(ctx context.Context, connID, padID, key string) error {
	c.mu.Lock()
	g, ok := c.grants[connID]
	if ok && g.PadID == padID {
		now := c.now()
		if now.Sub(g.GrantedAt) < c.ttl {
			c.grants[connID] = Grant{PadID: padID, GrantedAt: now}
			c.mu.Unlock()
			return nil
		}
		delete(c.grants, connID)
		slog.Debug("grant expired", "conn", connID, "pad", padID)
	}
	c.mu.Unlock()

	if key == "" {
		return domain.ErrBadKey
	}
	valid, err := c.verifier.VerifyKey(ctx, padID, key)
	if errors.Is(err, domain.ErrPadNotFound) {
		slog.Debug("verify key for unknown pad", "conn", connID, "pad", padID)
		return domain.ErrPadNotFound
	}
	if err != nil {
		slog.Warn("verify pad key failed", "conn", connID, "pad", padID, "err", err)
		return fmt.Errorf("verify pad key: %w", err)
	}
	if !valid {
		return domain.ErrBadKey
	}

	c.mu.Lock()
	c.grants[connID] = Grant{PadID: padID, GrantedAt: c.now()}
	c.mu.Unlock()
	return nil
}

func (c *GrantCache) Revoke(connID string) {
	c.mu.Lock()
	delete(c.grants, connID)
	c.mu.Unlock()
}

func (c *GrantCache) Lookup(connID string) (Grant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.grants[connID]
	return g, ok
}

func (c *GrantCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.grants)
}
