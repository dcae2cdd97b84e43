package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/pkg/metrics"
)

const DefaultPersistTimeout = 5 * time.Second

type PadWriter interface {
	Update(ctx context.Context, cp domain.Checkpoint) error
}

// Persister writes room checkpoints back to the store off the broadcast
// path. Pending writes are coalesced per pad: only the latest checkpoint
// enqueued for a pad is written.
type Persister struct {
	store   PadWriter
	timeout time.Duration

	mu       sync.Mutex
	pending  map[string]domain.Checkpoint
	order    []string
	inflight map[string]inflightWrite
	seq      uint64
	wake     chan struct{}
}

type inflightWrite struct {
	cp  domain.Checkpoint
	seq uint64
}

func NewPersister(store PadWriter, timeout time.Duration) *Persister {
	if timeout <= 0 {
		timeout = DefaultPersistTimeout
	}
	return &Persister{
		store:   store,
		timeout: timeout,
		pending:  make(map[string]domain.Checkpoint),
		inflight: make(map[string]inflightWrite),
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue never blocks.
func (p *Persister) Enqueue(cp domain.Checkpoint) {
	p.mu.Lock()
	if _, ok := p.pending[cp.PadID]; !ok {
		p.order = append(p.order, cp.PadID)
	}
	p.pending[cp.PadID] = cp
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run drains the queue until ctx is done, then flushes what is left. ctx
// only stops the loop; a write already under way is not cut short by it.
func (p *Persister) Run(ctx context.Context) {
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			p.Flush(writeCtx)
			return
		case <-p.wake:
			p.Flush(writeCtx)
		}
	}
}

// Flush writes every pending checkpoint and returns the number of failures.
func (p *Persister) Flush(ctx context.Context) int {
	failed := 0
	for {
		cp, seq, ok := p.next()
		if !ok {
			return failed
		}
		err := p.write(ctx, cp)
		p.done(cp.PadID, seq)
		if err != nil {
			failed++
			metrics.PersistFailures.Inc()
			slog.Error("persist pad failed", "pad", cp.PadID, "err", err)
		}
	}
}

func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.order)
}

// PendingFor returns the newest checkpoint for padID that the store may not
// hold yet: a queued one, or else the one being written right now.
func (p *Persister) PendingFor(padID string) (domain.Checkpoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cp, ok := p.pending[padID]; ok {
		return cp, true
	}
	if w, ok := p.inflight[padID]; ok {
		return w.cp, true
	}
	return domain.Checkpoint{}, false
}

func (p *Persister) next() (domain.Checkpoint, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.order) == 0 {
		return domain.Checkpoint{}, 0, false
	}
	id := p.order[0]
	p.order = p.order[1:]
	cp := p.pending[id]
	delete(p.pending, id)
	p.seq++
	p.inflight[id] = inflightWrite{cp: cp, seq: p.seq}
	return cp, p.seq, true
}

// done clears the in-flight mark unless a later write for the pad took it.
func (p *Persister) done(padID string, seq uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.inflight[padID]; ok && w.seq == seq {
		delete(p.inflight, padID)
	}
}

func (p *Persister) write(ctx context.Context, cp domain.Checkpoint) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.store.Update(ctx, cp); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistFailed, err)
	}
	return nil
}
