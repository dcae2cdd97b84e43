package service

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cwrk-planet/coderjam/internal/domain"

	"github.com/stretchr/testify/mock"
)

const (
	testPad = "AB12cd"
	testKey = "open-sesame"
)

// fakeStore is an in-memory PadStore keeping plaintext keys.
type fakeStore struct {
	mu        sync.Mutex
	pads      map[string]*domain.Pad
	keys      map[string]string
	getCalls  int
	getDelay  time.Duration
	updates   []domain.Checkpoint
	createErr []error
}

func newFakeStore() *fakeStore {
	return &fakeStore{pads: map[string]*domain.Pad{}, keys: map[string]string{}}
}

func (s *fakeStore) put(id, key, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pads[id] = &domain.Pad{ID: id, Language: domain.LanguagePython, Code: code, Output: []domain.OutputEntry{}}
	s.keys[id] = key
}

func (s *fakeStore) setCode(id, code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pads[id].Code = code
}

func (s *fakeStore) Get(_ context.Context, id string) (*domain.Pad, error) {
	s.mu.Lock()
	s.getCalls++
	delay := s.getDelay
	p, ok := s.pads[id]
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return nil, domain.ErrPadNotFound
	}
	cp := *p
	cp.Output = slices.Clone(p.Output)
	return &cp, nil
}

func (s *fakeStore) Create(_ context.Context, pad *domain.Pad) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.createErr) > 0 {
		err := s.createErr[0]
		s.createErr = s.createErr[1:]
		return err
	}
	if _, ok := s.pads[pad.ID]; ok {
		return domain.ErrPadExists
	}
	cp := *pad
	s.pads[pad.ID] = &cp
	return nil
}

func (s *fakeStore) Update(_ context.Context, cp domain.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pads[cp.PadID]
	if !ok {
		return domain.ErrPadNotFound
	}
	p.Language, p.Code, p.Output = cp.Language, cp.Code, slices.Clone(cp.Output)
	s.updates = append(s.updates, cp)
	return nil
}

func (s *fakeStore) VerifyKey(_ context.Context, id, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want, ok := s.keys[id]
	if !ok {
		return false, domain.ErrPadNotFound
	}
	return key != "" && key == want, nil
}

func (s *fakeStore) gets() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

func (s *fakeStore) written() []domain.Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.updates)
}

// mockStore is a testify mock of PadStore.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, id string) (*domain.Pad, error) {
	args := m.Called(ctx, id)
	pad, _ := args.Get(0).(*domain.Pad)
	return pad, args.Error(1)
}

func (m *mockStore) Create(ctx context.Context, pad *domain.Pad) error {
	return m.Called(ctx, pad).Error(0)
}

func (m *mockStore) Update(ctx context.Context, cp domain.Checkpoint) error {
	return m.Called(ctx, cp).Error(0)
}

func (m *mockStore) VerifyKey(ctx context.Context, id, key string) (bool, error) {
	args := m.Called(ctx, id, key)
	return args.Bool(0), args.Error(1)
}

// fakePeer records every event sent to it.
type fakePeer struct {
	id string

	mu     sync.Mutex
	events []Event
}

func newPeer(id string) *fakePeer { return &fakePeer{id: id} }

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *fakePeer) all() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.events)
}

func (p *fakePeer) ofType(typ string) []Event {
	var out []Event
	for _, ev := range p.all() {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func (p *fakePeer) states() []domain.PadState {
	var out []domain.PadState
	for _, ev := range p.ofType(EventPadStateUpdated) {
		out = append(out, ev.Payload.(domain.PadState))
	}
	return out
}

func (p *fakePeer) lastState() domain.PadState {
	st := p.states()
	if len(st) == 0 {
		return domain.PadState{}
	}
	return st[len(st)-1]
}

func (p *fakePeer) errors() []string {
	var out []string
	for _, ev := range p.ofType(EventError) {
		out = append(out, ev.Payload.(ErrorPayload).Message)
	}
	return out
}

// panicPeer panics on Send while armed.
type panicPeer struct {
	*fakePeer
	armed atomic.Bool
}

func (p *panicPeer) Send(ev Event) error {
	if p.armed.Load() {
		panic("send on torn connection")
	}
	return p.fakePeer.Send(ev)
}

// gatedWriter holds every Update until release is closed or ctx ends.
type gatedWriter struct {
	started chan struct{}
	release chan struct{}

	mu  sync.Mutex
	got []domain.Checkpoint
}

func newGatedWriter() *gatedWriter {
	return &gatedWriter{started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (w *gatedWriter) Update(ctx context.Context, cp domain.Checkpoint) error {
	w.started <- struct{}{}
	select {
	case <-w.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.got = append(w.got, cp)
	return nil
}

func (w *gatedWriter) written() []domain.Checkpoint {
	w.mu.Lock()
	defer w.mu.Unlock()
	return slices.Clone(w.got)
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
