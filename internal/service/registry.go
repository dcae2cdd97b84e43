package service

import (
	"context"
	"sync"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/pkg/metrics"

	"golang.org/x/sync/singleflight"
)

// LiveRoom is a registered room plus the connections subscribed to it.
// Every field is guarded by mu; mutation and the broadcast it causes happen
// under one lock hold so receivers see changes in mutation order.
type LiveRoom struct {
	mu     sync.Mutex
	room   *domain.Room
	peers  map[string]Peer
	closed bool
}

func newLiveRoom(room *domain.Room) *LiveRoom {
	return &LiveRoom{room: room, peers: make(map[string]Peer)}
}

// broadcast sends ev to every peer except skipID. Callers hold mu.
func (lr *LiveRoom) broadcast(skipID string, ev Event) {
	for id, p := range lr.peers {
		if id == skipID {
			continue
		}
		_ = p.Send(ev) // a failing peer is torn down by its own connection loop
	}
}

// View runs fn with the room locked. fn must not retain r.
func (lr *LiveRoom) View(fn func(r *domain.Room)) {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	fn(lr.room)
}

// Loader fetches the persisted pad a room is hydrated from.
type Loader func(ctx context.Context, padID string) (*domain.Pad, error)

// Registry maps pad ids to live rooms. A room exists only while it has
// participants.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*LiveRoom
	group singleflight.Group
}

func NewRegistry() *Registry {
	return &Registry{rooms: make(map[string]*LiveRoom)}
}

func (r *Registry) Get(padID string) (*LiveRoom, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lr, ok := r.rooms[padID]
	return lr, ok
}

// GetOrCreate returns the live room for padID, hydrating it through load when
// absent. Concurrent callers for the same pad share one load, and the insert
// re-checks the map under the lock, so a pad never has two live rooms. The
// shared load is detached from ctx cancellation so one caller going away does
// not fail the others.
func (r *Registry) GetOrCreate(ctx context.Context, padID string, load Loader) (*LiveRoom, error) {
	if lr, ok := r.Get(padID); ok {
		return lr, nil
	}

	v, err, _ := r.group.Do(padID, func() (any, error) {
		if lr, ok := r.Get(padID); ok {
			return lr, nil
		}
		pad, err := load(context.WithoutCancel(ctx), padID)
		if err != nil {
			return nil, err
		}
		fresh := newLiveRoom(domain.NewRoom(pad))

		r.mu.Lock()
		defer r.mu.Unlock()
		if lr, ok := r.rooms[padID]; ok {
			return lr, nil
		}
		r.rooms[padID] = fresh
		metrics.Rooms.Set(float64(len(r.rooms)))
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*LiveRoom), nil
}

// Remove drops lr if it is still the room registered for padID.
func (r *Registry) Remove(padID string, lr *LiveRoom) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.rooms[padID]; !ok || cur != lr {
		return false
	}
	delete(r.rooms, padID)
	metrics.Rooms.Set(float64(len(r.rooms)))
	return true
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// Rooms returns the currently registered rooms.
func (r *Registry) Rooms() []*LiveRoom {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*LiveRoom, 0, len(r.rooms))
	for _, lr := range r.rooms {
		out = append(out, lr)
	}
	return out
}
