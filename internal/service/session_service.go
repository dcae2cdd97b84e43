package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cwrk-planet/coderjam/internal/domain"
	"github.com/cwrk-planet/coderjam/pkg/errs"
	"github.com/cwrk-planet/coderjam/pkg/logger"
	"github.com/cwrk-planet/coderjam/pkg/metrics"
)

var errJoinFailed = errs.New(errs.ErrUnavailable, "failed to join pad")

// Session is the per-connection state kept by the SessionService. Its
// methods are driven by a single connection loop and are not concurrent.
type Session struct {
	peer   Peer
	joined map[string]struct{}
}

func (s *Session) ID() string { return s.peer.ID() }

// Joined reports whether the session is a member of padID.
func (s *Session) Joined(padID string) bool {
	_, ok := s.joined[padID]
	return ok
}

// SessionService coordinates the rooms of connected clients: joins,
// partial updates, renames and teardown. It owns the grant cache and the
// room registry.
type SessionService struct {
	store     PadStore
	grants    *GrantCache
	rooms     *Registry
	persister *Persister
}

func NewSessionService(store PadStore, grants *GrantCache, rooms *Registry, persister *Persister) *SessionService {
	return &SessionService{
		store:     store,
		grants:    grants,
		rooms:     rooms,
		persister: persister,
	}
}

func (s *SessionService) Connect(peer Peer) *Session {
	return &Session{peer: peer, joined: make(map[string]struct{})}
}

// Join adds the session to padID's room. The joiner receives the full room
// state and the other members receive the new participant list. Joining a
// pad the session is already in does nothing.
func (s *SessionService) Join(ctx context.Context, sess *Session, padID, userName, key string) error {
	log := logger.FromCtx(ctx).With("pad", padID)

	if !domain.ValidPadID(padID) {
		return s.reject(ctx, sess, "join_pad", domain.ErrInvalidPadID)
	}
	if err := s.grants.Check(ctx, sess.ID(), padID, key); err != nil {
		if !errors.Is(err, domain.ErrPadNotFound) && !errors.Is(err, domain.ErrBadKey) {
			log.Error("authorize join failed", "err", err)
			err = fmt.Errorf("%w: %v", errJoinFailed, err)
		}
		return s.reject(ctx, sess, "join_pad", err)
	}

	name := domain.SanitizeName(userName)
	if name == "" {
		name = domain.DefaultName
	}

	for {
		lr, err := s.rooms.GetOrCreate(ctx, padID, s.hydrate)
		if err != nil {
			if !errors.Is(err, domain.ErrPadNotFound) {
				log.Error("hydrate room failed", "err", err)
				err = fmt.Errorf("%w: %v", errJoinFailed, err)
			}
			return s.reject(ctx, sess, "join_pad", err)
		}

		joined, retry := s.enter(lr, sess, name)
		if retry {
			// the room emptied and was dropped between lookup and lock
			continue
		}
		if joined {
			metrics.Events.WithLabelValues("join_pad", "ok").Inc()
			log.Info("joined pad", "conn", sess.ID(), "name", name)
		} else {
			metrics.Events.WithLabelValues("join_pad", "ignored").Inc()
			log.Debug("already joined", "conn", sess.ID())
		}
		return nil
	}
}

// hydrate loads padID from the store with any checkpoint still waiting in the
// persister laid over it, so a room reopened right after its last member
// left does not lose the latest edits.
func (s *SessionService) hydrate(ctx context.Context, padID string) (*domain.Pad, error) {
	pad, err := s.store.Get(ctx, padID)
	if err != nil {
		return nil, err
	}
	if cp, ok := s.persister.PendingFor(padID); ok {
		pad.Language = cp.Language
		pad.Code = cp.Code
		pad.Output = slices.Clone(cp.Output)
	}
	return pad, nil
}

func (s *SessionService) enter(lr *LiveRoom, sess *Session, name string) (joined, retry bool) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.closed {
		return false, true
	}
	if lr.room.Has(sess.ID()) {
		return false, false
	}

	p := domain.Participant{ID: sess.ID(), Name: name}
	lr.room.AddParticipant(p)
	domain.OnJoin(lr.room, p)
	lr.peers[sess.ID()] = sess.peer
	sess.joined[lr.room.PadID] = struct{}{}

	_ = sess.peer.Send(Event{Type: EventPadStateUpdated, Payload: lr.room.Snapshot()})
	lr.broadcast(sess.ID(), Event{
		Type: EventPadStateUpdated,
		Payload: domain.PadState{
			PadID: lr.room.PadID,
			Users: lr.room.Participants(),
		},
	})
	return true, false
}

// Update merges a partial update into the room and relays exactly the
// submitted fields to the other members. Updates from connections without a
// grant or outside the room are dropped without telling the sender.
func (s *SessionService) Update(ctx context.Context, sess *Session, u domain.PartialUpdate) error {
	log := logger.FromCtx(ctx).With("pad", u.PadID, "conn", sess.ID())

	if err := u.Validate(); err != nil {
		return s.reject(ctx, sess, "pad_state_update", err)
	}
	if !s.grants.Authorize(ctx, sess.ID(), u.PadID, "") {
		metrics.Events.WithLabelValues("pad_state_update", "ignored").Inc()
		log.Warn("update without grant dropped")
		return domain.ErrBadKey
	}

	lr, ok := s.rooms.Get(u.PadID)
	if !ok {
		return s.ignore(log, "pad_state_update", "room not found")
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.closed || !lr.room.Has(sess.ID()) {
		return s.ignore(log, "pad_state_update", "not a member")
	}
	out, durable, err := domain.Apply(lr.room, sess.ID(), u)
	if err != nil {
		return s.ignore(log, "pad_state_update", err.Error())
	}
	lr.broadcast(sess.ID(), Event{Type: EventPadStateUpdated, Payload: out})
	if durable {
		// enqueued under the room lock so the latest checkpoint wins
		s.persister.Enqueue(lr.room.Checkpoint())
	}

	metrics.Events.WithLabelValues("pad_state_update", "ok").Inc()
	return nil
}

// Rename changes the session's display name in padID and announces it to
// every member, the renamer included, with the sanitized name.
func (s *SessionService) Rename(ctx context.Context, sess *Session, padID, newName string) error {
	log := logger.FromCtx(ctx).With("pad", padID, "conn", sess.ID())

	if !domain.ValidPadID(padID) {
		return s.reject(ctx, sess, "user_rename", domain.ErrInvalidPadID)
	}
	name := domain.SanitizeName(newName)
	if name == "" {
		return s.reject(ctx, sess, "user_rename", domain.ErrInvalidName)
	}
	if !s.grants.Authorize(ctx, sess.ID(), padID, "") {
		return s.reject(ctx, sess, "user_rename", domain.ErrBadKey)
	}

	lr, ok := s.rooms.Get(padID)
	if !ok {
		return s.ignore(log, "user_rename", "room not found")
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	if lr.closed || !lr.room.Rename(sess.ID(), name) {
		return s.ignore(log, "user_rename", "not a member")
	}
	lr.broadcast("", Event{
		Type:    EventUserRenamed,
		Payload: UserRenamed{PadID: padID, UserID: sess.ID(), NewName: name},
	})

	metrics.Events.WithLabelValues("user_rename", "ok").Inc()
	return nil
}

// Disconnect revokes the session's grant and removes it from every room it
// joined. Emptied rooms are dropped; the others get a user_left notice and
// the full room state, which carries the new owner after a handover.
func (s *SessionService) Disconnect(ctx context.Context, sess *Session) {
	log := logger.FromCtx(ctx).With("conn", sess.ID())
	s.grants.Revoke(sess.ID())

	for padID := range sess.joined {
		lr, ok := s.rooms.Get(padID)
		if !ok {
			continue
		}
		s.leave(log, padID, lr, sess.ID())
	}
	clear(sess.joined)
	metrics.Events.WithLabelValues("disconnect", "ok").Inc()
}

func (s *SessionService) leave(log *slog.Logger, padID string, lr *LiveRoom, connID string) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	delete(lr.peers, connID)
	left, ok := domain.OnLeave(lr.room, connID)
	if !ok {
		return
	}

	if lr.room.Empty() {
		lr.closed = true
		s.rooms.Remove(padID, lr)
		log.Info("left pad, room closed", "pad", padID, "name", left.Name)
		return
	}

	lr.broadcast("", Event{
		Type:    EventUserLeft,
		Payload: UserLeft{PadID: padID, UserID: connID, User: left},
	})
	lr.broadcast("", Event{Type: EventPadStateUpdated, Payload: lr.room.Snapshot()})
	log.Info("left pad", "pad", padID, "name", left.Name, "owner", lr.room.OwnerID)
}

// reject reports err to the initiating connection when it is client
// visible and returns it.
func (s *SessionService) reject(ctx context.Context, sess *Session, event string, err error) error {
	metrics.Events.WithLabelValues(event, "rejected").Inc()
	logger.FromCtx(ctx).Debug("event rejected", "event", event, "conn", sess.ID(), "err", err)
	_ = sess.peer.Send(Event{Type: EventError, Payload: ErrorPayload{Message: errs.ClientMessage(err)}})
	return err
}

func (s *SessionService) ignore(log *slog.Logger, event, reason string) error {
	metrics.Events.WithLabelValues(event, "ignored").Inc()
	log.Warn("event dropped", "event", event, "reason", reason)
	return domain.ErrNotAMember
}

// RoomStats is a point-in-time count for the stats endpoint.
type RoomStats struct {
	Rooms        int `json:"rooms"`
	Participants int `json:"participants"`
}

func (s *SessionService) Stats() RoomStats {
	st := RoomStats{}
	for _, lr := range s.rooms.Rooms() {
		lr.View(func(r *domain.Room) {
			st.Rooms++
			st.Participants += r.Len()
		})
	}
	return st
}
