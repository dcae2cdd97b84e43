package domain

import "slices"

// Participants is an insertion-ordered set keyed by connection id.
type Participants struct {
	order []string
	byID  map[string]*Participant
}

func newParticipants() Participants {
	return Participants{byID: make(map[string]*Participant)}
}

func (s *Participants) Len() int { return len(s.order) }

func (s *Participants) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *Participants) get(id string) *Participant { return s.byID[id] }

// add appends p unless its id is already present.
func (s *Participants) add(p Participant) bool {
	if s.Has(p.ID) {
		return false
	}
	cp := p.clone()
	s.byID[p.ID] = &cp
	s.order = append(s.order, p.ID)
	return true
}

// remove deletes id; the relative order of the survivors is kept.
func (s *Participants) remove(id string) (Participant, bool) {
	p, ok := s.byID[id]
	if !ok {
		return Participant{}, false
	}
	delete(s.byID, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return *p, true
}

// Head returns the earliest surviving joiner.
func (s *Participants) Head() (Participant, bool) {
	if len(s.order) == 0 {
		return Participant{}, false
	}
	return s.byID[s.order[0]].clone(), true
}

// List copies the participants in join order.
func (s *Participants) List() []Participant {
	out := make([]Participant, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id].clone())
	}
	return out
}

// Room is the live working copy of a pad shared by its connected
// participants. It is not safe for concurrent use; callers serialise access.
type Room struct {
	PadID     string
	Code      string
	Language  Language
	Output    []OutputEntry
	IsRunning bool
	// OwnerID is "" only while the room is empty or during handover.
	OwnerID string

	participants Participants
}

// NewRoom hydrates a room from its persisted pad.
func NewRoom(pad *Pad) *Room {
	return &Room{
		PadID:        pad.ID,
		Code:         pad.Code,
		Language:     pad.Language,
		Output:       slices.Clone(pad.Output),
		participants: newParticipants(),
	}
}

func (r *Room) Participants() []Participant { return r.participants.List() }
func (r *Room) Len() int                    { return r.participants.Len() }
func (r *Room) Empty() bool                 { return r.participants.Len() == 0 }
func (r *Room) Has(id string) bool          { return r.participants.Has(id) }

func (r *Room) Participant(id string) (Participant, bool) {
	p := r.participants.get(id)
	if p == nil {
		return Participant{}, false
	}
	return p.clone(), true
}

// AddParticipant registers p at the tail of the join order. It returns
// false when a participant with the same id is already present.
func (r *Room) AddParticipant(p Participant) bool {
	return r.participants.add(p)
}

func (r *Room) Rename(id, name string) bool {
	p := r.participants.get(id)
	if p == nil {
		return false
	}
	p.Name = name
	return true
}

// Snapshot is the full room state as sent to a joining connection.
func (r *Room) Snapshot() PadState {
	code := r.Code
	lang := r.Language
	out := slices.Clone(r.Output)
	if out == nil {
		out = []OutputEntry{}
	}
	running := r.IsRunning
	owner := r.OwnerID
	return PadState{
		PadID:     r.PadID,
		Code:      &code,
		Language:  &lang,
		Output:    &out,
		IsRunning: &running,
		OwnerID:   &owner,
		Users:     r.Participants(),
	}
}

// Checkpoint returns the durable fields for write-through.
func (r *Room) Checkpoint() Checkpoint {
	return Checkpoint{
		PadID:    r.PadID,
		Language: r.Language,
		Code:     r.Code,
		Output:   slices.Clone(r.Output),
	}
}

// Checkpoint is what gets written back to the pad store.
type Checkpoint struct {
	PadID    string
	Language Language
	Code     string
	Output   []OutputEntry
}
