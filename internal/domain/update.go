package domain

import "slices"

// PartialUpdate carries only the fields the sender changed.
type PartialUpdate struct {
	PadID     string         `json:"padId"`
	Code      *string        `json:"code,omitempty"`
	Language  *Language      `json:"language,omitempty"`
	Cursor    *Cursor        `json:"cursor,omitempty"`
	Output    *[]OutputEntry `json:"output,omitempty"`
	IsRunning *bool          `json:"isRunning,omitempty"`
}

func (u PartialUpdate) Validate() error {
	if !ValidPadID(u.PadID) {
		return ErrInvalidPadID
	}
	if u.Language != nil && !u.Language.Valid() {
		return ErrInvalidLanguage
	}
	if u.Output != nil {
		for _, e := range *u.Output {
			if !e.Valid() {
				return ErrInvalidOutput
			}
		}
	}
	return nil
}

// PadState is the pad_state_updated payload. Nil fields were not part of
// the change and must not be touched by receivers.
type PadState struct {
	PadID     string         `json:"padId"`
	Code      *string        `json:"code,omitempty"`
	Language  *Language      `json:"language,omitempty"`
	Output    *[]OutputEntry `json:"output,omitempty"`
	IsRunning *bool          `json:"isRunning,omitempty"`
	OwnerID   *string        `json:"ownerId,omitempty"`
	Users     []Participant  `json:"users,omitempty"`
}

// Apply merges u into r field by field, last writer wins. The returned
// state mirrors exactly the fields present in u, plus the participant list
// when the sender's cursor moved. durable is true when code, language or
// output now differ from before.
func Apply(r *Room, senderID string, u PartialUpdate) (out PadState, durable bool, err error) {
	sender := r.participants.get(senderID)
	if sender == nil {
		return PadState{}, false, ErrNotAMember
	}

	out.PadID = r.PadID
	if u.Code != nil {
		code := *u.Code
		durable = durable || r.Code != code
		r.Code = code
		out.Code = &code
	}
	if u.Language != nil {
		lang := *u.Language
		durable = durable || r.Language != lang
		r.Language = lang
		out.Language = &lang
	}
	if u.Output != nil {
		entries := slices.Clone(*u.Output)
		if entries == nil {
			entries = []OutputEntry{}
		}
		durable = durable || !slices.Equal(r.Output, entries)
		r.Output = entries
		sent := slices.Clone(entries)
		out.Output = &sent
	}
	if u.IsRunning != nil {
		running := *u.IsRunning
		r.IsRunning = running
		out.IsRunning = &running
	}
	if u.Cursor != nil {
		sender.Cursor = u.Cursor.clone()
		out.Users = r.Participants()
	}
	return out, durable, nil
}
