package domain

// Ownership rules decide which participant runs code for the room.
// The owner is the first joiner, and after the owner leaves, the earliest
// surviving joiner. Nothing else (activity, randomness) is considered.

// OnJoin makes joined the owner if the room has no owner or the recorded
// owner is no longer a participant.
func OnJoin(r *Room, joined Participant) {
	if r.OwnerID == "" || !r.participants.Has(r.OwnerID) {
		r.OwnerID = joined.ID
	}
}

// OnLeave removes id from the room. If id was the owner and participants
// remain, ownership passes to the head of the remaining join order. An
// emptied room is left for the caller to drop.
func OnLeave(r *Room, id string) (Participant, bool) {
	left, ok := r.participants.remove(id)
	if !ok {
		return Participant{}, false
	}
	if r.OwnerID != id {
		return left, true
	}
	if head, ok := r.participants.Head(); ok {
		r.OwnerID = head.ID
	} else {
		r.OwnerID = ""
	}
	return left, true
}
