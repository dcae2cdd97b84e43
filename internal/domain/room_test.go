package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoom() *Room {
	return NewRoom(&Pad{ID: "AB12cd", Language: LanguagePython, Code: "x=1", Output: []OutputEntry{{Text: "1", Type: OutputLog}}})
}

func join(r *Room, id string) {
	p := Participant{ID: id, Name: id}
	r.AddParticipant(p)
	OnJoin(r, p)
}

func ids(ps []Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func TestNewRoomHydratesFromPad(t *testing.T) {
	r := testRoom()
	assert.Equal(t, "AB12cd", r.PadID)
	assert.Equal(t, "x=1", r.Code)
	assert.Equal(t, LanguagePython, r.Language)
	assert.Len(t, r.Output, 1)
	assert.True(t, r.Empty())
	assert.Empty(t, r.OwnerID)
}

func TestFirstJoinerBecomesOwner(t *testing.T) {
	r := testRoom()
	join(r, "c1")
	join(r, "c2")
	join(r, "c3")

	assert.Equal(t, "c1", r.OwnerID)
	assert.Equal(t, []string{"c1", "c2", "c3"}, ids(r.Participants()))
}

func TestAddParticipantRejectsDuplicate(t *testing.T) {
	r := testRoom()
	join(r, "c1")
	assert.False(t, r.AddParticipant(Participant{ID: "c1", Name: "again"}))
	assert.Equal(t, 1, r.Len())

	p, ok := r.Participant("c1")
	require.True(t, ok)
	assert.Equal(t, "c1", p.Name)
}

func TestOnLeaveHandsOverToEarliestSurvivor(t *testing.T) {
	r := testRoom()
	join(r, "c1")
	join(r, "c2")
	join(r, "c3")

	left, ok := OnLeave(r, "c1")
	require.True(t, ok)
	assert.Equal(t, "c1", left.ID)
	assert.Equal(t, "c2", r.OwnerID)
	assert.Equal(t, []string{"c2", "c3"}, ids(r.Participants()))
}

func TestOnLeaveOfNonOwnerKeepsOwner(t *testing.T) {
	r := testRoom()
	join(r, "c1")
	join(r, "c2")
	join(r, "c3")

	_, ok := OnLeave(r, "c2")
	require.True(t, ok)
	assert.Equal(t, "c1", r.OwnerID)

	// owner leaves next; c3 is now head of the list
	_, ok = OnLeave(r, "c1")
	require.True(t, ok)
	assert.Equal(t, "c3", r.OwnerID)
}

func TestOnLeaveLastParticipantEmptiesRoom(t *testing.T) {
	r := testRoom()
	join(r, "c1")

	_, ok := OnLeave(r, "c1")
	require.True(t, ok)
	assert.True(t, r.Empty())
	assert.Empty(t, r.OwnerID)

	_, ok = OnLeave(r, "c1")
	assert.False(t, ok)
}

func TestOnJoinReplacesStaleOwner(t *testing.T) {
	r := testRoom()
	r.OwnerID = "gone"
	join(r, "c1")
	assert.Equal(t, "c1", r.OwnerID)
}

func TestRejoinAfterHandoverAppendsToTail(t *testing.T) {
	r := testRoom()
	join(r, "c1")
	join(r, "c2")
	OnLeave(r, "c1")
	join(r, "c1")

	assert.Equal(t, "c2", r.OwnerID)
	assert.Equal(t, []string{"c2", "c1"}, ids(r.Participants()))
}

func TestSnapshotIsACopy(t *testing.T) {
	r := testRoom()
	join(r, "c1")

	snap := r.Snapshot()
	require.NotNil(t, snap.Code)
	require.NotNil(t, snap.OwnerID)
	assert.Equal(t, "x=1", *snap.Code)
	assert.Equal(t, "c1", *snap.OwnerID)
	assert.False(t, *snap.IsRunning)
	assert.Len(t, snap.Users, 1)

	(*snap.Output)[0].Text = "mutated"
	assert.Equal(t, "1", r.Output[0].Text)
}

func TestRename(t *testing.T) {
	r := testRoom()
	join(r, "c1")
	assert.True(t, r.Rename("c1", "Alice"))
	assert.False(t, r.Rename("c9", "Nobody"))

	p, _ := r.Participant("c1")
	assert.Equal(t, "Alice", p.Name)
}
