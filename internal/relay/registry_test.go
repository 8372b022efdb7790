package relay

import (
	"testing"

	"github.com/crmsuite/relay/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestSession(t *testing.T, id string) *Client {
	return &Client{
		id:   id,
		log:  testutil.TestLogger(t),
		send: make(chan *Event, 16),
		stop: make(chan struct{}),
	}
}

// drainEvents returns everything queued to the session so far.
func drainEvents(c *Client) []*Event {
	var events []*Event
	for {
		select {
		case ev := <-c.send:
			events = append(events, ev)
		default:
			return events
		}
	}
}

func TestRegistry_JoinLeave(t *testing.T) {
	reg := NewRegistry()
	a := newTestSession(t, "a")
	b := newTestSession(t, "b")

	assert.True(t, reg.Join(a, "42"), "expected first join to create the room")
	assert.False(t, reg.Join(b, "42"), "expected second join to reuse the room")
	assert.Equal(t, 2, reg.RoomSize("42"), "expected 2 sessions in room")
	assert.ElementsMatch(t, []string{"42"}, reg.Rooms(a))

	assert.False(t, reg.Leave(a, "42"), "expected room to survive while b remains")
	assert.True(t, reg.Leave(b, "42"), "expected room to be dropped with last member")
	assert.Equal(t, 0, reg.RoomSize("42"), "expected empty room after leave")
}

func TestRegistry_LeaveUnknownRoom(t *testing.T) {
	reg := NewRegistry()
	a := newTestSession(t, "a")
	reg.AddSession(a)

	assert.False(t, reg.Leave(a, "nope"), "expected leave of unknown room to be a no-op")
}

func TestRegistry_RemoveSession(t *testing.T) {
	reg := NewRegistry()
	a := newTestSession(t, "a")
	b := newTestSession(t, "b")
	reg.AddSession(a)
	reg.AddSession(b)

	reg.Join(a, "42")
	reg.Join(a, "7")
	reg.Join(b, "42")

	emptied := reg.RemoveSession(a)
	assert.Equal(t, 1, emptied, "expected only the solo room to be dropped")
	assert.Equal(t, 1, reg.RoomSize("42"), "expected b to remain in shared room")
	assert.Equal(t, 0, reg.RoomSize("7"), "expected solo room to be gone")
	assert.Equal(t, 1, reg.NumSessions(), "expected one session left")
}

func TestRegistry_Broadcast(t *testing.T) {
	reg := NewRegistry()
	sender := newTestSession(t, "sender")
	member := newTestSession(t, "member")
	outsider := newTestSession(t, "outsider")
	reg.AddSession(sender)
	reg.AddSession(member)
	reg.AddSession(outsider)

	reg.Join(sender, "42")
	reg.Join(member, "42")
	reg.Join(outsider, "100")

	ev := UserTyping(RoomID{key: "7"})
	n := reg.Broadcast("42", ev, sender)
	assert.Equal(t, 1, n, "expected one delivery")

	assert.Len(t, drainEvents(member), 1, "expected member to receive the event")
	assert.Empty(t, drainEvents(sender), "expected sender to be excluded")
	assert.Empty(t, drainEvents(outsider), "expected outsider to receive nothing")
}

func TestRegistry_BroadcastAfterLeave(t *testing.T) {
	reg := NewRegistry()
	a := newTestSession(t, "a")
	b := newTestSession(t, "b")
	reg.AddSession(a)
	reg.AddSession(b)

	reg.Join(a, "42")
	reg.Join(b, "42")
	reg.Leave(b, "42")

	reg.Broadcast("42", UserTyping(RoomID{key: "7"}), nil)
	assert.Len(t, drainEvents(a), 1, "expected remaining member to receive the event")
	assert.Empty(t, drainEvents(b), "expected departed session to receive nothing")
}

func TestRegistry_BroadcastAll(t *testing.T) {
	reg := NewRegistry()
	a := newTestSession(t, "a")
	b := newTestSession(t, "b")
	reg.AddSession(a)
	reg.AddSession(b)
	reg.Join(a, "42")

	n := reg.BroadcastAll(ConversationBanned(nil))
	assert.Equal(t, 2, n, "expected delivery to every connected session")
	assert.Len(t, drainEvents(a), 1)
	assert.Len(t, drainEvents(b), 1)
}
