package websocket

import (
	"log/slog"
	"testing"

	"github.com/mwilkes/basket/internal/feed"
	"github.com/mwilkes/basket/internal/model"
)

func testHub() *Hub {
	return NewHub(slog.New(slog.DiscardHandler))
}

// Publish never touches the connection, so a nil conn is fine here; delivery
// lands on the send channel and the write pump is never started.
func addClient(h *Hub, userID int64) *Client {
	c := NewClient(h, nil, userID)
	h.Register(c)
	return c
}

func listEvent(id int64) feed.Event {
	return feed.ListEvent{Op: feed.OpUpdate, ID: id, List: &model.List{ID: id, Name: "Groceries"}}
}

func TestPublishScopesToRecipients(t *testing.T) {
	h := testHub()
	alice := addClient(h, 1)
	bob := addClient(h, 2)

	h.Publish([]int64{1}, listEvent(10))

	select {
	case msg := <-alice.send:
		if len(msg) == 0 {
			t.Error("empty message delivered")
		}
	default:
		t.Error("recipient got nothing")
	}

	select {
	case <-bob.send:
		t.Error("non-recipient received the event")
	default:
	}
}

func TestPublishReachesEverySessionOfAUser(t *testing.T) {
	h := testHub()
	phone := addClient(h, 1)
	laptop := addClient(h, 1)

	h.Publish([]int64{1}, listEvent(10))

	for name, c := range map[string]*Client{"phone": phone, "laptop": laptop} {
		select {
		case <-c.send:
		default:
			t.Errorf("%s session got nothing", name)
		}
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	h := testHub()
	c := addClient(h, 1)

	// Fill the buffer, then publish once more. The extra event is dropped
	// instead of blocking the publisher.
	for i := 0; i < sendBufferSize+5; i++ {
		h.Publish([]int64{1}, listEvent(int64(i)))
	}

	if got := len(c.send); got != sendBufferSize {
		t.Errorf("buffered = %d, want %d", got, sendBufferSize)
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	h := testHub()
	c := addClient(h, 1)

	if h.ClientCount() != 1 {
		t.Fatalf("ClientCount = %d, want 1", h.ClientCount())
	}

	h.Unregister(c)

	if h.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", h.ClientCount())
	}
	if _, open := <-c.send; open {
		t.Error("send channel still open after Unregister")
	}

	// Double unregister must not panic or close twice.
	h.Unregister(c)
}

func TestPublishAfterUnregisterIsSilent(t *testing.T) {
	h := testHub()
	c := addClient(h, 1)
	h.Unregister(c)

	h.Publish([]int64{1}, listEvent(10))
}
