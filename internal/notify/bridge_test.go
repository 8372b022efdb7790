package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/crmsuite/relay/internal/relay"
	"github.com/crmsuite/relay/internal/testutil"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

type capturedFrame struct {
	cookie string
	event  relay.Event
}

// newTestSink runs a websocket endpoint that captures the first frame
// of every connection.
func newTestSink(t *testing.T) (*httptest.Server, chan capturedFrame) {
	frames := make(chan capturedFrame, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie := r.Header.Get("Cookie")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var ev relay.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Logf("unmarshal frame: %v", err)
			return
		}

		frames <- capturedFrame{cookie: cookie, event: ev}
	}))

	return srv, frames
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestNotifier_Push(t *testing.T) {
	srv, frames := newTestSink(t)
	defer srv.Close()

	header := http.Header{}
	header.Set("Cookie", "token=service-token")

	n := NewNotifier(wsURL(srv), header, testutil.TestLogger(t))
	n.Push(relay.EventSendNotification, map[string]any{"destinataire_id": 99, "titre": "x"})

	select {
	case frame := <-frames:
		assert.Equal(t, relay.EventSendNotification, frame.event.Name)
		assert.JSONEq(t, `{"destinataire_id":99,"titre":"x"}`, string(frame.event.Data))
		assert.Equal(t, "token=service-token", frame.cookie, "expected service credentials on the handshake")
	case <-time.After(2 * time.Second):
		t.Fatal("expected the sink to receive the pushed event")
	}
}

func TestNotifier_PushDoesNotBlockWhenUnreachable(t *testing.T) {
	n := NewNotifier("ws://127.0.0.1:1/ws", nil, testutil.TestLogger(t))

	start := time.Now()
	n.Push(relay.EventSendNotification, map[string]any{"titre": "x"})
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"expected Push to return immediately regardless of relay reachability")
}

func TestNotifier_pushErrors(t *testing.T) {
	t.Run("unreachable relay", func(t *testing.T) {
		n := NewNotifier("ws://127.0.0.1:1/ws", nil, testutil.TestLogger(t))
		err := n.push(relay.EventSendNotification, map[string]any{"titre": "x"})
		assert.Error(t, err, "expected a dial error for an unreachable relay")
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		n := NewNotifier("ws://127.0.0.1:1/ws", nil, testutil.TestLogger(t))
		err := n.push(relay.EventSendNotification, make(chan int))
		assert.Error(t, err, "expected a marshal error")
	})
}
