package notify

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/crmsuite/relay/internal/relay"
	"github.com/gorilla/websocket"
)

const (
	dialTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
)

// Notifier pushes events into the relay on behalf of request-handling
// code. Every push is best-effort and fire-and-forget: the durable
// record already exists by the time Push is called, so an unreachable
// relay costs only the live delivery, never the business operation.
type Notifier struct {
	relayURL string
	header   http.Header
	log      *log.Logger
}

// NewNotifier creates a bridge to the relay at relayURL (a ws:// or
// wss:// endpoint). The header is sent on the handshake and carries the
// bridge's service credentials.
func NewNotifier(relayURL string, header http.Header, logger *log.Logger) *Notifier {
	return &Notifier{
		relayURL: relayURL,
		header:   header,
		log:      logger,
	}
}

// Push delivers the event asynchronously. It returns immediately; the
// caller's request cycle is never blocked on the relay.
func (n *Notifier) Push(event string, payload any) {
	go func() {
		if err := n.push(event, payload); err != nil {
			n.log.Printf("notify: push %q: %v", event, err)
		}
	}()
}

func (n *Notifier) push(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	frame, err := json.Marshal(relay.Event{Name: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(n.relayURL, n.header)
	if err != nil {
		return fmt.Errorf("dial relay: %w", err)
	}
	defer conn.Close()

	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	// close the handshake cleanly so the relay unwinds the session
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	return nil
}
