package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendQueueSize  = 256
)

// Client is one live session: a websocket connection with an opaque
// connection id and the identity the handshake resolved.
type Client struct {
	id       string
	userId   int
	conn     *websocket.Conn
	server   *RelayServer
	log      *log.Logger
	send     chan *Event
	stop     chan struct{}
	stopOnce sync.Once
}

func NewClient(userId int, conn *websocket.Conn, rs *RelayServer, l *log.Logger) *Client {
	id, err := shortid.Generate()
	if err != nil {
		id = fmt.Sprintf("conn-%d", time.Now().UnixNano())
	}

	return &Client{
		id:     id,
		userId: userId,
		conn:   conn,
		server: rs,
		log:    l,
		send:   make(chan *Event, sendQueueSize),
		stop:   make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			if !ok {
				return
			}

			bytes, err := json.Marshal(ev)
			if err != nil {
				c.log.Printf("session %s: serialize event: %v", c.id, err)
				continue
			}

			if !c.writeFrame(websocket.TextMessage, bytes) {
				return
			}
		case <-c.stop:
			return
		case <-ticker.C:
			if !c.writeFrame(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(appData string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("session %s: read: %v", c.id, err)
			}
			break
		}

		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			c.log.Printf("session %s: parse event: %v", c.id, err)
			continue
		}

		c.dispatch(&ev)
	}
}

// dispatch routes one inbound event. No failure here may reach the
// transport: a malformed event is logged and dropped, never fatal to
// the connection or to other sessions.
func (c *Client) dispatch(ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Printf("session %s: panic handling %q: %v", c.id, ev.Name, r)
		}
	}()

	switch ev.Name {
	case EventJoin:
		c.handleJoin(ev.Data)
	case EventLeave:
		c.handleLeave(ev.Data)
	case EventSendMessage:
		c.handleSendMessage(ev.Data)
	case EventTypingStarted:
		c.handleTyping(ev.Data, true)
	case EventTypingStopped:
		c.handleTyping(ev.Data, false)
	case EventSendNotification:
		c.handleSendNotification(ev.Data)
	case EventConversationBanned:
		c.handleConversationBanned(ev.Data)
	default:
		c.log.Printf("session %s: unknown event %q", c.id, ev.Name)
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	var room RoomID
	if err := json.Unmarshal(data, &room); err != nil || room.IsZero() {
		c.log.Printf("session %s: join: invalid room identifier", c.id)
		return
	}

	if c.server.registry.Join(c, room.Key()) {
		c.server.stats.Incr(metricActiveRooms)
	}
	c.log.Printf("session %s joined room %q", c.id, room.Key())
}

func (c *Client) handleLeave(data json.RawMessage) {
	var room RoomID
	if err := json.Unmarshal(data, &room); err != nil || room.IsZero() {
		c.log.Printf("session %s: leave: invalid room identifier", c.id)
		return
	}

	if c.server.registry.Leave(c, room.Key()) {
		c.server.stats.Decr(metricActiveRooms)
	}
	c.log.Printf("session %s left room %q", c.id, room.Key())
}

// handleSendMessage is the single choke point where the ban check is
// enforced. The envelope is already a persisted record; the relay
// re-reads the conversation's ban flag from storage on every send and
// fails closed when the flag is set or the lookup fails.
func (c *Client) handleSendMessage(data json.RawMessage) {
	var env messageEnvelope
	if err := json.Unmarshal(data, &env); err != nil || env.ConversationId.IsZero() {
		c.log.Printf("session %s: send_message: invalid envelope", c.id)
		c.queueEvent(ErrSendMessage("invalid message envelope"))
		return
	}

	room := env.ConversationId.Key()
	banned, err := c.server.db.IsConversationBanned(room)
	if err != nil {
		c.log.Printf("session %s: ban lookup for conversation %q: %v", c.id, room, err)
		c.server.stats.Incr(metricMessagesBlocked)
		c.queueEvent(ErrSendMessage("unable to verify conversation"))
		return
	}
	if banned {
		c.server.stats.Incr(metricMessagesBlocked)
		c.queueEvent(ErrSendMessage("conversation is banned"))
		return
	}

	c.server.registry.Broadcast(room, MessageCreated(data), c)
	c.server.registry.Broadcast(room, UserStoppedTypingIn(env.SenderId, env.ConversationId), c)
	c.server.stats.Incr(metricMessagesRelayed)
}

func (c *Client) handleTyping(data json.RawMessage, started bool) {
	var p typingPayload
	if err := json.Unmarshal(data, &p); err != nil || p.ConversationId.IsZero() || p.UserId.IsZero() {
		c.log.Printf("session %s: typing: invalid payload", c.id)
		return
	}

	ev := UserStoppedTyping(p.UserId)
	if started {
		ev = UserTyping(p.UserId)
	}

	c.server.registry.Broadcast(p.ConversationId.Key(), ev, c)
}

func (c *Client) handleSendNotification(data json.RawMessage) {
	var env notificationEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.Printf("session %s: send_notification: invalid envelope", c.id)
		return
	}

	ev := NotificationCreated(data)
	if !env.RecipientId.IsZero() {
		c.server.registry.Broadcast(env.RecipientId.Key(), ev, nil)
	} else {
		c.server.registry.BroadcastAll(ev)
	}

	c.server.stats.Incr(metricNotificationsRelayed)
}

// handleConversationBanned echoes a ban event to every connected
// session so open conversation views can refresh their state.
func (c *Client) handleConversationBanned(data json.RawMessage) {
	c.server.registry.BroadcastAll(ConversationBanned(data))
}

func (c *Client) queueEvent(ev *Event) bool {
	select {
	case c.send <- ev:
	default:
		c.log.Printf("session %s: send queue full, dropping %q", c.id, ev.Name)
		return false
	}

	return true
}

func (c *Client) writeFrame(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("session %s: write: %v", c.id, err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Client) cleanup() {
	c.server.DeregisterClient(c)
	c.stopClient()
}
