package relay

import (
	"context"
	"log"
	"sync"

	"github.com/crmsuite/relay/internal/database"
	"github.com/crmsuite/relay/internal/stats"
)

const (
	metricActiveSessions       = "NumActiveSessions"
	metricActiveRooms          = "NumActiveRooms"
	metricMessagesRelayed      = "MessagesRelayed"
	metricMessagesBlocked      = "MessagesBlocked"
	metricNotificationsRelayed = "NotificationsRelayed"
)

// RelayServer owns the membership registry and the set of live
// sessions. Events are handled on each session's read goroutine; the
// only blocking step anywhere is the ban lookup on send_message.
type RelayServer struct {
	log         *log.Logger
	db          database.CrmRepository
	stats       stats.StatsProvider
	registry    *Registry
	clients     map[*Client]struct{}
	clientsLock sync.Mutex
	clientsWG   sync.WaitGroup
}

func NewRelayServer(logger *log.Logger, db database.CrmRepository, sp stats.StatsProvider) (*RelayServer, error) {
	rs := &RelayServer{
		log:      logger,
		db:       db,
		stats:    sp,
		registry: NewRegistry(),
		clients:  make(map[*Client]struct{}),
	}

	for _, m := range []string{
		metricActiveSessions,
		metricActiveRooms,
		metricMessagesRelayed,
		metricMessagesBlocked,
		metricNotificationsRelayed,
	} {
		sp.RegisterMetric(m)
	}

	return rs, nil
}

func (rs *RelayServer) RegisterClient(c *Client) {
	rs.clientsLock.Lock()
	defer rs.clientsLock.Unlock()

	rs.clients[c] = struct{}{}
	rs.clientsWG.Add(1)
	rs.registry.AddSession(c)
	rs.stats.Incr(metricActiveSessions)
	rs.log.Printf("session %s connected (user %d)", c.id, c.userId)
}

func (rs *RelayServer) DeregisterClient(c *Client) {
	rs.clientsLock.Lock()
	defer rs.clientsLock.Unlock()

	if _, ok := rs.clients[c]; !ok {
		return
	}
	delete(rs.clients, c)

	emptied := rs.registry.RemoveSession(c)
	for i := 0; i < emptied; i++ {
		rs.stats.Decr(metricActiveRooms)
	}

	rs.stats.Decr(metricActiveSessions)
	rs.clientsWG.Done()
	rs.log.Printf("session %s disconnected", c.id)
}

// Shutdown stops every live session and waits for their cleanup to
// finish or the context to expire.
func (rs *RelayServer) Shutdown(ctx context.Context) error {
	rs.clientsLock.Lock()
	for c := range rs.clients {
		c.stopClient()
	}
	rs.clientsLock.Unlock()

	done := make(chan struct{})
	go func() {
		rs.clientsWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
