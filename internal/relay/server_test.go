package relay

import (
	"context"
	"testing"
	"time"

	"github.com/crmsuite/relay/internal/database"
	"github.com/crmsuite/relay/internal/stats"
	"github.com/crmsuite/relay/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestNewRelayServer(t *testing.T) {
	db := &database.MockCrmRepository{}
	defer db.AssertExpectations(t)

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Times(5)
	defer su.AssertExpectations(t)

	logger := testutil.TestLogger(t)
	rs, err := NewRelayServer(logger, db, su)
	assert.NoError(t, err, "expected no error creating RelayServer")
	assert.NotNil(t, rs, "expected RelayServer to be non-nil")
	assert.Equal(t, logger, rs.log, "expected logger to be set")
	assert.Equal(t, db, rs.db, "expected database repository to be set")
	assert.NotNil(t, rs.registry, "expected registry to be initialized")
	assert.NotNil(t, rs.clients, "expected clients map to be initialized")
}

func TestRelayServer_RegisterDeregister(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	su.On("Incr", metricActiveSessions).Once()
	su.On("Decr", metricActiveSessions).Once()
	su.On("Decr", metricActiveRooms).Once()
	defer su.AssertExpectations(t)

	rs := newTestRelayServer(t, &database.MockCrmRepository{}, su)
	c := newTestSession(t, "a")
	c.server = rs

	rs.RegisterClient(c)
	assert.Contains(t, rs.clients, c, "expected client in clients set")
	assert.Equal(t, 1, rs.registry.NumSessions(), "expected session in registry")

	// membership must be unwound with the session
	rs.registry.Join(c, "42")

	rs.DeregisterClient(c)
	assert.NotContains(t, rs.clients, c, "expected client removed from clients set")
	assert.Equal(t, 0, rs.registry.NumSessions(), "expected session removed from registry")
	assert.Equal(t, 0, rs.registry.RoomSize("42"), "expected joined rooms to be emptied")
}

func TestRelayServer_DeregisterUnknownClient(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	defer su.AssertExpectations(t)

	rs := newTestRelayServer(t, &database.MockCrmRepository{}, su)
	c := newTestSession(t, "a")
	c.server = rs

	assert.NotPanics(t, func() {
		rs.DeregisterClient(c)
	})
}

func TestRelayServer_Shutdown(t *testing.T) {
	t.Run("successful shutdown", func(t *testing.T) {
		su := &stats.MockStatsUpdater{}
		su.On("Incr", metricActiveSessions).Once()
		su.On("Decr", metricActiveSessions).Once()
		defer su.AssertExpectations(t)

		rs := newTestRelayServer(t, &database.MockCrmRepository{}, su)
		c := newTestSession(t, "a")
		c.server = rs
		rs.RegisterClient(c)

		// simulate the read pump unwinding when the session stops
		go func() {
			<-c.stop
			rs.DeregisterClient(c)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		err := rs.Shutdown(ctx)
		assert.NoError(t, err, "expected successful shutdown without error")
	})

	t.Run("fails with context deadline exceeded", func(t *testing.T) {
		su := &stats.MockStatsUpdater{}
		su.On("Incr", metricActiveSessions).Once()
		defer su.AssertExpectations(t)

		rs := newTestRelayServer(t, &database.MockCrmRepository{}, su)
		c := newTestSession(t, "a")
		c.server = rs
		rs.RegisterClient(c)

		// no deregistration to simulate a hung session
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := rs.Shutdown(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded, "expected context deadline exceeded error, got %v", err)
	})
}
