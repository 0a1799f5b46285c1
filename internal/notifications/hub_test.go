package notifications

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				return out
			}
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHub_BroadcastTargetsOnlyRecipient(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	ann1, err := hub.Register("ann", nil)
	require.NoError(t, err)
	ann2, err := hub.Register("ann", nil)
	require.NoError(t, err)
	bob, err := hub.Register("bob", nil)
	require.NoError(t, err)

	hub.Broadcast("ann", []byte("private"))
	assert.Equal(t, [][]byte{[]byte("private")}, drain(ann1))
	assert.Equal(t, [][]byte{[]byte("private")}, drain(ann2))
	assert.Empty(t, drain(bob))

	hub.BroadcastAll([]byte("public"))
	for _, c := range []*Client{ann1, ann2, bob} {
		assert.Equal(t, [][]byte{[]byte("public")}, drain(c))
	}
	assert.Equal(t, 3, hub.ConnectionCount())
}

func TestHub_PerUserConnectionLimit(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	clients := make([]*Client, 0, maxConnsPerUser)
	for i := 0; i < maxConnsPerUser; i++ {
		c, err := hub.Register("ann", nil)
		require.NoError(t, err, "connection %d", i)
		clients = append(clients, c)
	}
	_, err := hub.Register("ann", nil)
	assert.ErrorIs(t, err, ErrUserFull)

	_, err = hub.Register("bob", nil)
	assert.NoError(t, err)

	hub.UnregisterClient(clients[0])
	_, err = hub.Register("ann", nil)
	assert.NoError(t, err)
}

func TestClient_TrySendFullBufferQueuesDropNotice(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()
	c, err := hub.Register("ann", nil)
	require.NoError(t, err)

	for i := 0; i < sendBufferSize; i++ {
		require.True(t, c.TrySend([]byte(fmt.Sprintf("m%d", i))))
	}
	assert.False(t, c.TrySend([]byte("overflow")))

	got := drain(c)
	require.Len(t, got, sendBufferSize)
	assert.Equal(t, "m1", string(got[0]))
	assert.JSONEq(t, `{"type":"messages_dropped","payload":{"reason":"buffer_full"}}`, string(got[len(got)-1]))
}

func TestHub_PresenceFollowsLocalConnections(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	assert.False(t, hub.IsOnline("u15"))

	clientA, err := hub.Register("u15", nil)
	require.NoError(t, err)
	clientB, err := hub.Register("u15", nil)
	require.NoError(t, err)
	assert.True(t, hub.IsOnline("u15"))

	hub.UnregisterClient(clientA)
	assert.True(t, hub.IsOnline("u15"))

	hub.UnregisterClient(clientB)
	assert.False(t, hub.IsOnline("u15"))

	// A second unregister of the same client is a no-op.
	hub.UnregisterClient(clientB)
	assert.False(t, hub.IsOnline("u15"))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestHub_PresenceSharedAcrossInstances(t *testing.T) {
	_, rdb := newTestRedis(t)

	hubA := NewHub(rdb)
	hubB := NewHub(rdb)
	defer func() { _ = hubB.Shutdown(context.Background()) }()

	c1, err := hubA.Register("u10", nil)
	require.NoError(t, err)
	c2, err := hubA.Register("u10", nil)
	require.NoError(t, err)
	assert.True(t, hubB.IsOnline("u10"))

	hubA.UnregisterClient(c1)
	assert.True(t, hubB.IsOnline("u10"))

	hubA.UnregisterClient(c2)
	assert.False(t, hubB.IsOnline("u10"))

	_, err = hubA.Register("u10", nil)
	require.NoError(t, err)
	require.True(t, hubB.IsOnline("u10"))
	require.NoError(t, hubA.Shutdown(context.Background()))
	assert.False(t, hubB.IsOnline("u10"))
}

func TestPresence_CounterExpiresWithoutActivity(t *testing.T) {
	mr, rdb := newTestRedis(t)
	ctx := context.Background()

	crashed := NewPresence(rdb)
	crashed.Connected(ctx, "ghost")

	other := NewPresence(rdb)
	assert.True(t, other.IsOnline(ctx, "ghost"))

	mr.FastForward(presenceTTL / 2)
	crashed.Touch(ctx, "ghost")
	mr.FastForward(presenceTTL / 2)
	assert.True(t, other.IsOnline(ctx, "ghost"))

	mr.FastForward(presenceTTL + time.Second)
	assert.False(t, other.IsOnline(ctx, "ghost"))
	assert.False(t, mr.Exists(presenceKey("ghost")))
}

func TestHub_UnregisterClosesSendQueue(t *testing.T) {
	hub := NewHub()
	defer func() { _ = hub.Shutdown(context.Background()) }()

	c, err := hub.Register("ann", nil)
	require.NoError(t, err)
	require.True(t, c.TrySend([]byte("last")))

	hub.UnregisterClient(c)

	msg, ok := <-c.Send
	require.True(t, ok)
	assert.Equal(t, "last", string(msg))
	_, ok = <-c.Send
	assert.False(t, ok, "send queue should be closed")
	assert.Nil(t, c.closeMsg)

	assert.False(t, c.TrySend([]byte("late")))
	hub.Broadcast("ann", []byte("late"))
}

func TestHub_ShutdownQueuesGoingAwayClose(t *testing.T) {
	hub := NewHub()

	ann, err := hub.Register("ann", nil)
	require.NoError(t, err)
	bob, err := hub.Register("bob", nil)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.ConnectionCount())

	want := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
	for _, c := range []*Client{ann, bob} {
		assert.Empty(t, drain(c))
		_, ok := <-c.Send
		assert.False(t, ok)
		assert.Equal(t, want, c.closeMsg)
	}

	// The read pump still unregisters after shutdown.
	hub.UnregisterClient(ann)
	assert.False(t, hub.IsOnline("ann"))
}
