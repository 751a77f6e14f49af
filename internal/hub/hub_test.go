package hub

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	h := New(log)
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		h.Close()
		srv.Close()
	})
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesAllClients(t *testing.T) {
	h, url := newTestHub(t)

	c1 := dial(t, url)
	c2 := dial(t, url)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	h.Broadcast("round_created", map[string]interface{}{"id": 1})

	for _, conn := range []*websocket.Conn{c1, c2} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
		var ev Event
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &ev))
		require.Equal(t, "round_created", ev.Type)
	}
}

func TestBroadcastPreservesOrderPerClient(t *testing.T) {
	h, url := newTestHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	h.Broadcast("guess_submitted", 1)
	h.Broadcast("round_closed", 2)
	h.Broadcast("round_resolved", 3)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	var types []string
	for i := 0; i < 3; i++ {
		var ev Event
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &ev))
		types = append(types, ev.Type)
	}
	require.Equal(t, []string{"guess_submitted", "round_closed", "round_resolved"}, types)
}

func TestDisconnectedClientIsRemoved(t *testing.T) {
	h, url := newTestHub(t)
	conn := dial(t, url)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 10*time.Millisecond)

	// Broadcasting into an empty hub is a no-op.
	h.Broadcast("chat", nil)
}

func TestCloseDropsAllClients(t *testing.T) {
	h, url := newTestHub(t)
	dial(t, url)
	dial(t, url)
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	h.Close()
	require.Equal(t, 0, h.ClientCount())
}
