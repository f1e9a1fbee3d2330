package scheduler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// phoenixServer fakes the remote store's realtime endpoint: it upgrades
// the connection and hands it to the scripted handler.
type phoenixServer struct {
	server   *httptest.Server
	url      string
	apiKeys  chan string
	sessions atomic.Int64
}

func newPhoenixServer(t *testing.T, handler func(conn *websocket.Conn)) *phoenixServer {
	t.Helper()
	ps := &phoenixServer{apiKeys: make(chan string, 8)}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ps.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.apiKeys <- r.URL.Query().Get("apikey")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.sessions.Add(1)
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(ps.server.Close)
	ps.url = "ws" + strings.TrimPrefix(ps.server.URL, "http") + realtimePath
	return ps
}

func startRealtime(t *testing.T, ps *phoenixServer, executor Executor) *RealtimeMonitor {
	t.Helper()
	m := NewRealtimeMonitor(ps.url, "anon-key", executor, zap.NewNop())
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Stop(stopCtx)
	})
	return m
}

func changeFrame(table, eventType string) phoenixMessage {
	payload, _ := json.Marshal(postgresChange{
		Schema:    "public",
		Table:     table,
		EventType: eventType,
	})
	return phoenixMessage{Topic: orderTopic, Event: "postgres_changes", Payload: payload}
}

func TestRealtimeMonitor_JoinsOrderTopic(t *testing.T) {
	joins := make(chan phoenixMessage, 1)
	ps := newPhoenixServer(t, func(conn *websocket.Conn) {
		var msg phoenixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		joins <- msg
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	startRealtime(t, ps, &fakeExecutor{})

	select {
	case key := <-ps.apiKeys:
		assert.Equal(t, "anon-key", key)
	case <-time.After(2 * time.Second):
		t.Fatal("no connection arrived")
	}

	select {
	case join := <-joins:
		assert.Equal(t, orderTopic, join.Topic)
		assert.Equal(t, "phx_join", join.Event)
		payload := string(join.Payload)
		assert.Contains(t, payload, "postgres_changes")
		assert.Contains(t, payload, `"INSERT"`)
		assert.Contains(t, payload, `"UPDATE"`)
		assert.Contains(t, payload, `"table":"order"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no join frame arrived")
	}
}

func TestRealtimeMonitor_PushTriggersTick(t *testing.T) {
	ps := newPhoenixServer(t, func(conn *websocket.Conn) {
		var join phoenixMessage
		if err := conn.ReadJSON(&join); err != nil {
			return
		}
		_ = conn.WriteJSON(phoenixMessage{Topic: join.Topic, Event: "phx_reply", Ref: join.Ref})
		_ = conn.WriteJSON(changeFrame("order", "INSERT"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	executor := &fakeExecutor{}
	startRealtime(t, ps, executor)

	require.Eventually(t, func() bool {
		return executor.callCount() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeMonitor_IgnoresOtherTables(t *testing.T) {
	ps := newPhoenixServer(t, func(conn *websocket.Conn) {
		var join phoenixMessage
		if err := conn.ReadJSON(&join); err != nil {
			return
		}
		_ = conn.WriteJSON(changeFrame("menu_item", "UPDATE"))
		_ = conn.WriteJSON(changeFrame("order", "INSERT"))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	executor := &fakeExecutor{}
	startRealtime(t, ps, executor)

	// The order change lands after the menu_item change, so exactly one
	// tick means the first frame was ignored.
	require.Eventually(t, func() bool {
		return executor.callCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, executor.callCount())
}

func TestRealtimeMonitor_StopUnblocksSilentConnection(t *testing.T) {
	joined := make(chan struct{}, 1)
	ps := newPhoenixServer(t, func(conn *websocket.Conn) {
		var join phoenixMessage
		if err := conn.ReadJSON(&join); err != nil {
			return
		}
		joined <- struct{}{}
		// Never send a frame: the monitor's read must not be the thing
		// that decides when Stop returns.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	m := NewRealtimeMonitor(ps.url, "anon-key", &fakeExecutor{}, zap.NewNop())
	require.NoError(t, m.Start(context.Background()))

	select {
	case <-joined:
	case <-time.After(2 * time.Second):
		t.Fatal("session never joined")
	}

	start := time.Now()
	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(stopCtx))
	assert.Less(t, time.Since(start), time.Second)
}

func TestRealtimeMonitor_ReconnectsAfterDrop(t *testing.T) {
	ps := newPhoenixServer(t, func(conn *websocket.Conn) {
		var join phoenixMessage
		_ = conn.ReadJSON(&join)
		// Drop the connection right after the join.
	})
	m := NewRealtimeMonitor(ps.url, "anon-key", &fakeExecutor{}, zap.NewNop())
	m.reconnect = 20 * time.Millisecond
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = m.Stop(stopCtx)
	})

	require.Eventually(t, func() bool {
		return ps.sessions.Load() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRealtimeMonitor_StartStop(t *testing.T) {
	ps := newPhoenixServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})
	m := NewRealtimeMonitor(ps.url, "anon-key", &fakeExecutor{}, zap.NewNop())

	require.NoError(t, m.Start(context.Background()))
	assert.ErrorIs(t, m.Start(context.Background()), ErrMonitorAlreadyRunning)

	stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Stop(stopCtx))
	assert.ErrorIs(t, m.Stop(stopCtx), ErrMonitorNotRunning)
}
