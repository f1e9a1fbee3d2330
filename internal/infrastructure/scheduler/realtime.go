package scheduler

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	realtimePath       = "/realtime/v1/websocket"
	orderTopic         = "realtime:public:order"
	heartbeatTopic     = "phoenix"
	heartbeatInterval  = 30 * time.Second
	reconnectInterval  = 5 * time.Second
	realtimeReadLimit  = 1 << 20
	realtimeDialWindow = 10 * time.Second
)

// RealtimeURLFromBase derives the websocket endpoint from the remote
// store's HTTP base URL.
func RealtimeURLFromBase(baseURL string) string {
	ws := strings.Replace(baseURL, "https://", "wss://", 1)
	ws = strings.Replace(ws, "http://", "ws://", 1)
	return strings.TrimRight(ws, "/") + realtimePath
}

// phoenixMessage is the Phoenix-channel frame the realtime endpoint
// speaks.
type phoenixMessage struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     string          `json:"ref"`
}

// postgresChange is the payload of a postgres_changes frame.
type postgresChange struct {
	Schema    string          `json:"schema"`
	Table     string          `json:"table"`
	EventType string          `json:"eventType"`
	New       json.RawMessage `json:"new"`
	Old       json.RawMessage `json:"old"`
}

// joinPayload subscribes to INSERT and UPDATE on the order table.
var joinPayload = json.RawMessage(`{"config":{"postgres_changes":[` +
	`{"event":"INSERT","schema":"public","table":"order"},` +
	`{"event":"UPDATE","schema":"public","table":"order"}]}}`)

// RealtimeMonitor subscribes to order changes over the remote store's
// websocket and runs a tick the moment a change lands. The connection is
// re-established with a fixed backoff; missed changes are caught by the
// next tick's full sync, so reconnect gaps only cost latency.
type RealtimeMonitor struct {
	url      string
	apiKey   string
	executor Executor
	logger   *zap.Logger
	dialer   *websocket.Dialer

	refCounter atomic.Int64

	mu        sync.Mutex
	isRunning bool
	stop      chan struct{}
	conn      *websocket.Conn // active session connection, nil between sessions
	wg        sync.WaitGroup

	reconnect time.Duration
}

// NewRealtimeMonitor creates a push monitor against the given websocket
// endpoint.
func NewRealtimeMonitor(url, apiKey string, executor Executor, logger *zap.Logger) *RealtimeMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RealtimeMonitor{
		url:       url,
		apiKey:    apiKey,
		executor:  executor,
		logger:    logger.Named("realtime"),
		dialer:    &websocket.Dialer{HandshakeTimeout: realtimeDialWindow},
		reconnect: reconnectInterval,
	}
}

// Start launches the subscription loop.
func (m *RealtimeMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return ErrMonitorAlreadyRunning
	}
	m.isRunning = true
	m.stop = make(chan struct{})
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(ctx)

	m.logger.Info("realtime monitor started", zap.String("url", m.url))
	return nil
}

// Stop closes the connection and waits for the loop to exit. Closing the
// active socket unblocks a read that would otherwise wait for the next
// server frame.
func (m *RealtimeMonitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return ErrMonitorNotRunning
	}
	m.isRunning = false
	close(m.stop)
	if m.conn != nil {
		m.conn.Close()
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("realtime monitor stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("realtime monitor stop timed out")
		return ctx.Err()
	}
}

func (m *RealtimeMonitor) setConn(conn *websocket.Conn) {
	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()
}

func (m *RealtimeMonitor) stopped() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}

func (m *RealtimeMonitor) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		if m.stopped() || ctx.Err() != nil {
			return
		}
		if err := m.session(ctx); err != nil {
			m.logger.Warn("realtime session ended", zap.Error(err))
		}
		select {
		case <-m.stop:
			return
		case <-ctx.Done():
			return
		case <-time.After(m.reconnect):
		}
	}
}

// session dials, joins the order topic and pumps messages until the
// connection drops or the monitor stops.
func (m *RealtimeMonitor) session(ctx context.Context) error {
	conn, _, err := m.dialer.DialContext(ctx, m.url+"?apikey="+m.apiKey+"&vsn=1.0.0", nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	conn.SetReadLimit(realtimeReadLimit)

	// Register the socket so Stop can close it out from under a blocked
	// read. A stop that raced the dial is honored before joining.
	m.setConn(conn)
	defer m.setConn(nil)
	if m.stopped() {
		return nil
	}

	var writeMu sync.Mutex
	send := func(msg phoenixMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	if err := send(phoenixMessage{
		Topic:   orderTopic,
		Event:   "phx_join",
		Payload: joinPayload,
		Ref:     m.nextRef(),
	}); err != nil {
		return err
	}

	// Heartbeat keeps the Phoenix channel from reaping the socket.
	hbStop := make(chan struct{})
	defer close(hbStop)
	go func() {
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-hbStop:
				return
			case <-ticker.C:
				if err := send(phoenixMessage{
					Topic:   heartbeatTopic,
					Event:   "heartbeat",
					Payload: json.RawMessage(`{}`),
					Ref:     m.nextRef(),
				}); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		if m.stopped() || ctx.Err() != nil {
			return nil
		}
		var msg phoenixMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if m.stopped() {
				return nil
			}
			return err
		}
		m.handleMessage(ctx, msg)
	}
}

func (m *RealtimeMonitor) handleMessage(ctx context.Context, msg phoenixMessage) {
	switch msg.Event {
	case "postgres_changes":
		var change postgresChange
		if err := json.Unmarshal(msg.Payload, &change); err != nil {
			m.logger.Debug("undecodable change payload", zap.Error(err))
			return
		}
		if change.Schema != "public" || change.Table != "order" {
			return
		}
		m.logger.Info("order change pushed",
			zap.String("event_type", change.EventType),
		)
		if _, err := m.executor.CheckAndProcess(ctx); err != nil {
			m.logger.Error("push-triggered tick failed", zap.Error(err))
		}
	case "phx_reply":
		m.logger.Debug("subscription reply", zap.String("topic", msg.Topic))
	}
}

func (m *RealtimeMonitor) nextRef() string {
	return strconv.FormatInt(m.refCounter.Add(1), 10)
}

// Ensure RealtimeMonitor implements Runner
var _ Runner = (*RealtimeMonitor)(nil)
