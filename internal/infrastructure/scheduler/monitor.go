// Package scheduler drives the auto-print pipeline: a polling monitor
// with adaptive intervals, an optional websocket push monitor, and a
// hybrid mode that combines both.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/application/autoprint"
)

// Executor runs one monitor tick. The application layer implements it.
type Executor interface {
	// CheckAndProcess probes, syncs, detects and dispatches once.
	CheckAndProcess(ctx context.Context) (autoprint.TickResult, error)
	// AutoPrintEnabled selects the fast polling interval when true.
	AutoPrintEnabled() bool
}

// Runner is the lifecycle surface shared by all monitor flavors.
type Runner interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Damping thresholds: after this many consecutive empty ticks the
// interval is stretched.
const (
	emptyChecksStretch = 5  // beyond this, base + 5s
	emptyChecksDouble  = 10 // beyond this, min(slow, base*2)

	stretchStep = 5 * time.Second
	errorPause  = 5 * time.Second
	sleepSlice  = time.Second
)

// MonitorConfig holds the polling intervals.
type MonitorConfig struct {
	// BaseInterval is the tick interval while auto-print is off.
	BaseInterval time.Duration
	// FastInterval replaces BaseInterval while auto-print is on.
	FastInterval time.Duration
	// SlowInterval caps the stretched interval after long quiet periods.
	SlowInterval time.Duration
	// FloorInterval is the lowest interval SetCheckInterval accepts.
	FloorInterval time.Duration
}

// DefaultMonitorConfig returns the intervals the deployed agents run on.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		BaseInterval:  10 * time.Second,
		FastInterval:  3 * time.Second,
		SlowInterval:  30 * time.Second,
		FloorInterval: 3 * time.Second,
	}
}

// Validate validates the configuration.
func (c *MonitorConfig) Validate() error {
	if c.BaseInterval <= 0 || c.FastInterval <= 0 || c.SlowInterval <= 0 || c.FloorInterval <= 0 {
		return ErrInvalidConfig
	}
	if c.SlowInterval < c.BaseInterval {
		return ErrInvalidConfig
	}
	return nil
}

// Monitor polls the executor on an adaptive interval: fast while
// auto-print is on, stretched while nothing arrives, never below the
// configured floor.
type Monitor struct {
	config   MonitorConfig
	executor Executor
	logger   *zap.Logger

	mu               sync.Mutex
	checkInterval    time.Duration
	consecutiveEmpty int
	isRunning        bool
	stop             chan struct{}
	wg               sync.WaitGroup
}

// NewMonitor creates a polling monitor.
func NewMonitor(config MonitorConfig, executor Executor, logger *zap.Logger) (*Monitor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		config:        config,
		executor:      executor,
		logger:        logger.Named("monitor"),
		checkInterval: config.BaseInterval,
	}, nil
}

// Start launches the polling loop.
func (m *Monitor) Start(ctx context.Context) error {
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

	m.logger.Info("order monitor started",
		zap.Duration("base_interval", m.config.BaseInterval),
		zap.Duration("fast_interval", m.config.FastInterval),
		zap.Duration("slow_interval", m.config.SlowInterval),
	)
	return nil
}

// Stop signals the loop and waits for it to drain. A tick in flight
// finishes; the 1-second sleep slices bound the join latency.
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return ErrMonitorNotRunning
	}
	m.isRunning = false
	close(m.stop)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("order monitor stopped")
		return nil
	case <-ctx.Done():
		m.logger.Warn("order monitor stop timed out")
		return ctx.Err()
	}
}

// SetCheckInterval overrides the base interval, clamped to the floor.
func (m *Monitor) SetCheckInterval(interval time.Duration) {
	if interval < m.config.FloorInterval {
		interval = m.config.FloorInterval
	}
	m.mu.Lock()
	m.checkInterval = interval
	m.mu.Unlock()
	m.logger.Info("check interval changed", zap.Duration("interval", interval))
}

// CheckInterval returns the current base interval.
func (m *Monitor) CheckInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkInterval
}

// ConsecutiveEmptyChecks returns the current quiet-tick counter.
func (m *Monitor) ConsecutiveEmptyChecks() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.consecutiveEmpty
}

// CurrentInterval computes the effective interval from the auto-print
// state and the quiet-tick counter.
func (m *Monitor) CurrentInterval() time.Duration {
	base := m.CheckInterval()
	if m.executor.AutoPrintEnabled() {
		base = m.config.FastInterval
	}

	m.mu.Lock()
	empty := m.consecutiveEmpty
	m.mu.Unlock()

	switch {
	case empty > emptyChecksDouble:
		stretched := base * 2
		if stretched > m.config.SlowInterval {
			stretched = m.config.SlowInterval
		}
		return stretched
	case empty > emptyChecksStretch:
		return base + stretchStep
	default:
		return base
	}
}

func (m *Monitor) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		// The interval reflects the state before this tick, matching how
		// operators reason about "it found orders, next check is soon".
		interval := m.CurrentInterval()

		result, err := m.executor.CheckAndProcess(ctx)
		if err != nil {
			m.logger.Error("monitor tick failed", zap.Error(err))
			if !m.sleep(ctx, errorPause) {
				return
			}
			continue
		}

		// Disconnected ticks leave the damping counter untouched: an
		// outage should not slow recovery once the link returns.
		if result.Connected {
			m.mu.Lock()
			if result.OrdersFound > 0 {
				m.consecutiveEmpty = 0
			} else {
				m.consecutiveEmpty++
			}
			m.mu.Unlock()
		}

		if result.OrdersFound > 0 {
			m.logger.Info("tick processed orders",
				zap.Int("found", result.OrdersFound),
				zap.Int("printed", result.Printed),
				zap.Int("failed", result.Failed),
				zap.Int("skipped", result.Skipped),
			)
		}

		if !m.sleep(ctx, interval) {
			return
		}
	}
}

// sleep waits in 1-second slices so Stop is honored promptly. Returns
// false when the monitor should exit.
func (m *Monitor) sleep(ctx context.Context, d time.Duration) bool {
	for remaining := d; remaining > 0; remaining -= sleepSlice {
		slice := sleepSlice
		if remaining < slice {
			slice = remaining
		}
		select {
		case <-m.stop:
			return false
		case <-ctx.Done():
			return false
		case <-time.After(slice):
		}
	}
	return true
}

// Ensure Monitor implements Runner
var _ Runner = (*Monitor)(nil)
