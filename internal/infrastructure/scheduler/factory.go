package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/infrastructure/config"
)

// Monitoring method selectors accepted in configuration.
const (
	MethodPoll   = "poll"
	MethodPush   = "push"
	MethodHybrid = "hybrid"
)

// BuildMonitor constructs the monitor flavor selected by configuration.
func BuildMonitor(cfg *config.Config, executor Executor, logger *zap.Logger) (Runner, error) {
	monitorCfg := MonitorConfig{
		BaseInterval:  cfg.Monitor.BaseInterval,
		FastInterval:  cfg.Monitor.FastInterval,
		SlowInterval:  cfg.Monitor.SlowInterval,
		FloorInterval: cfg.Monitor.FloorInterval,
	}

	realtimeURL := cfg.Monitor.RealtimeURL
	if realtimeURL == "" {
		realtimeURL = RealtimeURLFromBase(cfg.Remote.BaseURL)
	}

	switch cfg.Monitor.Method {
	case MethodPoll, "":
		return NewMonitor(monitorCfg, executor, logger)

	case MethodPush:
		return NewRealtimeMonitor(realtimeURL, cfg.Remote.APIKey, executor, logger), nil

	case MethodHybrid:
		poll, err := NewMonitor(monitorCfg, executor, logger)
		if err != nil {
			return nil, err
		}
		// Push is the primary signal; the poll runs slow as a safety net
		// for dropped websocket events.
		slowPoll := cfg.Monitor.HybridPoll
		if slowPoll <= 0 {
			slowPoll = time.Minute
		}
		poll.SetCheckInterval(slowPoll)
		push := NewRealtimeMonitor(realtimeURL, cfg.Remote.APIKey, executor, logger)
		return &hybridMonitor{poll: poll, push: push}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, cfg.Monitor.Method)
	}
}

// hybridMonitor runs the push monitor alongside a slow polling fallback.
type hybridMonitor struct {
	poll *Monitor
	push *RealtimeMonitor
}

// Start starts both monitors; a push failure rolls the poll back.
func (h *hybridMonitor) Start(ctx context.Context) error {
	if err := h.poll.Start(ctx); err != nil {
		return err
	}
	if err := h.push.Start(ctx); err != nil {
		stopCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.poll.Stop(stopCtx)
		return err
	}
	return nil
}

// Stop stops both monitors, returning the first error.
func (h *hybridMonitor) Stop(ctx context.Context) error {
	pushErr := h.push.Stop(ctx)
	pollErr := h.poll.Stop(ctx)
	if pushErr != nil {
		return pushErr
	}
	return pollErr
}

// Ensure hybridMonitor implements Runner
var _ Runner = (*hybridMonitor)(nil)
