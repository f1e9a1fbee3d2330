// Package autoprint contains the application service that runs on every
// monitor tick: probe connectivity, refresh the local mirror, find
// unprinted orders and fan them out to the receipt sinks.
package autoprint

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/domain/ordering"
	"github.com/pos/backoffice/internal/domain/shared"
	"github.com/pos/backoffice/internal/infrastructure/printing"
)

// TickResult summarizes one monitor tick for the scheduler's interval
// damping and for operators watching the logs.
type TickResult struct {
	Connected   bool
	OrdersFound int
	Printed     int
	Failed      int
	Skipped     int
}

// Printer is the dispatch surface the service needs from the printing
// layer.
type Printer interface {
	PrintOrder(ctx context.Context, detail *ordering.OrderDetail) printing.Result
	ProbeSinks(ctx context.Context) bool
}

// Service implements the per-tick auto-print pipeline.
type Service struct {
	remote    ordering.RemoteStore
	mirror    ordering.OrderMirror
	printer   Printer
	publisher shared.EventPublisher
	logger    *zap.Logger

	batchSize int
	loc       *time.Location

	mu       sync.RWMutex
	settings ordering.PrintSettings

	// lastConnected tracks the previous probe outcome so transitions
	// are logged once rather than every tick.
	connMu        sync.Mutex
	lastConnected *bool
}

// NewService creates the auto-print service. timezone is used for the
// business-hours gate; an unknown name falls back to UTC.
func NewService(
	remote ordering.RemoteStore,
	mirror ordering.OrderMirror,
	printer Printer,
	publisher shared.EventPublisher,
	settings ordering.PrintSettings,
	batchSize int,
	timezone string,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Service{
		remote:    remote,
		mirror:    mirror,
		printer:   printer,
		publisher: publisher,
		logger:    logger.Named("autoprint"),
		batchSize: batchSize,
		loc:       loc,
		settings:  settings,
	}
}

// Settings returns the current print settings.
func (s *Service) Settings() ordering.PrintSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetAutoPrintEnabled toggles automatic dispatching. The scheduler reads
// this to pick its base interval.
func (s *Service) SetAutoPrintEnabled(enabled bool) {
	s.mu.Lock()
	s.settings.AutoPrintEnabled = enabled
	s.mu.Unlock()
	s.logger.Info("auto-print toggled", zap.Bool("enabled", enabled))
}

// AutoPrintEnabled reports whether automatic dispatching is on.
func (s *Service) AutoPrintEnabled() bool {
	return s.Settings().AutoPrintEnabled
}

// CheckAndProcess runs one tick: connectivity, sync, detection, dispatch.
// A disconnected remote short-circuits without touching the mirror.
func (s *Service) CheckAndProcess(ctx context.Context) (TickResult, error) {
	var result TickResult

	result.Connected = s.remote.CheckConnectivity(ctx)
	s.publishConnectivity(ctx, result.Connected)
	if !result.Connected {
		return result, nil
	}

	s.syncEssentialTables(ctx)

	orders, err := s.mirror.GetUnprintedOrders(ctx, true, s.batchSize)
	if err != nil {
		return result, fmt.Errorf("query unprinted orders: %w", err)
	}
	result.OrdersFound = len(orders)
	if len(orders) == 0 {
		return result, nil
	}

	s.recordNewestOrder(ctx, orders)
	s.publish(ctx, ordering.NewNewOrdersFoundEvent(orders))

	if !s.AutoPrintEnabled() {
		return result, nil
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			break
		}
		switch s.processOrder(ctx, order) {
		case outcomePrinted:
			result.Printed++
		case outcomeFailed:
			result.Failed++
		case outcomeSkipped:
			result.Skipped++
		}
	}
	return result, nil
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomePrinted
	outcomeFailed
)

// processOrder dispatches one order. Failures are logged per order and
// never abort the batch.
func (s *Service) processOrder(ctx context.Context, order ordering.Order) outcome {
	log := s.logger.With(zap.Int64("order_id", order.OrderID))

	if !s.Settings().AllowsOrder(order, time.Now().In(s.loc)) {
		log.Debug("order outside print settings, skipped")
		return outcomeSkipped
	}

	if !s.printer.ProbeSinks(ctx) {
		log.Warn("no reachable print sink, order deferred")
		return outcomeSkipped
	}

	detail, err := s.mirror.JoinOrderDetail(ctx, order.OrderID)
	if err != nil {
		log.Error("order detail join failed", zap.Error(err))
		s.publish(ctx, ordering.NewPrintFailedEvent(order.OrderID, err.Error()))
		return outcomeFailed
	}
	if detail == nil {
		log.Warn("order vanished between detection and join, skipped")
		return outcomeSkipped
	}

	printResult := s.printer.PrintOrder(ctx, detail)
	if !printResult.Succeeded() {
		log.Warn("print did not reach the primary sink",
			zap.Bool("customer_printed", printResult.CustomerPrinted),
			zap.Bool("kitchen_printed", printResult.KitchenPrinted),
		)
		s.publish(ctx, ordering.NewPrintFailedEvent(order.OrderID, "print failed"))
		return outcomeFailed
	}

	if err := s.mirror.UpdatePrintedStatus(ctx, order.OrderID, true); err != nil {
		log.Error("printed-status update failed after successful print", zap.Error(err))
	}
	s.publish(ctx, ordering.NewPrintCompletedEvent(order.OrderID, true))
	log.Info("order printed",
		zap.Bool("kitchen_printed", printResult.KitchenPrinted),
	)
	return outcomePrinted
}

// recordNewestOrder persists the highest order id in the batch so the
// next detection pass can tell genuinely new orders from re-listed ones.
func (s *Service) recordNewestOrder(ctx context.Context, orders []ordering.Order) {
	var newest int64
	for _, order := range orders {
		if order.OrderID > newest {
			newest = order.OrderID
		}
	}
	if newest == 0 {
		return
	}
	if err := s.mirror.SetLastOrderID(ctx, newest); err != nil {
		s.logger.Warn("last order id record failed", zap.Int64("order_id", newest), zap.Error(err))
	}
}

// syncEssentialTables refreshes each mirrored table, independently: one
// failing table still lets the rest land.
func (s *Service) syncEssentialTables(ctx context.Context) {
	for _, table := range ordering.EssentialTables {
		if err := s.mirror.SyncTable(ctx, table); err != nil {
			s.logger.Warn("table sync failed", zap.String("table", table), zap.Error(err))
		}
	}
}

// PrintOrderNow prints one order on demand, bypassing the settings gate.
// Used by the manual reprint path.
func (s *Service) PrintOrderNow(ctx context.Context, orderID int64) error {
	detail, err := s.mirror.JoinOrderDetail(ctx, orderID)
	if err != nil {
		return fmt.Errorf("order detail join: %w", err)
	}
	if detail == nil {
		return fmt.Errorf("%w: order %d", shared.ErrNotFound, orderID)
	}

	result := s.printer.PrintOrder(ctx, detail)
	if !result.Succeeded() {
		s.publish(ctx, ordering.NewPrintFailedEvent(orderID, "manual print failed"))
		return fmt.Errorf("%w: order %d", shared.ErrSinkUnavailable, orderID)
	}

	if err := s.mirror.UpdatePrintedStatus(ctx, orderID, true); err != nil {
		s.logger.Error("printed-status update failed after manual print",
			zap.Int64("order_id", orderID), zap.Error(err))
	}
	s.publish(ctx, ordering.NewPrintCompletedEvent(orderID, true))
	return nil
}

// ApproveOrder marks an order approved by the given operator.
func (s *Service) ApproveOrder(ctx context.Context, orderID int64, approvedBy string) error {
	return s.mirror.UpdateApprovalStatus(ctx, orderID, true, approvedBy)
}

// RevokeApproval clears the order's approval.
func (s *Service) RevokeApproval(ctx context.Context, orderID int64) error {
	return s.mirror.UpdateApprovalStatus(ctx, orderID, false, "")
}

// DeleteOrder removes an order everywhere, remote first.
func (s *Service) DeleteOrder(ctx context.Context, orderID int64) error {
	ok, err := s.mirror.DeleteOrderCascade(ctx, orderID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: order %d not fully deleted", shared.ErrCascadeDelete, orderID)
	}
	return nil
}

// RecentOrders lists the newest mirrored orders for the ops surface.
func (s *Service) RecentOrders(ctx context.Context, limit int) ([]ordering.Order, error) {
	return s.mirror.GetRecentOrders(ctx, limit)
}

func (s *Service) publish(ctx context.Context, evt shared.DomainEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("event publish failed", zap.String("event_type", evt.EventType()), zap.Error(err))
	}
}

// publishConnectivity reports the probe outcome every tick, so a consumer
// subscribing mid-outage still learns the current state. The previous
// outcome is kept only to log transitions once instead of per tick.
func (s *Service) publishConnectivity(ctx context.Context, connected bool) {
	s.connMu.Lock()
	changed := s.lastConnected == nil || *s.lastConnected != connected
	s.lastConnected = &connected
	s.connMu.Unlock()

	s.publish(ctx, ordering.NewConnectivityChangedEvent(connected))
	if changed {
		s.logger.Info("remote connectivity changed", zap.Bool("connected", connected))
	}
}
