package ordering

import (
	"strconv"

	"github.com/pos/backoffice/internal/domain/shared"
)

// Aggregate type constants
const (
	AggregateTypeOrder   = "Order"
	AggregateTypeMonitor = "OrderMonitor"
)

// Event type constants
const (
	EventTypeNewOrdersFound      = "NewOrdersFound"
	EventTypePrintCompleted      = "PrintCompleted"
	EventTypePrintFailed         = "PrintFailed"
	EventTypeConnectivityChanged = "ConnectivityChanged"
)

// NewOrdersFoundEvent is published when a monitor tick detects unprinted orders
type NewOrdersFoundEvent struct {
	shared.BaseDomainEvent
	Orders []Order `json:"orders"`
}

// NewNewOrdersFoundEvent creates a NewOrdersFoundEvent
func NewNewOrdersFoundEvent(orders []Order) *NewOrdersFoundEvent {
	return &NewOrdersFoundEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeNewOrdersFound,
			AggregateTypeMonitor,
			"monitor",
		),
		Orders: orders,
	}
}

// PrintCompletedEvent is published when an order has been delivered to the
// primary sink and marked printed
type PrintCompletedEvent struct {
	shared.BaseDomainEvent
	OrderID int64 `json:"order_id"`
	Success bool  `json:"success"`
}

// NewPrintCompletedEvent creates a PrintCompletedEvent
func NewPrintCompletedEvent(orderID int64, success bool) *PrintCompletedEvent {
	return &PrintCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypePrintCompleted,
			AggregateTypeOrder,
			strconv.FormatInt(orderID, 10),
		),
		OrderID: orderID,
		Success: success,
	}
}

// PrintFailedEvent is published when an order could not be printed
type PrintFailedEvent struct {
	shared.BaseDomainEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// NewPrintFailedEvent creates a PrintFailedEvent
func NewPrintFailedEvent(orderID int64, reason string) *PrintFailedEvent {
	return &PrintFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypePrintFailed,
			AggregateTypeOrder,
			strconv.FormatInt(orderID, 10),
		),
		OrderID: orderID,
		Reason:  reason,
	}
}

// ConnectivityChangedEvent is published on every monitor tick with the
// current remote reachability
type ConnectivityChangedEvent struct {
	shared.BaseDomainEvent
	Connected bool `json:"connected"`
}

// NewConnectivityChangedEvent creates a ConnectivityChangedEvent
func NewConnectivityChangedEvent(connected bool) *ConnectivityChangedEvent {
	return &ConnectivityChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(
			EventTypeConnectivityChanged,
			AggregateTypeMonitor,
			"monitor",
		),
		Connected: connected,
	}
}
