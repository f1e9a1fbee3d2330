package ordering

import (
	"context"
	"encoding/json"
)

// Mirrored table names. The allow-list matches the remote schema; sync
// requests outside it are rejected.
const (
	TableOrder           = "order"
	TableOrderItem       = "order_item"
	TableOrderItemOption = "order_item_option"
	TableCompany         = "company"
	TableMenuItem        = "menu_item"
	TableOptionItem      = "option_item"
)

// EssentialTables is the minimal set the monitor refreshes each tick to
// answer "what is unprinted and what does it contain".
var EssentialTables = []string{
	TableOrder,
	TableOrderItem,
	TableOrderItemOption,
	TableCompany,
	TableMenuItem,
	TableOptionItem,
}

// RemoteStore is the client contract the core requires from the remote
// order store (PostgREST-style: fetch by table, patch by id, delete by id).
type RemoteStore interface {
	// FetchTable returns the full row set of a table as raw JSON objects.
	FetchTable(ctx context.Context, table string) ([]json.RawMessage, error)
	// Patch applies a partial update to the rows matching pk=eq.{id}.
	Patch(ctx context.Context, table, pk string, id int64, body map[string]any) error
	// Delete removes the rows matching pk=eq.{id}.
	Delete(ctx context.Context, table, pk string, id int64) error
	// DeleteIn removes the rows whose pk is in the given id set.
	DeleteIn(ctx context.Context, table, pk string, ids []int64) error
	// CheckConnectivity performs a lightweight reachability probe.
	CheckConnectivity(ctx context.Context) bool
	// LatestOrderID returns the highest order id currently on the remote,
	// or 0 when the order table is empty.
	LatestOrderID(ctx context.Context) (int64, error)
}

// OrderMirror is the query and write-through surface of the local cache.
// Readers never observe a partially synced table: a sync either fully
// replaces the snapshot or leaves the prior one in place.
type OrderMirror interface {
	// SyncTable refreshes the local mirror of one table from the remote
	// store. Failures are independent per table.
	SyncTable(ctx context.Context, table string) error
	// GetRecentOrders returns orders newest-first, limited.
	GetRecentOrders(ctx context.Context, limit int) ([]Order, error)
	// GetUnprintedOrders returns orders with is_printed = false. When
	// withinLastHour is set the result is bounded to the last hour of
	// created_at, which is what the fast monitor path uses.
	GetUnprintedOrders(ctx context.Context, withinLastHour bool, limit int) ([]Order, error)
	// JoinOrderDetail assembles the denormalized detail for one order.
	// Returns nil when the order no longer exists locally.
	JoinOrderDetail(ctx context.Context, orderID int64) (*OrderDetail, error)
	// UpdatePrintedStatus writes is_printed locally (mandatory) and then
	// best-effort patches the remote store.
	UpdatePrintedStatus(ctx context.Context, orderID int64, printed bool) error
	// UpdateApprovalStatus writes the approval triple locally and then
	// best-effort patches the remote store.
	UpdateApprovalStatus(ctx context.Context, orderID int64, approved bool, approvedBy string) error
	// DeleteOrderCascade removes the order and everything referencing it,
	// remote first, in dependency order. Returns true only when both the
	// remote and local deletions fully succeeded.
	DeleteOrderCascade(ctx context.Context, orderID int64) (bool, error)
	// LastOrderID returns the newest order id detection has recorded,
	// or 0 when none has been recorded yet.
	LastOrderID(ctx context.Context) (int64, error)
	// SetLastOrderID records the newest order id seen by detection.
	SetLastOrderID(ctx context.Context, id int64) error
}
