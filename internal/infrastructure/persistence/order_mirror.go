package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/pos/backoffice/internal/domain/ordering"
	"github.com/pos/backoffice/internal/domain/shared"
	"github.com/pos/backoffice/internal/infrastructure/cache"
)

// insertBatchSize bounds a single INSERT during a table sync
const insertBatchSize = 200

// OrderMirror keeps the local sqlite mirror of the remote order tables and
// serves every read the monitor and the UI make. It owns a query cache for
// the expensive joins; all mutations invalidate the affected key classes.
type OrderMirror struct {
	db     *gorm.DB
	remote ordering.RemoteStore
	memo   *cache.QueryCache
	logger *zap.Logger
}

// NewOrderMirror creates the mirror repository
func NewOrderMirror(db *Database, remote ordering.RemoteStore, memo *cache.QueryCache, logger *zap.Logger) *OrderMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	if memo == nil {
		memo = cache.NewQueryCache(cache.DefaultTTL, logger)
	}
	return &OrderMirror{
		db:     db.DB,
		remote: remote,
		memo:   memo,
		logger: logger.Named("mirror"),
	}
}

// SyncTable fetches the full row set of one table from the remote store
// and replaces the local snapshot inside a single transaction, so readers
// observe either the old or the new snapshot, never a mix. An empty remote
// result keeps the prior snapshot (the remote never truncates tables; an
// empty payload usually means a half-configured project).
func (m *OrderMirror) SyncTable(ctx context.Context, table string) error {
	rows, err := m.remote.FetchTable(ctx, table)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrSyncFailed, table, err)
	}
	if len(rows) == 0 {
		m.logger.Debug("sync skipped, remote table empty", zap.String("table", table))
		return nil
	}

	if err := m.replaceSnapshot(table, rows); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrSyncFailed, table, err)
	}

	m.memo.Invalidate(table)
	m.logger.Debug("table synced", zap.String("table", table), zap.Int("rows", len(rows)))
	return nil
}

func (m *OrderMirror) replaceSnapshot(table string, rows []json.RawMessage) error {
	switch table {
	case ordering.TableOrder:
		return replaceRows[OrderModel](m.db, rows)
	case ordering.TableOrderItem:
		return replaceRows[OrderItemModel](m.db, rows)
	case ordering.TableOrderItemOption:
		return replaceRows[OrderItemOptionModel](m.db, rows)
	case ordering.TableCompany:
		return replaceRows[CompanyModel](m.db, rows)
	case ordering.TableMenuItem:
		return replaceRows[MenuItemModel](m.db, rows)
	case ordering.TableOptionItem:
		return replaceRows[OptionItemModel](m.db, rows)
	default:
		return fmt.Errorf("table %q is not mirrored", table)
	}
}

// replaceRows decodes the remote payload and swaps the table content in
// one transaction.
func replaceRows[T any](db *gorm.DB, rows []json.RawMessage) error {
	models := make([]T, 0, len(rows))
	for _, raw := range rows {
		var model T
		if err := json.Unmarshal(raw, &model); err != nil {
			return fmt.Errorf("decode row: %w", err)
		}
		models = append(models, model)
	}

	var zero T
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&zero).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(models, insertBatchSize).Error
	})
}

// orderRow carries an order joined with its company name
type orderRow struct {
	OrderModel
	CompanyName string `gorm:"column:company_name"`
}

func (m *OrderMirror) orderQuery() *gorm.DB {
	return m.db.Table(`"order" AS o`).
		Select(`o.*, c.company_name`).
		Joins(`LEFT JOIN company c ON c.company_id = o.company_id`)
}

func rowsToOrders(rows []orderRow) []ordering.Order {
	orders := make([]ordering.Order, len(rows))
	for i, row := range rows {
		order := row.OrderModel.ToDomain()
		order.CompanyName = row.CompanyName
		orders[i] = order
	}
	return orders
}

// GetRecentOrders returns orders newest-first, limited. A table that was
// never synced yields an empty result, not an error.
func (m *OrderMirror) GetRecentOrders(ctx context.Context, limit int) ([]ordering.Order, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []orderRow
	err := m.orderQuery().WithContext(ctx).
		Order("o.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToOrders(rows), nil
}

// GetUnprintedOrders returns unprinted orders newest-first. The fast
// monitor path sets withinLastHour so stale abandoned orders do not get
// reprocessed forever; the manual check-now path lifts the bound.
func (m *OrderMirror) GetUnprintedOrders(ctx context.Context, withinLastHour bool, limit int) ([]ordering.Order, error) {
	if limit <= 0 {
		limit = 20
	}
	query := m.orderQuery().WithContext(ctx).Where("o.is_printed = ?", false)
	if withinLastHour {
		query = query.Where("o.created_at > ?", time.Now().UTC().Add(-time.Hour))
	}
	var rows []orderRow
	if err := query.Order("o.created_at DESC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rowsToOrders(rows), nil
}

// JoinOrderDetail assembles the denormalized order detail: the order with
// its company name, items with resolved menu names, and each item's
// options with resolved option names and prices. Returns nil when the
// order no longer exists locally.
func (m *OrderMirror) JoinOrderDetail(ctx context.Context, orderID int64) (*ordering.OrderDetail, error) {
	cacheKey := "order_detail_" + strconv.FormatInt(orderID, 10)
	if cached, ok := m.memo.Get(cacheKey, cache.TTLOrders); ok {
		detail := cached.(ordering.OrderDetail)
		return &detail, nil
	}

	var row orderRow
	err := m.orderQuery().WithContext(ctx).
		Where("o.order_id = ?", orderID).
		Limit(1).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.OrderID == 0 {
		return nil, nil
	}

	order := row.OrderModel.ToDomain()
	order.CompanyName = row.CompanyName
	detail := ordering.OrderDetail{Order: order}

	type itemRow struct {
		OrderItemModel
		MenuName string `gorm:"column:menu_name"`
	}
	var itemRows []itemRow
	err = m.db.WithContext(ctx).
		Table("order_item AS oi").
		Select("oi.*, mi.menu_name").
		Joins("LEFT JOIN menu_item mi ON mi.menu_item_id = oi.menu_item_id").
		Where("oi.order_id = ?", orderID).
		Order("oi.order_item_id").
		Scan(&itemRows).Error
	if err != nil {
		return nil, err
	}

	itemIDs := make([]int64, len(itemRows))
	for i, ir := range itemRows {
		itemIDs[i] = ir.OrderItemID
	}

	type optionRow struct {
		OrderItemOptionModel
		OptionItemName string `gorm:"column:option_item_name"`
		OptionPrice    int64  `gorm:"column:option_price"`
	}
	optionsByItem := make(map[int64][]ordering.OrderOption)
	if len(itemIDs) > 0 {
		var optionRows []optionRow
		err = m.db.WithContext(ctx).
			Table("order_item_option AS oio").
			Select("oio.*, opt.option_item_name, opt.option_price").
			Joins("LEFT JOIN option_item opt ON opt.option_item_id = oio.option_item_id").
			Where("oio.order_item_id IN ?", itemIDs).
			Order("oio.order_item_option_id").
			Scan(&optionRows).Error
		if err != nil {
			return nil, err
		}
		for _, or := range optionRows {
			optionsByItem[or.OrderItemID] = append(optionsByItem[or.OrderItemID], ordering.OrderOption{
				OrderItemOptionID: or.OrderItemOptionID,
				OrderItemID:       or.OrderItemID,
				OptionItemID:      or.OptionItemID,
				Name:              or.OptionItemName,
				UnitPrice:         or.OptionPrice,
				Quantity:          or.Quantity,
				TotalPrice:        or.TotalPrice,
			})
		}
	}

	for _, ir := range itemRows {
		detail.Items = append(detail.Items, ordering.DetailItem{
			OrderItem: ordering.OrderItem{
				OrderItemID: ir.OrderItemID,
				OrderID:     ir.OrderID,
				MenuItemID:  ir.MenuItemID,
				Name:        ir.MenuName,
				Quantity:    ir.Quantity,
				Price:       ir.ItemPrice,
			},
			Options: optionsByItem[ir.OrderItemID],
		})
	}

	m.memo.Set(cacheKey, detail)
	return &detail, nil
}

// UpdatePrintedStatus writes is_printed locally first; the local write
// must succeed or the whole call fails. The remote patch afterwards is
// best-effort: a failure is logged and swallowed, convergence happens on
// a later successful patch.
func (m *OrderMirror) UpdatePrintedStatus(ctx context.Context, orderID int64, printed bool) error {
	now := time.Now().UTC()
	result := m.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("order_id = ?", orderID).
		Updates(map[string]any{
			"is_printed":         printed,
			"last_print_attempt": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: order %d", shared.ErrNotFound, orderID)
	}

	m.memo.Invalidate("order")

	if err := m.remote.Patch(ctx, ordering.TableOrder, "order_id", orderID, map[string]any{"is_printed": printed}); err != nil {
		m.logger.Error("remote print-status patch failed, local state is authoritative",
			zap.Int64("order_id", orderID),
			zap.Bool("printed", printed),
			zap.Error(err),
		)
	}
	return nil
}

// UpdateApprovalStatus writes the approval triple locally, then
// best-effort patches the remote store. approved_at/approved_by are set
// together on approval and cleared together on un-approval.
func (m *OrderMirror) UpdateApprovalStatus(ctx context.Context, orderID int64, approved bool, approvedBy string) error {
	updates := map[string]any{"is_approved": approved}
	patch := map[string]any{"is_approved": approved}
	if approved {
		now := time.Now().UTC()
		updates["approved_at"] = now
		updates["approved_by"] = approvedBy
		patch["approved_at"] = now.Format(time.RFC3339)
		patch["approved_by"] = approvedBy
	} else {
		updates["approved_at"] = nil
		updates["approved_by"] = nil
		patch["approved_at"] = nil
		patch["approved_by"] = nil
	}

	result := m.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("order_id = ?", orderID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: order %d", shared.ErrNotFound, orderID)
	}

	m.memo.Invalidate("order")

	if err := m.remote.Patch(ctx, ordering.TableOrder, "order_id", orderID, patch); err != nil {
		m.logger.Error("remote approval patch failed, local state is authoritative",
			zap.Int64("order_id", orderID),
			zap.Error(err),
		)
	}
	return nil
}

// DeleteOrderCascade removes the order and everything referencing it:
// option rows, then item rows, then the order itself. The remote store is
// deleted first so a failure never leaves local rows referencing a
// remotely-deleted order. Returns true only when both sides fully
// succeeded.
func (m *OrderMirror) DeleteOrderCascade(ctx context.Context, orderID int64) (bool, error) {
	var itemIDs []int64
	err := m.db.WithContext(ctx).
		Model(&OrderItemModel{}).
		Where("order_id = ?", orderID).
		Pluck("order_item_id", &itemIDs).Error
	if err != nil {
		return false, err
	}

	if len(itemIDs) > 0 {
		if err := m.remote.DeleteIn(ctx, ordering.TableOrderItemOption, "order_item_id", itemIDs); err != nil {
			return false, fmt.Errorf("%w: remote option rows: %v", shared.ErrCascadeDelete, err)
		}
	}
	if err := m.remote.Delete(ctx, ordering.TableOrderItem, "order_id", orderID); err != nil {
		return false, fmt.Errorf("%w: remote item rows: %v", shared.ErrCascadeDelete, err)
	}
	if err := m.remote.Delete(ctx, ordering.TableOrder, "order_id", orderID); err != nil {
		return false, fmt.Errorf("%w: remote order row: %v", shared.ErrCascadeDelete, err)
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(itemIDs) > 0 {
			if err := tx.Where("order_item_id IN ?", itemIDs).Delete(&OrderItemOptionModel{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&OrderItemModel{}).Error; err != nil {
			return err
		}
		return tx.Where("order_id = ?", orderID).Delete(&OrderModel{}).Error
	})
	if err != nil {
		return false, fmt.Errorf("%w: local rows after remote delete: %v", shared.ErrCascadeDelete, err)
	}

	m.memo.Invalidate("order")
	m.logger.Info("order cascade deleted",
		zap.Int64("order_id", orderID),
		zap.Int("item_rows", len(itemIDs)),
	)
	return true, nil
}

// LastOrderID returns the last seen order id recorded in cache_meta,
// or 0 when none was recorded yet.
func (m *OrderMirror) LastOrderID(ctx context.Context) (int64, error) {
	var meta CacheMetaModel
	err := m.db.WithContext(ctx).First(&meta, "key = ?", MetaKeyLastOrderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(meta.Value, 10, 64)
	if err != nil {
		return 0, nil
	}
	return id, nil
}

// SetLastOrderID records the last seen order id in cache_meta
func (m *OrderMirror) SetLastOrderID(ctx context.Context, id int64) error {
	meta := CacheMetaModel{Key: MetaKeyLastOrderID, Value: strconv.FormatInt(id, 10)}
	return m.db.WithContext(ctx).Save(&meta).Error
}

// Ensure OrderMirror implements the domain contract
var _ ordering.OrderMirror = (*OrderMirror)(nil)
