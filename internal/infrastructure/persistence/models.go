package persistence

import (
	"time"

	"github.com/pos/backoffice/internal/domain/ordering"
)

// OrderModel mirrors the remote "order" table. The JSON tags match the
// remote column names so a fetched row unmarshals straight into the model;
// LastPrintAttempt exists only locally for bookkeeping.
type OrderModel struct {
	OrderID          int64       `gorm:"column:order_id;primaryKey" json:"order_id"`
	CompanyID        int64       `gorm:"column:company_id;index" json:"company_id"`
	IsDineIn         bool        `gorm:"column:is_dine_in" json:"is_dine_in"`
	TotalPrice       int64       `gorm:"column:total_price" json:"total_price"`
	CreatedAt        RemoteTime  `gorm:"column:created_at;type:datetime;index" json:"created_at"`
	IsPrinted        bool        `gorm:"column:is_printed;index" json:"is_printed"`
	IsApproved       bool        `gorm:"column:is_approved" json:"is_approved"`
	ApprovedAt       *RemoteTime `gorm:"column:approved_at;type:datetime" json:"approved_at"`
	ApprovedBy       *string     `gorm:"column:approved_by" json:"approved_by"`
	LastPrintAttempt *time.Time  `gorm:"column:last_print_attempt" json:"-"`
}

// TableName keeps the mirrored name even though it is an SQL keyword
func (OrderModel) TableName() string { return "order" }

// ToDomain converts the model to a domain order
func (m *OrderModel) ToDomain() ordering.Order {
	var approvedAt *time.Time
	if m.ApprovedAt != nil && !m.ApprovedAt.IsZero() {
		t := m.ApprovedAt.Time
		approvedAt = &t
	}
	return ordering.Order{
		OrderID:          m.OrderID,
		CompanyID:        m.CompanyID,
		IsDineIn:         m.IsDineIn,
		TotalPrice:       m.TotalPrice,
		CreatedAt:        m.CreatedAt.Time.UTC(),
		IsPrinted:        m.IsPrinted,
		IsApproved:       m.IsApproved,
		ApprovedAt:       approvedAt,
		ApprovedBy:       m.ApprovedBy,
		LastPrintAttempt: m.LastPrintAttempt,
	}
}

// OrderItemModel mirrors the remote "order_item" table
type OrderItemModel struct {
	OrderItemID int64 `gorm:"column:order_item_id;primaryKey" json:"order_item_id"`
	OrderID     int64 `gorm:"column:order_id;index" json:"order_id"`
	MenuItemID  int64 `gorm:"column:menu_item_id" json:"menu_item_id"`
	Quantity    int   `gorm:"column:quantity" json:"quantity"`
	ItemPrice   int64 `gorm:"column:item_price" json:"item_price"`
}

// TableName implements the gorm naming override
func (OrderItemModel) TableName() string { return "order_item" }

// OrderItemOptionModel mirrors the remote "order_item_option" table
type OrderItemOptionModel struct {
	OrderItemOptionID int64 `gorm:"column:order_item_option_id;primaryKey" json:"order_item_option_id"`
	OrderItemID       int64 `gorm:"column:order_item_id;index" json:"order_item_id"`
	OptionItemID      int64 `gorm:"column:option_item_id" json:"option_item_id"`
	Quantity          int   `gorm:"column:quantity" json:"quantity"`
	TotalPrice        int64 `gorm:"column:total_price" json:"total_price"`
}

// TableName implements the gorm naming override
func (OrderItemOptionModel) TableName() string { return "order_item_option" }

// CompanyModel mirrors the remote "company" reference table
type CompanyModel struct {
	CompanyID   int64  `gorm:"column:company_id;primaryKey" json:"company_id"`
	CompanyName string `gorm:"column:company_name" json:"company_name"`
}

// TableName implements the gorm naming override
func (CompanyModel) TableName() string { return "company" }

// MenuItemModel mirrors the remote "menu_item" reference table; it
// resolves order item names
type MenuItemModel struct {
	MenuItemID int64  `gorm:"column:menu_item_id;primaryKey" json:"menu_item_id"`
	MenuName   string `gorm:"column:menu_name" json:"menu_name"`
}

// TableName implements the gorm naming override
func (MenuItemModel) TableName() string { return "menu_item" }

// OptionItemModel mirrors the remote "option_item" reference table; it
// resolves option names and unit prices
type OptionItemModel struct {
	OptionItemID   int64  `gorm:"column:option_item_id;primaryKey" json:"option_item_id"`
	OptionItemName string `gorm:"column:option_item_name" json:"option_item_name"`
	OptionPrice    int64  `gorm:"column:option_price" json:"option_price"`
}

// TableName implements the gorm naming override
func (OptionItemModel) TableName() string { return "option_item" }

// CacheMetaModel holds local bookkeeping key/value pairs, e.g. the last
// seen order id used by the push monitor fallback
type CacheMetaModel struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value"`
}

// TableName implements the gorm naming override
func (CacheMetaModel) TableName() string { return "cache_meta" }

// MetaKeyLastOrderID is the cache_meta key for the last seen order id
const MetaKeyLastOrderID = "last_order_id"
