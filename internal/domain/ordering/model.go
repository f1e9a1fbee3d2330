package ordering

import "time"

// Order is a mirrored row of the remote "order" table.
// CreatedAt is stored in UTC; display conversion happens at render time.
type Order struct {
	OrderID          int64      `json:"order_id"`
	CompanyID        int64      `json:"company_id"`
	CompanyName      string     `json:"company_name,omitempty"`
	IsDineIn         bool       `json:"is_dine_in"`
	TotalPrice       int64      `json:"total_price"`
	CreatedAt        time.Time  `json:"created_at"`
	IsPrinted        bool       `json:"is_printed"`
	IsApproved       bool       `json:"is_approved"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	ApprovedBy       *string    `json:"approved_by,omitempty"`
	LastPrintAttempt *time.Time `json:"last_print_attempt,omitempty"`
}

// OrderItem is a mirrored row of the remote "order_item" table.
// Name is denormalized from the menu_item reference table.
type OrderItem struct {
	OrderItemID int64  `json:"order_item_id"`
	OrderID     int64  `json:"order_id"`
	MenuItemID  int64  `json:"menu_item_id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

// OrderOption is a mirrored row of the remote "order_item_option" table.
// TotalPrice is authoritative when present and positive; otherwise it is
// derived as UnitPrice * Quantity.
type OrderOption struct {
	OrderItemOptionID int64  `json:"order_item_option_id"`
	OrderItemID       int64  `json:"order_item_id"`
	OptionItemID      int64  `json:"option_item_id"`
	Name              string `json:"name"`
	UnitPrice         int64  `json:"unit_price"`
	Quantity          int    `json:"quantity"`
	TotalPrice        int64  `json:"total_price"`
}

// Total returns the effective option total.
func (o OrderOption) Total() int64 {
	if o.TotalPrice > 0 {
		return o.TotalPrice
	}
	qty := o.Quantity
	if qty < 1 {
		qty = 1
	}
	return o.UnitPrice * int64(qty)
}

// Company is read-mostly reference data mirrored from the remote store.
type Company struct {
	CompanyID   int64  `json:"company_id"`
	CompanyName string `json:"company_name"`
}

// DetailItem is an order item together with its options, as assembled by
// the order-detail join.
type DetailItem struct {
	OrderItem
	Options []OrderOption `json:"options"`
}

// OptionsTotal sums the effective totals of all options on the item.
func (i DetailItem) OptionsTotal() int64 {
	var sum int64
	for _, opt := range i.Options {
		sum += opt.Total()
	}
	return sum
}

// UnitPriceWithOptions is the per-unit price including options.
func (i DetailItem) UnitPriceWithOptions() int64 {
	return i.Price + i.OptionsTotal()
}

// Subtotal is quantity times the option-inclusive unit price.
func (i DetailItem) Subtotal() int64 {
	qty := i.Quantity
	if qty < 1 {
		qty = 1
	}
	return int64(qty) * i.UnitPriceWithOptions()
}

// OrderDetail is the denormalized structure handed to receipt rendering:
// the order, its company name, and all items with their options.
type OrderDetail struct {
	Order
	Items []DetailItem `json:"items"`
}

// LineSum is the sum of all item subtotals. It is the fallback total used
// when the order's recorded TotalPrice is absent or non-positive.
func (d OrderDetail) LineSum() int64 {
	var sum int64
	for _, item := range d.Items {
		sum += item.Subtotal()
	}
	return sum
}

// EffectiveTotal returns the recorded total when positive, else the line
// sum. The second return reports whether the fallback path was taken.
func (d OrderDetail) EffectiveTotal() (int64, bool) {
	if d.TotalPrice > 0 {
		return d.TotalPrice, false
	}
	return d.LineSum(), true
}
