package printing

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pos/backoffice/internal/domain/ordering"
)

// ReceiptType selects the receipt flavor.
type ReceiptType string

const (
	// ReceiptCustomer is the customer-facing receipt.
	ReceiptCustomer ReceiptType = "customer"
	// ReceiptKitchen is the kitchen order slip.
	ReceiptKitchen ReceiptType = "kitchen"
)

// dividerWidth matches the 20-column layout of the target printers.
const dividerWidth = 20

// Renderer formats order details into the fixed Korean receipt layout.
// Amounts are printed with thousands separators; timestamps are converted
// from the stored UTC into the shop's local timezone.
type Renderer struct {
	loc    *time.Location
	num    *message.Printer
	logger *zap.Logger
	now    func() time.Time
}

// NewRenderer creates a renderer for the given timezone name. An
// unknown timezone falls back to UTC.
func NewRenderer(timezone string, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("unknown timezone, falling back to UTC", zap.String("timezone", timezone), zap.Error(err))
		loc = time.UTC
	}
	return &Renderer{
		loc:    loc,
		num:    message.NewPrinter(language.Korean),
		logger: logger.Named("renderer"),
		now:    time.Now,
	}
}

// Render produces the receipt text for one order detail.
func (r *Renderer) Render(detail *ordering.OrderDetail, receiptType ReceiptType) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	if receiptType == ReceiptKitchen {
		line("*** 주방 주문서 ***")
	} else {
		line("*** 손님 영수증 ***")
	}
	line("%s", detail.CompanyName)
	line("")

	line("주문번호: %d", detail.OrderID)
	line("주문일시: %s", detail.CreatedAt.In(r.loc).Format("2006-01-02 15:04"))
	if detail.IsDineIn {
		line("주문유형:  매장 식사")
	} else {
		line("주문유형:  포장")
	}
	line("")

	line("%s", strings.Repeat("-", dividerWidth))

	for _, item := range detail.Items {
		if item.OrderItemID > 0 {
			line("상품명: %s (ID:%d)", item.Name, item.OrderItemID)
		} else {
			line("상품명: %s", item.Name)
		}

		if len(item.Options) > 0 {
			line("  [선택된 옵션]")
			for _, group := range groupOptions(item.Options) {
				if group.unitPrice > 0 {
					line("  - %s(+%s원) %d개", group.name, r.num.Sprintf("%d", group.unitPrice), group.count)
				} else {
					line("  - %s %d개", group.name, group.count)
				}
			}
		}

		qty := item.Quantity
		if qty < 1 {
			qty = 1
		}
		line("수량: %d개", qty)
		line("단가 (옵션포함): %s원", r.num.Sprintf("%d", item.UnitPriceWithOptions()))
		line("소계: %s원", r.num.Sprintf("%d", item.Subtotal()))
		line("")
	}

	line("%s", strings.Repeat("-", dividerWidth))

	total, fallback := detail.EffectiveTotal()
	if fallback {
		r.logger.Warn("recorded order total missing, using line sum",
			zap.Int64("order_id", detail.OrderID),
			zap.Int64("line_sum", total),
		)
	}
	line("총 금액: %s원", r.num.Sprintf("%d", total))
	line("")
	line("감사합니다!")
	line("")

	line("출력시간: %s", r.now().In(r.loc).Format("2006-01-02 15:04"))
	line("")

	return b.String()
}

// optionGroup is one display row of the option section: identical options
// collapsed with their combined count.
type optionGroup struct {
	name      string
	unitPrice int64
	count     int
}

// groupOptions collapses same-named option rows, preserving the order in
// which each name first appears.
func groupOptions(options []ordering.OrderOption) []optionGroup {
	index := make(map[string]int, len(options))
	groups := make([]optionGroup, 0, len(options))
	for _, opt := range options {
		qty := opt.Quantity
		if qty < 1 {
			qty = 1
		}
		if i, ok := index[opt.Name]; ok {
			groups[i].count += qty
			continue
		}
		index[opt.Name] = len(groups)
		groups = append(groups, optionGroup{name: opt.Name, unitPrice: opt.UnitPrice, count: qty})
	}
	return groups
}
