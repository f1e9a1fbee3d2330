package printing

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/domain/ordering"
)

// Result reports the per-sink outcome of one dispatch.
type Result struct {
	CustomerPrinted bool
	KitchenPrinted  bool
	// CustomerEnabled and KitchenEnabled record which sinks were even
	// attempted, so a disabled sink is not counted as a failure.
	CustomerEnabled bool
	KitchenEnabled  bool
}

// Succeeded reports overall success. The customer receipt is the one the
// shop hands out, so when the customer sink is enabled its outcome alone
// decides; a kitchen-only setup falls back to the kitchen outcome.
func (r Result) Succeeded() bool {
	if r.CustomerEnabled {
		return r.CustomerPrinted
	}
	if r.KitchenEnabled {
		return r.KitchenPrinted
	}
	return false
}

// Dispatcher fans one order out to the customer and kitchen sinks. Each
// sink attempt is independent: a kitchen failure never blocks the
// customer receipt. Access to each sink is serialized with a mutex so
// concurrent dispatches never interleave chunk streams on one device.
type Dispatcher struct {
	customer Sink
	kitchen  Sink
	renderer *Renderer
	encoder  *Encoder
	dumpDir  string
	logger   *zap.Logger

	customerMu sync.Mutex
	kitchenMu  sync.Mutex
}

// NewDispatcher creates a dispatcher. A nil sink disables that output.
// dumpDir receives the raw byte dumps of every successful send; an empty
// dumpDir disables dumping.
func NewDispatcher(customer, kitchen Sink, renderer *Renderer, encoder *Encoder, dumpDir string, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		customer: customer,
		kitchen:  kitchen,
		renderer: renderer,
		encoder:  encoder,
		dumpDir:  dumpDir,
		logger:   logger.Named("dispatcher"),
	}
}

// PrintOrder renders and dispatches both receipts for one order.
func (d *Dispatcher) PrintOrder(ctx context.Context, detail *ordering.OrderDetail) Result {
	result := Result{
		CustomerEnabled: d.customer != nil,
		KitchenEnabled:  d.kitchen != nil,
	}

	if d.customer != nil {
		text := d.renderer.Render(detail, ReceiptCustomer)
		job := &Job{
			OrderID:     detail.OrderID,
			ReceiptType: ReceiptCustomer,
			Text:        text,
			Chunks:      d.encoder.EncodeLines(text),
		}
		result.CustomerPrinted = d.sendTo(ctx, d.customer, &d.customerMu, job)
	}

	if d.kitchen != nil {
		text := d.renderer.Render(detail, ReceiptKitchen)
		job := &Job{
			OrderID:     detail.OrderID,
			ReceiptType: ReceiptKitchen,
			Text:        text,
			Chunks:      d.encoder.EncodeDocument(text),
		}
		result.KitchenPrinted = d.sendTo(ctx, d.kitchen, &d.kitchenMu, job)
	}

	return result
}

// ProbeSinks reports whether at least one enabled sink is reachable.
func (d *Dispatcher) ProbeSinks(ctx context.Context) bool {
	ok := false
	for _, sink := range []Sink{d.customer, d.kitchen} {
		if sink == nil {
			continue
		}
		if err := sink.Probe(ctx); err != nil {
			d.logger.Warn("sink probe failed", zap.String("sink", sink.Name()), zap.Error(err))
			continue
		}
		ok = true
	}
	return ok
}

// Close releases both sinks.
func (d *Dispatcher) Close() error {
	var firstErr error
	for _, sink := range []Sink{d.customer, d.kitchen} {
		if sink == nil {
			continue
		}
		if err := sink.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Dispatcher) sendTo(ctx context.Context, sink Sink, mu *sync.Mutex, job *Job) bool {
	mu.Lock()
	defer mu.Unlock()

	// An unreachable sink is skipped instead of being left to time out
	// mid-send, which would stall the whole tick.
	if err := sink.Probe(ctx); err != nil {
		d.logger.Warn("sink unavailable, send skipped",
			zap.String("sink", sink.Name()),
			zap.Int64("order_id", job.OrderID),
			zap.Error(err),
		)
		return false
	}

	if err := sink.Send(ctx, job); err != nil {
		d.logger.Error("print failed",
			zap.String("sink", sink.Name()),
			zap.Int64("order_id", job.OrderID),
			zap.String("receipt_type", string(job.ReceiptType)),
			zap.Error(err),
		)
		return false
	}

	if d.dumpDir != "" {
		if _, _, err := WriteRawDump(d.dumpDir, sink.Name(), job.ReceiptType, job.OrderID, Flatten(job.Chunks)); err != nil {
			d.logger.Warn("raw dump failed", zap.String("sink", sink.Name()), zap.Error(err))
		}
	}
	return true
}
