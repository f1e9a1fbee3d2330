package autoprint

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/domain/ordering"
	"github.com/pos/backoffice/internal/domain/shared"
	"github.com/pos/backoffice/internal/infrastructure/printing"
)

// fakeRemote stubs the remote store; only the probe matters here.
type fakeRemote struct {
	connected bool
}

func (f *fakeRemote) FetchTable(context.Context, string) ([]json.RawMessage, error) {
	return nil, nil
}
func (f *fakeRemote) Patch(context.Context, string, string, int64, map[string]any) error {
	return nil
}
func (f *fakeRemote) Delete(context.Context, string, string, int64) error    { return nil }
func (f *fakeRemote) DeleteIn(context.Context, string, string, []int64) error { return nil }
func (f *fakeRemote) CheckConnectivity(context.Context) bool                 { return f.connected }
func (f *fakeRemote) LatestOrderID(context.Context) (int64, error)           { return 0, nil }

// fakeMirror scripts the local mirror.
type fakeMirror struct {
	unprinted    []ordering.Order
	unprintedErr error
	details      map[int64]*ordering.OrderDetail
	detailErr    error
	deleteOK     bool
	deleteErr    error

	syncedTables   []string
	printedUpdates []int64
	deletedOrders  []int64
	lastOrderID    int64
}

func (f *fakeMirror) SyncTable(_ context.Context, table string) error {
	f.syncedTables = append(f.syncedTables, table)
	return nil
}

func (f *fakeMirror) GetRecentOrders(context.Context, int) ([]ordering.Order, error) {
	return f.unprinted, nil
}

func (f *fakeMirror) GetUnprintedOrders(context.Context, bool, int) ([]ordering.Order, error) {
	return f.unprinted, f.unprintedErr
}

func (f *fakeMirror) JoinOrderDetail(_ context.Context, orderID int64) (*ordering.OrderDetail, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	return f.details[orderID], nil
}

func (f *fakeMirror) UpdatePrintedStatus(_ context.Context, orderID int64, _ bool) error {
	f.printedUpdates = append(f.printedUpdates, orderID)
	return nil
}

func (f *fakeMirror) UpdateApprovalStatus(context.Context, int64, bool, string) error {
	return nil
}

func (f *fakeMirror) DeleteOrderCascade(_ context.Context, orderID int64) (bool, error) {
	f.deletedOrders = append(f.deletedOrders, orderID)
	return f.deleteOK, f.deleteErr
}

func (f *fakeMirror) LastOrderID(context.Context) (int64, error) { return f.lastOrderID, nil }

func (f *fakeMirror) SetLastOrderID(_ context.Context, id int64) error {
	f.lastOrderID = id
	return nil
}

// fakePrinter scripts dispatch results per order.
type fakePrinter struct {
	reachable bool
	results   map[int64]printing.Result
	printed   []int64
}

func (f *fakePrinter) PrintOrder(_ context.Context, detail *ordering.OrderDetail) printing.Result {
	f.printed = append(f.printed, detail.Order.OrderID)
	return f.results[detail.Order.OrderID]
}

func (f *fakePrinter) ProbeSinks(context.Context) bool { return f.reachable }

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *recordingPublisher) typesSeen() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		types = append(types, evt.EventType())
	}
	return types
}

func (p *recordingPublisher) connectivityStatuses() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	var statuses []bool
	for _, evt := range p.events {
		if e, ok := evt.(*ordering.ConnectivityChangedEvent); ok {
			statuses = append(statuses, e.Connected)
		}
	}
	return statuses
}

func okResult() printing.Result {
	return printing.Result{
		CustomerPrinted: true, KitchenPrinted: true,
		CustomerEnabled: true, KitchenEnabled: true,
	}
}

func failedResult() printing.Result {
	return printing.Result{CustomerEnabled: true, KitchenEnabled: true}
}

func detailFor(order ordering.Order) *ordering.OrderDetail {
	return &ordering.OrderDetail{Order: order}
}

type fixture struct {
	remote    *fakeRemote
	mirror    *fakeMirror
	printer   *fakePrinter
	publisher *recordingPublisher
	service   *Service
}

func newFixture(settings ordering.PrintSettings) *fixture {
	f := &fixture{
		remote:    &fakeRemote{connected: true},
		mirror:    &fakeMirror{details: map[int64]*ordering.OrderDetail{}},
		printer:   &fakePrinter{reachable: true, results: map[int64]printing.Result{}},
		publisher: &recordingPublisher{},
	}
	f.service = NewService(f.remote, f.mirror, f.printer, f.publisher,
		settings, 20, "Asia/Seoul", zap.NewNop())
	return f
}

func (f *fixture) addOrder(order ordering.Order, result printing.Result) {
	f.mirror.unprinted = append(f.mirror.unprinted, order)
	f.mirror.details[order.OrderID] = detailFor(order)
	f.printer.results[order.OrderID] = result
}

func TestService_CheckAndProcess_PrintsBatch(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.addOrder(ordering.Order{OrderID: 101, IsDineIn: true}, okResult())
	f.addOrder(ordering.Order{OrderID: 102, IsDineIn: false}, okResult())

	result, err := f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Connected)
	assert.Equal(t, 2, result.OrdersFound)
	assert.Equal(t, 2, result.Printed)
	assert.Zero(t, result.Failed)
	assert.Zero(t, result.Skipped)

	assert.Equal(t, ordering.EssentialTables, f.mirror.syncedTables)
	assert.Equal(t, []int64{101, 102}, f.printer.printed)
	assert.Equal(t, []int64{101, 102}, f.mirror.printedUpdates)
	assert.Equal(t, int64(102), f.mirror.lastOrderID)

	types := f.publisher.typesSeen()
	assert.Contains(t, types, ordering.EventTypeConnectivityChanged)
	assert.Contains(t, types, ordering.EventTypeNewOrdersFound)
	assert.Contains(t, types, ordering.EventTypePrintCompleted)
}

func TestService_CheckAndProcess_DisconnectedShortCircuits(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.remote.connected = false
	f.addOrder(ordering.Order{OrderID: 101}, okResult())

	result, err := f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Connected)
	assert.Zero(t, result.OrdersFound)
	assert.Empty(t, f.mirror.syncedTables)
	assert.Empty(t, f.printer.printed)
}

func TestService_CheckAndProcess_ConnectivityReportedEveryTick(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())

	_, err := f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)
	_, err = f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	f.remote.connected = false
	_, err = f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	// A consumer subscribing mid-outage must still learn the current
	// state, so each tick reports, not just transitions.
	statuses := f.publisher.connectivityStatuses()
	assert.Equal(t, []bool{true, true, false}, statuses)
}

func TestService_CheckAndProcess_AutoPrintOffDetectsOnly(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.addOrder(ordering.Order{OrderID: 101}, okResult())
	f.service.SetAutoPrintEnabled(false)

	result, err := f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.OrdersFound)
	assert.Zero(t, result.Printed)
	assert.Empty(t, f.printer.printed)
	assert.Contains(t, f.publisher.typesSeen(), ordering.EventTypeNewOrdersFound)
}

func TestService_CheckAndProcess_SettingsGateSkips(t *testing.T) {
	settings := ordering.DefaultPrintSettings()
	settings.PrintDineInOnly = true
	f := newFixture(settings)
	f.addOrder(ordering.Order{OrderID: 101, IsDineIn: false}, okResult())
	f.addOrder(ordering.Order{OrderID: 102, IsDineIn: true}, okResult())

	result, err := f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Printed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, []int64{102}, f.printer.printed)
}

func TestService_CheckAndProcess_UnreachableSinksDefer(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.addOrder(ordering.Order{OrderID: 101, IsDineIn: true}, okResult())
	f.printer.reachable = false

	result, err := f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, f.printer.printed)
	assert.Empty(t, f.mirror.printedUpdates)
}

func TestService_CheckAndProcess_VanishedOrderSkipped(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.mirror.unprinted = []ordering.Order{{OrderID: 101, IsDineIn: true}}
	// No detail registered: the order was deleted between detection and join.

	result, err := f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Skipped)
	assert.Empty(t, f.printer.printed)
}

func TestService_CheckAndProcess_FailureContinuesBatch(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.addOrder(ordering.Order{OrderID: 101, IsDineIn: true}, failedResult())
	f.addOrder(ordering.Order{OrderID: 102, IsDineIn: true}, okResult())

	result, err := f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Printed)
	assert.Equal(t, []int64{101, 102}, f.printer.printed)
	assert.Equal(t, []int64{102}, f.mirror.printedUpdates)
	assert.Contains(t, f.publisher.typesSeen(), ordering.EventTypePrintFailed)
}

func TestService_CheckAndProcess_KitchenFailureStillCountsPrinted(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.addOrder(ordering.Order{OrderID: 101, IsDineIn: true}, printing.Result{
		CustomerPrinted: true,
		CustomerEnabled: true, KitchenEnabled: true,
	})

	result, err := f.service.CheckAndProcess(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Printed)
	assert.Zero(t, result.Failed)
	assert.Equal(t, []int64{101}, f.mirror.printedUpdates)
	assert.NotContains(t, f.publisher.typesSeen(), ordering.EventTypePrintFailed)
	assert.Contains(t, f.publisher.typesSeen(), ordering.EventTypePrintCompleted)
}

func TestService_CheckAndProcess_QueryErrorPropagates(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.mirror.unprintedErr = errors.New("mirror locked")

	_, err := f.service.CheckAndProcess(context.Background())
	assert.Error(t, err)
}

func TestService_PrintOrderNow_BypassesSettingsGate(t *testing.T) {
	settings := ordering.DefaultPrintSettings()
	settings.AutoPrintEnabled = false
	f := newFixture(settings)
	f.mirror.details[101] = detailFor(ordering.Order{OrderID: 101})
	f.printer.results[101] = okResult()

	require.NoError(t, f.service.PrintOrderNow(context.Background(), 101))
	assert.Equal(t, []int64{101}, f.printer.printed)
	assert.Equal(t, []int64{101}, f.mirror.printedUpdates)
}

func TestService_PrintOrderNow_UnknownOrder(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())

	err := f.service.PrintOrderNow(context.Background(), 999)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestService_PrintOrderNow_SinkFailure(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.mirror.details[101] = detailFor(ordering.Order{OrderID: 101})
	f.printer.results[101] = failedResult()

	err := f.service.PrintOrderNow(context.Background(), 101)
	assert.ErrorIs(t, err, shared.ErrSinkUnavailable)
	assert.Empty(t, f.mirror.printedUpdates)
}

func TestService_DeleteOrder(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	f.mirror.deleteOK = true

	require.NoError(t, f.service.DeleteOrder(context.Background(), 101))
	assert.Equal(t, []int64{101}, f.mirror.deletedOrders)

	f.mirror.deleteOK = false
	err := f.service.DeleteOrder(context.Background(), 102)
	assert.ErrorIs(t, err, shared.ErrCascadeDelete)
}

func TestService_AutoPrintToggle(t *testing.T) {
	f := newFixture(ordering.DefaultPrintSettings())
	assert.True(t, f.service.AutoPrintEnabled())

	f.service.SetAutoPrintEnabled(false)
	assert.False(t, f.service.AutoPrintEnabled())
}
