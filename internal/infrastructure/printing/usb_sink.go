package printing

import (
	"context"
	"fmt"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/domain/shared"
)

// USBSink prints to a USB ESC/POS printer addressed by vendor/product id.
// The device is claimed per send; the printers in the field enumerate a
// single configuration with one bulk OUT endpoint on the configured
// interface.
type USBSink struct {
	name      string
	vendorID  gousb.ID
	productID gousb.ID
	iface     int
	logger    *zap.Logger
}

// NewUSBSink creates a USB sink for the given vendor/product pair.
func NewUSBSink(name string, vendorID, productID uint16, iface int, logger *zap.Logger) *USBSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &USBSink{
		name:      name,
		vendorID:  gousb.ID(vendorID),
		productID: gousb.ID(productID),
		iface:     iface,
		logger: logger.Named("usb").With(
			zap.String("sink", name),
			zap.String("vendor_id", fmt.Sprintf("0x%04x", vendorID)),
			zap.String("product_id", fmt.Sprintf("0x%04x", productID)),
		),
	}
}

// Name implements Sink.
func (s *USBSink) Name() string { return s.name }

// openEndpoint claims the device and returns its bulk OUT endpoint along
// with a release function. The caller must invoke release exactly once.
func (s *USBSink) openEndpoint() (*gousb.OutEndpoint, func(), error) {
	usbCtx := gousb.NewContext()

	dev, err := usbCtx.OpenDeviceWithVIDPID(s.vendorID, s.productID)
	if err != nil {
		usbCtx.Close()
		return nil, nil, fmt.Errorf("%w: usb open: %v", shared.ErrSinkUnavailable, err)
	}
	if dev == nil {
		usbCtx.Close()
		return nil, nil, fmt.Errorf("%w: usb device %04x:%04x not found", shared.ErrSinkUnavailable, uint16(s.vendorID), uint16(s.productID))
	}

	if err := dev.SetAutoDetach(true); err != nil {
		s.logger.Debug("kernel driver auto-detach not supported", zap.Error(err))
	}

	cfg, err := dev.Config(1)
	if err != nil {
		dev.Close()
		usbCtx.Close()
		return nil, nil, fmt.Errorf("%w: usb config: %v", shared.ErrSinkUnavailable, err)
	}

	intf, err := cfg.Interface(s.iface, 0)
	if err != nil {
		cfg.Close()
		dev.Close()
		usbCtx.Close()
		return nil, nil, fmt.Errorf("%w: usb claim interface %d: %v", shared.ErrSinkUnavailable, s.iface, err)
	}

	var out *gousb.OutEndpoint
	for _, desc := range intf.Setting.Endpoints {
		if desc.Direction == gousb.EndpointDirectionOut {
			out, err = intf.OutEndpoint(desc.Number)
			break
		}
	}
	if err != nil || out == nil {
		intf.Close()
		cfg.Close()
		dev.Close()
		usbCtx.Close()
		return nil, nil, fmt.Errorf("%w: usb bulk OUT endpoint not found", shared.ErrSinkUnavailable)
	}

	release := func() {
		intf.Close()
		cfg.Close()
		dev.Close()
		usbCtx.Close()
	}
	return out, release, nil
}

// Probe claims and immediately releases the device.
func (s *USBSink) Probe(ctx context.Context) error {
	_, release, err := s.openEndpoint()
	if err != nil {
		return err
	}
	release()
	return nil
}

// Send claims the device and writes the paced chunk stream to its bulk
// OUT endpoint.
func (s *USBSink) Send(ctx context.Context, job *Job) error {
	out, release, err := s.openEndpoint()
	if err != nil {
		return err
	}
	defer release()

	write := func(data []byte) error {
		_, werr := out.WriteContext(ctx, data)
		return werr
	}
	if err := sendChunks(ctx, write, job.Chunks); err != nil {
		return fmt.Errorf("usb write: %w", err)
	}

	s.logger.Info("receipt sent",
		zap.Int64("order_id", job.OrderID),
		zap.String("receipt_type", string(job.ReceiptType)),
	)
	return nil
}

// Close implements Sink. The device is not held between sends.
func (s *USBSink) Close() error { return nil }
