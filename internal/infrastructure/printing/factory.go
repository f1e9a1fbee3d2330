package printing

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/infrastructure/config"
)

// Sink type selectors accepted in configuration.
const (
	SinkTypeSerial = "serial"
	SinkTypeUSB    = "usb"
	SinkTypeFile   = "file"
)

// BuildSink constructs the sink described by cfg. A disabled sink yields
// (nil, nil); the dispatcher treats a nil sink as "not configured".
func BuildSink(name string, cfg config.SinkConfig, outputDir string, logger *zap.Logger) (Sink, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Type {
	case SinkTypeSerial:
		return NewSerialSink(name, cfg.Port, cfg.BaudRate, logger), nil
	case SinkTypeUSB:
		return NewUSBSink(name, cfg.VendorID, cfg.ProductID, cfg.Interface, logger), nil
	case SinkTypeFile:
		return NewFileSink(name, outputDir, logger), nil
	default:
		return nil, fmt.Errorf("unknown sink type %q for sink %s", cfg.Type, name)
	}
}

// BuildDispatcher wires the configured customer and kitchen sinks into a
// dispatcher. The customer sink's code page drives the encoder; the
// deployed sinks always share one code page.
func BuildDispatcher(cfg *config.Config, logger *zap.Logger) (*Dispatcher, error) {
	customer, err := BuildSink("customer", cfg.Sinks.Customer, cfg.Print.OutputDir, logger)
	if err != nil {
		return nil, err
	}
	kitchen, err := BuildSink("kitchen", cfg.Sinks.Kitchen, cfg.Print.OutputDir, logger)
	if err != nil {
		return nil, err
	}

	renderer := NewRenderer(cfg.Print.Timezone, logger)
	encoder := NewEncoder(cfg.Sinks.Customer.CodePage, logger)
	return NewDispatcher(customer, kitchen, renderer, encoder, cfg.Print.OutputDir, logger), nil
}
