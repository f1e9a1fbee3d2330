package printing

import (
	"context"
	"fmt"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/pos/backoffice/internal/domain/shared"
)

// SerialSink prints over a serial port (COM port on Windows hosts, tty
// device elsewhere). The port is opened per send, matching how the
// receipt printers expect to be driven; holding the port open between
// orders makes some models wedge after a paper jam.
type SerialSink struct {
	name     string
	port     string
	baudRate int
	logger   *zap.Logger

	// open is swapped in tests.
	open func(port string, mode *serial.Mode) (serial.Port, error)
}

// NewSerialSink creates a serial sink on the given port.
func NewSerialSink(name, port string, baudRate int, logger *zap.Logger) *SerialSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baudRate <= 0 {
		baudRate = 9600
	}
	return &SerialSink{
		name:     name,
		port:     port,
		baudRate: baudRate,
		logger:   logger.Named("serial").With(zap.String("sink", name), zap.String("port", port)),
		open:     serial.Open,
	}
}

// Name implements Sink.
func (s *SerialSink) Name() string { return s.name }

// Probe opens and immediately closes the port.
func (s *SerialSink) Probe(ctx context.Context) error {
	port, err := s.open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("%w: serial %s: %v", shared.ErrSinkUnavailable, s.port, err)
	}
	return port.Close()
}

// Send opens the port, writes the job chunk stream and drains the output
// buffer before closing.
func (s *SerialSink) Send(ctx context.Context, job *Job) error {
	port, err := s.open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("%w: serial %s: %v", shared.ErrSinkUnavailable, s.port, err)
	}
	defer port.Close()

	write := func(data []byte) error {
		_, werr := port.Write(data)
		return werr
	}
	if err := sendChunks(ctx, write, job.Chunks); err != nil {
		return fmt.Errorf("serial write %s: %w", s.port, err)
	}
	if err := port.Drain(); err != nil {
		return fmt.Errorf("serial drain %s: %w", s.port, err)
	}

	s.logger.Info("receipt sent",
		zap.Int64("order_id", job.OrderID),
		zap.String("receipt_type", string(job.ReceiptType)),
	)
	return nil
}

// Close implements Sink. The port is not held between sends, so there is
// nothing to release.
func (s *SerialSink) Close() error { return nil }
