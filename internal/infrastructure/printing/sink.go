package printing

import (
	"context"
	"time"
)

// timeAfter is swapped out in tests so paced sends do not sleep.
var timeAfter = time.After

// Job is one receipt prepared for a specific sink: the rendered text for
// human-readable artifacts and the encoded chunk stream for the wire.
type Job struct {
	OrderID     int64
	ReceiptType ReceiptType
	Text        string
	Chunks      []Chunk
}

// Sink is a receipt output device. Implementations must tolerate being
// probed and sent to repeatedly; the dispatcher serializes calls per
// sink, so implementations need no internal locking.
type Sink interface {
	// Name identifies the sink in logs and dump filenames.
	Name() string
	// Probe checks whether the device is currently reachable without
	// printing anything.
	Probe(ctx context.Context) error
	// Send delivers one job to the device.
	Send(ctx context.Context, job *Job) error
	// Close releases the device.
	Close() error
}

// sendChunks writes each chunk and honors its settle pause, aborting
// between chunks when the context is done.
func sendChunks(ctx context.Context, write func([]byte) error, chunks []Chunk) error {
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(chunk.Data) > 0 {
			if err := write(chunk.Data); err != nil {
				return err
			}
		}
		if chunk.Pause > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timeAfter(chunk.Pause):
			}
		}
	}
	return nil
}
