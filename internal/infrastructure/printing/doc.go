// Package printing renders order details into Korean receipt text,
// encodes the text into paced ESC/POS byte streams, and dispatches the
// result to the configured customer and kitchen sinks (serial, USB or
// file). Every payload sent to a physical sink is also mirrored to disk
// as a raw .bin plus an annotated hex dump for diagnostics.
package printing
