package printing

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestFileSink_Send(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink("customer", dir, zap.NewNop())

	job := &Job{
		OrderID:     101,
		ReceiptType: ReceiptCustomer,
		Text:        "*** 손님 영수증 ***\n감사합니다!\n",
		Chunks:      []Chunk{{Data: []byte{0x1b, 0x40}}},
	}
	require.NoError(t, sink.Send(context.Background(), job))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "customer_receipt_101_"))

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(content), "감사합니다!")
	assert.Contains(t, string(content), "주문 ID: 101")
}

func TestFileSink_ProbeCreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "receipts")
	sink := NewFileSink("customer", dir, zap.NewNop())

	require.NoError(t, sink.Probe(context.Background()))
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
