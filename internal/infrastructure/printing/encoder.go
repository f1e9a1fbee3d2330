package printing

import (
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/korean"

	"github.com/pos/backoffice/internal/domain/shared"
)

// ESC/POS control sequences understood by the target receipt printers.
var (
	cmdInit        = []byte{0x1b, 0x40}       // ESC @
	cmdAlignLeft   = []byte{0x1b, 0x61, 0x00} // ESC a 0
	cmdAlignCenter = []byte{0x1b, 0x61, 0x01} // ESC a 1
	cmdBoldOn      = []byte{0x1b, 0x45, 0x01} // ESC E 1
	cmdBoldOff     = []byte{0x1b, 0x45, 0x00} // ESC E 0
	cmdTextDouble  = []byte{0x1d, 0x21, 0x11} // GS ! 0x11, double width and height
	cmdTextNormal  = []byte{0x1d, 0x21, 0x00} // GS ! 0
	cmdFullCut     = []byte{0x1d, 0x56, 0x41, 0x00}
	cmdPartialCut  = []byte{0x1d, 0x56, 0x00}
	crlf           = []byte{0x0d, 0x0a}
)

// Pacing pauses. Cheap thermal heads drop bytes when the host outruns
// them, so each write is followed by a short settle delay.
const (
	pauseLine   = 10 * time.Millisecond
	pauseBig    = 20 * time.Millisecond
	pausePreCut = 100 * time.Millisecond
	pauseCut    = 50 * time.Millisecond
)

// Chunk is one write to a sink followed by a settle pause.
type Chunk struct {
	Data  []byte
	Pause time.Duration
}

// Flatten concatenates chunk payloads, which is what the diagnostics
// dump and the file sink store.
func Flatten(chunks []Chunk) []byte {
	var n int
	for _, c := range chunks {
		n += len(c.Data)
	}
	out := make([]byte, 0, n)
	for _, c := range chunks {
		out = append(out, c.Data...)
	}
	return out
}

// Encoder turns receipt text into ESC/POS byte streams. Text is encoded
// as CP949; a line the codec cannot represent falls back to raw UTF-8
// bytes, which most firmwares render as mojibake but never as a stall.
type Encoder struct {
	codePage byte
	logger   *zap.Logger
}

// NewEncoder creates an encoder configured with the printer code page
// (0x13 selects Johab-style CP949 on the deployed models).
func NewEncoder(codePage byte, logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Encoder{codePage: codePage, logger: logger.Named("encoder")}
}

// encodeText converts text to CP949, falling back to UTF-8 when the
// codec rejects a rune.
func (e *Encoder) encodeText(text string) []byte {
	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte(text))
	if err != nil {
		e.logger.Warn("text not representable in CP949, sending UTF-8",
			zap.Error(shared.ErrEncoding),
			zap.String("cause", err.Error()),
		)
		return []byte(text)
	}
	return encoded
}

// EncodeLines produces the line-paced stream used by the customer
// printer: init, code page select, then one write per line with the
// order-number line framed centered at double size.
func (e *Encoder) EncodeLines(text string) []Chunk {
	chunks := []Chunk{
		{Data: cmdInit},
		{Data: []byte{0x1b, 0x74, e.codePage}},
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			chunks = append(chunks, Chunk{Data: crlf, Pause: pauseLine})
			continue
		}
		if strings.Contains(line, "주문번호") {
			chunks = append(chunks,
				Chunk{Data: cmdAlignCenter, Pause: pauseLine},
				Chunk{Data: cmdTextDouble, Pause: pauseLine},
				Chunk{Data: e.encodeText(line)},
				Chunk{Data: crlf, Pause: pauseBig},
				Chunk{Data: cmdTextNormal, Pause: pauseLine},
				Chunk{Data: cmdAlignLeft, Pause: pauseLine},
			)
			continue
		}
		chunks = append(chunks,
			Chunk{Data: e.encodeText(line)},
			Chunk{Data: crlf, Pause: pauseLine},
		)
	}

	chunks = append(chunks,
		Chunk{Data: crlf, Pause: pauseBig},
		Chunk{Data: crlf, Pause: pauseBig},
		Chunk{Data: nil, Pause: pausePreCut},
		Chunk{Data: cmdFullCut, Pause: pauseCut},
	)
	return chunks
}

// EncodeDocument produces the single-write stream used by the kitchen
// serial printer: the whole receipt bold at double size, then a partial
// cut.
func (e *Encoder) EncodeDocument(text string) []Chunk {
	data := make([]byte, 0, len(text)+32)
	data = append(data, cmdInit...)
	data = append(data, cmdAlignLeft...)
	data = append(data, cmdBoldOn...)
	data = append(data, cmdTextDouble...)
	data = append(data, e.encodeText(text)...)
	data = append(data, cmdBoldOff...)
	data = append(data, cmdTextNormal...)
	data = append(data, cmdPartialCut...)
	return []Chunk{{Data: data}}
}
