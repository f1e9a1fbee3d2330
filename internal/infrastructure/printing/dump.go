package printing

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteRawDump stores the exact byte stream sent to a sink: a .bin with
// the raw payload and a .txt with a hex dump plus an ESC/POS command
// annotation. These dumps are the first thing support asks for when a
// printer misbehaves.
func WriteRawDump(dir, sinkName string, receiptType ReceiptType, orderID int64, data []byte) (binPath, txtPath string, err error) {
	rawDir := filepath.Join(dir, "raw_data")
	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return "", "", fmt.Errorf("create dump dir: %w", err)
	}

	stamp := time.Now().Format("20060102_150405")
	base := fmt.Sprintf("%s_%s_raw_%d_%s", sinkName, receiptType, orderID, stamp)
	binPath = filepath.Join(rawDir, base+".bin")
	txtPath = filepath.Join(rawDir, base+".txt")

	if err := os.WriteFile(binPath, data, 0o644); err != nil {
		return "", "", fmt.Errorf("write raw dump: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== %s 프린터 원시 데이터 (%s) ===\n", strings.ToUpper(sinkName), receiptType)
	fmt.Fprintf(&b, "주문 ID: %d\n", orderID)
	fmt.Fprintf(&b, "생성 시간: %s\n", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "데이터 크기: %d bytes\n\n", len(data))

	b.WriteString("=== 헥스 덤프 ===\n")
	writeHexDump(&b, data)

	b.WriteString("\n=== ESC/POS 명령어 분석 ===\n")
	annotateCommands(&b, data)

	if err := os.WriteFile(txtPath, []byte(b.String()), 0o644); err != nil {
		return "", "", fmt.Errorf("write dump annotation: %w", err)
	}
	return binPath, txtPath, nil
}

func writeHexDump(b *strings.Builder, data []byte) {
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		chunk := data[i:end]

		hexParts := make([]string, len(chunk))
		ascii := make([]byte, len(chunk))
		for j, c := range chunk {
			hexParts[j] = fmt.Sprintf("%02X", c)
			if c >= 32 && c <= 126 {
				ascii[j] = c
			} else {
				ascii[j] = '.'
			}
		}
		fmt.Fprintf(b, "%08X: %-48s |%s|\n", i, strings.Join(hexParts, " "), ascii)
	}
}

// annotateCommands walks the stream and names the control sequences the
// deployed printers use. Unknown bytes are skipped silently.
func annotateCommands(b *strings.Builder, data []byte) {
	alignNames := map[byte]string{0: "왼쪽", 1: "가운데", 2: "오른쪽"}

	i := 0
	for i < len(data) {
		switch {
		case data[i] == 0x1b && i+1 < len(data):
			switch data[i+1] {
			case 0x40:
				fmt.Fprintf(b, "위치 %04X: ESC @ (프린터 초기화)\n", i)
				i += 2
			case 0x61:
				if i+2 < len(data) {
					name, ok := alignNames[data[i+2]]
					if !ok {
						name = "알 수 없음"
					}
					fmt.Fprintf(b, "위치 %04X: ESC a %d (%s 정렬)\n", i, data[i+2], name)
					i += 3
				} else {
					i += 2
				}
			case 0x45:
				if i+2 < len(data) {
					state := "끄기"
					if data[i+2] != 0 {
						state = "켜기"
					}
					fmt.Fprintf(b, "위치 %04X: ESC E %d (볼드체 %s)\n", i, data[i+2], state)
					i += 3
				} else {
					i += 2
				}
			case 0x74:
				if i+2 < len(data) {
					fmt.Fprintf(b, "위치 %04X: ESC t %d (코드페이지 선택)\n", i, data[i+2])
					i += 3
				} else {
					i += 2
				}
			default:
				i++
			}
		case data[i] == 0x1d && i+1 < len(data):
			switch data[i+1] {
			case 0x21:
				if i+2 < len(data) {
					fmt.Fprintf(b, "위치 %04X: GS ! %02X (글자 크기 설정)\n", i, data[i+2])
					i += 3
				} else {
					i += 2
				}
			case 0x56:
				fmt.Fprintf(b, "위치 %04X: GS V (용지 자르기)\n", i)
				i += 2
			default:
				i++
			}
		case data[i] == 0x0a:
			fmt.Fprintf(b, "위치 %04X: LF (줄바꿈)\n", i)
			i++
		case data[i] == 0x0d:
			fmt.Fprintf(b, "위치 %04X: CR (캐리지 리턴)\n", i)
			i++
		default:
			i++
		}
	}
}
