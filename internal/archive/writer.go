package archive

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/tracelens/tracelens/internal/model"
)

// Snapshot file layout, all integers little-endian:
//
//	magic (8) | eventCount uint32 | minTs int64 | maxTs int64 | blockCount uint32
//	blockCount x [ compressedSize uint32 | zstd-compressed JSONL ]
var MagicHeader = []byte("TRCSNAP1")

// blockEvents is the number of events serialized per compressed block.
const blockEvents = 4096

// Writer encodes event sets into snapshot files.
type Writer struct {
	encoder *zstd.Encoder
}

func NewWriter() (*Writer, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &Writer{encoder: enc}, nil
}

// WriteSnapshot writes events to path, replacing any existing file.
func (w *Writer) WriteSnapshot(path string, events []model.Event) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	defer f.Close()
	return w.WriteTo(f, events)
}

// WriteTo writes the snapshot to dst.
func (w *Writer) WriteTo(dst io.Writer, events []model.Event) error {
	bw := bufio.NewWriter(dst)

	if _, err := bw.Write(MagicHeader); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	minTs, maxTs := timeRange(events)
	blockCount := (len(events) + blockEvents - 1) / blockEvents
	if err := writeHeader(bw, uint32(len(events)), minTs, maxTs, uint32(blockCount)); err != nil {
		return fmt.Errorf("archive: %w", err)
	}

	raw := new(bytes.Buffer)
	for off := 0; off < len(events); off += blockEvents {
		end := off + blockEvents
		if end > len(events) {
			end = len(events)
		}

		raw.Reset()
		for _, ev := range events[off:end] {
			data, err := ev.MarshalJSON()
			if err != nil {
				return fmt.Errorf("archive: %w", err)
			}
			raw.Write(data)
			raw.WriteByte('\n')
		}

		compressed := w.encoder.EncodeAll(raw.Bytes(), make([]byte, 0, raw.Len()/2))
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(compressed))); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		if _, err := bw.Write(compressed); err != nil {
			return fmt.Errorf("archive: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("archive: %w", err)
	}
	return nil
}

func writeHeader(w io.Writer, count uint32, minTs, maxTs int64, blocks uint32) error {
	if err := binary.Write(w, binary.LittleEndian, count); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, minTs); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, maxTs); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, blocks)
}

func timeRange(events []model.Event) (minTs, maxTs int64) {
	for i, ev := range events {
		ts := ev.Timestamp()
		if i == 0 || ts < minTs {
			minTs = ts
		}
		if i == 0 || ts > maxTs {
			maxTs = ts
		}
	}
	return minTs, maxTs
}
