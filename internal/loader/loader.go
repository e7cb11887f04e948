package loader

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/tracelens/tracelens/internal/model"
)

// maxLineBytes bounds a single record. Agent lines carry serialized
// arguments and stack traces, so the bound is generous; a line past it
// is skipped, not fatal.
const maxLineBytes = 16 * 1024 * 1024

// Batch is the result of loading one source: the parsed events in source
// order, the field-frequency table over them, and the count of malformed
// lines that were skipped.
type Batch struct {
	Events  []model.Event
	Fields  map[string]int
	Skipped int
}

func (b *Batch) add(ev model.Event) {
	b.Events = append(b.Events, ev)
	for _, name := range ev.FieldNames() {
		b.Fields[name]++
	}
}

// Stream reads newline-delimited records from r and invokes fn for each
// event that parses. Blank and whitespace-only lines are ignored;
// malformed lines and lines longer than maxLineBytes are counted and
// skipped, never fatal. An error from fn stops the stream. Only a read
// error on r itself aborts the load.
func Stream(r io.Reader, fn func(model.Event) error) (skipped int, err error) {
	br := bufio.NewReaderSize(r, 64*1024)
	line := make([]byte, 0, 64*1024)
	oversized := false

	flush := func() error {
		defer func() {
			line = line[:0]
			oversized = false
		}()
		if oversized {
			skipped++
			return nil
		}
		trimmed := bytes.TrimSpace(line)
		if len(trimmed) == 0 {
			return nil
		}
		ev, perr := model.Parse(trimmed)
		if perr != nil {
			skipped++
			return nil
		}
		return fn(ev)
	}

	for {
		chunk, rerr := br.ReadSlice('\n')
		if oversized || len(line)+len(chunk) > maxLineBytes {
			// Past the limit: stop accumulating and drain the rest of
			// the line so the next record loads normally.
			oversized = true
		} else {
			line = append(line, chunk...)
		}

		switch rerr {
		case nil:
			if err := flush(); err != nil {
				return skipped, err
			}
		case bufio.ErrBufferFull:
			// Mid-line, keep reading.
		case io.EOF:
			if err := flush(); err != nil {
				return skipped, err
			}
			return skipped, nil
		default:
			return skipped, fmt.Errorf("load: %w", rerr)
		}
	}
}

// Read materializes all events from r into a Batch. Read and Stream share
// the same per-line routine, so both skip exactly the same lines.
func Read(r io.Reader) (*Batch, error) {
	b := &Batch{Fields: make(map[string]int)}
	skipped, err := Stream(r, func(ev model.Event) error {
		b.add(ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	b.Skipped = skipped
	return b, nil
}

// FromEvents builds a Batch, including its field-frequency table, over
// events materialized elsewhere (e.g. read back from a snapshot).
func FromEvents(events []model.Event) *Batch {
	b := &Batch{Fields: make(map[string]int)}
	for _, ev := range events {
		b.add(ev)
	}
	return b
}

// ReadFile loads a single trace file, transparently decompressing
// .zst/.zstd sources. The file handle is released before returning, no
// matter how many lines were malformed.
func ReadFile(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") || strings.HasSuffix(path, ".zstd") {
		dec, derr := zstd.NewReader(f)
		if derr != nil {
			return nil, fmt.Errorf("load: %w", derr)
		}
		defer dec.Close()
		r = dec
	}
	return Read(r)
}

// readConcurrency caps how many files a multi-file load holds open at
// once. Agents segment output into many small files, so an unbounded
// fan-out would mean one descriptor per segment.
const readConcurrency = 8

// ReadFiles loads several trace files through a small worker pool and
// concatenates their batches in argument order.
func ReadFiles(paths []string) (*Batch, error) {
	batches := make([]*Batch, len(paths))
	errs := make([]error, len(paths))

	workers := readConcurrency
	if len(paths) < workers {
		workers = len(paths)
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idx {
				batches[i], errs[i] = ReadFile(paths[i])
			}
		}()
	}
	for i := range paths {
		idx <- i
	}
	close(idx)
	wg.Wait()

	merged := &Batch{Fields: make(map[string]int)}
	for i := range paths {
		if errs[i] != nil {
			return nil, errs[i]
		}
		merged.Events = append(merged.Events, batches[i].Events...)
		for name, count := range batches[i].Fields {
			merged.Fields[name] += count
		}
		merged.Skipped += batches[i].Skipped
	}
	return merged, nil
}
