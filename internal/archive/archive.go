// Package archive writes the audit trail to zstd-compressed JSON Lines
// files, one file per game season, and reads them back.
package archive

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/hearthvale/internal/decision"
	"github.com/talgya/hearthvale/internal/event"
)

// JSONLZstdWriter appends JSON values to <dir>/<prefix>-<segment>.jsonl.zst,
// opening a new file whenever the segment name changes.
type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	segment string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
	written int64
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

// Write appends v to the file for segment.
func (w *JSONLZstdWriter) Write(segment string, v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if segment != w.segment || w.w == nil {
		if err := w.rotateLocked(segment); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.written += int64(len(b)) + 1
	return nil
}

// Flush pushes buffered lines into the compressor.
func (w *JSONLZstdWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return nil
	}
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.enc.Flush()
}

// Written is the number of uncompressed bytes written so far.
func (w *JSONLZstdWriter) Written() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *JSONLZstdWriter) rotateLocked(segment string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	path := w.Path(segment)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.segment = segment
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	w.segment = ""
	return err1
}

// Path is the file a segment is written to.
func (w *JSONLZstdWriter) Path(segment string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, segment))
}

// Segment names the file for a game day: one file per season.
func Segment(day, seasonLength int) string {
	if seasonLength <= 0 {
		seasonLength = 28
	}
	return fmt.Sprintf("s%04d", day/seasonLength)
}

// EventLogger streams events into the archive as they are published.
type EventLogger struct {
	w            *JSONLZstdWriter
	seasonLength int
}

func NewEventLogger(dir string, seasonLength int) *EventLogger {
	return &EventLogger{w: NewJSONLZstdWriter(filepath.Join(dir, "events"), "events"), seasonLength: seasonLength}
}

// Handler returns a bus handler that archives each event it sees.
func (l *EventLogger) Handler() event.Handler {
	return func(e event.Event) {
		if err := l.w.Write(Segment(e.GameDay, l.seasonLength), e); err != nil {
			slog.Warn("archive event failed", "event", e.ID, "error", err)
		}
	}
}

func (l *EventLogger) Flush() error  { return l.w.Flush() }
func (l *EventLogger) Close() error  { return l.w.Close() }
func (l *EventLogger) Written() int64 { return l.w.Written() }

// ExportEvents writes events to a single compressed file at path.
func ExportEvents(path string, events []event.Event) error {
	return export(path, len(events), func(i int) any { return events[i] })
}

// ExportDecisions writes decision records to a single compressed file.
func ExportDecisions(path string, records []decision.Record) error {
	return export(path, len(records), func(i int) any { return records[i] })
}

func export(path string, n int, item func(int) any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	bw := bufio.NewWriterSize(enc, 128*1024)
	je := json.NewEncoder(bw)
	for i := 0; i < n; i++ {
		if err := je.Encode(item(i)); err != nil {
			_ = enc.Close()
			return fmt.Errorf("export line %d: %w", i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("export: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	return f.Close()
}

// ReadEvents decodes every event in a compressed file.
func ReadEvents(path string) ([]event.Event, error) {
	var out []event.Event
	err := scan(path, func(line []byte) error {
		var e event.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// ReadDecisions decodes every decision record in a compressed file.
func ReadDecisions(path string) ([]decision.Record, error) {
	var out []decision.Record
	err := scan(path, func(line []byte) error {
		var r decision.Record
		if err := json.Unmarshal(line, &r); err != nil {
			return err
		}
		out = append(out, r)
		return nil
	})
	return out, err
}

func scan(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	return scanLines(dec, path, fn)
}

func scanLines(r io.Reader, path string, fn func([]byte) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if err := fn(sc.Bytes()); err != nil {
			return fmt.Errorf("%s:%d: unmarshal: %w", filepath.Base(path), line, err)
		}
	}
	return sc.Err()
}
