// Package journal appends every mutation a session applies (local optimistic,
// remote, or rollback) to hour-rotated zstd-compressed JSONL files. The
// journal is optional: a nil *Writer is a no-op sink. cmd/replay rebuilds a
// store from these files.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

// Origin of a journaled mutation.
const (
	OriginLocal    = "local"
	OriginRemote   = "remote"
	OriginRollback = "rollback"
)

// Op names.
const (
	OpCreate = "create"
	OpMove   = "move"
	OpLike   = "like"
	OpUnlike = "unlike"
	OpDelete = "delete"
	OpMerge  = "merge"
)

type Record struct {
	AtMs    int64    `json:"at_ms"`
	BoardID string   `json:"board_id"`
	Origin  string   `json:"origin"`
	Op      string   `json:"op"`
	ItemID  string   `json:"item_id"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	UserID  string   `json:"user_id,omitempty"`
	Note    string   `json:"note,omitempty"`
}

type Writer struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewWriter(baseDir, prefix string) *Writer {
	return &Writer{baseDir: baseDir, prefix: prefix}
}

func (w *Writer) Append(rec Record) error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *Writer) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	p := w.pathForHour(hour)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.curHour = hour
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriter(enc)
	return nil
}

func (w *Writer) closeLocked() error {
	if w.f == nil {
		return nil
	}
	var firstErr error
	if err := w.w.Flush(); err != nil {
		firstErr = err
	}
	if err := w.enc.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	w.curHour = ""
	w.f = nil
	w.enc = nil
	w.w = nil
	return firstErr
}

func (w *Writer) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ReadFile decodes one journal file back into records.
func ReadFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var recs []Record
	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return recs, fmt.Errorf("journal %s: %w", path, err)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return recs, err
	}
	return recs, nil
}

// Files lists journal files for a prefix in chronological order.
func Files(baseDir, prefix string) ([]string, error) {
	pattern := filepath.Join(baseDir, prefix+"-*.jsonl.zst")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	return paths, nil
}
