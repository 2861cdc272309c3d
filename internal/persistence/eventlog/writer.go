// Package eventlog writes a run's episode summaries and step frames as
// zstd-compressed JSON lines, one file per run.
package eventlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/Garsondee/Dodge-Sense/internal/train"
)

// Record kinds.
const (
	KindEpisode = "episode"
	KindStep    = "step"
)

// Record is one line of the log. Exactly one of Episode and Step is set.
type Record struct {
	Kind    string                `json:"kind"`
	Episode *train.EpisodeSummary `json:"episode,omitempty"`
	Step    *train.StepEvent      `json:"step,omitempty"`
}

// Writer appends records to <dir>/<run-id>.jsonl.zst. It implements
// train.Observer and train.StepObserver; write failures are counted and the
// first one is kept for Failures.
type Writer struct {
	path string

	mu     sync.Mutex
	f      *os.File
	enc    *zstd.Encoder
	w      *bufio.Writer
	n      int
	failed int
	err    error
}

// PathFor returns the log path of runID under dir.
func PathFor(dir, runID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s.jsonl.zst", runID))
}

// Create opens a new log for runID under dir.
func Create(dir, runID string) (*Writer, error) {
	if runID == "" {
		return nil, fmt.Errorf("empty run id")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := PathFor(dir, runID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Writer{
		path: path,
		f:    f,
		enc:  enc,
		w:    bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

// Path returns the file being written.
func (w *Writer) Path() string { return w.path }

// Write appends one record.
func (w *Writer) Write(r Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return fmt.Errorf("eventlog %s: closed", w.path)
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	w.n++
	return nil
}

// OnEpisode implements train.Observer.
func (w *Writer) OnEpisode(s train.EpisodeSummary) {
	w.record(w.Write(Record{Kind: KindEpisode, Episode: &s}))
}

// OnStep implements train.StepObserver.
func (w *Writer) OnStep(ev train.StepEvent) {
	w.record(w.Write(Record{Kind: KindStep, Step: &ev}))
}

func (w *Writer) record(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failed++
	if w.err == nil {
		w.err = err
	}
}

// Count returns the number of records written.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Failures returns how many observer writes failed and the first error.
func (w *Writer) Failures() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failed, w.err
}

// Close flushes and finishes the zstd frame.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err1 error
	if w.w != nil {
		err1 = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		if err := w.enc.Close(); err1 == nil {
			err1 = err
		}
		w.enc = nil
	}
	if w.f != nil {
		if err := w.f.Close(); err1 == nil {
			err1 = err
		}
		w.f = nil
	}
	return err1
}
