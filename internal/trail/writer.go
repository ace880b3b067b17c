package trail

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/zenith-dev/zenith/internal/enum"
	"github.com/zenith-dev/zenith/internal/lockfile"
	"github.com/zenith-dev/zenith/internal/zerr"
)

var tracer = otel.Tracer("github.com/zenith-dev/zenith/internal/trail")

// Writer owns one session's append-only JSONL file. A single process owns
// the file (spec.md §4.4); cross-process writers are not supported, matching
// the teacher's single-writer-per-artifact model.
type Writer struct {
	mu       sync.Mutex
	path     string
	sesID    string
	f        *os.File
	w        *bufio.Writer
	lock     *lockfile.Lock
	disabled bool
}

// Open creates (or appends to) <dir>/<sessionID>.jsonl and acquires an
// exclusive advisory lock for the duration of the writer's lifetime.
func Open(dir, sessionID string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, zerr.Wrap("trail: mkdir", err)
	}
	path := filepath.Join(dir, sessionID+".jsonl")

	lk := lockfile.New(path + ".lock")
	if err := lk.AcquireExclusive(5 * time.Second); err != nil {
		return nil, zerr.Wrapf(err, "trail: acquire lock for %s", sessionID)
	}

	// #nosec G304 - path is constructed from a caller-controlled directory and session id
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		_ = lk.Release()
		return nil, zerr.Wrap("trail: open", err)
	}
	return &Writer{
		path:  path,
		sesID: sessionID,
		f:     f,
		w:     bufio.NewWriter(f),
		lock:  lk,
	}, nil
}

// Disable suppresses all future Append calls, turning them into no-ops.
// Used by the replayer to guarantee it never writes to a trail file while
// reconstructing the store from one.
func (w *Writer) Disable() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disabled = true
}

// Enable re-enables Append after a prior Disable.
func (w *Writer) Enable() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.disabled = false
}

// Append serializes op and writes it as a single line, flushing immediately.
// This is the one suspension point in the repository-mutation path (spec.md
// §5): the SQL write must have already committed before Append is called.
func (w *Writer) Append(ctx context.Context, op enum.TrailOp, entity, id string, data any) error {
	ctx, span := tracer.Start(ctx, "trail.Append")
	defer span.End()
	span.SetAttributes(
		attribute.String("trail.op", string(op)),
		attribute.String("trail.entity", entity),
	)

	env, err := NewEnvelope(w.sesID, op, entity, id, data)
	if err != nil {
		return zerr.Wrap("trail: marshal envelope", err)
	}
	return w.appendEnvelope(env)
}

func (w *Writer) appendEnvelope(env Envelope) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disabled {
		return nil
	}

	line, err := json.Marshal(env)
	if err != nil {
		return zerr.Wrap("trail: marshal line", err)
	}
	if _, err := w.w.Write(line); err != nil {
		return zerr.Wrap("trail: write", err)
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return zerr.Wrap("trail: write newline", err)
	}
	if err := w.w.Flush(); err != nil {
		return zerr.Wrap("trail: flush", err)
	}
	return nil
}

// Path returns the on-disk path of this writer's JSONL file.
func (w *Writer) Path() string { return w.path }

// Close flushes and releases the file and its lock.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	if err := w.w.Flush(); err != nil {
		firstErr = err
	}
	if err := w.f.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := w.lock.Release(); err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr != nil {
		return fmt.Errorf("trail: close: %w", firstErr)
	}
	return nil
}
