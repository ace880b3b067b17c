// Package lockfile provides cross-platform advisory locking for the
// single-writer files Zenith owns on disk (the per-session trail files).
// Adapted from the teacher's
// internal/lockfile package, which hand-rolled per-platform flock syscalls;
// here that is collapsed onto github.com/gofrs/flock, which wraps the same
// primitive portably.
package lockfile

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/flock"
)

// ErrLockBusy is returned when a non-blocking lock cannot be acquired
// because another process holds a conflicting lock.
var ErrLockBusy = errors.New("lock busy: held by another process")

// Lock wraps an advisory file lock. Shared locks allow concurrent readers;
// exclusive locks ensure a single writer, matching the access pattern the
// trail writer needs.
type Lock struct {
	fl *flock.Flock
}

const pollInterval = 50 * time.Millisecond

// New returns a lock handle for the given path. The path is created if it
// does not exist; it is never written to beyond the lock itself.
func New(path string) *Lock {
	return &Lock{fl: flock.New(path)}
}

// AcquireExclusive blocks (polling at pollInterval) until the exclusive
// lock is acquired or timeout elapses, returning ErrLockBusy on timeout.
func (l *Lock) AcquireExclusive(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ok, err := l.fl.TryLockContext(ctx, pollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockBusy
		}
		return err
	}
	if !ok {
		return ErrLockBusy
	}
	return nil
}

// AcquireShared blocks until a shared (read) lock is acquired or timeout
// elapses.
func (l *Lock) AcquireShared(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ok, err := l.fl.TryRLockContext(ctx, pollInterval)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockBusy
		}
		return err
	}
	if !ok {
		return ErrLockBusy
	}
	return nil
}

// Release releases whichever lock is currently held.
func (l *Lock) Release() error {
	return l.fl.Unlock()
}

// IsLockBusy reports whether err indicates the lock is held elsewhere.
func IsLockBusy(err error) bool {
	return errors.Is(err, ErrLockBusy)
}
