package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	docerrors "github.com/Aman-CERP/docrag/internal/errors"
)

// LockFile is the lock file name inside the data directory.
const LockFile = ".write.lock"

// lockRetryDelay is the polling interval while waiting for the lock.
const lockRetryDelay = 100 * time.Millisecond

// Lock serializes index and remove operations across processes sharing a
// data directory. Queries do not take it.
type Lock struct {
	path  string
	flock *flock.Flock
}

// NewLock creates a lock for dir. The lock file is created on first use.
func NewLock(dir string) *Lock {
	path := filepath.Join(dir, LockFile)
	return &Lock{path: path, flock: flock.New(path)}
}

// Acquire blocks until the lock is held or ctx is done.
func (l *Lock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	ok, err := l.flock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		if ctx.Err() != nil {
			return docerrors.BackendError(docerrors.ErrCodeIndexLocked,
				"another docrag process is writing to the index", ctx.Err())
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return docerrors.BackendError(docerrors.ErrCodeIndexLocked, "another docrag process is writing to the index", nil)
	}
	return nil
}

// TryAcquire takes the lock without blocking and reports whether it succeeded.
func (l *Lock) TryAcquire() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}
	return l.flock.TryLock()
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Lock) Release() error {
	if !l.flock.Locked() {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }
