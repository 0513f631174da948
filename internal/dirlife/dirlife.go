// Package dirlife manages app directory removal: direct deletes, deferred
// deletion via a marker rename, and the background sweep that finalizes it.
package dirlife

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

// Marker convention: a directory renamed to ".trash.<nanos>.<name>" is
// pending deletion. Zero-padded nanos keep lexical child order chronological,
// and the timestamp makes concurrent marks collision-free.
const markerPrefix = ".trash."

// ErrLocked indicates a directory could not be removed because something
// still holds it (open handles, busy mount). It is recoverable: callers defer
// the deletion instead of failing the request.
var ErrLocked = errors.New("dirlife: directory locked")

// Result reports the outcome of one sweep pass.
type Result struct {
	Cleaned     []string
	StillLocked []string
}

// Manager performs directory lifecycle operations.
type Manager struct {
	logger  *slog.Logger
	retries int

	// removeAll is swapped in tests to simulate busy directories.
	removeAll func(path string) error
}

// NewManager returns a manager retrying transient removal errors up to
// retries times per attempt.
func NewManager(logger *slog.Logger, retries int) *Manager {
	if retries < 0 {
		retries = 0
	}
	return &Manager{
		logger:    logger.With("component", "dirlife"),
		retries:   retries,
		removeAll: os.RemoveAll,
	}
}

// Remove recursively deletes path. A missing directory is success. Busy or
// locked directories surface as ErrLocked without synchronous retry; other
// transient errors are retried a bounded number of times before escalating
// as hard failures.
func (m *Manager) Remove(ctx context.Context, path string) error {
	backoff := retry.WithMaxRetries(uint64(m.retries), retry.NewFibonacci(50*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := m.removeAll(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if locked(err) {
			return fmt.Errorf("%w: %s", ErrLocked, err)
		}
		if transient(err) {
			return retry.RetryableError(fmt.Errorf("remove %s: %w", path, err))
		}
		return fmt.Errorf("remove %s: %w", path, err)
	})
}

// MarkForDeletion renames the directory to its sibling marker name and
// returns the marker path. Rename failure is a hard failure.
func (m *Manager) MarkForDeletion(path string) (string, error) {
	dir, name := filepath.Split(filepath.Clean(path))
	marker := filepath.Join(dir, fmt.Sprintf("%s%020d.%s", markerPrefix, time.Now().UnixNano(), name))
	if err := os.Rename(path, marker); err != nil {
		return "", fmt.Errorf("mark for deletion: %w", err)
	}
	m.logger.Info("directory marked for deletion", "path", path, "marker", marker)
	return marker, nil
}

// Sweep scans the immediate children of baseDir for deletion markers and
// attempts to remove each, oldest first. Entries that cannot be removed stay
// for the next pass. A missing or unreadable base directory is a no-op.
// Sweep only touches already-marked entries, so it is safe to run
// concurrently with itself and with new marks.
func (m *Manager) Sweep(ctx context.Context, baseDir string) Result {
	var result Result
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return result
	}
	// ReadDir sorts by filename, which is chronological for markers.
	for _, entry := range entries {
		if !entry.IsDir() || !IsMarker(entry.Name()) {
			continue
		}
		path := filepath.Join(baseDir, entry.Name())
		if err := m.Remove(ctx, path); err != nil {
			if !errors.Is(err, ErrLocked) {
				m.logger.Warn("sweep could not remove marker", "path", path, "error", err)
			}
			result.StillLocked = append(result.StillLocked, path)
			continue
		}
		result.Cleaned = append(result.Cleaned, path)
	}
	return result
}

// IsMarker reports whether a directory name follows the deletion marker
// convention.
func IsMarker(name string) bool {
	return strings.HasPrefix(name, markerPrefix)
}

func locked(err error) bool {
	return errors.Is(err, syscall.EBUSY) || errors.Is(err, syscall.ETXTBSY)
}

func transient(err error) bool {
	return errors.Is(err, syscall.ENOTEMPTY) || errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}
