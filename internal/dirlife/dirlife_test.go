package dirlife

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(slog.New(slog.NewTextHandler(io.Discard, nil)), 2)
}

func mkdirWithFile(t *testing.T, dir string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "server.js"), []byte("// app"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	m := newTestManager(t)
	dir := filepath.Join(t.TempDir(), "blog")
	mkdirWithFile(t, dir)

	if err := m.Remove(context.Background(), dir); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("directory still present")
	}
	// A second remove of the now-missing directory is success.
	if err := m.Remove(context.Background(), dir); err != nil {
		t.Fatalf("Remove of missing dir: %v", err)
	}
}

func TestRemoveClassifiesBusyAsLocked(t *testing.T) {
	m := newTestManager(t)
	m.removeAll = func(string) error {
		return &os.PathError{Op: "unlinkat", Path: "x", Err: syscall.EBUSY}
	}

	err := m.Remove(context.Background(), "/apps/blog")
	if !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestRemoveRetriesTransientErrors(t *testing.T) {
	m := newTestManager(t)
	calls := 0
	m.removeAll = func(string) error {
		calls++
		if calls < 3 {
			return &os.PathError{Op: "unlinkat", Path: "x", Err: syscall.ENOTEMPTY}
		}
		return nil
	}

	if err := m.Remove(context.Background(), "/apps/blog"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRemoveEscalatesAfterBoundedRetries(t *testing.T) {
	m := newTestManager(t)
	calls := 0
	m.removeAll = func(string) error {
		calls++
		return &os.PathError{Op: "unlinkat", Path: "x", Err: syscall.ENOTEMPTY}
	}

	if err := m.Remove(context.Background(), "/apps/blog"); err == nil {
		t.Fatalf("expected error after retries exhausted")
	}
	if calls != 3 {
		t.Fatalf("expected 3 bounded attempts, got %d", calls)
	}
}

func TestMarkForDeletionEncodesNameAndTimestamp(t *testing.T) {
	m := newTestManager(t)
	base := t.TempDir()
	dir := filepath.Join(base, "blog")
	mkdirWithFile(t, dir)

	marker, err := m.MarkForDeletion(dir)
	if err != nil {
		t.Fatalf("MarkForDeletion: %v", err)
	}
	name := filepath.Base(marker)
	if !IsMarker(name) {
		t.Fatalf("marker name %q does not follow the convention", name)
	}
	if !strings.HasSuffix(name, ".blog") {
		t.Fatalf("marker name %q must retain the original name", name)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("original path still present after mark")
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatalf("marker path missing: %v", err)
	}
}

func TestMarkForDeletionOfMissingDirFails(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.MarkForDeletion(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected hard failure")
	}
}

func TestSweepRemovesMarkersAndSkipsLiveDirs(t *testing.T) {
	m := newTestManager(t)
	base := t.TempDir()

	live := filepath.Join(base, "blog")
	mkdirWithFile(t, live)

	removable := filepath.Join(base, "shop")
	mkdirWithFile(t, removable)
	removableMarker, err := m.MarkForDeletion(removable)
	if err != nil {
		t.Fatalf("mark removable: %v", err)
	}

	lockedDir := filepath.Join(base, "wiki")
	mkdirWithFile(t, lockedDir)
	lockedMarker, err := m.MarkForDeletion(lockedDir)
	if err != nil {
		t.Fatalf("mark locked: %v", err)
	}

	realRemove := m.removeAll
	m.removeAll = func(path string) error {
		if path == lockedMarker {
			return &os.PathError{Op: "unlinkat", Path: path, Err: syscall.EBUSY}
		}
		return realRemove(path)
	}

	result := m.Sweep(context.Background(), base)
	if len(result.Cleaned) != 1 || result.Cleaned[0] != removableMarker {
		t.Fatalf("Cleaned = %v, want [%s]", result.Cleaned, removableMarker)
	}
	if len(result.StillLocked) != 1 || result.StillLocked[0] != lockedMarker {
		t.Fatalf("StillLocked = %v, want [%s]", result.StillLocked, lockedMarker)
	}
	if _, err := os.Stat(live); err != nil {
		t.Fatalf("live app directory touched by sweep: %v", err)
	}

	// Once the directory unlocks, the next pass cleans it.
	m.removeAll = realRemove
	result = m.Sweep(context.Background(), base)
	if len(result.Cleaned) != 1 || result.Cleaned[0] != lockedMarker {
		t.Fatalf("second pass Cleaned = %v", result.Cleaned)
	}
}

func TestSweepMissingBaseDirIsNoop(t *testing.T) {
	m := newTestManager(t)
	result := m.Sweep(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if len(result.Cleaned) != 0 || len(result.StillLocked) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
