package transaction

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestAcquireLock(t *testing.T) {
	fs := afero.NewOsFs()

	t.Run("creates lock file", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := AcquireLock(context.Background(), fs, dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		if _, err := os.Stat(filepath.Join(dir, LockFile)); os.IsNotExist(err) {
			t.Error("lock file not created")
		}
	})

	t.Run("prevents concurrent locks", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := AcquireLock(context.Background(), fs, dir)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		defer lock1.Release()

		_, err = AcquireLock(context.Background(), fs, dir)
		if err != ErrLockExists {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := AcquireLock(ctx, fs, t.TempDir()); err == nil {
			t.Error("expected error for cancelled context")
		}
	})

	t.Run("creates directory if needed", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "home")

		lock, err := AcquireLock(context.Background(), fs, dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("directory not created")
		}
	})

	t.Run("writes lock metadata", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := AcquireLock(context.Background(), fs, dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		defer lock.Release()

		data, err := os.ReadFile(filepath.Join(dir, LockFile))
		if err != nil {
			t.Fatalf("failed to read lock file: %v", err)
		}
		if len(data) == 0 {
			t.Error("lock file should contain metadata")
		}
	})
}

func TestLockRelease(t *testing.T) {
	fs := afero.NewOsFs()

	t.Run("removes lock file", func(t *testing.T) {
		dir := t.TempDir()

		lock, err := AcquireLock(context.Background(), fs, dir)
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("Release failed: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, LockFile)); !os.IsNotExist(err) {
			t.Error("lock file should be removed after release")
		}
	})

	t.Run("allows new lock after release", func(t *testing.T) {
		dir := t.TempDir()

		lock1, err := AcquireLock(context.Background(), fs, dir)
		if err != nil {
			t.Fatalf("first AcquireLock failed: %v", err)
		}
		lock1.Release()

		lock2, err := AcquireLock(context.Background(), fs, dir)
		if err != nil {
			t.Fatalf("second AcquireLock should succeed: %v", err)
		}
		defer lock2.Release()
	})

	t.Run("is idempotent", func(t *testing.T) {
		lock, err := AcquireLock(context.Background(), fs, t.TempDir())
		if err != nil {
			t.Fatalf("AcquireLock failed: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("first Release failed: %v", err)
		}
		if err := lock.Release(); err != nil {
			t.Fatalf("second Release should not error: %v", err)
		}
	})
}

func TestStaleLockHandling(t *testing.T) {
	fs := afero.NewOsFs()

	t.Run("removes stale lock and acquires new one", func(t *testing.T) {
		dir := t.TempDir()
		lockPath := filepath.Join(dir, LockFile)
		if err := os.WriteFile(lockPath, []byte("pid=99999\ntimestamp=2020-01-01T00:00:00Z\n"), 0600); err != nil {
			t.Fatalf("failed to create stale lock: %v", err)
		}
		staleTime := time.Now().Add(-StaleLockThreshold - time.Minute)
		if err := os.Chtimes(lockPath, staleTime, staleTime); err != nil {
			t.Fatalf("failed to set stale time: %v", err)
		}

		lock, err := AcquireLock(context.Background(), fs, dir)
		if err != nil {
			t.Fatalf("AcquireLock should succeed with stale lock: %v", err)
		}
		defer lock.Release()
	})

	t.Run("fails for non-stale lock", func(t *testing.T) {
		dir := t.TempDir()
		lockPath := filepath.Join(dir, LockFile)
		if err := os.WriteFile(lockPath, []byte("pid=99999\n"), 0600); err != nil {
			t.Fatalf("failed to create lock: %v", err)
		}

		if _, err := AcquireLock(context.Background(), fs, dir); err != ErrLockExists {
			t.Errorf("expected ErrLockExists, got %v", err)
		}
	})
}

func TestLockInMemory(t *testing.T) {
	fs := afero.NewMemMapFs()

	lock, err := AcquireLock(context.Background(), fs, "/home/u/.kcli")
	if err != nil {
		t.Fatalf("AcquireLock failed: %v", err)
	}
	if _, err := AcquireLock(context.Background(), fs, "/home/u/.kcli"); err != ErrLockExists {
		t.Errorf("expected ErrLockExists, got %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
}
