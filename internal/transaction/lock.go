// Package transaction serializes mutations of the configuration home: client
// switches, profile edits and repository changes each run under one lock.
package transaction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

const (
	// StaleLockThreshold is the maximum age of a lock before it's considered stale.
	StaleLockThreshold = 10 * time.Minute

	// LockFile is the lock's name inside the locked directory.
	LockFile = "kvirt.lock"
)

var (
	ErrLockExists = errors.New("lock exists: another kvirt operation may be in progress")
)

// Lock represents a held mutation lock.
type Lock struct {
	fs   afero.Fs
	path string
	file afero.File
}

// AcquireLock takes the mutation lock of dir.
// Uses O_CREATE|O_EXCL for atomic lock creation.
func AcquireLock(ctx context.Context, fs afero.Fs, dir string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	lockPath := filepath.Join(dir, LockFile)

	file, err := fs.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if stale, _ := isLockStale(fs, lockPath); !stale {
			return nil, ErrLockExists
		}
		// Remove stale lock and retry once
		_ = fs.Remove(lockPath)
		if file, err = fs.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o600); err != nil {
			return nil, ErrLockExists
		}
	}

	lockData := fmt.Sprintf("pid=%d\ntimestamp=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
	if _, err := file.WriteString(lockData); err != nil {
		file.Close()
		_ = fs.Remove(lockPath)
		return nil, fmt.Errorf("write lock data: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		_ = fs.Remove(lockPath)
		return nil, fmt.Errorf("sync lock file: %w", err)
	}

	return &Lock{
		fs:   fs,
		path: lockPath,
		file: file,
	}, nil
}

// Release releases the lock. Releasing twice is a no-op.
func (l *Lock) Release() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	if l.path != "" {
		if err := l.fs.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove lock file: %w", err)
		}
		l.path = ""
	}

	return nil
}

// isLockStale checks if a lock file is older than the stale lock threshold.
func isLockStale(fs afero.Fs, lockPath string) (bool, error) {
	info, err := fs.Stat(lockPath)
	if err != nil {
		return false, err
	}

	age := time.Since(info.ModTime())
	return age > StaleLockThreshold, nil
}
