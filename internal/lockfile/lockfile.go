// Package lockfile enforces single-instance operation with a PID lock file
// in the data directory. Two daemons writing the same data file would
// silently clobber each other's totals, so acquisition happens before any
// state is touched.
package lockfile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ///////////////////////////////////////////////
// Lock
// ///////////////////////////////////////////////

// Lock is a held PID lock file. The zero value is not usable; obtain one
// through [Acquire].
type Lock struct {
	path string
	pid  int
}

// ErrHeld is returned when another live process owns the lock.
type ErrHeld struct {
	// PID is the owning process ID as read from the lock file.
	PID int
	// Path is the lock file location, for the error message the user sees.
	Path string
}

func (e *ErrHeld) Error() string {
	return fmt.Sprintf("another instance is running (pid %d, lock %s)", e.PID, e.Path)
}

// Acquire takes the lock at path for the current process. alive reports
// whether a PID refers to a live process; a lock held by a dead process is
// reclaimed.
//
// Creation uses O_EXCL so two racing starters cannot both win. On a lost
// race the existing owner is checked exactly once: if it is dead the stale
// file is removed and creation retried, otherwise [ErrHeld] is returned. An
// unreadable or garbage lock file is treated as stale; a file that cannot
// name its owner cannot protect anything.
func Acquire(path string, alive func(pid int) bool) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	pid := os.Getpid()
	for attempt := 0; ; attempt++ {
		err := writeExclusive(path, pid)
		if err == nil {
			return &Lock{path: path, pid: pid}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create lock file: %w", err)
		}
		if attempt > 0 {
			// A second loss after removing a stale file means a live
			// competitor grabbed it in between. Let them have it.
			owner, _ := readOwner(path)
			return nil, &ErrHeld{PID: owner, Path: path}
		}

		owner, readErr := readOwner(path)
		if readErr == nil && owner != pid && alive(owner) {
			return nil, &ErrHeld{PID: owner, Path: path}
		}
		slog.Warn("removing stale lock file", "path", path, "owner", owner)
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("remove stale lock file: %w", rmErr)
		}
	}
}

// Release removes the lock file if this process still owns it. Safe to call
// more than once; a lock already released or reclaimed by someone else is
// left alone.
func (l *Lock) Release() {
	if l == nil || l.path == "" {
		return
	}
	owner, err := readOwner(l.path)
	if err != nil || owner != l.pid {
		l.path = ""
		return
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove lock file", "path", l.path, "error", err)
	}
	l.path = ""
}

// Path returns the lock file location.
func (l *Lock) Path() string { return l.path }

// ///////////////////////////////////////////////
// Helpers
// ///////////////////////////////////////////////

func writeExclusive(path string, pid int) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}
	_, werr := fmt.Fprintf(f, "%d\n", pid)
	cerr := f.Close()
	if werr != nil {
		os.Remove(path)
		return werr
	}
	if cerr != nil {
		os.Remove(path)
		return cerr
	}
	return nil
}

func readOwner(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse lock owner: %w", err)
	}
	return pid, nil
}
