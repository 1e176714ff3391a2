//go:build unix

package dpkg

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const DefaultLockDir = "/var/lib/dpkg"

// dpkg takes the frontend lock first, then the database lock.
var lockFiles = []string{"lock-frontend", "lock"}

// DpkgLock probes the fcntl locks dpkg and apt take on the package
// database. The locks are released before Probe returns, since the
// commands we run need to take them for themselves.
type DpkgLock struct {
	Dir string
}

func (l DpkgLock) Probe() error {
	dir := l.Dir
	if dir == "" {
		dir = DefaultLockDir
	}
	for _, name := range lockFiles {
		if err := probe(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func probe(path string) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0640)
	if err != nil {
		return fmt.Errorf("opening lock '%s': %w", path, err)
	}
	defer f.Close()

	lk := unix.Flock_t{
		Type:   unix.F_WRLCK,
		Whence: io.SeekStart,
	}
	if err := unix.FcntlFlock(f.Fd(), unix.F_SETLK, &lk); err != nil {
		return fmt.Errorf("locking '%s': %w", path, err)
	}
	lk.Type = unix.F_UNLCK
	return unix.FcntlFlock(f.Fd(), unix.F_SETLK, &lk)
}
