package supervisor

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// PidFile is the single-instance guard: an exclusive flock on the pid
// file. The lock outlives any stale file contents, so a crashed
// supervisor never false-positives as "already running".
type PidFile struct {
	f    *os.File
	path string
}

// AcquirePidFile locks path and writes the current pid into it. A held
// lock means another supervisor is running.
func AcquirePidFile(path string) (*PidFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open pid file %s: %w", path, err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, fmt.Errorf("pid file %s is locked: already running", path)
		}
		return nil, fmt.Errorf("lock pid file %s: %w", path, err)
	}
	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()
		return nil, err
	}
	return &PidFile{f: f, path: path}, nil
}

// Release drops the lock and removes the file.
func (p *PidFile) Release() {
	if p == nil || p.f == nil {
		return
	}
	_ = unix.Flock(int(p.f.Fd()), unix.LOCK_UN)
	p.f.Close()
	p.f = nil
	os.Remove(p.path)
}

// WriteStatusSnapshot persists the startup STATUS reply, when a snapshot
// path is configured.
func WriteStatusSnapshot(path, status string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(status+"\n"), 0o644)
}
