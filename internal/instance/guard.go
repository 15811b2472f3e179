// Package instance enforces a single running launcher per user and lets
// later launches hand their arguments to the running one.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrAlreadyRunning is returned when another process holds the lock.
var ErrAlreadyRunning = errors.New("instance: another launcher is already running")

// Guard owns the machine-wide instance lock file. The first Acquire
// decides the outcome; later calls return the same answer.
type Guard struct {
	lock *flock.Flock

	once sync.Once
	held bool
	err  error
}

// NewGuard returns a guard for the lock file at path.
func NewGuard(path string) *Guard {
	return &Guard{lock: flock.New(path)}
}

// Path returns the lock file location.
func (g *Guard) Path() string {
	return g.lock.Path()
}

// Acquire tries to take the lock without blocking. Exactly one of any
// number of concurrent acquirers, in this process or others, gets true.
func (g *Guard) Acquire() (bool, error) {
	g.once.Do(func() {
		if err := os.MkdirAll(filepath.Dir(g.lock.Path()), 0o755); err != nil {
			g.err = fmt.Errorf("creating lock directory: %w", err)
			return
		}
		held, err := g.lock.TryLock()
		if err != nil {
			g.err = fmt.Errorf("locking %s: %w", g.lock.Path(), err)
			return
		}
		g.held = held
	})
	return g.held, g.err
}

// Held reports whether this guard owns the lock.
func (g *Guard) Held() bool {
	return g.lock.Locked()
}

// Release gives the lock up. It is a no-op when the lock is not held.
func (g *Guard) Release() error {
	if !g.lock.Locked() {
		return nil
	}
	if err := g.lock.Unlock(); err != nil {
		return fmt.Errorf("unlocking %s: %w", g.lock.Path(), err)
	}
	return nil
}
