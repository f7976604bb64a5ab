package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yairfalse/kartta/registry"
)

// ErrWaitTimeout means a unit's joiner gave up waiting for the running
// fetch to finish.
var ErrWaitTimeout = errors.New("timed out waiting for fetch unit")

// DefaultWaitTimeout bounds how long a joiner waits on a running unit.
const DefaultWaitTimeout = 120 * time.Second

type unitState int

const (
	unitIdle unitState = iota
	unitRunning
	unitDone
)

// fetchUnit tracks the single execution of one resource type's fetch.
// States move idle to running to done and never backwards; exactly one
// caller wins the transition to running and everyone else waits.
type fetchUnit struct {
	ref registry.Ref
	def registry.Definition

	mu    sync.Mutex
	state unitState
	err   error
	done  chan struct{}
}

func newFetchUnit(def registry.Definition) *fetchUnit {
	return &fetchUnit{
		ref:  def.Ref(),
		def:  def,
		done: make(chan struct{}),
	}
}

// begin claims the unit. Only the first caller gets true; it must call
// finish exactly once.
func (u *fetchUnit) begin() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.state != unitIdle {
		return false
	}
	u.state = unitRunning
	return true
}

// finish records the outcome and releases every waiter.
func (u *fetchUnit) finish(err error) {
	u.mu.Lock()
	u.state = unitDone
	u.err = err
	u.mu.Unlock()
	close(u.done)
}

// wait blocks until the unit finishes and returns its outcome. A unit
// that stays running past timeout yields ErrWaitTimeout instead.
func (u *fetchUnit) wait(ctx context.Context, timeout time.Duration) error {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-u.done:
		u.mu.Lock()
		defer u.mu.Unlock()
		return u.err
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return fmt.Errorf("%w: %s after %s", ErrWaitTimeout, u.ref, timeout)
	}
}
