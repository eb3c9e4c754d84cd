package steam

import (
	"context"
	"sync"
)

// Result observes the outcome of one bring-up. It resolves exactly once: with
// nil when the controller is ready, a *StallError on protocol failure, or
// ErrAbandoned when the connection goes away first.
type Result struct {
	once  sync.Once
	done  chan struct{}
	state State
	err   error
}

func newResult() *Result {
	return &Result{done: make(chan struct{})}
}

func (r *Result) resolve(state State, err error) {
	r.once.Do(func() {
		r.state = state
		r.err = err
		close(r.done)
	})
}

// Done is closed once the result is resolved.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// Err returns the resolution error. It is nil while unresolved.
func (r *Result) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// State returns the machine state at resolution time.
func (r *Result) State() State {
	select {
	case <-r.done:
		return r.state
	default:
		return StateDiscoverService
	}
}

// Wait blocks until the result resolves or ctx is done.
func (r *Result) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
