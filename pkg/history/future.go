package history

import (
	"context"
	"sync"
)

// Future is the result of a debounced Push. Every Push collapsed into the
// same commit shares its outcome.
type Future struct {
	done chan struct{}
	once sync.Once

	history *History
	err     error
}

func newFuture(h *History) *Future {
	return &Future{
		done:    make(chan struct{}),
		history: h,
	}
}

func rejectedFuture(h *History, err error) *Future {
	f := newFuture(h)
	f.settle(err)
	return f
}

func (f *Future) settle(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Done is closed once the push is committed or rejected.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the outcome of a settled future, or nil while it is pending.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the future settles or ctx is done.
func (f *Future) Wait(ctx context.Context) (*History, error) {
	select {
	case <-f.done:
		if f.err != nil {
			return nil, f.err
		}
		return f.history, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
