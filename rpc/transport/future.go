package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ExecutionError wraps every failure reported by a response handler.
// Callers of the client never see this type, the client translates it.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Future is the pending result of a request. It is completed exactly once.
type Future struct {
	done       chan struct{}
	once       sync.Once
	resp       []byte
	err        error
	onComplete func()
}

// NewFuture creates a new pending future. onComplete (if not nil) runs once
// when the future is completed.
func NewFuture(onComplete func()) *Future {
	return &Future{
		done:       make(chan struct{}),
		onComplete: onComplete,
	}
}

// Complete sets the result of the future. Only the first call has an effect,
// it reports whether this call completed the future.
func (f *Future) Complete(resp []byte, err error) bool {
	completed := false
	f.once.Do(func() {
		if err != nil {
			var ee *ExecutionError
			if !errors.As(err, &ee) {
				err = &ExecutionError{Err: err}
			}
		}
		f.resp, f.err = resp, err
		// run the callback first so a waiter woken by done observes its effect
		if f.onComplete != nil {
			f.onComplete()
		}
		close(f.done)
		completed = true
	})
	return completed
}

// Done returns a channel that is closed when the future is completed
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result. If ctx is done first the request keeps running
// and an *ExecutionError wrapping the context error is returned.
func (f *Future) Get(ctx context.Context) ([]byte, error) {
	select {
	case <-f.done:
		return f.resp, f.err
	case <-ctx.Done():
		return nil, &ExecutionError{Err: ctx.Err()}
	}
}

// Result returns the result of a completed future, ok is false if it is still pending
func (f *Future) Result() (resp []byte, ok bool, err error) {
	select {
	case <-f.done:
		return f.resp, true, f.err
	default:
		return nil, false, nil
	}
}
