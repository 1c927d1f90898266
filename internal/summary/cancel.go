package summary

import (
	"context"
	"sync"
	"sync/atomic"
)

// CancelToken is a one-shot handle used to abort an in-flight summary
// request cooperatively. It is independent of any UI framework: the request
// runs under Context() and observes cancellation through it.
type CancelToken struct {
	ctx    context.Context
	cancel context.CancelFunc

	once      sync.Once
	triggered atomic.Bool
}

// NewCancelToken creates a token whose context is derived from parent.
// Cancelling parent has the same effect on the request as triggering the
// token, but only Trigger marks the token as triggered.
func NewCancelToken(parent context.Context) *CancelToken {
	ctx, cancel := context.WithCancel(parent)

	return &CancelToken{
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context returns the context the guarded request must run under.
func (t *CancelToken) Context() context.Context {
	return t.ctx
}

// Done is closed once the token is triggered, released or its parent is
// cancelled.
func (t *CancelToken) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Trigger cancels the guarded request. Only the first call has an effect and
// returns true; later calls, including calls after the request already
// finished, are no-ops.
func (t *CancelToken) Trigger() bool {
	fired := false
	t.once.Do(func() {
		t.triggered.Store(true)
		t.cancel()
		fired = true
	})

	return fired
}

// IsTriggered reports whether Trigger has fired.
func (t *CancelToken) IsTriggered() bool {
	return t.triggered.Load()
}

// release frees the context resources once the request has finished. The
// token is not marked as triggered, and a later Trigger is a no-op.
func (t *CancelToken) release() {
	t.once.Do(t.cancel)
}
