package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"
)

// Workers is a group of goroutines sharing one cancelable context. A control loop runs its ticker
// in one of them and stops it between two cycles.
type Workers struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  func()
	running sync.WaitGroup
}

// NewWorkers starts each function in its own goroutine. Panics are captured and logged by
// goutils.PanicCapturingGo.
func NewWorkers(funcs ...func(context.Context)) *Workers {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Workers{ctx: ctx, cancel: cancel}
	w.Add(funcs...)
	return w
}

// Add starts more functions. It returns false without starting anything once Stop was called.
func (w *Workers) Add(funcs ...func(context.Context)) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.ctx.Err() != nil {
		return false
	}
	w.running.Add(len(funcs))
	for _, f := range funcs {
		goutils.PanicCapturingGo(func() {
			defer w.running.Done()
			f(w.ctx)
		})
	}
	return true
}

// Stop cancels the context and waits for every function to return. It may be called more than
// once, and from a worker only if that worker does not wait for itself.
func (w *Workers) Stop() {
	w.mu.Lock()
	w.cancel()
	w.mu.Unlock()

	w.running.Wait()
}

// Context is canceled by Stop.
func (w *Workers) Context() context.Context {
	return w.ctx
}
