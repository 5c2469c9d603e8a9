package heap

import (
	"context"
	"runtime"
	"sync"

	"github.com/wippyai/rbridge/errors"
)

// thread is the dedicated goroutine that owns a heap. Work submitted
// through Do runs there one task at a time, pinned to a single OS thread.
type thread struct {
	tasks    chan task
	stopCh   chan struct{}
	stopOnce sync.Once
}

type task struct {
	fn   func() error
	done chan result
}

type result struct {
	err   error
	panic any
}

func newThread() *thread {
	t := &thread{
		tasks:  make(chan task),
		stopCh: make(chan struct{}),
	}
	go t.loop()
	return t
}

func (t *thread) loop() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for {
		select {
		case <-t.stopCh:
			return
		case tk := <-t.tasks:
			tk.done <- t.run(tk.fn)
		}
	}
}

func (t *thread) run(fn func() error) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res.panic = r
		}
	}()
	res.err = fn()
	return res
}

// stop never waits for the loop, so a task may close its own heap.
func (t *thread) stop() {
	t.stopOnce.Do(func() { close(t.stopCh) })
}

// Do runs fn on the heap thread and waits for it. Any goroutine may call
// Do; fn is the only place the heap may be touched from then on. A panic
// in fn is re-raised in the caller. If ctx ends first, Do returns its
// error while fn keeps running to completion. fn must not call Do.
func (h *Heap) Do(ctx context.Context, fn func() error) error {
	t := h.thread
	done := make(chan result, 1)

	select {
	case <-t.stopCh:
		return errors.Closed(errors.PhaseRuntime, "heap")
	default:
	}

	select {
	case t.tasks <- task{fn: fn, done: done}:
	case <-t.stopCh:
		return errors.Closed(errors.PhaseRuntime, "heap")
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case res := <-done:
		if res.panic != nil {
			panic(res.panic)
		}
		return res.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
