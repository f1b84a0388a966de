// Package schedule provides timers with explicit handles so that the owner
// can cancel them and verify they are gone.
package schedule

import (
	"context"
	"sync"
	"time"
)

// Task is a periodic job. It never outlives its parent context or Stop.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Every runs fn each interval until the task is cancelled. The first run
// happens one interval after start.
func Every(parent context.Context, interval time.Duration, fn func(ctx context.Context)) *Task {
	ctx, cancel := context.WithCancel(parent)

	t := &Task{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(t.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()

	return t
}

// Cancel asks the task to stop without waiting. Safe to call from fn.
func (t *Task) Cancel() {
	t.cancel()
}

// Stop cancels the task and waits for its goroutine to exit.
func (t *Task) Stop() {
	t.cancel()
	<-t.done
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) Running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Debouncer runs only the last function triggered within the delay window.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(delay time.Duration) *Debouncer {
	//nolint:exhaustruct
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if d.timer != nil {
		d.timer.Stop()
	}

	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop drops a pending run and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true

	if d.timer != nil {
		d.timer.Stop()
	}
}
