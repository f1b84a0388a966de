package sameday

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lusya00/thesis-frontend-sub000/internal/booking"
	"github.com/lusya00/thesis-frontend-sub000/internal/schedule"
	"github.com/lusya00/thesis-frontend-sub000/internal/session"
)

type WatchConfig struct {
	PollInterval time.Duration
	TickInterval time.Duration
}

type Snapshot struct {
	Availability *booking.SameDayAvailability `json:"availability"`
	Countdown    Countdown                    `json:"countdown"`
	Error        string                       `json:"error,omitempty"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

// Watch keeps a room's same-day status fresh while a same-day screen is
// open: a poll task re-evaluates periodically and a tick task drives the
// housekeeping countdown. Stop tears both down.
type Watch struct {
	e        *Evaluator
	sess     *session.Session
	roomID   int
	today    booking.Date
	conf     WatchConfig
	onChange func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	snapshot     Snapshot
	poll         *schedule.Task
	tick         *schedule.Task
	tasks        []*schedule.Task
	recheckedFor string
	stopped      bool
}

// Watch evaluates once synchronously and then keeps the status fresh until
// Stop is called or ctx ends. onChange may be nil.
func (e *Evaluator) Watch(
	ctx context.Context,
	sess *session.Session,
	roomID int,
	today booking.Date,
	conf WatchConfig,
	onChange func(Snapshot),
) (*Watch, error) {
	if !e.IsToday(today) {
		return nil, fmt.Errorf("watch room %d for %s: %w", roomID, today, ErrNotToday)
	}

	ctx, cancel := context.WithCancel(ctx)

	w := &Watch{
		e:        e,
		sess:     sess,
		roomID:   roomID,
		today:    today,
		conf:     conf,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}

	w.refresh(ctx)

	w.mu.Lock()
	w.poll = schedule.Every(ctx, conf.PollInterval, w.refresh)
	w.tasks = append(w.tasks, w.poll)
	w.mu.Unlock()

	return w, nil
}

func (w *Watch) refresh(ctx context.Context) {
	res, err := w.e.EvaluateToday(ctx, w.sess, w.roomID, w.today)
	if ctx.Err() != nil {
		return
	}

	w.mu.Lock()

	w.snapshot = Snapshot{
		Availability: res,
		Countdown:    ComputeCountdown(res, w.e.Now()),
		UpdatedAt:    w.e.Now(),
	}

	if err != nil {
		w.snapshot.Error = err.Error()
	}

	w.syncCountdownLocked()
	recheck := w.markRecheckLocked()
	snap := w.snapshot

	w.mu.Unlock()

	w.notify(snap)

	if recheck {
		w.refresh(ctx)
	}
}

// markRecheckLocked reports whether a countdown that just reached zero
// should trigger a re-evaluation. It fires once per finish time.
func (w *Watch) markRecheckLocked() bool {
	if !w.snapshot.Countdown.Ready || w.snapshot.Availability == nil {
		return false
	}

	target := w.snapshot.Availability.HousekeepingCompleteTime
	if w.recheckedFor == target {
		return false
	}

	w.recheckedFor = target

	return true
}

// syncCountdownLocked starts the tick task when a countdown is running and
// cancels it otherwise.
func (w *Watch) syncCountdownLocked() {
	cd := w.snapshot.Countdown
	wantTick := cd.Active && !cd.Ready && !w.stopped

	if w.tick != nil && w.tick.Running() {
		if !wantTick {
			w.tick.Cancel()
			w.tick = nil
		}

		return
	}

	if wantTick {
		w.tick = schedule.Every(w.ctx, w.conf.TickInterval, w.onTick)
		w.tasks = append(w.tasks, w.tick)
	}
}

func (w *Watch) onTick(context.Context) {
	w.mu.Lock()

	w.snapshot.Countdown = ComputeCountdown(w.snapshot.Availability, w.e.Now())
	w.syncCountdownLocked()
	recheck := w.markRecheckLocked()
	snap := w.snapshot

	w.mu.Unlock()

	w.notify(snap)

	// the tick task may just have cancelled itself, so re-check under the
	// watch context
	if recheck {
		w.refresh(w.ctx)
	}
}

func (w *Watch) notify(snap Snapshot) {
	if w.onChange != nil {
		w.onChange(snap)
	}
}

func (w *Watch) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.snapshot
}

// Stop cancels polling and the countdown and waits until both have exited.
func (w *Watch) Stop() {
	w.mu.Lock()
	w.stopped = true
	tasks := w.tasks
	w.mu.Unlock()

	w.cancel()

	for _, t := range tasks {
		t.Stop()
	}
}

// Running reports whether any timer owned by the watch is still alive.
func (w *Watch) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, t := range w.tasks {
		if t.Running() {
			return true
		}
	}

	return false
}
