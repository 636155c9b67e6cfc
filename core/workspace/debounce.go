package workspace

import (
	"context"
	"sync"
	"time"
)

type (
	// Timer is a scheduled callback that can be stopped before it fires.
	Timer interface {
		Stop() bool
	}

	// Clock is the time source of the debouncer and sessions.
	Clock interface {
		Now() time.Time
		AfterFunc(d time.Duration, f func()) Timer
	}

	realClock struct{}
)

func (realClock) Now() time.Time { return time.Now().UTC() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// SystemClock is the wall clock.
var SystemClock Clock = realClock{}

// Debouncer runs fn once no Trigger has happened for delay.
// A burst of triggers results in one run, which sees the state at fire time.
// Runs never overlap, and none starts after Stop returns.
type Debouncer struct {
	delay   time.Duration
	timeout time.Duration
	clock   Clock
	fn      func(ctx context.Context) error
	onError func(err error)

	mu      sync.Mutex
	timer   Timer
	gen     uint64 // bumped on every (re)schedule, flush or cancel; stale timers compare against it
	pending bool
	stopped bool

	runMu sync.Mutex
}

// NewDebouncer returns a Debouncer calling fn. Runs started by the timer get a
// context bounded by timeout (if positive) and report errors to onError.
func NewDebouncer(delay, timeout time.Duration, clock Clock, fn func(ctx context.Context) error, onError func(err error)) *Debouncer {
	if clock == nil {
		clock = SystemClock
	}
	return &Debouncer{
		delay:   delay,
		timeout: timeout,
		clock:   clock,
		fn:      fn,
		onError: onError,
	}
}

// Trigger (re)starts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopTimer()
	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) })
}

// stopTimer must be called with mu held.
func (d *Debouncer) stopTimer() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.timer = nil
	d.mu.Unlock()

	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}
	if err := d.fn(ctx); err != nil && d.onError != nil {
		d.onError(err)
	}
}

// Flush runs fn now if a run is pending, otherwise it waits for a run in progress.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	d.mu.Lock()
	pending := d.pending && !d.stopped
	d.pending = false
	d.gen++
	d.stopTimer()
	d.mu.Unlock()

	if !pending {
		return nil
	}
	return d.fn(ctx)
}

// Cancel drops the pending run, if any, and reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	was := d.pending
	d.pending = false
	d.gen++
	d.stopTimer()
	return was
}

// Stop cancels the pending run and waits for a run in progress.
// Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.pending = false
	d.gen++
	d.stopTimer()
	d.mu.Unlock()

	// wait for a run in progress
	d.runMu.Lock()
	d.runMu.Unlock()
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}
