// Package loop provides a single logical thread of execution. Tasks posted
// to a Loop run one at a time, in order, on the goroutine that called Run.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStopped is returned by Do once the loop has exited.
var ErrStopped = errors.New("loop stopped")

// Loop is a FIFO task queue drained by a single goroutine. Post never
// blocks, so I/O goroutines can hand work to the loop without stalling.
type Loop struct {
	clock Clock

	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	stopped chan struct{}
}

// New returns a Loop using clock for scheduled tasks. A nil clock means
// RealClock.
func New(clock Clock) *Loop {
	if clock == nil {
		clock = RealClock()
	}
	return &Loop{
		clock:   clock,
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
}

// Clock returns the loop's time source.
func (l *Loop) Clock() Clock { return l.clock }

// Run executes tasks until ctx is done. Tasks still queued at that point
// are dropped. Run must be called at most once.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.stopped)
	}()

	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}

// Post enqueues fn. It reports false if the loop has already exited.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if !l.Post(func() {
		defer close(done)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-done:
		return nil
	case <-l.stopped:
		// fn may have completed just before the loop exited.
		select {
		case <-done:
			return nil
		default:
			return ErrStopped
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.stopped }

// After schedules fn to run on the loop once d has elapsed.
func (l *Loop) After(d time.Duration, fn func()) *Task {
	t := &Task{loop: l, fn: fn}
	t.arm(d)
	return t
}

// Every schedules fn to run on the loop every interval, starting one
// interval from now. The next run is armed only after the current one
// finishes, so runs never overlap or pile up.
func (l *Loop) Every(interval time.Duration, fn func()) *Task {
	t := &Task{loop: l, fn: fn, interval: interval}
	t.arm(interval)
	return t
}

// Task is a scheduled once or repeating run on a Loop.
type Task struct {
	loop     *Loop
	fn       func()
	interval time.Duration

	mu        sync.Mutex
	cancelled bool
	fired     bool
	timer     Timer
}

func (t *Task) arm(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.timer = t.loop.clock.AfterFunc(d, func() { t.loop.Post(t.run) })
}

// run executes on the loop goroutine. A Cancel that returned before this
// point is always observed.
func (t *Task) run() {
	t.mu.Lock()
	if t.cancelled {
		t.mu.Unlock()
		return
	}
	if t.interval == 0 {
		t.fired = true
	}
	t.mu.Unlock()

	t.fn()

	if t.interval > 0 {
		t.arm(t.interval)
	}
}

// Cancel stops the task. It is safe to call more than once and from any
// goroutine, including from inside the task itself.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Active reports whether the task may still run.
func (t *Task) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.cancelled && !t.fired
}
