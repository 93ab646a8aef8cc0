package loop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startLoop(t *testing.T, clock Clock) *Loop {
	t.Helper()
	l := New(clock)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	go l.Run(ctx)
	return l
}

// flush waits until every task posted before the call has run.
func flush(t *testing.T, l *Loop) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Do(ctx, func() {}))
}

func TestPostPreservesOrder(t *testing.T) {
	l := startLoop(t, nil)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		assert.True(t, l.Post(func() { got = append(got, i) }))
	}
	flush(t, l)

	require.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestDoWaitsForCompletion(t *testing.T) {
	l := startLoop(t, nil)

	ran := false
	err := l.Do(context.Background(), func() { ran = true })
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestDoAfterStop(t *testing.T) {
	l := New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	cancel()
	<-l.Done()

	assert.False(t, l.Post(func() {}))
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
}

func TestDoContextCancelled(t *testing.T) {
	l := startLoop(t, nil)

	release := make(chan struct{})
	l.Post(func() { <-release })
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Do(ctx, func() {}), context.Canceled)
}

func TestAfterRunsOnce(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	l := startLoop(t, clock)

	var count int32
	task := l.After(time.Second, func() { atomic.AddInt32(&count, 1) })
	assert.True(t, task.Active())

	clock.Advance(999 * time.Millisecond)
	flush(t, l)
	assert.Equal(t, int32(0), atomic.LoadInt32(&count))

	clock.Advance(time.Millisecond)
	flush(t, l)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
	assert.False(t, task.Active())

	clock.Advance(10 * time.Second)
	flush(t, l)
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestEveryRepeatsUntilCancel(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	l := startLoop(t, clock)

	var count int32
	task := l.Every(100*time.Millisecond, func() { atomic.AddInt32(&count, 1) })

	for i := 1; i <= 5; i++ {
		clock.Advance(100 * time.Millisecond)
		flush(t, l)
		assert.Equal(t, int32(i), atomic.LoadInt32(&count))
	}

	task.Cancel()
	task.Cancel()
	assert.False(t, task.Active())
	assert.Equal(t, 0, clock.PendingCount())

	clock.Advance(time.Second)
	flush(t, l)
	assert.Equal(t, int32(5), atomic.LoadInt32(&count))
}

func TestCancelObservedBeforeQueuedRun(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	l := startLoop(t, clock)

	ran := false
	task := l.After(time.Second, func() { ran = true })

	// Hold the loop so the fired timer's run sits in the queue.
	release := make(chan struct{})
	l.Post(func() { <-release })

	clock.Advance(time.Second)
	task.Cancel()
	close(release)
	flush(t, l)

	assert.False(t, ran)
}

func TestCancelFromInsideTask(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	l := startLoop(t, clock)

	var count int32
	var task *Task
	task = l.Every(time.Second, func() {
		if atomic.AddInt32(&count, 1) == 2 {
			task.Cancel()
		}
	})

	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		flush(t, l)
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&count))
}

func TestFakeClockNextDeadline(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	_, ok := clock.NextDeadline()
	assert.False(t, ok)

	timer := clock.AfterFunc(3*time.Second, func() {})
	clock.AfterFunc(5*time.Second, func() {})
	d, ok := clock.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, d)

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())
	d, _ = clock.NextDeadline()
	assert.Equal(t, 5*time.Second, d)
	assert.Equal(t, 1, clock.PendingCount())
}
