package feed

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/grovetools/chartview/errors"
	"github.com/grovetools/chartview/pkg/loop"
	"github.com/grovetools/chartview/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func runLoop(t *testing.T, clock loop.Clock) *loop.Loop {
	t.Helper()
	l := loop.New(clock)
	ctx, cancel := context.WithCancel(context.Background())
	go l.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-l.Done()
	})
	return l
}

func refusingDialer(count *int32) Dialer {
	return DialerFunc(func(ctx context.Context, url string) (Conn, error) {
		atomic.AddInt32(count, 1)
		return nil, fmt.Errorf("connection refused")
	})
}

func TestUnwrap(t *testing.T) {
	t.Run("plain payload", func(t *testing.T) {
		msg, err := Unwrap(nil, []byte(`{"data_names":["a"],"data":[]}`), DefaultWrapperField)
		require.NoError(t, err)
		obj := msg.(map[string]interface{})
		assert.Equal(t, []interface{}{"a"}, obj["data_names"])
	})

	t.Run("wrapped payload", func(t *testing.T) {
		msg, err := Unwrap(nil, []byte(`{"message":"{\"data_names\":[\"a\",\"b\"],\"data\":[[0,[1,2]]]}"}`), DefaultWrapperField)
		require.NoError(t, err)
		obj := msg.(map[string]interface{})
		assert.Equal(t, []interface{}{"a", "b"}, obj["data_names"])
		assert.Len(t, obj["data"], 1)
	})

	t.Run("custom wrapper field", func(t *testing.T) {
		msg, err := Unwrap(nil, []byte(`{"payload":"[1,2]"}`), "payload")
		require.NoError(t, err)
		assert.Equal(t, []interface{}{float64(1), float64(2)}, msg)
	})

	t.Run("unwrapping disabled", func(t *testing.T) {
		msg, err := Unwrap(nil, []byte(`{"message":"[1]"}`), "")
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"message": "[1]"}, msg)
	})

	t.Run("non-string wrapper field passes through", func(t *testing.T) {
		msg, err := Unwrap(nil, []byte(`{"message":5}`), DefaultWrapperField)
		require.NoError(t, err)
		assert.Equal(t, map[string]interface{}{"message": float64(5)}, msg)
	})

	t.Run("invalid envelope", func(t *testing.T) {
		_, err := Unwrap(nil, []byte(`{not json`), DefaultWrapperField)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeDecode))
	})

	t.Run("invalid nested payload", func(t *testing.T) {
		_, err := Unwrap(nil, []byte(`{"message":"{broken"}`), DefaultWrapperField)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrCodeDecode))
		assert.Contains(t, err.Error(), "nested")
	})
}

func TestBackoffSequence(t *testing.T) {
	clock := loop.NewFakeClock(time.Unix(0, 0))
	l := runLoop(t, clock)

	var dials int32
	f := New(Config{
		URL:     "ws://feed.invalid/",
		Floor:   time.Second,
		Ceiling: 30 * time.Second,
		Dialer:  refusingDialer(&dials),
		Logger:  quietLogger(),
	}, l, nil)
	f.Start()
	defer f.Stop()

	want := []time.Duration{1, 2, 4, 8, 16, 30, 30, 30}
	for i, seconds := range want {
		delay := seconds * time.Second
		clock.WaitForTimers(1)

		next, ok := clock.NextDeadline()
		require.True(t, ok)
		assert.Equal(t, delay, next, "delay before retry %d", i)
		assert.Equal(t, StatusRetrying, f.Status().Status)
		assert.False(t, f.IsOpen())

		clock.Advance(delay)
	}

	clock.WaitForTimers(1)
	assert.Equal(t, int32(len(want)+1), atomic.LoadInt32(&dials))
	assert.Equal(t, len(want)+1, f.Attempts())
}

func TestStopIsIdempotent(t *testing.T) {
	clock := loop.NewFakeClock(time.Unix(0, 0))
	l := runLoop(t, clock)

	var dials int32
	f := New(Config{URL: "ws://feed.invalid/", Dialer: refusingDialer(&dials), Logger: quietLogger()}, l, nil)
	f.Start()
	clock.WaitForTimers(1)

	f.Stop()
	f.Stop()
	assert.Equal(t, StatusStopped, f.Status().Status)
	assert.Equal(t, 0, clock.PendingCount())

	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&dials))
}

func TestRestartAfterStop(t *testing.T) {
	clock := loop.NewFakeClock(time.Unix(0, 0))
	l := runLoop(t, clock)

	var dials int32
	f := New(Config{URL: "ws://feed.invalid/", Dialer: refusingDialer(&dials), Logger: quietLogger()}, l, nil)
	f.Start()
	for _, d := range []time.Duration{time.Second, 2 * time.Second} {
		clock.WaitForTimers(1)
		clock.Advance(d)
	}
	clock.WaitForTimers(1)
	next, _ := clock.NextDeadline()
	assert.Equal(t, 4*time.Second, next)

	f.Stop()
	f.Start()
	defer f.Stop()

	clock.WaitForTimers(1)
	next, _ = clock.NextDeadline()
	assert.Equal(t, DefaultFloor, next)
	assert.Equal(t, 1, f.Attempts())
}

func TestDeliversMessagesInOrder(t *testing.T) {
	server := testutil.StartWSServer(t)
	l := runLoop(t, nil)

	received := make(chan interface{}, 10)
	f := New(Config{URL: server.URL(), Floor: 10 * time.Millisecond, Logger: quietLogger()}, l, func(msg interface{}) {
		received <- msg
	})
	f.Start()
	defer f.Stop()

	server.WaitForClient(5 * time.Second)
	require.Eventually(t, f.IsOpen, 5*time.Second, 5*time.Millisecond)

	server.Send(testutil.ProducerPayload([]string{"a"}, []float64{0, 1}))
	server.Send("this is not json")
	server.SendWrapped(DefaultWrapperField, testutil.ProducerPayload([]string{"b"}, []float64{1, 2}))

	for _, want := range []string{"a", "b"} {
		select {
		case msg := <-received:
			names := msg.(map[string]interface{})["data_names"].([]interface{})
			assert.Equal(t, []interface{}{want}, names)
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
	assert.True(t, f.IsOpen(), "bad frame must not close the link")
}

func TestReconnectsAfterServerDrop(t *testing.T) {
	server := testutil.StartWSServer(t)
	l := runLoop(t, nil)

	f := New(Config{URL: server.URL(), Floor: 10 * time.Millisecond, Logger: quietLogger()}, l, nil)
	f.Start()
	defer f.Stop()

	server.WaitForClient(5 * time.Second)
	server.DropClients()
	server.WaitForClient(5 * time.Second)

	require.Eventually(t, f.IsOpen, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, server.Accepted())
}

func TestBackoffResetsOnOpen(t *testing.T) {
	server := testutil.StartWSServer(t)
	clock := loop.NewFakeClock(time.Unix(0, 0))
	l := runLoop(t, clock)

	var dials int32
	wsDialer := NewWebsocketDialer(nil)
	dialer := DialerFunc(func(ctx context.Context, url string) (Conn, error) {
		if atomic.AddInt32(&dials, 1) <= 2 {
			return nil, fmt.Errorf("connection refused")
		}
		return wsDialer.Dial(ctx, url)
	})

	f := New(Config{URL: server.URL(), Dialer: dialer, Logger: quietLogger()}, l, nil)
	f.Start()
	defer f.Stop()

	for _, d := range []time.Duration{time.Second, 2 * time.Second} {
		clock.WaitForTimers(1)
		clock.Advance(d)
	}

	server.WaitForClient(5 * time.Second)
	require.Eventually(t, f.IsOpen, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, DefaultFloor, f.Status().CurrentBackoff)

	server.DropClients()
	clock.WaitForTimers(1)
	next, ok := clock.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, DefaultFloor, next)
}

func TestStopClosesConnection(t *testing.T) {
	server := testutil.StartWSServer(t)
	l := runLoop(t, nil)

	f := New(Config{URL: server.URL(), Floor: 10 * time.Millisecond, Logger: quietLogger()}, l, nil)
	f.Start()
	server.WaitForClient(5 * time.Second)
	require.Eventually(t, f.IsOpen, 5*time.Second, 5*time.Millisecond)

	f.Stop()
	assert.False(t, f.IsOpen())
	assert.Equal(t, StatusStopped, f.Status().Status)

	// A closed link after Stop must not trigger a reconnect.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, server.Accepted())
}
