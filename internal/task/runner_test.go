package task

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunnerDeliversPayload(t *testing.T) {
	r := NewRunner(2, 16, 0, time.Millisecond)
	got := make(chan string, 1)
	r.Register("echo", func(ctx context.Context, payload []byte) error {
		got <- string(payload)
		return nil
	})
	stop := r.Start()
	defer stop(context.Background())

	require.NoError(t, r.Submit(context.Background(), "echo", []byte("hello")))
	select {
	case p := <-got:
		assert.Equal(t, "hello", p)
	case <-time.After(time.Second):
		t.Fatal("task never ran")
	}
}

func TestSubmitRejectsUnknownTask(t *testing.T) {
	r := NewRunner(1, 4, 0, time.Millisecond)
	err := r.Submit(context.Background(), "nope", nil)
	assert.Error(t, err)
}

func TestRetryStopsOnNonRetryable(t *testing.T) {
	fatal := errors.New("bad payload")
	r := NewRunner(1, 4, 5, time.Millisecond)
	r.Retryable = func(err error) bool { return !errors.Is(err, fatal) }

	var attempts atomic.Int32
	r.Register("fail", func(ctx context.Context, payload []byte) error {
		attempts.Add(1)
		return fatal
	})
	stop := r.Start()

	require.NoError(t, r.Submit(context.Background(), "fail", nil))
	require.NoError(t, stop(context.Background()))
	assert.EqualValues(t, 1, attempts.Load(), "non-retryable error short-circuits")
}

func TestRetryUntilSuccess(t *testing.T) {
	r := NewRunner(1, 4, 5, time.Millisecond)
	var attempts atomic.Int32
	done := make(chan struct{})
	r.Register("flaky", func(ctx context.Context, payload []byte) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	})
	stop := r.Start()
	defer stop(context.Background())

	require.NoError(t, r.Submit(context.Background(), "flaky", nil))
	select {
	case <-done:
		assert.EqualValues(t, 3, attempts.Load())
	case <-time.After(time.Second):
		t.Fatal("task never succeeded")
	}
}

func TestStopDrainsQueue(t *testing.T) {
	r := NewRunner(2, 64, 0, time.Millisecond)
	var handled atomic.Int32
	var wg sync.WaitGroup
	r.Register("count", func(ctx context.Context, payload []byte) error {
		handled.Add(1)
		wg.Done()
		return nil
	})
	stop := r.Start()

	const n = 30
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.NoError(t, r.Submit(context.Background(), "count", nil))
	}
	require.NoError(t, stop(context.Background()))
	wg.Wait()
	assert.EqualValues(t, n, handled.Load(), "queued tasks run before shutdown completes")
}

func TestSubmitAfterStopFails(t *testing.T) {
	r := NewRunner(1, 4, 0, time.Millisecond)
	r.Register("noop", func(ctx context.Context, payload []byte) error { return nil })
	stop := r.Start()
	require.NoError(t, stop(context.Background()))

	err := r.Submit(context.Background(), "noop", nil)
	assert.Error(t, err)
}
