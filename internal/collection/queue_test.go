package collection

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueue_RunsInSubmissionOrder(t *testing.T) {
	q := NewQueue(time.Second)
	defer q.Close()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 20; i++ {
		i := i
		require.NoError(t, q.Submit(Command{Persist: func(context.Context) error {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			return nil
		}}))
	}
	require.NoError(t, q.Wait(context.Background()))

	want := make([]int, 20)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestQueue_Callbacks(t *testing.T) {
	q := NewQueue(time.Second)
	defer q.Close()

	boom := errors.New("boom")
	var ok bool
	var failed error
	q.Submit(Command{
		Persist:   func(context.Context) error { return nil },
		OnSuccess: func() { ok = true },
	})
	q.Submit(Command{
		Persist:   func(context.Context) error { return boom },
		OnSuccess: func() { t.Error("OnSuccess after failure") },
		OnFailure: func(err error) { failed = err },
	})
	require.NoError(t, q.Wait(context.Background()))

	assert.True(t, ok)
	assert.ErrorIs(t, failed, boom)
}

func TestQueue_StaleCommandsAreDiscarded(t *testing.T) {
	q := NewQueue(time.Second)
	defer q.Close()

	ran := false
	var failed error
	q.Submit(Command{
		Persist:   func(context.Context) error { ran = true; return nil },
		Stale:     func() bool { return true },
		OnFailure: func(err error) { failed = err },
	})
	require.NoError(t, q.Wait(context.Background()))

	assert.False(t, ran)
	assert.ErrorIs(t, failed, ErrDiscarded)
}

func TestQueue_Timeout(t *testing.T) {
	q := NewQueue(20 * time.Millisecond)
	defer q.Close()

	var failed error
	q.Submit(Command{
		Persist: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
		OnFailure: func(err error) { failed = err },
	})
	require.NoError(t, q.Wait(context.Background()))
	assert.ErrorIs(t, failed, context.DeadlineExceeded)
}

func TestQueue_LateSuccessCountsAsFailure(t *testing.T) {
	q := NewQueue(10 * time.Millisecond)
	defer q.Close()

	var failed error
	q.Submit(Command{
		Persist: func(context.Context) error {
			time.Sleep(30 * time.Millisecond)
			return nil
		},
		OnSuccess: func() { t.Error("late write reported as success") },
		OnFailure: func(err error) { failed = err },
	})
	require.NoError(t, q.Wait(context.Background()))
	assert.ErrorIs(t, failed, context.DeadlineExceeded)
}

func TestQueue_PanicBecomesFailure(t *testing.T) {
	q := NewQueue(time.Second)
	defer q.Close()

	var failed error
	q.Submit(Command{
		Persist:   func(context.Context) error { panic("bad write") },
		OnFailure: func(err error) { failed = err },
	})
	require.NoError(t, q.Wait(context.Background()))
	require.Error(t, failed)
	assert.Contains(t, failed.Error(), "bad write")
}

func TestQueue_CallbackPanicBecomesFailure(t *testing.T) {
	q := NewQueue(time.Second)
	defer q.Close()

	var failed error
	q.Submit(Command{
		OnSuccess: func() { panic("bad commit") },
		OnFailure: func(err error) { failed = err },
	})
	q.Submit(Command{OnFailure: func(error) { panic("again") }, Stale: func() bool { return true }})
	require.NoError(t, q.Wait(context.Background()), "worker survives")
	require.Error(t, failed)
	assert.Contains(t, failed.Error(), "bad commit")
}

func TestQueue_CancelledCommandDoesNotRun(t *testing.T) {
	q := NewQueue(time.Second)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var failed error
	q.Submit(Command{
		Ctx:       ctx,
		Persist:   func(context.Context) error { t.Error("persist ran"); return nil },
		OnFailure: func(err error) { failed = err },
	})
	require.NoError(t, q.Wait(context.Background()))
	assert.ErrorIs(t, failed, context.Canceled)
}

func TestQueue_CancelAbortsRunningPersist(t *testing.T) {
	q := NewQueue(time.Second)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var failed error
	q.Submit(Command{
		Ctx: ctx,
		Persist: func(pctx context.Context) error {
			close(started)
			<-pctx.Done()
			return pctx.Err()
		},
		OnFailure: func(err error) { failed = err },
	})
	<-started
	cancel()
	require.NoError(t, q.Wait(context.Background()))
	assert.ErrorIs(t, failed, context.Canceled)
}

func TestQueue_CloseDrainsAndRejects(t *testing.T) {
	q := NewQueue(time.Second)

	done := 0
	for i := 0; i < 5; i++ {
		q.Submit(Command{OnSuccess: func() { done++ }})
	}
	q.Close()

	assert.Equal(t, 5, done)
	assert.Equal(t, 0, q.Len())
	assert.ErrorIs(t, q.Submit(Command{}), ErrClosed)
	assert.ErrorIs(t, q.Wait(context.Background()), ErrClosed)
}

func TestQueue_WaitHonoursContext(t *testing.T) {
	q := NewQueue(time.Second)
	defer q.Close()

	release := make(chan struct{})
	q.Submit(Command{Persist: func(context.Context) error {
		<-release
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Wait(ctx), context.DeadlineExceeded)
	close(release)
}
