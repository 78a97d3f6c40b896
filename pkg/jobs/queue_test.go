package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	var handled int32
	q := NewQueue("reports", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&handled, 1)
		return nil
	}, QueueConfig{Workers: 2})

	require.Error(t, q.Enqueue(Job{ID: "early"}))

	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "sdg"}))
	}
	require.Eventually(t, func() bool {
		return q.Stats().Processed == 3
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(3), atomic.LoadInt32(&handled))
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var attempts int32
	gaveUp := make(chan Job, 1)
	q := NewQueue("reports", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("sink unavailable")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		OnGiveUp: func(job Job, err error) {
			gaveUp <- job
		},
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))

	select {
	case job := <-gaveUp:
		require.Equal(t, "job-1", job.ID)
		require.Equal(t, 3, job.Attempt)
	case <-time.After(time.Second):
		t.Fatal("job was never given up")
	}
	require.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	stats := q.Stats()
	require.Equal(t, uint64(2), stats.Retried)
	require.Equal(t, uint64(1), stats.Failed)
}

func TestQueueEnqueueFailsWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("reports", func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(release)

	require.NoError(t, q.Enqueue(Job{ID: "busy"}))
	require.Eventually(t, func() bool { return q.Stats().Pending == 0 }, time.Second, time.Millisecond)
	require.NoError(t, q.Enqueue(Job{ID: "buffered"}))

	err := q.Enqueue(Job{ID: "overflow"})
	require.ErrorIs(t, err, ErrQueueFull)
	require.Equal(t, 1, q.Stats().Pending)
}

func TestQueueRecoversHandlerPanic(t *testing.T) {
	gaveUp := make(chan error, 1)
	q := NewQueue("reports", func(ctx context.Context, job Job) error {
		panic("nil dataset")
	}, QueueConfig{
		MaxRetries: 1,
		RetryDelay: time.Millisecond,
		OnGiveUp:   func(job Job, err error) { gaveUp <- err },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	select {
	case err := <-gaveUp:
		require.Contains(t, err.Error(), "nil dataset")
	case <-time.After(time.Second):
		t.Fatal("panicking job was never given up")
	}
}
