package taskgroup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/javi11/parchive/internal/progress"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup_TasksWaitForStart(t *testing.T) {
	g := New()

	var ran atomic.Int32
	for range 3 {
		_, err := g.Add(func(ctx context.Context, _ func(int64, int64)) error {
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), ran.Load())
	assert.Nil(t, g.Results())

	g.Start(context.Background())
	require.NoError(t, g.Wait(context.Background()))

	assert.Equal(t, int32(3), ran.Load())
	assert.Equal(t, int64(3), g.Finished())

	_, err := g.Add(func(context.Context, func(int64, int64)) error { return nil })
	assert.ErrorIs(t, err, ErrStarted)
}

func TestGroup_ConcurrentStart(t *testing.T) {
	g := New(WithMaxWorkers(2))

	var ran atomic.Int32
	for range 10 {
		_, err := g.Add(func(ctx context.Context, _ func(int64, int64)) error {
			ran.Add(1)
			return nil
		})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Start(context.Background())
		}()
	}
	wg.Wait()

	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, int32(10), ran.Load())
}

func TestGroup_ResultsAndTaskDone(t *testing.T) {
	boom := errors.New("boom")

	var callbacks atomic.Int32
	g := New(OnTaskCompleted(func(Result) { callbacks.Add(1) }))

	okID, err := g.Add(func(context.Context, func(int64, int64)) error { return nil })
	require.NoError(t, err)
	badID, err := g.Add(func(context.Context, func(int64, int64)) error { return boom })
	require.NoError(t, err)

	_, ok := g.TaskResult(okID)
	assert.False(t, ok)

	g.Start(context.Background())

	done, err := g.TaskDone(badID)
	require.NoError(t, err)
	<-done

	res, ok := g.TaskResult(badID)
	require.True(t, ok)
	assert.ErrorIs(t, res.Err, boom)

	results := map[uuid.UUID]error{}
	for r := range g.Results() {
		results[r.TaskID] = r.Err
	}
	assert.Len(t, results, 2)
	assert.NoError(t, results[okID])
	assert.ErrorIs(t, results[badID], boom)

	<-g.Done()
	assert.ErrorIs(t, g.Wait(context.Background()), boom)
	assert.Equal(t, int32(2), callbacks.Load())

	_, err = g.TaskDone(uuid.New())
	assert.ErrorIs(t, err, ErrNoTask)
}

func TestGroup_Cancel(t *testing.T) {
	g := New()

	started := make(chan struct{})
	_, err := g.Add(func(ctx context.Context, _ func(int64, int64)) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	g.Start(context.Background())
	<-started
	g.Cancel()

	assert.ErrorIs(t, g.Wait(context.Background()), context.Canceled)
}

func TestGroup_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := New()

	_, err := g.Add(func(ctx context.Context, _ func(int64, int64)) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	g.Start(ctx)
	cancel()

	assert.ErrorIs(t, g.Wait(context.Background()), context.Canceled)
	assert.ErrorIs(t, g.Context().Err(), context.Canceled)
}

func TestGroup_Progress(t *testing.T) {
	b := progress.NewBroadcaster()
	defer b.Close()
	_, updates := b.Subscribe()

	g := New(WithProgress(b))
	id, err := g.Add(func(_ context.Context, report func(int64, int64)) error {
		report(1, 4)
		report(4, 4)
		return nil
	})
	require.NoError(t, err)

	g.Start(context.Background())
	require.NoError(t, g.Wait(context.Background()))

	first := <-updates
	second := <-updates
	assert.Equal(t, id, first.TaskID)
	assert.InDelta(t, 0.25, first.Fraction, 1e-9)
	assert.InDelta(t, 1.0, second.Fraction, 1e-9)
}

func TestGroup_WaitBeforeStart(t *testing.T) {
	assert.ErrorIs(t, New().Wait(context.Background()), ErrNotStarted)
}

func TestGroup_Empty(t *testing.T) {
	g := New()
	g.Start(context.Background())
	require.NoError(t, g.Wait(context.Background()))
	assert.Equal(t, 0, g.Len())
}
