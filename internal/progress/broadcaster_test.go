package progress

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_UpdateAndSubscribe(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	subID, ch := b.Subscribe()
	require.NotEmpty(t, subID)

	task := uuid.New()
	b.Update(task, 0.25)

	update := <-ch
	assert.Equal(t, task, update.TaskID)
	assert.InDelta(t, 0.25, update.Fraction, 1e-9)

	fraction, ok := b.Get(task)
	assert.True(t, ok)
	assert.InDelta(t, 0.25, fraction, 1e-9)

	b.Update(task, 1.5)
	update = <-ch
	assert.InDelta(t, 1.0, update.Fraction, 1e-9)

	_, ok = b.Get(task)
	assert.False(t, ok, "finished tasks are dropped")

	b.Unsubscribe(subID)
	_, open := <-ch
	assert.False(t, open)
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster()
	_, ch := b.Subscribe()
	b.Update(uuid.New(), 0.5)

	require.NoError(t, b.Close())
	assert.Empty(t, b.All())

	<-ch // buffered update
	_, open := <-ch
	assert.False(t, open)

	_, late := b.Subscribe()
	_, open = <-late
	assert.False(t, open)
}

func TestTracker_Range(t *testing.T) {
	b := NewBroadcaster()
	defer b.Close()

	task := uuid.New()
	tracker := b.CreateTracker(task, 0.5, 1.0)

	tracker.Update(1, 2)
	fraction, ok := b.Get(task)
	require.True(t, ok)
	assert.InDelta(t, 0.75, fraction, 1e-9)

	tracker.Update(1, 0)
	fraction, _ = b.Get(task)
	assert.InDelta(t, 0.75, fraction, 1e-9)
}
