package progress

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Update represents a progress update event for one task
type Update struct {
	TaskID    uuid.UUID `json:"task_id"`
	Fraction  float64   `json:"fraction"`
	Timestamp time.Time `json:"timestamp"`
}

// Broadcaster tracks task progress and fans updates out to subscribers
type Broadcaster struct {
	// Map of task ID to current progress fraction
	progress map[uuid.UUID]float64
	mu       sync.RWMutex

	log *slog.Logger

	subscribers map[string]chan Update
	subMu       sync.RWMutex
	closed      bool
}

// NewBroadcaster creates a new progress broadcaster
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		progress:    make(map[uuid.UUID]float64),
		subscribers: make(map[string]chan Update),
		log:         slog.Default().With("component", "progress-broadcaster"),
	}
}

// Close closes every subscriber channel and forgets all progress.
func (b *Broadcaster) Close() error {
	b.subMu.Lock()
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = make(map[string]chan Update)
	b.closed = true
	b.subMu.Unlock()

	b.mu.Lock()
	b.progress = make(map[uuid.UUID]float64)
	b.mu.Unlock()

	return nil
}

// Update records the progress of a task and notifies subscribers.
// Fractions are clamped to [0, 1]; a finished task is dropped from the map.
func (b *Broadcaster) Update(taskID uuid.UUID, fraction float64) {
	fraction = max(0, min(fraction, 1))

	b.mu.Lock()
	if fraction >= 1 {
		delete(b.progress, taskID)
	} else {
		b.progress[taskID] = fraction
	}
	b.mu.Unlock()

	update := Update{
		TaskID:    taskID,
		Fraction:  fraction,
		Timestamp: time.Now(),
	}

	b.subMu.RLock()
	defer b.subMu.RUnlock()

	for subID, ch := range b.subscribers {
		select {
		case ch <- update:
		default:
			// Channel full, skip this subscriber to avoid blocking
			b.log.WarnContext(context.Background(), "subscriber channel full, skipping update", "subscriber_id", subID, "task_id", taskID)
		}
	}
}

// Clear removes progress tracking for a task
func (b *Broadcaster) Clear(taskID uuid.UUID) {
	b.mu.Lock()
	delete(b.progress, taskID)
	b.mu.Unlock()
}

// Get returns the current progress for a task
func (b *Broadcaster) Get(taskID uuid.UUID) (float64, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	fraction, exists := b.progress[taskID]
	return fraction, exists
}

// All returns a copy of all in-flight progress
func (b *Broadcaster) All() map[uuid.UUID]float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return maps.Clone(b.progress)
}

// CreateTracker creates a tracker reporting into [minFraction, maxFraction] for a task
func (b *Broadcaster) CreateTracker(taskID uuid.UUID, minFraction, maxFraction float64) *Tracker {
	return NewTracker(b, taskID, minFraction, maxFraction)
}

// Subscribe returns a subscription ID and a buffered update channel
func (b *Broadcaster) Subscribe() (string, <-chan Update) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	ch := make(chan Update, 64)
	if b.closed {
		close(ch)
		return "", ch
	}

	subID := uuid.NewString()
	b.subscribers[subID] = ch

	return subID, ch
}

// Unsubscribe removes a subscriber and closes its channel
func (b *Broadcaster) Unsubscribe(subID string) {
	b.subMu.Lock()
	defer b.subMu.Unlock()

	if ch, exists := b.subscribers[subID]; exists {
		close(ch)
		delete(b.subscribers, subID)
	}
}
