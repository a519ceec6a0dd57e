package progress

import "github.com/google/uuid"

// Reporter receives progress for a task
type Reporter interface {
	Update(taskID uuid.UUID, fraction float64)
}

// Tracker maps a task's own progress onto a sub-range of its overall progress
type Tracker struct {
	taskID      uuid.UUID
	reporter    Reporter
	minFraction float64
	maxFraction float64
}

// NewTracker creates a progress tracker for a task with a fraction range
func NewTracker(reporter Reporter, taskID uuid.UUID, minFraction, maxFraction float64) *Tracker {
	return &Tracker{
		taskID:      taskID,
		reporter:    reporter,
		minFraction: minFraction,
		maxFraction: maxFraction,
	}
}

// Update reports current out of total within the configured range
func (t *Tracker) Update(current, total int64) {
	if total > 0 && t.reporter != nil {
		fraction := t.minFraction + float64(current)/float64(total)*(t.maxFraction-t.minFraction)
		t.reporter.Update(t.taskID, fraction)
	}
}
