package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"

	"timely/internal/schedule"
)

// WorkFunc is the unit of work a schedule fires. The gate invokes it
// synchronously on the engine's goroutine unless the manager was built with
// WithWorkers; either way it should not block indefinitely.
type WorkFunc func(ctx context.Context) error

// Item pairs a schedule with work and an identity. ID uniquely identifies
// the item across its lifetime. InsertTime is a change-detection token:
// resubmitting the same ID with a different InsertTime makes the manager
// treat it as an update (deregister + re-register), not a no-op.
type Item struct {
	ID         string
	Schedule   schedule.Schedule
	Work       WorkFunc
	InsertTime time.Time
}

// NewItem builds an item with a fresh generated ID and InsertTime set to
// now. Callers wanting explicit change-versioning set InsertTime themselves.
func NewItem(s schedule.Schedule, work WorkFunc) Item {
	return Item{
		ID:         "sch_" + uuid.NewString(),
		Schedule:   s,
		Work:       work,
		InsertTime: time.Now(),
	}
}
