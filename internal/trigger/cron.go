// Package trigger adapts a periodic-trigger engine: something that matches
// wall-clock time against a cron expression and invokes a callback. The
// production engine is robfig/cron; tests substitute their own Engine.
package trigger

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"
)

// ErrInvalidExpression is returned by Register when the expression does not
// parse as five space-separated cron fields.
var ErrInvalidExpression = errors.New("invalid cron expression")

// Handle is an opaque registration token, needed to deregister later.
type Handle int

// Engine is the contract the lifecycle manager consumes. Fire callbacks run
// on the engine's own goroutines, concurrently with application calls.
type Engine interface {
	// Register schedules fn to run at every instant matching expr and
	// returns a handle for deregistration.
	Register(expr string, fn func()) (Handle, error)
	// Deregister cancels future fires. It is idempotent; a stale or unknown
	// handle is a no-op. It does not interrupt an in-flight callback.
	Deregister(h Handle)
}

// Cron is the robfig/cron backed Engine. Register is callable before or
// after Start; nothing fires until Start.
type Cron struct {
	c *cron.Cron
}

// NewCron builds an engine with a strict five-field parser
// (minute hour day month day-of-week).
func NewCron() *Cron {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &Cron{c: cron.New(cron.WithParser(parser))}
}

func (e *Cron) Register(expr string, fn func()) (Handle, error) {
	id, err := e.c.AddFunc(expr, fn)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, expr, err)
	}
	return Handle(id), nil
}

func (e *Cron) Deregister(h Handle) {
	e.c.Remove(cron.EntryID(h))
}

// Start launches the engine's scheduling goroutine. Safe to call once.
func (e *Cron) Start() { e.c.Start() }

// Stop halts scheduling; the returned context is done once in-flight
// callbacks have finished.
func (e *Cron) Stop() context.Context { return e.c.Stop() }

var _ Engine = (*Cron)(nil)
