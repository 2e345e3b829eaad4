// Package lifecycle reconciles a desired set of scheduled items against the
// registrations held by a trigger engine, and gates each fire on the item's
// validity window.
package lifecycle

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"timely/internal/history"
	"timely/internal/schedule"
	"timely/internal/trigger"
)

// ErrAlreadyExpired reports that a schedule's end time had already passed at
// registration time. It is a deliberate skip, not a failure; nothing was
// registered.
var ErrAlreadyExpired = errors.New("schedule already expired")

type entry struct {
	insertTime time.Time
	handle     trigger.Handle
	expr       string
	start, end *time.Time
}

// Manager owns the registry of live registrations. All methods are safe for
// concurrent use, including the gate's self-deregistration path running on
// an engine goroutine.
type Manager struct {
	engine trigger.Engine

	mu      sync.Mutex
	entries map[string]*entry

	now     func() time.Time
	log     zerolog.Logger
	rec     history.Recorder
	workers chan struct{} // nil means synchronous work invocation
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger replaces the global logger, so independent managers can log
// distinctly.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithClock replaces the wall clock used by expiry checks and the gate.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithHistory journals every gate decision to rec.
func WithHistory(rec history.Recorder) Option {
	return func(m *Manager) { m.rec = rec }
}

// WithWorkers runs work on up to n concurrent goroutines instead of
// synchronously on the engine's goroutine, so slow work cannot stall the
// engine's pool.
func WithWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.workers = make(chan struct{}, n)
		}
	}
}

// NewManager builds a manager over engine.
func NewManager(engine trigger.Engine, opts ...Option) *Manager {
	m := &Manager{
		engine:  engine,
		entries: make(map[string]*entry),
		now:     time.Now,
		log:     log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// StartSchedule compiles item's schedule and registers it with the engine,
// replacing any prior registration for the same ID. If the schedule's end
// time has already passed, nothing is registered and ErrAlreadyExpired is
// returned.
func (m *Manager) StartSchedule(item Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startLocked(item)
}

func (m *Manager) startLocked(item Item) error {
	expr, err := schedule.Compile(item.Schedule)
	if err != nil {
		return err
	}
	start, end := item.Schedule.Window()
	if end != nil && !m.now().Before(*end) {
		m.log.Info().Str("schedule_id", item.ID).Time("end", *end).Msg("schedule already expired, not registering")
		return ErrAlreadyExpired
	}

	handle, err := m.engine.Register(expr, m.gate(item))
	if err != nil {
		return err
	}
	if prev, ok := m.entries[item.ID]; ok {
		// Replaced without an explicit end; drop the stale trigger.
		m.engine.Deregister(prev.handle)
	}
	m.entries[item.ID] = &entry{
		insertTime: item.InsertTime,
		handle:     handle,
		expr:       expr,
		start:      start,
		end:        end,
	}
	m.log.Info().Str("schedule_id", item.ID).Str("cron", expr).Msg("schedule started")
	return nil
}

// EndSchedule deregisters the schedule with the given ID. Unknown IDs are a
// no-op. An in-flight work invocation is not interrupted.
func (m *Manager) EndSchedule(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.endLocked(id)
}

func (m *Manager) endLocked(id string) bool {
	e, ok := m.entries[id]
	if !ok {
		return false
	}
	m.engine.Deregister(e.handle)
	delete(m.entries, id)
	m.log.Info().Str("schedule_id", id).Msg("schedule ended")
	return true
}

// Report summarizes one reconciliation pass.
type Report struct {
	Started   int
	Updated   int
	Removed   int
	Unchanged int
	Skipped   int // end time already passed
	Failed    int
}

// RefreshSchedules reconciles the registered set against desired: new IDs
// are started, IDs whose InsertTime changed are ended and restarted, IDs
// absent from desired are ended, matching IDs are left alone. One item's
// failure does not abort the rest of the batch. Repeating an unchanged batch
// registers and deregisters nothing.
func (m *Manager) RefreshSchedules(desired []Item) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rep Report
	seen := make(map[string]struct{}, len(desired))
	for _, item := range desired {
		seen[item.ID] = struct{}{}
		cur, ok := m.entries[item.ID]
		switch {
		case !ok:
			m.reconcileStart(item, &rep, &rep.Started)
		case !cur.insertTime.Equal(item.InsertTime):
			m.endLocked(item.ID)
			m.log.Info().Str("schedule_id", item.ID).Msg("schedule changed, re-registering")
			m.reconcileStart(item, &rep, &rep.Updated)
		default:
			rep.Unchanged++
		}
	}
	for id := range m.entries {
		if _, ok := seen[id]; !ok {
			m.endLocked(id)
			rep.Removed++
		}
	}

	m.log.Info().
		Int("started", rep.Started).
		Int("updated", rep.Updated).
		Int("removed", rep.Removed).
		Int("unchanged", rep.Unchanged).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Msg("schedules refreshed")
	return rep
}

func (m *Manager) reconcileStart(item Item, rep *Report, ok *int) {
	switch err := m.startLocked(item); {
	case err == nil:
		*ok++
	case errors.Is(err, ErrAlreadyExpired):
		rep.Skipped++
	default:
		rep.Failed++
		m.log.Error().Err(err).Str("schedule_id", item.ID).Msg("failed to start schedule")
	}
}

// EntryInfo is a read-only snapshot of one live registration.
type EntryInfo struct {
	ID         string     `json:"id"`
	InsertTime time.Time  `json:"insert_time"`
	Expr       string     `json:"cron_expr"`
	Start      *time.Time `json:"start_time,omitempty"`
	End        *time.Time `json:"end_time,omitempty"`
}

// Entries returns the live registrations sorted by ID.
func (m *Manager) Entries() []EntryInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	infos := make([]EntryInfo, 0, len(m.entries))
	for id, e := range m.entries {
		infos = append(infos, EntryInfo{
			ID:         id,
			InsertTime: e.insertTime,
			Expr:       e.expr,
			Start:      e.start,
			End:        e.end,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// gate wraps item's work with the validity-window check performed at each
// fire. An expired schedule deregisters itself: cron syntax cannot express
// an end boundary, so a window lapsing between ticks is caught here.
func (m *Manager) gate(item Item) func() {
	start, end := item.Schedule.Window()
	return func() {
		now := m.now()
		switch {
		case end != nil && !now.Before(*end):
			m.EndSchedule(item.ID)
			m.log.Info().Str("schedule_id", item.ID).Msg("schedule expired, deregistered")
			m.record(item.ID, now, history.OutcomeExpired, "")
		case start != nil && now.Before(*start):
			m.log.Debug().Str("schedule_id", item.ID).Time("start", *start).Msg("schedule not yet valid, skipping tick")
			m.record(item.ID, now, history.OutcomePending, "")
		default:
			m.dispatch(item, now)
		}
	}
}

func (m *Manager) dispatch(item Item, now time.Time) {
	if m.workers == nil {
		m.runWork(item, now)
		return
	}
	m.workers <- struct{}{}
	go func() {
		defer func() { <-m.workers }()
		m.runWork(item, now)
	}()
}

func (m *Manager) runWork(item Item, now time.Time) {
	if err := item.Work(context.Background()); err != nil {
		m.log.Error().Err(err).Str("schedule_id", item.ID).Msg("scheduled work failed")
		m.record(item.ID, now, history.OutcomeFailed, err.Error())
		return
	}
	m.log.Debug().Str("schedule_id", item.ID).Msg("scheduled work done")
	m.record(item.ID, now, history.OutcomeInvoked, "")
}

func (m *Manager) record(id string, at time.Time, outcome history.Outcome, errStr string) {
	if m.rec == nil {
		return
	}
	f := history.Fire{ScheduleID: id, FiredAt: at, Outcome: outcome, Error: errStr}
	if err := m.rec.Record(context.Background(), f); err != nil {
		m.log.Error().Err(err).Str("schedule_id", id).Msg("failed to record fire")
	}
}
