// Package api exposes the live schedule set over HTTP: inspect
// registrations, add and remove schedules, reconcile a whole batch, and read
// the fire history.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"timely/internal/history"
	"timely/internal/lifecycle"
	"timely/internal/schedule"
	"timely/internal/work"
)

type Server struct {
	mgr      *lifecycle.Manager
	rec      history.Recorder
	handlers work.Registry
}

func NewServer(mgr *lifecycle.Manager, rec history.Recorder, handlers work.Registry) http.Handler {
	return NewServerWithDebug(mgr, rec, handlers, false)
}

func NewServerWithDebug(mgr *lifecycle.Manager, rec history.Recorder, handlers work.Registry, enableDebug bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	s := &Server{mgr: mgr, rec: rec, handlers: handlers}

	r.Get("/health", s.health)
	r.Get("/api/schedules", s.listSchedules)
	r.Post("/api/schedules", s.createSchedule)
	r.Delete("/api/schedules/{id}", s.deleteSchedule)
	r.Post("/api/schedules/refresh", s.refreshSchedules)
	r.Get("/api/history", s.listHistory)

	if enableDebug {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.Handle("/debug/pprof/goroutine", pprof.Handler("goroutine"))
		r.Handle("/debug/pprof/heap", pprof.Handler("heap"))
	}

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// scheduleSpec is the JSON description of one schedule. Base picks the
// numeric skeleton, fields overlay it, every renders a step interval.
type scheduleSpec struct {
	ID         string         `json:"id"`
	Base       string         `json:"base"` // each_minute|hourly|daily|weekly|monthly (default daily)
	Fields     map[string]any `json:"fields"`
	Every      *everySpec     `json:"every"`
	StartTime  *time.Time     `json:"start_time"`
	EndTime    *time.Time     `json:"end_time"`
	InsertTime *time.Time     `json:"insert_time"`
	Work       workSpec       `json:"work"`
}

type everySpec struct {
	Step int    `json:"step"`
	Unit string `json:"unit"`
}

type workSpec struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

var baseBuilders = map[string]func(...schedule.Option) (schedule.Schedule, error){
	"":            schedule.Daily,
	"daily":       schedule.Daily,
	"each_minute": schedule.EachMinute,
	"hourly":      schedule.Hourly,
	"weekly":      schedule.Weekly,
	"monthly":     schedule.Monthly,
}

func buildSchedule(spec scheduleSpec) (schedule.Schedule, error) {
	entries := make([]schedule.Entry, 0, len(spec.Fields))
	for name, v := range spec.Fields {
		f, err := schedule.ParseField(name)
		if err != nil {
			return schedule.Schedule{}, err
		}
		raw, err := rawValue(v)
		if err != nil {
			return schedule.Schedule{}, err
		}
		entries = append(entries, fieldEntry(f, raw))
	}

	var opts []schedule.Option
	if len(entries) > 0 {
		opts = append(opts, schedule.At(entries...))
	}
	if spec.StartTime != nil {
		opts = append(opts, schedule.From(*spec.StartTime))
	}
	if spec.EndTime != nil {
		opts = append(opts, schedule.Until(*spec.EndTime))
	}

	if spec.Every != nil {
		unit, err := schedule.ParseField(spec.Every.Unit)
		if err != nil {
			return schedule.Schedule{}, err
		}
		return schedule.Every(spec.Every.Step, unit, opts...)
	}
	base, ok := baseBuilders[spec.Base]
	if !ok {
		return schedule.Schedule{}, errors.New("unknown base " + strconv.Quote(spec.Base))
	}
	return base(opts...)
}

func fieldEntry(f schedule.Field, raw any) schedule.Entry {
	switch f {
	case schedule.FieldMinute:
		return schedule.Minute(raw)
	case schedule.FieldHour:
		return schedule.Hour(raw)
	case schedule.FieldDay:
		return schedule.Day(raw)
	case schedule.FieldMonth:
		return schedule.Month(raw)
	default:
		return schedule.DayOfWeek(raw)
	}
}

// rawValue maps JSON shapes onto builder raw values: numbers, names and
// arrays pass through; {"range":[lo,hi]} and {"step":n} become ranges and
// step intervals.
func rawValue(v any) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return v, nil
	}
	if r, ok := m["range"]; ok {
		arr, ok := r.([]any)
		if !ok || len(arr) != 2 {
			return nil, errors.New("range must be a two-element array")
		}
		return schedule.InRange(arr[0], arr[1]), nil
	}
	if st, ok := m["step"]; ok {
		n, ok := st.(float64)
		if !ok || n != float64(int(n)) {
			return nil, errors.New("step must be an integer")
		}
		return schedule.Interval(int(n)), nil
	}
	return nil, errors.New("object field values need a range or step key")
}

func (s *Server) itemFromSpec(spec scheduleSpec) (lifecycle.Item, error) {
	sched, err := buildSchedule(spec)
	if err != nil {
		return lifecycle.Item{}, err
	}
	h, ok := s.handlers[spec.Work.Type]
	if !ok {
		return lifecycle.Item{}, errors.New("unknown work type " + strconv.Quote(spec.Work.Type))
	}
	payload := spec.Work.Payload
	item := lifecycle.NewItem(sched, func(ctx context.Context) error {
		return h.Handle(ctx, payload)
	})
	if spec.ID != "" {
		item.ID = spec.ID
	}
	if spec.InsertTime != nil {
		item.InsertTime = *spec.InsertTime
	}
	return item, nil
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	var spec scheduleSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	item, err := s.itemFromSpec(spec)
	if err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	switch err := s.mgr.StartSchedule(item); {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"id": item.ID, "status": "started"})
	case errors.Is(err, lifecycle.ErrAlreadyExpired):
		writeJSON(w, http.StatusOK, map[string]string{"id": item.ID, "status": "skipped_expired"})
	default:
		http.Error(w, err.Error(), 400)
	}
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, s.mgr.Entries())
}

func (s *Server) deleteSchedule(w http.ResponseWriter, r *http.Request) {
	s.mgr.EndSchedule(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) refreshSchedules(w http.ResponseWriter, r *http.Request) {
	var specs []scheduleSpec
	if err := json.NewDecoder(r.Body).Decode(&specs); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}
	items := make([]lifecycle.Item, 0, len(specs))
	for _, spec := range specs {
		item, err := s.itemFromSpec(spec)
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		items = append(items, item)
	}
	writeJSON(w, 200, s.mgr.RefreshSchedules(items))
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.rec == nil {
		http.Error(w, "history disabled", 404)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	fires, err := s.rec.ListRecent(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	if fires == nil {
		fires = []history.Fire{}
	}
	writeJSON(w, 200, fires)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
