package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timely/internal/lifecycle"
	"timely/internal/trigger"
	"timely/internal/work"
)

type stubEngine struct {
	next trigger.Handle
}

func (e *stubEngine) Register(string, func()) (trigger.Handle, error) {
	e.next++
	return e.next, nil
}

func (e *stubEngine) Deregister(trigger.Handle) {}

type noopHandler struct{}

func (noopHandler) Handle(context.Context, json.RawMessage) error { return nil }

func newTestServer(t *testing.T) (http.Handler, *lifecycle.Manager) {
	t.Helper()
	mgr := lifecycle.NewManager(&stubEngine{}, lifecycle.WithLogger(zerolog.Nop()))
	handlers := work.Registry{"noop": noopHandler{}}
	return NewServer(mgr, nil, handlers), mgr
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, 200, w.Code)
}

func TestCreateAndListSchedule(t *testing.T) {
	t.Parallel()
	h, mgr := newTestServer(t)

	w := doJSON(t, h, http.MethodPost, "/api/schedules", `{
		"id": "report",
		"base": "daily",
		"fields": {"hour": 9, "minute": 20},
		"work": {"type": "noop"}
	}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "report", resp["id"])
	assert.Equal(t, "started", resp["status"])

	entries := mgr.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "20 9 * * *", entries[0].Expr)

	w = doJSON(t, h, http.MethodGet, "/api/schedules", "")
	require.Equal(t, 200, w.Code)
	var listed []lifecycle.EntryInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "report", listed[0].ID)
}

func TestCreateScheduleVariants(t *testing.T) {
	t.Parallel()
	h, mgr := newTestServer(t)

	tests := []struct {
		name string
		body string
		expr string
	}{
		{
			"every two minutes",
			`{"id":"e1","every":{"step":2,"unit":"minutes"},"work":{"type":"noop"}}`,
			"*/2 * * * *",
		},
		{
			"month name and range",
			`{"id":"e2","base":"hourly","fields":{"day_of_week":"mon","month":{"range":["apr","sep"]}},"work":{"type":"noop"}}`,
			"0 * * 4-9 1",
		},
		{
			"weekday list",
			`{"id":"e3","fields":{"hour":9,"minute":20,"day_of_week":["mon","wed"]},"work":{"type":"noop"}}`,
			"20 9 * * 1,3",
		},
		{
			"step object",
			`{"id":"e4","base":"each_minute","fields":{"hour":{"step":3}},"work":{"type":"noop"}}`,
			"* */3 * * *",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, "/api/schedules", tt.body)
			require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		})
	}

	byID := map[string]string{}
	for _, e := range mgr.Entries() {
		byID[e.ID] = e.Expr
	}
	assert.Equal(t, "*/2 * * * *", byID["e1"])
	assert.Equal(t, "0 * * 4-9 1", byID["e2"])
	assert.Equal(t, "20 9 * * 1,3", byID["e3"])
	assert.Equal(t, "* */3 * * *", byID["e4"])
}

func TestCreateScheduleRejectsBadInput(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t)

	for name, body := range map[string]string{
		"bad field value": `{"fields":{"minute":60},"work":{"type":"noop"}}`,
		"bad field name":  `{"fields":{"fortnight":1},"work":{"type":"noop"}}`,
		"unknown base":    `{"base":"biweekly","work":{"type":"noop"}}`,
		"unknown work":    `{"work":{"type":"teleport"}}`,
		"bad json":        `{`,
	} {
		w := doJSON(t, h, http.MethodPost, "/api/schedules", body)
		assert.Equal(t, 400, w.Code, name)
	}
}

func TestCreateExpiredScheduleReportsSkip(t *testing.T) {
	t.Parallel()
	h, mgr := newTestServer(t)

	past := time.Now().Add(-time.Hour).UTC().Format(time.RFC3339)
	w := doJSON(t, h, http.MethodPost, "/api/schedules",
		`{"id":"old","end_time":"`+past+`","work":{"type":"noop"}}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "skipped_expired", resp["status"])
	assert.Empty(t, mgr.Entries())
}

func TestDeleteSchedule(t *testing.T) {
	t.Parallel()
	h, mgr := newTestServer(t)

	doJSON(t, h, http.MethodPost, "/api/schedules", `{"id":"x","work":{"type":"noop"}}`)
	require.Len(t, mgr.Entries(), 1)

	w := doJSON(t, h, http.MethodDelete, "/api/schedules/x", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, mgr.Entries())

	// deleting again is a no-op
	w = doJSON(t, h, http.MethodDelete, "/api/schedules/x", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRefreshSchedules(t *testing.T) {
	t.Parallel()
	h, mgr := newTestServer(t)

	insert := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)
	batch := `[
		{"id":"a","insert_time":"` + insert + `","work":{"type":"noop"}},
		{"id":"b","insert_time":"` + insert + `","work":{"type":"noop"}}
	]`

	w := doJSON(t, h, http.MethodPost, "/api/schedules/refresh", batch)
	require.Equal(t, 200, w.Code)
	var rep lifecycle.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, 2, rep.Started)

	// same batch again: nothing churns
	w = doJSON(t, h, http.MethodPost, "/api/schedules/refresh", batch)
	require.Equal(t, 200, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.Equal(t, 2, rep.Unchanged)
	assert.Zero(t, rep.Started)

	assert.Len(t, mgr.Entries(), 2)
}

func TestHistoryDisabled(t *testing.T) {
	t.Parallel()
	h, _ := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/history", "")
	assert.Equal(t, 404, w.Code)
}
