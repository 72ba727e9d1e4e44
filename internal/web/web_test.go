package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journeycal/internal/config"
	"journeycal/internal/extract"
	"journeycal/internal/model"
	"journeycal/internal/planner"
	"journeycal/internal/store"
	"journeycal/internal/timeline"
)

type stubLLM struct{ err error }

func (s stubLLM) Generate(context.Context, string) (string, error) { return "", s.err }

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	t       *testing.T
	handler http.Handler
	store   *store.Store
	planner *planner.Planner
}

func newTestEnv(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	p := planner.New(st, planner.NewInbox(), cfg.RecurrenceDefaultMonths)
	srv := NewServer(cfg, Deps{
		Store:     st,
		Planner:   p,
		Extractor: extract.NewExtractor(stubLLM{err: errors.New("upstream down")}),
		Location:  time.UTC,
		Now:       func() time.Time { return fixedNow },
	})
	return &testEnv{t: t, handler: srv.Handler(), store: st, planner: p}
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestBasicAuth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BasicAuth = &config.BasicAuthConfig{Username: "me", Password: "secret"}
	env := newTestEnv(t, cfg)

	rec := env.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec = env.do(http.MethodGet, "/api/goals", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))

	req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)
	req.SetBasicAuth("me", "secret")
	ok := httptest.NewRecorder()
	env.handler.ServeHTTP(ok, req)
	assert.Equal(t, http.StatusOK, ok.Code)
}

func TestGoalsLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(http.MethodPost, "/api/goals", map[string]any{
		"title": "Run a 10k",
		"tasks": []map[string]any{
			{"title": "Easy run", "date": "2024-03-10", "start_time": "07:00", "end_time": "07:45"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	goal := decode[model.GoalWithTasks](t, rec)
	require.Len(t, goal.Tasks, 1)
	assert.Equal(t, model.TypeTask, goal.Tasks[0].Type)

	rec = env.do(http.MethodPost, "/api/goals/"+goal.ID+"/tasks", map[string]any{
		"title": "Long run", "type": "goal", "date": "2024-03-10", "start_time": "17:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPatch, "/api/goals/"+goal.ID, map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[model.GoalWithTasks](t, rec).CompletedAt)

	rec = env.do(http.MethodGet, "/api/goals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]model.GoalWithTasks](t, rec)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Tasks, 2)

	rec = env.do(http.MethodDelete, "/api/goals/"+goal.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(http.MethodGet, "/api/tasks?date=2024-03-10", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Task](t, rec), "tasks go with their goal")

	rec = env.do(http.MethodGet, "/api/goals/"+goal.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = env.do(http.MethodPost, "/api/goals/"+goal.ID+"/tasks", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateGoal_Validation(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/goals", map[string]any{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "title is required")

	rec = env.do(http.MethodPost, "/api/goals", map[string]any{"title": "x", "bogus": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimeline(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, b := range []map[string]any{
		{"title": "Lunch", "type": "eat", "date": "2024-03-10", "start_time": "12:30"},
		{"title": "Breakfast", "type": "eat", "date": "2024-03-10", "start_time": "08:00", "end_time": "08:30"},
		{"title": "Tomorrow", "date": "2024-03-11", "start_time": "09:00"},
	} {
		require.Equal(t, http.StatusCreated, env.do(http.MethodPost, "/api/tasks", b).Code)
	}

	rec := env.do(http.MethodGet, "/api/timeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[timelineResponse](t, rec)
	assert.Equal(t, "2024-03-10", resp.Date)
	assert.InDelta(t, 50.0, resp.Road.Now, 1e-9)
	assert.Equal(t, timeline.ClockTime{Hour: 12}, resp.Road.NowTime)
	require.Len(t, resp.Road.Stops, 2)
	assert.Equal(t, "Breakfast", resp.Road.Stops[0].Task.Title)
	assert.True(t, resp.Road.Stops[0].Passed)
	assert.Equal(t, 0, resp.Road.Current)
	assert.Equal(t, 1, resp.Road.Next)
	assert.Len(t, resp.Road.Markers, 12)

	rec = env.do(http.MethodGet, "/api/timeline?date=03/10/2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDeleteTask(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/tasks", map[string]any{"title": "Stretch", "type": "selfcare", "date": "2024-03-10"})
	require.Equal(t, http.StatusCreated, rec.Code)
	task := decode[model.Task](t, rec)

	rec = env.do(http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"completed": true, "notes": "10 min"})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.Task](t, rec)
	assert.True(t, got.Completed)
	assert.Equal(t, "10 min", *got.Notes)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{}).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/tasks/"+task.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/tasks/"+task.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPatch, "/api/tasks/"+task.ID, map[string]any{"completed": false}).Code)
}

const uploadICS = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:yoga@test\r\nSUMMARY:Yoga\r\nLOCATION:Studio\r\nDTSTART:20240311T180000Z\r\nDTEND:20240311T190000Z\r\nRRULE:FREQ=WEEKLY;UNTIL=20240325T180000Z\r\nEND:VEVENT\r\n" +
	"BEGIN:VEVENT\r\nSUMMARY:No start\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func (e *testEnv) upload(name, contentType, content string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+name+`"`)
	h.Set("Content-Type", contentType)
	fw, err := mw.CreatePart(h)
	require.NoError(e.t, err)
	_, _ = fw.Write([]byte(content))
	require.NoError(e.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/import/ics", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestImportICSAndAccept(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.upload("cal.ics", "text/calendar", uploadICS)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	imported := decode[importResponse](t, rec)
	require.Len(t, imported.Drafts, 1)
	require.Len(t, imported.Errors, 1)
	assert.Contains(t, imported.Errors[0], "has no start date")
	draft := imported.Drafts[0]
	assert.Equal(t, model.Weekly, draft.Frequency)

	rec = env.do(http.MethodGet, "/api/drafts", nil)
	require.Len(t, decode[[]model.Draft](t, rec), 1)

	rec = env.do(http.MethodPost, "/api/drafts/"+draft.ID+"/accept", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	accepted := decode[acceptResponse](t, rec)
	require.Len(t, accepted.Tasks, 3)
	assert.Empty(t, accepted.Error)

	for _, date := range []string{"2024-03-11", "2024-03-18", "2024-03-25"} {
		tasks, err := env.store.ListTasksForDate(context.Background(), date)
		require.NoError(t, err)
		require.Len(t, tasks, 1, date)
		assert.Equal(t, "Location: Studio", *tasks[0].Notes)
		assert.Equal(t, model.TypeEvent, tasks[0].Type)
	}

	rec = env.do(http.MethodPost, "/api/drafts/"+draft.ID+"/accept", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = env.do(http.MethodGet, "/api/drafts", nil)
	assert.Empty(t, decode[[]model.Draft](t, rec))

	rec = env.upload("cal.ics", "text/calendar", uploadICS)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[importResponse](t, rec).Drafts, "same file proposes nothing new")
}

func TestImportICS_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.upload("cal.txt", "text/plain", uploadICS)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File must have .ics extension", decode[map[string]string](t, rec)["error"])

	rec = env.upload("cal.ics", "application/pdf", uploadICS)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.upload("cal.ics", "text/calendar", "garbage")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/import/ics", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	plain := httptest.NewRecorder()
	env.handler.ServeHTTP(plain, req)
	assert.Equal(t, http.StatusBadRequest, plain.Code)
}

func TestAccept_InvalidRangeAndReject(t *testing.T) {
	env := newTestEnv(t, nil)
	env.planner.Inbox().Propose(model.Draft{
		ID: "d1", Title: "Daily walk", StartDate: "2024-03-10", Type: model.TypeTask,
		IsRecurring: true, Frequency: model.Daily, RecurrenceEndDate: "2024-03-12",
	})

	rec := env.do(http.MethodPost, "/api/drafts/d1/accept", map[string]any{
		"override": map[string]any{"recurrence_end_date": "2024-03-01"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodPost, "/api/drafts/d1/reject", nil).Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/drafts/d1/reject", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/drafts/nope/accept", nil).Code)
}

func TestAccept_BadInputIsClientError(t *testing.T) {
	env := newTestEnv(t, nil)
	env.planner.Inbox().Propose(model.Draft{
		ID: "d1", Title: "Walk", StartDate: "2024-03-10", StartTime: "25:99", Type: model.TypeTask,
	})

	rec := env.do(http.MethodPost, "/api/drafts/d1/accept", map[string]any{
		"override": map[string]any{"start_date": "2024-13-45"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "2024-13-45")

	for range 2 {
		rec = env.do(http.MethodPost, "/api/drafts/d1/accept", map[string]any{"create_goal": true})
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	}
	rec = env.do(http.MethodGet, "/api/goals", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]model.Goal](t, rec), "failed accepts leave no empty goal")

	rec = env.do(http.MethodPost, "/api/drafts/d1/accept", map[string]any{
		"override":    map[string]any{"start_time": "07:00"},
		"create_goal": true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = env.do(http.MethodGet, "/api/goals", nil)
	assert.Len(t, decode[[]model.Goal](t, rec), 1)
}

func TestCreateTask_UnknownGoal(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/tasks", map[string]any{
		"title": "Walk", "type": "task", "date": "2024-03-10", "goal_id": "missing",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Contains(t, decode[map[string]string](t, rec)["error"], "goal missing does not exist")
}

func TestImportText_Fallback(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(http.MethodPost, "/api/import/text", map[string]any{"text": "Gym workout tomorrow at 6pm"})
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[importResponse](t, rec)
	require.Len(t, resp.Drafts, 1)
	assert.Equal(t, "2024-03-11", resp.Drafts[0].StartDate)
	assert.Equal(t, "18:00", resp.Drafts[0].StartTime)
	require.Len(t, resp.Errors, 1)

	rec = env.do(http.MethodPost, "/api/drafts/"+resp.Drafts[0].ID+"/accept", map[string]any{"create_goal": true})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	accepted := decode[acceptResponse](t, rec)
	require.NotNil(t, accepted.Goal)
	assert.Equal(t, "General", accepted.Goal.Title)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/import/text", map[string]any{"text": " "}).Code)
}

func TestRefresh_NotConfigured(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodPost, "/api/subscriptions/refresh", nil).Code)
}

func TestPreferences(t *testing.T) {
	env := newTestEnv(t, nil)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/preferences", nil).Code)

	rec := env.do(http.MethodPut, "/api/preferences", map[string]any{"preferences_text": "mornings are for deep work"})
	require.Equal(t, http.StatusOK, rec.Code)
	first := decode[model.Preferences](t, rec)

	rec = env.do(http.MethodPut, "/api/preferences", map[string]any{"preferences_text": "no meetings on friday"})
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[model.Preferences](t, rec)
	assert.Equal(t, first.ID, second.ID)

	rec = env.do(http.MethodGet, "/api/preferences", nil)
	assert.Equal(t, "no meetings on friday", decode[model.Preferences](t, rec).Text)

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/preferences", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/preferences", nil).Code)
}
