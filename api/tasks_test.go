package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"showcase-web/domain"
	"showcase-web/storage"
)

func createViaAPI(t *testing.T, site *testSite, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, domain.Task) {
	t.Helper()
	rec := site.do(http.MethodPost, "/api/tasks", body, cookies...)
	var task domain.Task
	if rec.Code == http.StatusCreated {
		if err := sonic.Unmarshal(rec.Body.Bytes(), &task); err != nil {
			t.Fatalf("decode task: %v", err)
		}
	}
	return rec, task
}

func TestTasksAPICreateAndList(t *testing.T) {
	site := newTestSite(t)

	rec, task := createViaAPI(t, site, `{"text":" Write docs ","priority":"low"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	cookie := visitorCookie(t, rec)
	if task.Text != " Write docs " || task.Priority != domain.PriorityLow || task.Assignee != "Me" || task.Completed {
		t.Fatalf("unexpected task: %+v", task)
	}

	_, other := createViaAPI(t, site, `{"text":"Review","priority":"high","assignee":"Sam"}`, cookie)

	resp := listViaAPI(t, site, cookie, "")
	if len(resp.Tasks) != 2 || resp.Tasks[0].ID != task.ID || resp.Tasks[1].ID != other.ID {
		t.Fatalf("expected tasks appended in order, got %+v", resp.Tasks)
	}
	if resp.Counts != (domain.TaskCounts{Total: 2, Active: 2}) {
		t.Fatalf("unexpected counts: %+v", resp.Counts)
	}
}

func TestTasksAPICreateRejectsBadInput(t *testing.T) {
	site := newTestSite(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty text", body: `{"text":"   "}`},
		{name: "malformed", body: `{"text":`},
		{name: "unknown field", body: `{"text":"x","due":"tomorrow"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := createViaAPI(t, site, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
			cookie := visitorCookie(t, rec)
			if resp := listViaAPI(t, site, cookie, ""); len(resp.Tasks) != 0 {
				t.Fatalf("expected list unchanged, got %+v", resp.Tasks)
			}
		})
	}
}

func TestTasksAPIToggleFlipsOnlyTarget(t *testing.T) {
	site := newTestSite(t)

	rec, a := createViaAPI(t, site, `{"text":"a"}`)
	cookie := visitorCookie(t, rec)
	_, b := createViaAPI(t, site, `{"text":"b"}`, cookie)

	rec = site.do(http.MethodPost, fmt.Sprintf("/api/tasks/%d/toggle", a.ID), "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var toggled domain.Task
	if err := sonic.Unmarshal(rec.Body.Bytes(), &toggled); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	if toggled.ID != a.ID || !toggled.Completed {
		t.Fatalf("unexpected toggled task: %+v", toggled)
	}

	completed := listViaAPI(t, site, cookie, "completed")
	if len(completed.Tasks) != 1 || completed.Tasks[0].ID != a.ID {
		t.Fatalf("expected only a completed, got %+v", completed.Tasks)
	}
	active := listViaAPI(t, site, cookie, "active")
	if len(active.Tasks) != 1 || active.Tasks[0].ID != b.ID {
		t.Fatalf("expected only b active, got %+v", active.Tasks)
	}

	if rec := site.do(http.MethodPost, "/api/tasks/1/toggle", "", cookie); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown task, got %d", rec.Code)
	}
	if rec := site.do(http.MethodPost, "/api/tasks/nope/toggle", "", cookie); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestTasksAPIDeleteAndClearCompleted(t *testing.T) {
	site := newTestSite(t)

	rec, a := createViaAPI(t, site, `{"text":"a"}`)
	cookie := visitorCookie(t, rec)
	_, b := createViaAPI(t, site, `{"text":"b"}`, cookie)
	_, c := createViaAPI(t, site, `{"text":"c"}`, cookie)

	if rec := site.do(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", a.ID), "", cookie); rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec := site.do(http.MethodDelete, fmt.Sprintf("/api/tasks/%d", a.ID), "", cookie); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}

	site.do(http.MethodPost, fmt.Sprintf("/api/tasks/%d/toggle", b.ID), "", cookie)

	if rec := site.do(http.MethodDelete, "/api/tasks?completed=false", "", cookie); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for completed=false, got %d", rec.Code)
	}
	rec = site.do(http.MethodDelete, "/api/tasks?completed=true", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"removed":1`) {
		t.Fatalf("expected one removed task, got %s", rec.Body.String())
	}

	resp := listViaAPI(t, site, cookie, "")
	if len(resp.Tasks) != 1 || resp.Tasks[0].ID != c.ID {
		t.Fatalf("expected only c to remain, got %+v", resp.Tasks)
	}
}

func TestTasksAPIClearAll(t *testing.T) {
	site := newTestSite(t)

	rec, _ := createViaAPI(t, site, `{"text":"a"}`)
	cookie := visitorCookie(t, rec)
	_, b := createViaAPI(t, site, `{"text":"b"}`, cookie)
	site.do(http.MethodPost, fmt.Sprintf("/api/tasks/%d/toggle", b.ID), "", cookie)

	rec = site.do(http.MethodDelete, "/api/tasks", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"removed":2`) {
		t.Fatalf("expected both tasks removed, got %s", rec.Body.String())
	}
	if resp := listViaAPI(t, site, cookie, ""); len(resp.Tasks) != 0 || resp.Counts != (domain.TaskCounts{}) {
		t.Fatalf("expected an empty list, got %+v", resp)
	}
	id, err := NewVisitors([]byte("test-secret"), 0, false).Verify(cookie.Value)
	if err != nil {
		t.Fatalf("verify cookie: %v", err)
	}
	stored, err := site.backend.Get(context.Background(), id, storage.TasksKey)
	if err != nil || string(stored) != "[]" {
		t.Fatalf("expected an empty list to be persisted, got %q (%v)", stored, err)
	}
}

func TestTasksAPIMalformedStorageLoadsEmpty(t *testing.T) {
	site := newTestSite(t)

	rec := site.do(http.MethodGet, "/api/tasks", "")
	cookie := visitorCookie(t, rec)
	id, err := NewVisitors([]byte("test-secret"), 0, false).Verify(cookie.Value)
	if err != nil {
		t.Fatalf("verify cookie: %v", err)
	}
	if err := site.backend.Set(context.Background(), id, storage.TasksKey, []byte("{not json")); err != nil {
		t.Fatalf("seed storage: %v", err)
	}

	resp := listViaAPI(t, site, cookie, "")
	if len(resp.Tasks) != 0 || resp.Counts.Total != 0 {
		t.Fatalf("expected empty list for malformed data, got %+v", resp)
	}
}

type failingTaskService struct{}

var errStorageDown = errors.New("storage down")

func (failingTaskService) List(context.Context, string, domain.Filter) ([]domain.Task, domain.TaskCounts, error) {
	return nil, domain.TaskCounts{}, errStorageDown
}

func (failingTaskService) Add(context.Context, string, string, domain.Priority, string) (domain.Task, error) {
	return domain.Task{}, errStorageDown
}

func (failingTaskService) Toggle(context.Context, string, int64) (domain.Task, error) {
	return domain.Task{}, errStorageDown
}

func (failingTaskService) Remove(context.Context, string, int64) error { return errStorageDown }

func (failingTaskService) ClearCompleted(context.Context, string) (int, error) {
	return 0, errStorageDown
}

func (failingTaskService) ClearAll(context.Context, string) (int, error) {
	return 0, errStorageDown
}

func TestTasksAPIStorageFailureReturns500(t *testing.T) {
	logger, hook := test.NewNullLogger()
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(visitorContextKey, "visitor")

	err := listTasks(failingTaskService{}, logger)(c)
	if !errors.Is(err, errStorageDown) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Data["severity_text"] != "ERROR" {
		t.Fatalf("expected error observability event, got %#v", entry)
	}
	attrs, _ := entry.Data["attributes"].(map[string]any)
	if attrs["showcase.tasks.error_stage"] != "storage" {
		t.Fatalf("expected storage error stage, got %#v", attrs)
	}
}

func TestTasksAPIIdempotencyKey(t *testing.T) {
	site := newTestSite(t)

	rec := site.do(http.MethodGet, "/api/tasks", "")
	cookie := visitorCookie(t, rec)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(idempotencyKeyHeader, "key-1")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		site.e.ServeHTTP(rec, req)
		return rec
	}

	if rec := send(`{"text":"  "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if rec := send(`{"text":"once"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected a rejected submit to release the key, got %d", rec.Code)
	}
	if rec := send(`{"text":"once"}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for a repeated key, got %d", rec.Code)
	}
	if resp := listViaAPI(t, site, cookie, ""); len(resp.Tasks) != 1 {
		t.Fatalf("expected one task, got %+v", resp.Tasks)
	}
}
