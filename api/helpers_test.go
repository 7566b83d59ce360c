package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"showcase-web/domain"
	"showcase-web/storage"
)

type testSite struct {
	e       *echo.Echo
	backend *storage.Memory
	hook    *test.Hook
	hub     *CarouselHub
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	return newTestSiteWithInterval(t, time.Hour)
}

func newTestSiteWithInterval(t *testing.T, interval time.Duration) *testSite {
	t.Helper()

	logger, hook := test.NewNullLogger()
	backend := storage.NewMemory()
	svc := domain.NewTaskService(storage.NewTaskStore(backend))
	hub := NewCarouselHub(domain.Testimonials, interval)

	e := echo.New()
	dedupe := storage.NewMemoryDeduper(time.Hour)
	if err := Register(e, svc, NewVisitors([]byte("test-secret"), time.Hour, false), hub, dedupe, logger); err != nil {
		t.Fatalf("register: %v", err)
	}
	return &testSite{e: e, backend: backend, hook: hook, hub: hub}
}

// do sends a request through the router, replaying cookies when given.
func (s *testSite) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		if strings.HasPrefix(body, "{") {
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		} else {
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		}
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func visitorCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == visitorCookieName {
			return c
		}
	}
	t.Fatalf("expected %s cookie, got %v", visitorCookieName, rec.Header().Values("Set-Cookie"))
	return nil
}
