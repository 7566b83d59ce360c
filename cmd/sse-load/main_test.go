package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func slideServer(t *testing.T, slides int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "event: session\ndata: {\"id\":\"s\"}\n\n")
		for i := 0; i < slides; i++ {
			fmt.Fprintf(w, "event: slide\ndata: {\"index\":%d}\n\n", i)
		}
		flusher.Flush()
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRunLoadCountsSlides(t *testing.T) {
	srv := slideServer(t, 2)
	cfg := loadConfig{streamURL: srv.URL, connections: 3, backoff: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	res := runLoad(ctx, srv.Client(), cfg, &counters{})

	if res.Slides != 6 {
		t.Fatalf("expected 6 slides, got %d", res.Slides)
	}
	if res.Attempts != 3 || res.Failures != 0 {
		t.Fatalf("expected one clean connection each, got %+v", res)
	}
	if !res.ok(0) {
		t.Fatalf("expected run to pass, got %+v", res)
	}
}

func TestRunLoadRetriesFailedStreams(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	cfg := loadConfig{streamURL: srv.URL, connections: 1, backoff: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	res := runLoad(ctx, srv.Client(), cfg, &counters{})

	if res.Slides != 0 || res.Failures < 2 || hits.Load() < 2 {
		t.Fatalf("expected repeated failed attempts, got %+v (hits=%d)", res, hits.Load())
	}
	if res.ok(1) {
		t.Fatalf("a run without slides must fail")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("SSE_CONNECTIONS", "5")
	t.Setenv("DURATION", "30s")
	cfg, err := loadConfigFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.connections != 5 || cfg.duration != 30*time.Second || cfg.backoff != time.Second {
		t.Fatalf("unexpected config: %+v", cfg)
	}

	t.Setenv("SSE_CONNECTIONS", "0")
	if _, err := loadConfigFromEnv(); err == nil {
		t.Fatalf("expected an error for zero connections")
	}
}
