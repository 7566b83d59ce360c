// Command sse-load holds many carousel autoplay streams open and counts the
// slide events they receive.
package main

import (
	"bufio"
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type loadConfig struct {
	streamURL   string
	connections int
	duration    time.Duration
	firstEvent  time.Duration
	maxFailRate float64
	backoff     time.Duration
}

func loadConfigFromEnv() (loadConfig, error) {
	v := viper.New()
	v.SetDefault("STREAM_URL", "http://localhost:8080/api/carousel/stream")
	v.SetDefault("SSE_CONNECTIONS", 200)
	v.SetDefault("DURATION", "2m")
	v.SetDefault("FIRST_EVENT_TIMEOUT", "1m")
	v.SetDefault("MAX_FAILURE_RATE", 0.01)
	v.SetDefault("RECONNECT_BACKOFF", "1s")
	v.AutomaticEnv()

	cfg := loadConfig{
		streamURL:   v.GetString("STREAM_URL"),
		connections: v.GetInt("SSE_CONNECTIONS"),
		duration:    v.GetDuration("DURATION"),
		firstEvent:  v.GetDuration("FIRST_EVENT_TIMEOUT"),
		maxFailRate: v.GetFloat64("MAX_FAILURE_RATE"),
		backoff:     v.GetDuration("RECONNECT_BACKOFF"),
	}
	if cfg.connections <= 0 || cfg.duration <= 0 || cfg.firstEvent <= 0 || cfg.backoff <= 0 {
		return loadConfig{}, errors.New("SSE_CONNECTIONS, DURATION, FIRST_EVENT_TIMEOUT and RECONNECT_BACKOFF must be positive")
	}
	return cfg, nil
}

type counters struct {
	slides   atomic.Uint64
	attempts atomic.Uint64
	failures atomic.Uint64
}

type loadResult struct {
	Slides   uint64
	Attempts uint64
	Failures uint64
}

func (r loadResult) failRate() float64 {
	if r.Attempts == 0 {
		return 0
	}
	return float64(r.Failures) / float64(r.Attempts)
}

// ok reports whether the run received slides and stayed under the failure budget.
func (r loadResult) ok(maxFailRate float64) bool {
	return r.Slides > 0 && r.failRate() <= maxFailRate
}

func main() {
	cfg, err := loadConfigFromEnv()
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.duration)
	defer cancel()

	var stats counters
	go func() {
		select {
		case <-time.After(cfg.firstEvent):
			if stats.slides.Load() == 0 {
				log.Errorf("no slide events received in %v", cfg.firstEvent)
				os.Exit(1)
			}
		case <-ctx.Done():
		}
	}()

	res := runLoad(ctx, &http.Client{}, cfg, &stats)
	log.WithFields(log.Fields{
		"connections":         cfg.connections,
		"duration_sec":        int(cfg.duration.Seconds()),
		"slides_received":     res.Slides,
		"connection_attempts": res.Attempts,
		"connection_failures": res.Failures,
	}).Info("sse load finished")
	if !res.ok(cfg.maxFailRate) {
		os.Exit(1)
	}
}

// runLoad opens cfg.connections streams and holds them until ctx ends.
func runLoad(ctx context.Context, client *http.Client, cfg loadConfig, stats *counters) loadResult {
	var wg sync.WaitGroup
	wg.Add(cfg.connections)
	for range cfg.connections {
		go func() {
			defer wg.Done()
			holdStream(ctx, client, cfg.streamURL, cfg.backoff, stats)
		}()
	}
	wg.Wait()
	return loadResult{
		Slides:   stats.slides.Load(),
		Attempts: stats.attempts.Load(),
		Failures: stats.failures.Load(),
	}
}

// holdStream keeps one stream open until ctx ends, reconnecting with backoff.
func holdStream(ctx context.Context, client *http.Client, url string, initial time.Duration, stats *counters) {
	backoff := initial
	fail := func() {
		stats.failures.Add(1)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
		backoff = min(backoff*2, 5*initial)
	}
	for ctx.Err() == nil {
		stats.attempts.Add(1)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			fail()
			continue
		}
		resp, err := client.Do(req)
		if err != nil || resp.StatusCode != http.StatusOK {
			if resp != nil {
				resp.Body.Close()
			}
			if ctx.Err() == nil {
				fail()
			}
			continue
		}
		backoff = initial
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if strings.TrimSpace(scanner.Text()) == "event: slide" {
				stats.slides.Add(1)
			}
		}
		resp.Body.Close()
		if ctx.Err() == nil {
			fail()
		}
	}
}
