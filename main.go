package main

import (
	"context"
	"crypto/rand"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"showcase-web/api"
	"showcase-web/config"
	"showcase-web/domain"
	"showcase-web/storage"
	"showcase-web/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
	logger := log.StandardLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}

	backend, rc, err := newBackend(cfg.Storage)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	secret := []byte(cfg.Visitor.Secret)
	if len(secret) == 0 {
		log.Warn("VISITOR_SECRET not set, visitors will be forgotten on restart")
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			log.Fatalf("visitor secret: %v", err)
		}
	}

	tasks := domain.NewTaskService(storage.NewTaskStore(backend))
	visitors := api.NewVisitors(secret, cfg.Visitor.CookieTTL, cfg.Visitor.Secure)
	hub := api.NewCarouselHub(domain.Testimonials, cfg.Carousel.Interval)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			entry := logger.WithFields(log.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"request_id": v.RequestID,
			})
			if v.Error != nil {
				entry.WithError(v.Error).Error("request failed")
				return nil
			}
			entry.Debug("request")
			return nil
		},
	}))

	if err := api.Register(e, tasks, visitors, hub, newDeduper(cfg.Storage, rc), logger); err != nil {
		log.Fatalf("register routes: %v", err)
	}

	go func() {
		log.WithFields(log.Fields{"addr": cfg.ListenAddr, "backend": cfg.Storage.Backend}).Info("showcase listening")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.WithError(err).Error("tracer shutdown")
	}
	if rc != nil {
		if err := rc.Close(); err != nil {
			log.WithError(err).Error("redis close")
		}
	}
}

// newBackend builds the configured visitor storage. The returned redis client
// is nil unless one was opened.
func newBackend(cfg config.StorageConfig) (storage.Backend, *redis.Client, error) {
	var rc *redis.Client
	if cfg.RedisConnectionString != "" && cfg.Backend != config.BackendMemory {
		opts, err := storage.ParseRedisConnection(cfg.RedisConnectionString)
		if err != nil {
			return nil, nil, err
		}
		rc = redis.NewClient(opts)
	}

	switch cfg.Backend {
	case config.BackendRedis:
		return storage.NewRedis(rc, cfg.TTL), rc, nil
	case config.BackendTable:
		table, err := storage.NewTable(cfg.TableConnectionString, cfg.TasksTable)
		if err != nil {
			return nil, rc, err
		}
		if rc == nil {
			return table, nil, nil
		}
		return storage.NewCache(table, rc, cfg.CacheTTL), rc, nil
	default:
		return storage.NewMemory(), nil, nil
	}
}

// newDeduper shares redis with the backend when one is open so every instance
// sees the same submit keys.
func newDeduper(cfg config.StorageConfig, rc *redis.Client) api.Deduper {
	if rc != nil {
		return storage.NewRedisDeduper(rc, cfg.DedupeTTL)
	}
	return storage.NewMemoryDeduper(cfg.DedupeTTL)
}
