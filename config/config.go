package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendTable  = "table"
)

// Config holds the site configuration.
type Config struct {
	ListenAddr      string
	Debug           bool
	LogFormat       string
	ShutdownTimeout time.Duration
	Storage         StorageConfig
	Visitor         VisitorConfig
	Carousel        CarouselConfig
	Telemetry       TelemetryConfig
}

// StorageConfig selects where visitor data lives.
type StorageConfig struct {
	Backend               string
	RedisConnectionString string
	TableConnectionString string
	TasksTable            string
	CacheTTL              time.Duration
	TTL                   time.Duration
	DedupeTTL             time.Duration
}

// VisitorConfig controls the visitor cookie.
type VisitorConfig struct {
	Secret    string
	CookieTTL time.Duration
	Secure    bool
}

// CarouselConfig controls testimonial autoplay.
type CarouselConfig struct {
	Interval time.Duration
}

// TelemetryConfig controls trace export.
type TelemetryConfig struct {
	Endpoint    string
	ServiceName string
}

// Load reads configuration from the environment and, when SHOWCASE_CONFIG
// points at one, a config file. Environment values win over the file.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("DEBUG", false)
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("SHUTDOWN_TIMEOUT", "10s")
	v.SetDefault("STORAGE_BACKEND", BackendMemory)
	v.SetDefault("REDIS_CONNECTION_STRING", "")
	v.SetDefault("STORAGE_CONNECTION_STRING", "")
	v.SetDefault("TASKS_TABLE", "showcasetasks")
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("STORAGE_TTL", "0s")
	v.SetDefault("DEDUPE_TTL", "10m")
	v.SetDefault("VISITOR_SECRET", "")
	v.SetDefault("VISITOR_COOKIE_TTL", "8760h")
	v.SetDefault("VISITOR_COOKIE_SECURE", false)
	v.SetDefault("CAROUSEL_INTERVAL", "5s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "showcase-web")

	v.AutomaticEnv()

	if path := v.GetString("SHOWCASE_CONFIG"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	c := Config{
		ListenAddr: v.GetString("LISTEN_ADDR"),
		Debug:      v.GetBool("DEBUG"),
		LogFormat:  strings.ToLower(v.GetString("LOG_FORMAT")),
		Storage: StorageConfig{
			Backend:               strings.ToLower(v.GetString("STORAGE_BACKEND")),
			RedisConnectionString: v.GetString("REDIS_CONNECTION_STRING"),
			TableConnectionString: v.GetString("STORAGE_CONNECTION_STRING"),
			TasksTable:            v.GetString("TASKS_TABLE"),
		},
		Visitor: VisitorConfig{
			Secret: v.GetString("VISITOR_SECRET"),
			Secure: v.GetBool("VISITOR_COOKIE_SECURE"),
		},
		Telemetry: TelemetryConfig{
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
	}

	var err error
	if c.ShutdownTimeout, err = duration(v, "SHUTDOWN_TIMEOUT", false); err != nil {
		return Config{}, err
	}
	if c.Storage.CacheTTL, err = duration(v, "CACHE_TTL", true); err != nil {
		return Config{}, err
	}
	if c.Storage.TTL, err = duration(v, "STORAGE_TTL", true); err != nil {
		return Config{}, err
	}
	if c.Storage.DedupeTTL, err = duration(v, "DEDUPE_TTL", false); err != nil {
		return Config{}, err
	}
	if c.Visitor.CookieTTL, err = duration(v, "VISITOR_COOKIE_TTL", false); err != nil {
		return Config{}, err
	}
	if c.Carousel.Interval, err = duration(v, "CAROUSEL_INTERVAL", false); err != nil {
		return Config{}, err
	}

	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c Config) validate() error {
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q", c.LogFormat)
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Storage.RedisConnectionString == "" {
			return errors.New("missing redis config")
		}
	case BackendTable:
		if c.Storage.TableConnectionString == "" || c.Storage.TasksTable == "" {
			return errors.New("missing storage config")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q", c.Storage.Backend)
	}
	return nil
}

func duration(v *viper.Viper, key string, allowZero bool) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", key)
	}
	return d, nil
}
