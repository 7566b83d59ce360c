package main

import (
	"context"

	log "github.com/sirupsen/logrus"

	"showcase-web/config"
	"showcase-web/storage"
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
	log.Info("storage init starting")

	if cfg.Storage.TableConnectionString == "" {
		log.Fatal("missing STORAGE_CONNECTION_STRING")
	}
	if err := storage.EnsureTables(context.Background(), cfg.Storage.TableConnectionString, cfg.Storage.TasksTable); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	log.Info("storage init complete")
}
