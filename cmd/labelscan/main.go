package main

import (
	"context"
	"database/sql"
	"log"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/joho/godotenv"

	"labelscan/internal/backends"
	"labelscan/internal/cache"
	"labelscan/internal/config"
	"labelscan/internal/handle"
	"labelscan/internal/httpserver"
	"labelscan/internal/store"
	"labelscan/internal/workflow"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	registry := backends.Build(cfg)

	var c workflow.Cache
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		c = rc
	} else {
		c = cache.NewMemory(cfg.CacheTTL)
	}

	var repo *store.WorkflowRepo
	var journal workflow.Log
	if cfg.DatabaseDSN != "" {
		db, err := sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("sql.Open: %v", err)
		}
		repo = store.NewWorkflowRepo(db)
		journal = repo
	}

	orch := workflow.NewOrchestrator(
		&workflow.Recognizer{Registry: registry, Timeout: cfg.RecognizeTimeout, RetryTimeout: cfg.RetryTimeout},
		&workflow.Reviewer{Registry: registry, Timeout: cfg.ReviewTimeout},
		c, journal,
	)

	h := handle.New(orch, registry, cfg.DefaultModel, cfg.DefaultReviewModel)
	if repo != nil {
		h.History = repo
		if cfg.RetentionAge > 0 {
			go purgeLoop(repo, cfg.RetentionAge)
		}
	}
	mux := httpserver.NewMux(h)

	log.Fatal(httpserver.Start(":"+cfg.Port, mux))
}

func purgeLoop(repo *store.WorkflowRepo, maxAge time.Duration) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for range t.C {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		n, err := repo.PurgeOlderThan(ctx, maxAge)
		cancel()
		if err != nil {
			log.Printf("retention purge failed: %v", err)
		} else if n > 0 {
			log.Printf("retention purge removed %d rows", n)
		}
	}
}
