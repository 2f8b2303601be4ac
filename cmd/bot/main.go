package main

import (
	"database/sql"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/joho/godotenv"

	"labelscan/internal/backends"
	"labelscan/internal/cache"
	"labelscan/internal/config"
	"labelscan/internal/store"
	"labelscan/internal/telegram"
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

	var journal workflow.Log
	if cfg.DatabaseDSN != "" {
		db, err := sql.Open("pgx", cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("sql.Open: %v", err)
		}
		journal = store.NewWorkflowRepo(db)
	}

	orch := workflow.NewOrchestrator(
		&workflow.Recognizer{Registry: registry, Timeout: cfg.RecognizeTimeout, RetryTimeout: cfg.RetryTimeout},
		&workflow.Reviewer{Registry: registry, Timeout: cfg.ReviewTimeout},
		c, journal,
	)

	bot, err := tgbotapi.NewBotAPI(cfg.MustTelegramToken())
	if err != nil {
		log.Fatalf("telegram: %v", err)
	}
	log.Printf("bot authorized as @%s", bot.Self.UserName)

	r := telegram.NewRouter(bot, orch)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	for upd := range bot.GetUpdatesChan(u) {
		go r.HandleUpdate(upd)
	}
}
