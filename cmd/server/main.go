package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yerna09/smartselling/internal/config"
	apphttp "github.com/yerna09/smartselling/internal/http"
	"github.com/yerna09/smartselling/internal/integrations/mercadolibre"
	"github.com/yerna09/smartselling/internal/integrations/telegram"
	"github.com/yerna09/smartselling/internal/security/secretbox"
	storepkg "github.com/yerna09/smartselling/internal/store"
	"github.com/yerna09/smartselling/internal/store/memory"
	"github.com/yerna09/smartselling/internal/store/postgres"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	var st storepkg.Store
	if cfg.StoreMode == "postgres" && cfg.DatabaseURL != "" {
		st = openPostgres(cfg)
	} else {
		st = memory.NewStore()
	}

	mlClient := mercadolibre.NewClient(cfg.MLAPIBaseURL, cfg.MLTimeout)
	notifier := telegram.NewNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)

	srv := apphttp.NewServer(cfg, st, mlClient, notifier)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      srv.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("SmartSelling API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}

func openPostgres(cfg config.Config) storepkg.Store {
	box, err := secretbox.New(cfg.MLTokenKey)
	if err != nil {
		log.Printf("token encryption unavailable, falling back to memory store: %v", err)
		return memory.NewStore()
	}
	pgStore, err := postgres.NewStore(cfg.DatabaseURL, box)
	if err != nil {
		log.Printf("postgres store unavailable, falling back to memory store: %v", err)
		return memory.NewStore()
	}
	return pgStore
}
