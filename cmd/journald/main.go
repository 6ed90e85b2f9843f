package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"journal-backend/config"
	"journal-backend/internal/api"
	"journal-backend/internal/db"
	"journal-backend/internal/notification"
	"journal-backend/internal/store"
)

func main() {
	logger := log.New(os.Stdout, "journal-backend ", log.LstdFlags)

	// Secrets may come from a local .env file during development.
	if err := godotenv.Load(); err == nil {
		logger.Println(".env file loaded")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config or environment.")
	}
	if cfg.Dispatch.CronSecret == "" {
		logger.Fatalf("dispatch.cron_secret must be configured to protect the cron endpoint.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	dispatcher := notification.NewDispatcher(
		appStore,
		&webpushOptions,
		&cfg.Dispatch,
		cfg.WorkerPool.Size,
		cfg.Site.URL+notification.DefaultClickPath,
	)

	// The dispatcher is normally driven by an external scheduler hitting the
	// cron endpoint; an in-process schedule is available for deployments
	// without one.
	var scheduler *cron.Cron
	if cfg.Dispatch.Cron != "" {
		scheduler = cron.New()
		if _, err := scheduler.AddFunc(cfg.Dispatch.Cron, func() {
			summary, err := dispatcher.Run(ctx, time.Now().UTC())
			if err != nil {
				logger.Printf("scheduled dispatch failed: %v", err)
				return
			}
			logger.Printf("scheduled dispatch: attempted=%d sent=%d failed=%d pruned=%d",
				summary.Attempted, summary.Sent, summary.Failed, summary.Pruned)
		}); err != nil {
			logger.Fatalf("invalid dispatch.cron expression %q: %v", cfg.Dispatch.Cron, err)
		}
		scheduler.Start()
		logger.Printf("in-process dispatch schedule started: %s", cfg.Dispatch.Cron)
	}

	router := api.NewRouter(appStore, &webpushOptions, dispatcher, cfg)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}
