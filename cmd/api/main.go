package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"taskflow/api/internal/app"
	"taskflow/api/internal/authpw"
	"taskflow/api/internal/config"
	"taskflow/api/internal/email"
	"taskflow/api/internal/export"
	"taskflow/api/internal/presence"
	"taskflow/api/internal/search"
	"taskflow/api/internal/session"
	"taskflow/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	deps := app.Deps{Store: dataStore}

	// Refresh tokens and presence live in Redis when available; without it
	// refresh tokens fall back to Postgres and presence stays in-process.
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh tokens and presence")
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid redis url: %v", err)
		}
		redisClient := redis.NewClient(redisOpts)
		pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			cancelPing()
			log.Fatalf("redis connection failed: %v", err)
		}
		cancelPing()
		defer redisClient.Close()

		deps.Sessions = session.NewRedisStoreWithClient(redisClient)
		deps.Presence = presence.NewTracker(redisClient)
	} else {
		log.Printf("Using PostgreSQL for refresh token storage")
		deps.Sessions = dataStore
		deps.Presence = presence.NewMemoryTracker()
	}

	pgSearch := search.NewPgSearch(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgSearch)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	emailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})
	if !emailService.IsConfigured() {
		log.Printf("SMTP not configured, auth flows will return dev tokens")
	}

	deps.AuthPW = authpw.NewService(dataStore)
	deps.Email = emailService
	deps.Search = searchService
	deps.Export = export.NewService()

	service := app.New(cfg, deps)
	defer service.Close()

	if meiliClient != nil {
		reindexCtx, cancelReindex := context.WithTimeout(ctx, 2*time.Minute)
		if err := service.ReindexSearch(reindexCtx); err != nil {
			log.Printf("WARNING: search reindex failed (will retry on next restart): %v", err)
		}
		cancelReindex()
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("TaskFlow API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
