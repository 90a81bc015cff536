package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"blog/internal/auth"
	"blog/internal/blog"
	"blog/internal/config"
	"blog/internal/db"
	"blog/internal/handlers"
	"blog/internal/upload"
)

func main() {
	configPath := flag.String("config", os.Getenv("BLOG_CONFIG"), "path to a TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}

	if cfg.Database.Driver == db.SQLite {
		// Create data dir for DB
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			log.Fatal(err)
		}
	}

	dbc, err := db.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal(err)
	}
	defer dbc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Migrate(ctx, dbc, cfg.Database.Driver); err != nil {
		log.Fatal(err)
	}
	store := db.NewStore(dbc, cfg.Database.Driver)

	sessions := auth.NewManager(store, cfg.SessionTTL(), cfg.Auth.AdminEmails)
	sessions.SecureCookies(cfg.Auth.SecureCookie)
	go sessions.CleanupExpired(ctx, time.Hour)

	uploads, err := upload.NewSaver(cfg.Uploads.Dir, cfg.Uploads.MaxBytes)
	if err != nil {
		log.Fatal(err)
	}

	posts := blog.New(store, blog.WithMaxPageSize(cfg.Server.MaxPageSize), blog.WithImages(uploads))
	h := handlers.New(posts, sessions, uploads)

	var limiter *handlers.RateLimiter
	if cfg.Server.RatePerSecond > 0 {
		limiter = handlers.NewRateLimiter(cfg.Server.RatePerSecond, cfg.Server.RateBurst)
		go limiter.Cleanup(ctx, time.Minute, 10*time.Minute)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      h.Routes(cfg.Server.CORSOrigins, limiter),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s (db=%s)", cfg.Server.Addr, cfg.Database.Driver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
