package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"bloodbridge.org/internal/auth"
	"bloodbridge.org/internal/config"
	"bloodbridge.org/internal/httpapi"
	"bloodbridge.org/internal/obs"
	"bloodbridge.org/internal/revoke"
	"bloodbridge.org/internal/store"
)

var version = "0.3.1"

func main() {
	obs.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	tokens, err := auth.NewService(cfg.AccessSecret, cfg.RefreshSecret,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	// Postgres when a DSN is given, otherwise the in-memory store for local
	// development. /readyz pings whatever is wired.
	var (
		db      *sql.DB
		records store.Store = store.NewMemory()
	)
	if cfg.PostgresDSN != "" {
		db, err = sql.Open("pgx", cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
		records = store.NewPG(db)
	} else {
		log.Println("BLOODBRIDGE_PG_DSN not set, using in-memory store")
	}

	// Redis-backed revocation survives restarts; without it the in-process
	// denylist still retires rotated refresh tokens for this instance.
	var denylist revoke.Denylist = revoke.NewMemory()
	var redisPing httpapi.Pinger
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rd, err := revoke.NewRedis(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatalf("connect redis: %v", err)
		}
		defer rd.Close()
		denylist = rd
		redisPing = rd
	}

	api := httpapi.New(tokens, auth.NewCookiePolicy(cfg.Production, cfg.RefreshTTL), records, httpapi.Options{
		Denylist: denylist,
		Ready:    httpapi.ReadyProbe{DB: db, Redis: redisPing},
		Version:  version,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting bloodbridge-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
