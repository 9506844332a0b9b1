package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"accounts-backend/internal/config"
	"accounts-backend/internal/database"
	"accounts-backend/internal/ratelimit"
	"accounts-backend/internal/security"
	"accounts-backend/internal/server"
)

func main() {
	cfg := config.MustLoad()
	log.Printf("config: %s", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close(db)

	if err := database.Bootstrap(ctx, db); err != nil {
		log.Fatalf("bootstrap: %v", err)
	}

	var limiter ratelimit.Limiter = ratelimit.Noop{}
	if cfg.RedisAddr != "" {
		rl, err := ratelimit.NewRedis(ctx, cfg.RedisAddr, cfg.LoginRateLimit, cfg.LoginRateWindow)
		if err != nil {
			log.Printf("login rate limiting disabled: %v", err)
		} else {
			defer rl.Close()
			limiter = rl
		}
	}

	r := server.NewRouter(cfg, database.NewStore(db), security.NewTokenIssuer(cfg.JWTSecret, cfg.AccessTokenTTL), limiter)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("starting server on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
