package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/umoja-coop/shares-api/internal/config"
	"github.com/umoja-coop/shares-api/internal/handler"
	"github.com/umoja-coop/shares-api/internal/logging"
	"github.com/umoja-coop/shares-api/internal/middleware"
	"github.com/umoja-coop/shares-api/internal/repository"
	"github.com/umoja-coop/shares-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("shares-api", cfg.LogLevel, cfg.AppEnv)

	// Monetary fields serialize as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	purchases := repository.NewPurchaseRepository(db)
	members := repository.NewMemberRepository(db)

	ledgerSvc := service.NewLedgerService(purchases, members)
	querySvc := service.NewShareQueryService(purchases)
	memberSvc := service.NewMemberService(members)

	shares := handler.NewShareHandler(ledgerSvc, querySvc)
	memberH := handler.NewMemberHandler(memberSvc)
	authH := handler.NewAuthHandler(members, cfg.JWTSecret, time.Duration(cfg.JWTExpiryH)*time.Hour)
	health := handler.NewHealthHandler(db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", health.Liveness)
	mux.HandleFunc("GET /health/ready", health.Readiness)
	mux.HandleFunc("POST /api/v1/auth/login", authH.Login)

	authed := middleware.Auth(cfg.JWTSecret)
	admin := func(h http.HandlerFunc) http.Handler {
		return authed(middleware.RequireAdmin(h))
	}

	mux.Handle("POST /api/v1/shares", admin(shares.Create))
	mux.Handle("GET /api/v1/shares", admin(shares.List))
	mux.Handle("GET /api/v1/shares/stats", admin(shares.Stats))
	mux.Handle("GET /api/v1/shares/monthly/{month}/{year}", admin(shares.Monthly))
	mux.Handle("GET /api/v1/shares/available-months", admin(shares.AvailableMonths))
	mux.Handle("POST /api/v1/members", admin(memberH.Register))
	mux.Handle("GET /api/v1/members", admin(memberH.List))

	mux.Handle("GET /api/v1/member/shares", authed(http.HandlerFunc(shares.MyShares)))
	mux.Handle("GET /api/v1/member/shares/monthly", authed(http.HandlerFunc(shares.MyMonthlyShares)))

	root := middleware.RequestID(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		var db *sql.DB
		db, err = repository.NewPostgresDB(ctx, cfg.DatabaseURL, pool)
		cancel()
		if err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}

	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
