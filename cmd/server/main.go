package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/bitetrack/sales-engine/internal/adapter/handler"
	"github.com/bitetrack/sales-engine/internal/adapter/storage"
	"github.com/bitetrack/sales-engine/internal/core/service"
	"github.com/bitetrack/sales-engine/internal/port"
)

const (
	defaultHTTPAddr = ":8080"
	defaultMySQLDSN = "root:root@tcp(localhost:3306)/bitetrack?parseTime=true"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize MySQL
	db, err := sql.Open("mysql", envOr("MYSQL_DSN", defaultMySQLDSN))
	if err != nil {
		logger.Error("failed to open mysql", "error", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping mysql", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to mysql")

	// Redis is optional; without it sale submissions simply have no replay
	// protection.
	var idem port.IdempotencyStore
	var rdb *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			PoolSize: 100,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect redis", "error", err)
			os.Exit(1)
		}
		idem = storage.NewRedisAdapter(rdb)
		logger.Info("connected to redis")
	}

	store := storage.NewMySQLAdapter(db)

	cfg := service.Config{
		MaxAttempts:   envInt("SALE_MAX_ATTEMPTS", service.DefaultMaxAttempts),
		RetryBackoff:  envDuration("SALE_RETRY_BACKOFF", service.DefaultRetryBackoff),
		CommitTimeout: envDuration("SALE_COMMIT_TIMEOUT", service.DefaultCommitTimeout),
	}

	saleService := service.NewSaleService(store, idem, logger, cfg)
	settlementService := service.NewSettlementService(store, logger, cfg)
	writeOffService := service.NewWriteOffService(store, logger, cfg)

	httpHandler := handler.NewHTTPHandler(saleService, settlementService, writeOffService)
	mux := http.NewServeMux()
	httpHandler.Register(mux)

	httpServer := &http.Server{
		Addr:    envOr("HTTP_ADDR", defaultHTTPAddr),
		Handler: mux,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	logger.Info("HTTP server stopped")

	if rdb != nil {
		rdb.Close()
	}
	db.Close()
	logger.Info("connections closed")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
