package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Keviin77777/Gestor-php-sub003/internal/session"
	"github.com/Keviin77777/Gestor-php-sub003/internal/worker"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/config"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/database"
	"github.com/Keviin77777/Gestor-php-sub003/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       "info",
		ServiceName: "session-sweeper",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Session Sweeper...")

	if cfg.Auth.SessionStore != config.SessionStorePostgres {
		appLog.Info("Session store does not need sweeping, exiting", zap.String("store", cfg.Auth.SessionStore))
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      2,
		MinConns:      1,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Create worker
	sweeper := worker.NewSessionSweeper(
		session.NewPostgresStore(db.Pool(), cfg.Auth.SessionIdleTimeout),
		&worker.SessionSweeperConfig{SweepInterval: cfg.Auth.SweepInterval},
	)
	if err := sweeper.Start(ctx); err != nil {
		appLog.Fatal("Failed to start session sweeper", zap.Error(err))
	}

	appLog.Info("Session Sweeper started successfully")

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	sweeper.Stop()
	cancel()

	total, _ := sweeper.Stats()
	appLog.Info("Worker exited gracefully", zap.Int64("sessions_deleted", total))
}
