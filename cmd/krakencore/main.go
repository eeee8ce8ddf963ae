package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/openexec/krakencore/internal/analytics"
	"github.com/openexec/krakencore/internal/config"
	"github.com/openexec/krakencore/internal/server"
	"github.com/openexec/krakencore/internal/session"
	"github.com/openexec/krakencore/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file (defaults to ./configs/config.yaml)")
	flag.Parse()

	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Create logger
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	zapLogger, err := logger.NewLogger(logLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	// Load configuration
	cfg, v, err := config.Load(*configPath)
	if err != nil {
		zapLogger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Wire the trading session: order manager -> fill processor -> analytics
	sess := session.New(zapLogger, cfg)

	// Hot-reload risk thresholds on config file change
	config.WatchRiskThresholds(v, sess, zapLogger)

	// Log raised risk alerts; real consumers register their own handlers
	sess.Engine.AddAlertHandler(func(alert *analytics.RiskAlert) {
		zapLogger.Warn("risk alert",
			zap.String("metric", alert.Metric),
			zap.String("level", string(alert.Level)),
			zap.String("value", alert.Value.String()),
			zap.String("threshold", alert.Threshold.String()))
	})

	srv := server.New(zapLogger, cfg.Server, sess)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		zapLogger.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			zapLogger.Error("http shell failed", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("shutdown error", zap.Error(err))
	}
	zapLogger.Info("krakencore stopped")
}
