package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/regimen-health/regimen/internal/api"
	"github.com/regimen-health/regimen/internal/config"
	"github.com/regimen-health/regimen/internal/metrics"
	"github.com/regimen-health/regimen/internal/reminder"
	"github.com/regimen-health/regimen/internal/store"
)

var (
	configPath = flag.String("config", "", "Path to config file")
	dataDir    = flag.String("data", "", "Path to data directory")
	remindNow  = flag.Bool("remind-now", false, "Run one reminder pass and exit")
	version    = "dev"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("regimen version %s\n", version)
			return
		}
	}

	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting regimen", zap.String("version", version))

	cfg, err := config.Load(*configPath, *dataDir)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	st, err := store.New(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize store", zap.Error(err))
	}
	defer st.Close()

	m := metrics.Default()

	var notifier reminder.Notifier = reminder.NewLogNotifier(logger)
	if cfg.Reminders.SMTP.Host != "" {
		notifier = reminder.NewSMTPNotifier(cfg.Reminders.SMTP)
	}

	runner, err := reminder.NewRunner(&cfg.Reminders, st, notifier, m, logger)
	if err != nil {
		logger.Fatal("Failed to create reminder runner", zap.Error(err))
	}

	if *remindNow {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		runner.RunOnce(ctx, time.Now())
		return
	}

	if cfg.Reminders.Enabled {
		if err := runner.Start(); err != nil {
			logger.Error("Failed to start reminder runner", zap.Error(err))
		}
	}

	server := api.New(cfg, st, m, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("address", cfg.Server.Address),
		zap.Int("port", cfg.Server.Port),
		zap.String("url", fmt.Sprintf("http://localhost:%d", cfg.Server.Port)),
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	if cfg.Reminders.Enabled {
		runner.Stop()
	}

	if err := server.Shutdown(); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
}
