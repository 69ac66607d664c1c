package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/log"
	gsheet "fintrack/internal/sheets/google"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting ledger-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
	logger = cli.SetupLogger(cfg.LogLevel)

	sheetsClient, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	if err := sheetsClient.EnsureHeader(context.Background()); err != nil {
		// Not fatal: rows can still be appended.
		logger.Warn("Could not write sheet header", log.FieldError, err)
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient == nil {
		logger.Error("AMQP broker unavailable, nothing to consume")
		os.Exit(1)
	}

	mirror := worker.NewLedgerMirror(sheetsClient, logger)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(context.Context) {
		synced, skipped := mirror.Stats()
		logger.Info("Ledger mirror stopped", "synced", synced, "skipped", skipped)
	})

	caches := cache.NewManager(logger)
	caches.Register(mirror.Recent())
	go caches.Run(ctx, time.Hour)

	go func() {
		err := amqpClient.ConsumeLedgerEvents(ctx, mirror.HandleLedgerEvent)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	if err := amqpClient.Close(); err != nil {
		logger.Warn("AMQP close error", log.FieldError, err)
	}
	logger.Info("Worker stopped gracefully")
}
