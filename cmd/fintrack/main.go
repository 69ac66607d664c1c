package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/config"
	apphttp "fintrack/internal/http"
	"fintrack/internal/ledger"
	"fintrack/internal/log"
	"fintrack/internal/prediction"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)
	logger = cli.SetupLogger(cfg.LogLevel)

	ctx := context.Background()
	store := cli.InitStore(ctx, logger, cfg)

	policy, _ := ledger.ParsePolicy(cfg.CategoryPolicy)
	engine := ledger.NewEngine(policy)

	// A nil *amqp.Client stored in the interface would not compare equal to nil.
	var publisher services.EventPublisher
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		publisher = amqpClient
	}

	svc := services.NewProfileService(store.Store, engine, publisher, logger)
	gateway := prediction.NewGateway(cfg.PredictorURL,
		prediction.WithTimeout(cfg.PredictorTimeout),
		prediction.WithLogger(logger))

	srv := apphttp.NewServer(apphttp.Options{
		Addr:              ":" + cfg.Port,
		Profiles:          svc,
		Predictor:         gateway,
		Logger:            logger,
		RequestsPerMinute: cfg.RateLimitRPM,
		TrustedProxies:    cfg.TrustedProxyList(),
	})

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := store.Cleanup(); err != nil {
			logger.Warn("Store cleanup error", log.FieldError, err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		log.FieldBackend, cfg.DataBackend,
		"category_policy", engine.Policy(),
		"predictor_url", cfg.PredictorURL,
		"events", amqpClient != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
