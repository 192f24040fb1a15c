package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"pfm/internal/backend"
	"pfm/internal/cli"
	"pfm/internal/gateway"
	apphttp "pfm/internal/http"
	"pfm/internal/log"
	"pfm/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stdout)

	cfg, err := cli.LoadAndValidateConfig(logger)
	if err != nil {
		os.Exit(1)
	}
	logger = cli.SetupLogger(cfg.LogLevel, os.Stdout)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).Create(context.Background(), bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error(), "backend", cfg.APIBackend)
		os.Exit(1)
	}

	opts := apphttp.Options{
		Gateway:          gateway.New(res.API, logger),
		Logger:           logger,
		SessionCacheSize: cfg.SessionCacheSize,
		SessionTTL:       cfg.SessionTTL,
	}
	if res.Events != nil {
		events := res.Events
		opts.Events = events
		opts.Readiness = append(opts.Readiness, apphttp.ReadinessCheck{
			Name:  "amqp",
			Check: func(context.Context) error { return events.Ping() },
		})
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, opts)
	if err != nil {
		logger.Error("Failed to create server", log.FieldError, err.Error())
		os.Exit(1)
	}

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
		}
		if err := res.Close(); err != nil {
			logger.Warn("Backend cleanup failed", log.FieldError, err.Error())
		}
	})

	srv.Start(ctx)
	if res.Events != nil {
		w := worker.NewMutationWorker(srv, logger)
		go func() {
			if err := w.Run(ctx, res.Events); err != nil {
				logger.Error("Mutation worker failed", log.FieldError, err.Error())
			}
		}()
	}

	logger.Info("Starting pfm web server",
		"port", cfg.Port,
		"backend", cfg.APIBackend,
		"api", cfg.APIBaseURL,
		"amqp", res.Events != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err.Error(), "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
