package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ciclogistica/retiros/internal/config"
	"github.com/ciclogistica/retiros/internal/engine"
	"github.com/ciclogistica/retiros/internal/logging"
	"github.com/ciclogistica/retiros/internal/oca"
	"github.com/ciclogistica/retiros/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"batch_workers", cfg.Batch.Workers,
		"batch_max_concurrent", cfg.Batch.MaxConcurrent,
		"coerce_policy", cfg.Batch.CoercePolicy,
	)

	// Create the carrier client. Credential and origin problems surface
	// here, before the server accepts any batch.
	client, err := oca.NewClient(oca.Config{
		User:          cfg.OCA.User,
		Password:      cfg.OCA.Password,
		SubmitURL:     cfg.OCA.SubmitURL,
		FacilityURL:   cfg.OCA.FacilityURL,
		LabelURL:      cfg.OCA.LabelURL,
		SubmitTimeout: cfg.OCA.SubmitTimeout,
		LookupTimeout: cfg.OCA.LookupTimeout,
		OperativeID:   cfg.OCA.OperativeID,
		Origin: oca.Origin{
			Name:          cfg.Origin.Name,
			Surname:       cfg.Origin.Surname,
			Street:        cfg.Origin.Street,
			Number:        cfg.Origin.Number,
			PostalCode:    cfg.Origin.PostalCode,
			Locality:      cfg.Origin.Locality,
			Province:      cfg.Origin.Province,
			Phone:         cfg.Origin.Phone,
			Email:         cfg.Origin.Email,
			TimeSlotID:    cfg.Origin.TimeSlotID,
			CostCenter:    cfg.Origin.CostCenter,
			AccountNumber: cfg.Origin.AccountNumber,
		},
	})
	if err != nil {
		slog.Error("failed to create carrier client", "error", err)
		os.Exit(1)
	}

	eng := engine.New(client, engine.Config{
		Policy:  engine.ParseCoercePolicy(cfg.Batch.CoercePolicy),
		Workers: cfg.Batch.Workers,
	})

	server := web.NewServer(eng, client, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)
	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
