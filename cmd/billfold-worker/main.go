package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"billfold/internal/amqp"
	"billfold/internal/backend"
	"billfold/internal/cli"
	"billfold/internal/export"
	"billfold/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting billfold-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger)
	result, err := factory.CreateStore(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Store cleanup error", "error", err)
			}
		}
	}()

	// Mirror target: real spreadsheet when configured, in-memory sink
	// otherwise so the queue still drains in dev setups.
	var writer export.RowWriter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := export.NewGoogleClient(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName)
		if err != nil {
			logger.Error("Failed to initialize Sheets client", "error", err)
			os.Exit(1)
		}
		writer = client
		logger.Info("Sheets mirror initialized",
			"spreadsheet_id", cfg.GoogleSpreadsheetID,
			"sheet", cfg.GoogleSheetName)
	} else {
		writer = &export.MemoryWriter{}
		logger.Info("Sheets mirror disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exportWorker := worker.NewExportWorker(result.Store, writer, cfg.SyncBatchSize)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Seed the dedupe set from the mirror so a restart does not append
	// the whole ledger again.
	if seeded, err := exportWorker.SeedExported(ctx); err != nil {
		logger.Error("Failed to seed exported ids from mirror", "error", err)
		os.Exit(1)
	} else if seeded > 0 {
		logger.Info("Seeded exported ids from mirror", "count", seeded)
	}

	// Startup sweep catches records written while the worker was down.
	if count, err := exportWorker.Sweep(ctx); err != nil {
		logger.Error("Startup sweep failed", "error", err)
	} else {
		logger.Info("Startup sweep complete", "records_mirrored", count)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return amqpClient.ConsumeMessages(gctx, exportWorker.HandleLedgerEvent, handleReminderLog)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if count, err := exportWorker.Sweep(gctx); err != nil {
					logger.Error("Periodic sweep failed", "error", err)
				} else if count > 0 {
					logger.Info("Periodic sweep complete", "records_mirrored", count)
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		// The consume loop died without a shutdown signal. Exit so the
		// supervisor restarts the worker instead of leaving it wedged.
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}

// handleReminderLog acknowledges reminder messages that land on the
// shared queue. Delivery is just a log line; the export worker has no
// other channel to the user.
func handleReminderLog(ctx context.Context, msg *amqp.BillReminderMessage) error {
	slog.InfoContext(ctx, "Bill due reminder",
		"bill_id", msg.BillID,
		"bill_name", msg.Name,
		"amount_cents", msg.AmountCents,
		"due_day", msg.DueDay,
		"month", msg.MonthLabel)
	return nil
}
