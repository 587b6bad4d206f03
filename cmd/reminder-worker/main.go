package main

import (
	"context"
	"os"
	"time"

	"billfold/internal/amqp"
	"billfold/internal/backend"
	"billfold/internal/cli"
	"billfold/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting reminder-worker")

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

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	scanner := services.NewReminderScanner(result.Store, amqpClient)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Reminder scanner configured", "interval", cfg.ReminderInterval)

	ticker := time.NewTicker(cfg.ReminderInterval)
	defer ticker.Stop()

	// Run an initial scan on startup.
	if count, err := scanner.Scan(ctx, time.Now()); err != nil {
		logger.Error("Initial scan failed", "error", err)
	} else {
		logger.Info("Initial scan complete", "reminders_queued", count)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				count, err := scanner.Scan(ctx, now)
				if err != nil {
					logger.Error("Periodic scan failed", "error", err)
				} else {
					logger.Info("Periodic scan complete",
						"reminders_queued", count,
						"next_check", now.Add(cfg.ReminderInterval).Format("15:04:05"))
				}
			}
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Reminder-worker shutdown complete")
}
