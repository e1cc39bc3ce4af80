package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/edupulse/pulseflow/pkg/cmd"
	"github.com/edupulse/pulseflow/pkg/log"
	"github.com/edupulse/pulseflow/pkg/services"
)

func main() {
	command := &cli.Command{
		Name:                  "pulseflow-worker",
		EnableShellCompletion: true,
		Usage:                 "Start a worker that executes engagement workflows",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "worker-id",
				Aliases: []string{"id"},
				Usage:   "Custom worker ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("WORKER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "wakeup-store-url",
				Usage:   "Wakeup store URL (file://<dir> or redis://<addr>)",
				Value:   "file://./data/wakeups",
				Sources: cli.EnvVars("WAKEUP_STORE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-queue",
				Usage:   "Redis list to consume external domain events from (disabled when empty)",
				Value:   "",
				Sources: cli.EnvVars("EVENT_QUEUE"),
			},
			&cli.StringFlag{
				Name:    "redis-addr",
				Usage:   "Redis address for the event queue consumer",
				Value:   "localhost:6379",
				Sources: cli.EnvVars("REDIS_ADDR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			workerID := command.String("worker-id")
			if workerID == "" {
				workerID = "worker-" + uuid.New().String()[:8]
			}

			logger := log.WithModule("pulseflow-worker").With("worker_id", workerID)

			logger.InfoContext(ctx, "Initializing Pulseflow worker")

			eventBus := cmd.NewEventBus(command.String("event-bus"), "pulseflow-worker", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			directory := services.NewStaticDirectory()

			worker := NewWorkerManager(WorkerConfig{
				ID:             workerID,
				Persistence:    store,
				EventBus:       eventBus,
				Logger:         logger,
				Directory:      directory,
				WakeupStoreURL: command.String("wakeup-store-url"),
				EventQueue:     command.String("event-queue"),
				RedisAddr:      command.String("redis-addr"),
			})

			if err := worker.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Worker stopped with error", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
