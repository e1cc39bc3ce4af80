package main

import (
	"context"
	"os"
	"strings"

	cli "github.com/urfave/cli/v3"

	"github.com/edupulse/pulseflow/pkg/cmd"
	"github.com/edupulse/pulseflow/pkg/engine"
	"github.com/edupulse/pulseflow/pkg/log"
	"github.com/edupulse/pulseflow/pkg/registry"
	"github.com/edupulse/pulseflow/pkg/scheduler"
	"github.com/edupulse/pulseflow/pkg/scheduler/store"
	"github.com/edupulse/pulseflow/pkg/services"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("pulseflow-api")

	command := &cli.Command{
		Name:                  "pulseflow-api",
		Usage:                 "Create, manage and trigger engagement workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
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
				Usage:   "Wakeup store URL shared with the workers (file://<dir> or redis://<addr>)",
				Value:   "file://./data/wakeups",
				Sources: cli.EnvVars("WAKEUP_STORE_URL"),
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

			logger.InfoContext(ctx, "Initializing Pulseflow API")

			store, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := store.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "pulseflow-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			reg := registry.NewRegistry(logger)

			// The API runs triggered executions in-process. Delay nodes write
			// into the wakeup store shared with the workers; a worker's poller
			// resumes the suspended execution.
			wakeupStore, err := newWakeupStore(ctx, command.String("wakeup-store-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := wakeupStore.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close wakeup store", "error", err)
				}
			}()

			eng := engine.NewEngine(engine.Config{
				Persistence: store,
				Registry:    reg,
				Resumer:     scheduler.NewScheduler(wakeupStore, 0, logger),
				EventBus:    eventBus,
				Logger:      logger,
				WorkerID:    "api",
			})

			directory := services.NewStaticDirectory()

			cmd.RegisterNativeActions(reg, cmd.Services{
				Directory:       directory,
				Messenger:       services.NewLogMessenger(logger),
				Dialer:          services.NewLogDialer(logger),
				Notifier:        services.NewLogNotifier(logger),
				Tasks:           services.NewLogTaskService(logger),
				CourseGenerator: services.NewLogCourseGenerator(logger),
				FieldWriter:     services.NewLogFieldWriter(logger),
				Enqueuer:        eng,
			})

			api := NewAPI(logger, store, eng)

			if err := api.Start(command.Int("port")); err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)

				return err
			}

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}

func newWakeupStore(ctx context.Context, url string) (store.Store, error) {
	switch {
	case strings.HasPrefix(url, "redis://"):
		return store.NewRedisStore(ctx, strings.TrimPrefix(url, "redis://"), "", 0)
	default:
		return store.NewFileStore(strings.TrimPrefix(url, "file://"))
	}
}

