package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"

	"schoolcal/internal/caldav"
	"schoolcal/internal/config"
	"schoolcal/internal/models"
	"schoolcal/internal/pipeline"
	"schoolcal/internal/store"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "schoolcal",
		Usage: "Reconcile school events from newsletters, the PTA site and the district calendar.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "schoolcal.yaml",
				Usage:   "Path to the YAML config file.",
				EnvVars: []string{"SCHOOLCAL_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			reconcileCommand(),
			exportCommand(),
			publishCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func reconcileCommand() *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Merge the candidate pools into the canonical event collection.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log the result without writing any file."},
			&cli.IntFlag{Name: "watch", Value: 3600, Usage: "Re-run every N seconds."},
			&cli.StringFlag{Name: "cron", Usage: "Re-run on a cron schedule (overrides the config schedule)."},
			&cli.IntFlag{Name: "summary", Usage: "Print the next N upcoming events after each run."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No files will be written.")
			}

			runner, err := pipeline.NewRunner(logger, cfg, c.Bool("dry-run"))
			if err != nil {
				return fmt.Errorf("failed to create runner: %w", err)
			}

			runOnce := func(ctx context.Context) error {
				events, err := runner.Reconcile(ctx)
				if err != nil {
					return err
				}
				if n := c.Int("summary"); n > 0 {
					printUpcoming(events, n)
				}
				return nil
			}

			schedule := cfg.Schedule
			if c.IsSet("cron") {
				schedule = c.String("cron")
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			switch {
			case c.IsSet("watch"):
				interval := time.Duration(c.Int("watch")) * time.Second
				logger.Info("Starting watcher.", "interval", interval)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					if err := runOnce(ctx); err != nil {
						logger.Error("Reconciliation run failed", "error", err)
					}
					select {
					case <-ctx.Done():
						logger.Info("Watcher stopped.")
						return nil
					case <-ticker.C:
					}
				}
			case schedule != "":
				return runScheduled(ctx, logger, schedule, runOnce)
			default:
				logger.Info("Running a single reconciliation.")
				if err := runOnce(ctx); err != nil {
					return fmt.Errorf("reconciliation failed: %w", err)
				}
				return nil
			}
		},
	}
}

// runScheduled runs fn on the cron schedule until ctx is done.
func runScheduled(ctx context.Context, logger *slog.Logger, schedule string, fn func(context.Context) error) error {
	sched := cron.New()
	_, err := sched.AddFunc(schedule, func() {
		if err := fn(ctx); err != nil {
			logger.Error("Scheduled reconciliation failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule '%s': %w", schedule, err)
	}

	logger.Info("Starting scheduler.", "schedule", schedule)
	sched.Start()
	<-ctx.Done()
	<-sched.Stop().Done()
	logger.Info("Scheduler stopped.")
	return nil
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write the canonical collection as an iCalendar file.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: "events.ics", Usage: "Destination .ics file."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			events, err := store.Load(cfg.Output)
			if err != nil {
				return fmt.Errorf("could not read events, did you run the reconcile command? %w", err)
			}
			return pipeline.WriteICS(logger, c.String("out"), events)
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:  "publish",
		Usage: "Upload the canonical collection to a CalDAV calendar.",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "dry-run", Usage: "Log what would be published without making changes."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			events, err := store.Load(cfg.Output)
			if err != nil {
				return fmt.Errorf("could not read events, did you run the reconcile command? %w", err)
			}

			if c.Bool("dry-run") {
				logger.Info("Performing a dry run. No changes will be made.")
				pipeline.Publish(c.Context, logger, nil, events, true)
				return nil
			}

			if cfg.CalDAV.Username == "" || cfg.CalDAV.Calendar == "" {
				return fmt.Errorf("caldav username and calendar must be set (CALDAV_USERNAME, CALDAV_CALENDAR_NAME)")
			}
			client, err := caldav.NewClient(c.Context, logger, cfg.CalDAV.Endpoint, cfg.CalDAV.Username, cfg.CalDAV.Password, cfg.CalDAV.Calendar)
			if err != nil {
				return fmt.Errorf("failed to create caldav client: %w", err)
			}

			if failed := pipeline.Publish(c.Context, logger, client, events, false); failed > 0 {
				return fmt.Errorf("%d events failed to publish", failed)
			}
			logger.Info("Publish finished.", "count", len(events))
			return nil
		},
	}
}

func printUpcoming(events []models.Event, n int) {
	for _, ev := range models.Upcoming(events, time.Now(), n) {
		when := ev.Date
		if ev.DateDisplay != "" {
			when = ev.DateDisplay
		}
		fmt.Printf("%-16s %-8s %s\n", when, ev.Priority, ev.Name)
	}
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
