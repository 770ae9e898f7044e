package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"schoolcal/internal/calendar"
	"schoolcal/internal/config"
	"schoolcal/internal/consolidate"
	"schoolcal/internal/dedup"
	"schoolcal/internal/models"
	"schoolcal/internal/reconcile"
	"schoolcal/internal/store"
)

// Publisher receives canonical events, e.g. a CalDAV calendar.
type Publisher interface {
	PublishEvent(ctx context.Context, ev models.Event) error
}

// Runner loads the candidate pools from disk, runs the pipeline and persists
// the canonical collection.
type Runner struct {
	logger    *slog.Logger
	pipeline  *Pipeline
	sources   config.SourcesConfig
	output    string
	icsOutput string
	dryRun    bool
}

// NewRunner creates a Runner from cfg.
func NewRunner(logger *slog.Logger, cfg *config.Config, dryRun bool) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c, err := consolidate.New(cfg.Consolidate.Triggers)
	if err != nil {
		return nil, err
	}

	return &Runner{
		logger:    logger,
		pipeline:  New(dedup.NewMatcher(cfg.Thresholds), c),
		sources:   cfg.Sources,
		output:    cfg.Output,
		icsOutput: cfg.ICSOutput,
		dryRun:    dryRun,
	}, nil
}

// Reconcile performs a full run: load, reconcile, consolidate, save.
func (r *Runner) Reconcile(ctx context.Context) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.logger.Info("Starting reconciliation run.")

	in, err := r.loadInput()
	if err != nil {
		return nil, err
	}
	r.logger.Info("Loaded candidate pools.",
		"email", len(in.Email),
		"pta", len(in.PTA),
		"district", len(in.District),
		"menu", len(in.Menu),
	)

	res, err := r.pipeline.Run(in)
	if err != nil {
		return nil, fmt.Errorf("pipeline failed: %w", err)
	}
	r.logger.Info(fmt.Sprintf("After dedup: %d events (from %d email + %d PTA + %d district)",
		res.Reconciled, len(in.Email), len(in.PTA), len(in.District)))
	r.logger.Info("Consolidated date ranges.", "before", res.Reconciled, "after", res.Consolidated)

	if r.dryRun {
		r.logger.Info("[DRY RUN] Would save canonical collection", "file", r.output, "count", len(res.Events))
		return res.Events, nil
	}

	if err := store.Save(r.output, res.Events); err != nil {
		return nil, fmt.Errorf("failed to save events: %w", err)
	}
	r.logger.Info("Saved canonical collection.", "file", r.output, "count", len(res.Events))

	if r.icsOutput != "" {
		if err := WriteICS(r.logger, r.icsOutput, res.Events); err != nil {
			return nil, err
		}
	}
	return res.Events, nil
}

func (r *Runner) loadInput() (Input, error) {
	var in Input
	pools := []struct {
		name string
		path string
		dst  *[]models.Event
	}{
		{reconcile.SourceEmail, r.sources.Email, &in.Email},
		{reconcile.SourcePTA, r.sources.PTA, &in.PTA},
		{reconcile.SourceDistrict, r.sources.District, &in.District},
		{"menu", r.sources.Menu, &in.Menu},
	}
	for _, p := range pools {
		events, err := store.LoadPool(r.logger, p.name, p.path)
		if err != nil {
			return Input{}, err
		}
		*p.dst = events
	}
	return in, nil
}

// WriteICS encodes events as an iCalendar file at path. Nothing is written
// when no event is dated.
func WriteICS(logger *slog.Logger, path string, events []models.Event) error {
	var buf bytes.Buffer
	skipped, err := calendar.Encode(&buf, events, time.Now())
	if errors.Is(err, calendar.ErrEmpty) {
		logger.Warn("No dated events to export.", "file", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to encode ics: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write ics file: %w", err)
	}
	logger.Info("Wrote iCalendar file.", "file", path, "skippedUndated", skipped)
	return nil
}

// Publish sends every dated event to pub. A failing event is logged and the
// rest are still published; the number of failures is returned.
func Publish(ctx context.Context, logger *slog.Logger, pub Publisher, events []models.Event, dryRun bool) int {
	failed := 0
	for _, ev := range events {
		if !ev.HasDate() {
			logger.Debug("Skipping undated event.", "name", ev.Name)
			continue
		}
		if dryRun {
			logger.Info("[DRY RUN] Would publish event", "name", ev.Name, "date", ev.Date)
			continue
		}
		if err := pub.PublishEvent(ctx, ev); err != nil {
			logger.Error("Failed to publish event", "name", ev.Name, "error", err)
			failed++
		}
	}
	return failed
}
