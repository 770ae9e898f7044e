// Package pipeline composes reconciliation, consolidation and the menu merge
// into one run, and drives runs from pool files.
package pipeline

import (
	"fmt"

	"schoolcal/internal/consolidate"
	"schoolcal/internal/dedup"
	"schoolcal/internal/models"
	"schoolcal/internal/reconcile"
)

// Input holds the candidate pools of one run.
type Input struct {
	Email    []models.Event
	PTA      []models.Event
	District []models.Event
	Menu     []models.Event
}

// Result is the canonical collection plus the size of each stage.
type Result struct {
	Events []models.Event
	// Reconciled is the number of records after cross-source dedup.
	Reconciled int
	// Consolidated is the number of non-menu records after range merging.
	Consolidated int
}

// Pipeline is a pure function over its input: it holds no state between
// runs and never mutates the pools it is given.
type Pipeline struct {
	matcher      dedup.Matcher
	consolidator *consolidate.Consolidator
}

// New creates a Pipeline.
func New(m dedup.Matcher, c *consolidate.Consolidator) *Pipeline {
	return &Pipeline{matcher: m, consolidator: c}
}

// Default creates a Pipeline with the default thresholds and triggers.
func Default() *Pipeline {
	return New(dedup.Default(), consolidate.Default())
}

// Run reconciles the three event pools, consolidates closure ranges and
// appends the menu pool untouched.
func (p *Pipeline) Run(in Input) (Result, error) {
	merged := reconcile.Reconcile(p.matcher, in.Email, in.PTA, in.District)

	consolidated, err := p.consolidator.Consolidate(merged)
	if err != nil {
		return Result{}, fmt.Errorf("consolidate: %w", err)
	}

	events := append(append([]models.Event(nil), consolidated...), in.Menu...)
	return Result{
		Events:       events,
		Reconciled:   len(merged),
		Consolidated: len(consolidated),
	}, nil
}
