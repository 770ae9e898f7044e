// Package reconcile merges candidate pools from several sources into one
// canonical pool.
package reconcile

import (
	"slices"

	"schoolcal/internal/dedup"
	"schoolcal/internal/models"
)

// Source names used by the standard three-pool run.
const (
	SourceEmail    = "email"
	SourcePTA      = "pta"
	SourceDistrict = "district"
)

// Pool is the candidate list produced by one named source.
type Pool struct {
	Name   string
	Events []models.Event
}

// Reconciler runs the merge over an ordered list of pools. The first pool is
// the base (least trusted) source; the remaining pools are enrichment sources
// whose records replace matching base records verbatim. Enrichment pools are
// unioned in the order they were added and are not arbitrated against each
// other until the final intra-pool pass, where the earlier pool wins.
type Reconciler struct {
	matcher dedup.Matcher
	pools   []Pool
}

// New creates a Reconciler using m for every comparison.
func New(m dedup.Matcher) *Reconciler {
	return &Reconciler{matcher: m}
}

// Add appends a pool after the ones already registered.
func (r *Reconciler) Add(name string, events []models.Event) *Reconciler {
	r.pools = append(r.pools, Pool{Name: name, Events: events})
	return r
}

// Pools returns the registered pools in order.
func (r *Reconciler) Pools() []Pool {
	return slices.Clone(r.pools)
}

// Run produces the canonical pool. Every output record is an unmodified copy
// of exactly one input record.
func (r *Reconciler) Run() []models.Event {
	if len(r.pools) == 0 {
		return nil
	}
	base := r.pools[0].Events
	enrichment := r.pools[1:]

	var enriched []models.Event
	for _, p := range enrichment {
		enriched = append(enriched, p.Events...)
	}

	if len(enriched) == 0 {
		return slices.Clone(base)
	}
	if len(base) == 0 {
		return r.foldPairs(enrichment)
	}

	merged := make([]models.Event, 0, len(base)+len(enriched))
	consumed := make([]bool, len(enriched))

	for _, ev := range base {
		if ev.IsMenu() {
			merged = append(merged, ev)
			continue
		}
		if i, ok := r.bestMatch(ev, enriched, consumed); ok {
			consumed[i] = true
			merged = append(merged, enriched[i])
			continue
		}
		merged = append(merged, ev)
	}

	for i, ev := range enriched {
		if !consumed[i] {
			merged = append(merged, ev)
		}
	}

	return r.matcher.Within(merged)
}

// bestMatch returns the index of the highest-scoring unconsumed enriched
// record that duplicates ev. Ties keep the earliest candidate.
func (r *Reconciler) bestMatch(ev models.Event, enriched []models.Event, consumed []bool) (int, bool) {
	best, bestScore := -1, 0.0
	for i, other := range enriched {
		if consumed[i] {
			continue
		}
		score, dup := r.matcher.Compare(ev, other)
		if dup && (best < 0 || score > bestScore) {
			best, bestScore = i, score
		}
	}
	return best, best >= 0
}

// foldPairs dedups the enrichment pools pairwise in registration order, the
// earlier pool acting as primary.
func (r *Reconciler) foldPairs(pools []Pool) []models.Event {
	acc := slices.Clone(pools[0].Events)
	for _, p := range pools[1:] {
		acc = r.matcher.Pair(acc, p.Events)
	}
	return acc
}

// Reconcile runs the standard email / PTA / district merge with m.
func Reconcile(m dedup.Matcher, email, pta, district []models.Event) []models.Event {
	return New(m).
		Add(SourceEmail, email).
		Add(SourcePTA, pta).
		Add(SourceDistrict, district).
		Run()
}
