package reconcile

import (
	"reflect"
	"testing"

	"schoolcal/internal/dedup"
	"schoolcal/internal/models"
)

func rec(name, date, source string) models.Event {
	return models.Event{Name: name, Date: date, Type: models.TypeEvent, Source: source}
}

func sources(events []models.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name+"@"+e.Source)
	}
	return out
}

func TestReconcileEmpty(t *testing.T) {
	if got := Reconcile(dedup.Default(), nil, nil, nil); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
	if got := New(dedup.Default()).Run(); got != nil {
		t.Fatalf("no pools should yield nil, got %v", got)
	}
}

func TestReconcileOnlyEmail(t *testing.T) {
	email := []models.Event{rec("Book Fair", "", "email"), rec("book fair", "", "email")}
	got := Reconcile(dedup.Default(), email, nil, nil)
	if !reflect.DeepEqual(got, email) {
		t.Fatalf("email pool should pass through unchanged, got %v", sources(got))
	}
}

func TestReconcilePriorityPreservation(t *testing.T) {
	district := rec("Spring Concert Night", "2026-03-12", "district")
	district.Location = "MPR"
	email := rec("Spring Concert", "2026-03-12", "email")
	email.Description = "bring flowers"

	got := Reconcile(dedup.Default(), []models.Event{email}, nil, []models.Event{district})
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %v", sources(got))
	}
	if !reflect.DeepEqual(got[0], district) {
		t.Fatalf("district record should be kept verbatim, got %+v", got[0])
	}
}

func TestReconcileBestScoringMatch(t *testing.T) {
	email := []models.Event{rec("Spring Concert", "2026-03-12", "email")}
	pta := []models.Event{rec("Spring Concert Night", "2026-03-12", "pta")}
	district := []models.Event{rec("Spring Concert", "2026-03-12", "district")}

	got := Reconcile(dedup.Default(), email, pta, district)
	// The exact district name wins the email match; the PTA record is left
	// over and then removed by the intra-pool pass as a duplicate.
	if want := []string{"Spring Concert@district"}; !reflect.DeepEqual(sources(got), want) {
		t.Fatalf("got %v, want %v", sources(got), want)
	}
}

func TestReconcileOrdering(t *testing.T) {
	email := []models.Event{
		rec("Math Night", "2026-02-10", "email"),
		rec("Book Fair", "", "email"),
	}
	pta := []models.Event{
		rec("Galentine's Night Out", "2026-02-13", "pta"),
		rec("Book Fair", "2026-03-02", "pta"),
	}
	district := []models.Event{
		rec("Board Meeting", "2026-02-19", "district"),
	}

	got := Reconcile(dedup.Default(), email, pta, district)
	want := []string{
		"Math Night@email",
		"Book Fair@pta",
		"Galentine's Night Out@pta",
		"Board Meeting@district",
	}
	if !reflect.DeepEqual(sources(got), want) {
		t.Fatalf("got %v, want %v", sources(got), want)
	}
}

func TestReconcileEnrichedConsumedOnce(t *testing.T) {
	email := []models.Event{
		rec("Book Fair", "", "email"),
		rec("Book Fair", "", "email"),
	}
	pta := []models.Event{rec("Book Fair", "2026-03-02", "pta")}

	got := Reconcile(dedup.Default(), email, pta, nil)
	// The second email record finds the PTA record consumed and is kept,
	// then dropped by the intra-pool pass.
	if want := []string{"Book Fair@pta"}; !reflect.DeepEqual(sources(got), want) {
		t.Fatalf("got %v, want %v", sources(got), want)
	}
}

func TestReconcileEmptyEmailPrefersPTA(t *testing.T) {
	pta := []models.Event{rec("Winter Concert", "2026-12-10", "pta")}
	district := []models.Event{
		rec("Winter Concert", "2026-12-10", "district"),
		rec("Board Meeting", "2026-12-15", "district"),
	}
	got := Reconcile(dedup.Default(), nil, pta, district)
	want := []string{"Winter Concert@pta", "Board Meeting@district"}
	if !reflect.DeepEqual(sources(got), want) {
		t.Fatalf("got %v, want %v", sources(got), want)
	}
}

func TestReconcileUnarbitratedEnrichmentPoolsKeepPTA(t *testing.T) {
	// PTA and district are never compared directly; the intra-pool pass keeps
	// whichever appears first in the union, which is the PTA record.
	email := []models.Event{rec("Math Night", "2026-02-10", "email")}
	pta := []models.Event{rec("Winter Concert", "2026-12-10", "pta")}
	district := []models.Event{rec("Winter Concert", "2026-12-10", "district")}

	got := Reconcile(dedup.Default(), email, pta, district)
	want := []string{"Math Night@email", "Winter Concert@pta"}
	if !reflect.DeepEqual(sources(got), want) {
		t.Fatalf("got %v, want %v", sources(got), want)
	}
}

func TestReconcileMenusUntouched(t *testing.T) {
	lunch := models.Event{Name: "Spring Concert", Date: "2026-03-12", Type: models.TypeLunchMenu, Source: "email"}
	email := []models.Event{lunch}
	district := []models.Event{rec("Spring Concert", "2026-03-12", "district")}

	got := Reconcile(dedup.Default(), email, nil, district)
	if len(got) != 2 {
		t.Fatalf("expected menu and district event, got %v", sources(got))
	}
	if !reflect.DeepEqual(got[0], lunch) {
		t.Fatalf("menu record altered: %+v", got[0])
	}
}

func TestReconcileFourthSource(t *testing.T) {
	r := New(dedup.Default()).
		Add(SourceEmail, []models.Event{rec("Field Trip", "2026-05-01", "email")}).
		Add(SourcePTA, nil).
		Add(SourceDistrict, nil).
		Add("classroom", []models.Event{rec("Field Trip Day", "2026-05-01", "classroom")})

	if n := len(r.Pools()); n != 4 {
		t.Fatalf("expected 4 pools, got %d", n)
	}
	got := r.Run()
	if want := []string{"Field Trip Day@classroom"}; !reflect.DeepEqual(sources(got), want) {
		t.Fatalf("got %v, want %v", sources(got), want)
	}
}

func TestReconcileDoesNotMutateInputs(t *testing.T) {
	email := []models.Event{rec("Spring Concert", "2026-03-12", "email")}
	district := []models.Event{rec("Spring Concert", "2026-03-12", "district")}
	emailCopy := append([]models.Event(nil), email...)
	districtCopy := append([]models.Event(nil), district...)

	_ = Reconcile(dedup.Default(), email, nil, district)
	if !reflect.DeepEqual(email, emailCopy) || !reflect.DeepEqual(district, districtCopy) {
		t.Fatalf("inputs were mutated")
	}
}
