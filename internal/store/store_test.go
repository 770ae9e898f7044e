package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"schoolcal/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDecodePoolNullDate(t *testing.T) {
	raw := `[{"name":"Book Fair","date":null,"type":"event","priority":"low","url":null}]`
	events, err := DecodePool([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].HasDate() || events[0].Type != models.TypeEvent {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestDecodePoolRecoversTruncation(t *testing.T) {
	raw := `[{"name":"Math Night","date":"2026-02-10","type":"event"},{"name":"Book Fa`
	events, err := DecodePool([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 1 || events[0].Name != "Math Night" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestDecodePoolGarbage(t *testing.T) {
	if _, err := DecodePool([]byte("I could not find any events.")); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := DecodePool([]byte(`{"name": "x"} trailing }`)); err == nil {
		t.Fatalf("expected error for non-array payload")
	}
}

func TestLoadPoolMissingFile(t *testing.T) {
	events, err := LoadPool(discardLogger(), "pta", filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected empty pool, got %v", events)
	}
}

func TestLoadPoolBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadPool(discardLogger(), "email", path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "events.json")
	events := []models.Event{
		{Name: "Winter Recess", Date: "2026-02-16", EndDate: "2026-02-20", DateDisplay: "Feb 16-20", Type: models.TypeEvent, Priority: models.PriorityHigh},
		{Name: "Pizza", Date: "2026-02-23", Type: models.TypeLunchMenu},
	}
	if err := Save(path, events); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, events) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, events)
	}
}

func TestSaveEmptyWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	if err := Save(path, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", data)
	}
}
