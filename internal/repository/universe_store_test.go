package repository

import (
	"errors"
	"testing"
	"time"

	"Rectifex/internal/domain/models"
	drepo "Rectifex/internal/domain/repository"
)

func TestUniverseStoreRoundTrip(t *testing.T) {
	store, err := NewUniverseStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	want := &models.UniverseList{
		Name:      "sp500",
		Symbols:   []string{"AAPL", "BRK-B", "MSFT"},
		FetchedAt: time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load("sp500")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Name != want.Name || len(got.Symbols) != 3 || got.Symbols[1] != "BRK-B" {
		t.Fatalf("unexpected list %+v", got)
	}
	if !got.FetchedAt.Equal(want.FetchedAt) {
		t.Fatalf("fetched_at mismatch: %v vs %v", got.FetchedAt, want.FetchedAt)
	}
}

func TestUniverseStoreMissing(t *testing.T) {
	store, err := NewUniverseStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.Load("nope"); !errors.Is(err, drepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUniverseStoreOverwrite(t *testing.T) {
	store, err := NewUniverseStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	first := &models.UniverseList{Name: "nasdaq", Symbols: []string{"OLD"}, FetchedAt: time.Now()}
	second := &models.UniverseList{Name: "nasdaq", Symbols: []string{"NEW1", "NEW2"}, FetchedAt: time.Now()}
	if err := store.Save(first); err != nil {
		t.Fatalf("save first: %v", err)
	}
	if err := store.Save(second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := store.Load("nasdaq")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got.Symbols) != 2 || got.Symbols[0] != "NEW1" {
		t.Fatalf("expected the later save, got %+v", got)
	}
}
