package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"Rectifex/internal/domain/models"
	domrepo "Rectifex/internal/domain/repository"
	applogger "Rectifex/pkg/logger"
)

type fakeDirectory struct {
	calls   int
	symbols []string
	err     error
}

func (d *fakeDirectory) List(_ context.Context, name string) ([]string, error) {
	d.calls++
	if name == "no-such" {
		return nil, domrepo.ErrUnknownUniverse
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.symbols, nil
}

type fakeUniverseStore struct {
	lists map[string]*models.UniverseList
	saves int
}

func newFakeUniverseStore() *fakeUniverseStore {
	return &fakeUniverseStore{lists: map[string]*models.UniverseList{}}
}

func (s *fakeUniverseStore) Load(name string) (*models.UniverseList, error) {
	list, ok := s.lists[name]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	return list, nil
}

func (s *fakeUniverseStore) Save(list *models.UniverseList) error {
	s.saves++
	s.lists[list.Name] = list
	return nil
}

func TestUniverseFetchesAndPersists(t *testing.T) {
	dir := &fakeDirectory{symbols: []string{"AAPL", "MSFT"}}
	store := newFakeUniverseStore()
	u := NewUniverse(dir, store, applogger.Nop())

	got, err := u.Load(context.Background(), UniverseSpec{Name: "sp500"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 symbols, got %v", got)
	}
	if store.saves != 1 {
		t.Fatalf("expected the fetched list to be persisted")
	}
}

func TestUniverseServesFreshCopyWithoutRefetch(t *testing.T) {
	dir := &fakeDirectory{symbols: []string{"AAPL"}}
	store := newFakeUniverseStore()
	store.lists["sp500"] = &models.UniverseList{
		Name:      "sp500",
		Symbols:   []string{"CACHED"},
		FetchedAt: time.Now().Add(-time.Hour),
	}

	u := NewUniverse(dir, store, applogger.Nop())
	got, err := u.Load(context.Background(), UniverseSpec{Name: "sp500", Refresh: 24 * time.Hour})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != "CACHED" {
		t.Fatalf("fresh copy should be served, got %v", got)
	}
	if dir.calls != 0 {
		t.Fatalf("no directory call expected inside the refresh window")
	}
}

func TestUniverseStaleFallbackOnRefreshFailure(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("network down")}
	store := newFakeUniverseStore()
	store.lists["nyse"] = &models.UniverseList{
		Name:      "nyse",
		Symbols:   []string{"OLD"},
		FetchedAt: time.Now().Add(-30 * 24 * time.Hour),
	}

	u := NewUniverse(dir, store, applogger.Nop())
	got, err := u.Load(context.Background(), UniverseSpec{Name: "nyse", Refresh: 24 * time.Hour})
	if err != nil {
		t.Fatalf("stale fallback should not error: %v", err)
	}
	if got[0] != "OLD" {
		t.Fatalf("expected stale copy, got %v", got)
	}
}

func TestUniverseUnavailableWithoutCache(t *testing.T) {
	dir := &fakeDirectory{err: errors.New("network down")}
	u := NewUniverse(dir, newFakeUniverseStore(), applogger.Nop())

	_, err := u.Load(context.Background(), UniverseSpec{Name: "nasdaq"})
	if !errors.Is(err, domrepo.ErrUniverseUnavailable) {
		t.Fatalf("expected ErrUniverseUnavailable, got %v", err)
	}
}

func TestUniverseUnknownNameSurfaces(t *testing.T) {
	dir := &fakeDirectory{}
	u := NewUniverse(dir, newFakeUniverseStore(), applogger.Nop())

	_, err := u.Load(context.Background(), UniverseSpec{Name: "no-such"})
	if !errors.Is(err, domrepo.ErrUnknownUniverse) {
		t.Fatalf("expected ErrUnknownUniverse, got %v", err)
	}
}

func TestUniverseCustomNeverRefreshes(t *testing.T) {
	dir := &fakeDirectory{symbols: []string{"X"}}
	store := newFakeUniverseStore()
	store.lists["custom"] = &models.UniverseList{
		Name:      "custom",
		Symbols:   []string{"MINE1", "MINE2", "MINE3"},
		FetchedAt: time.Now().Add(-365 * 24 * time.Hour),
	}

	u := NewUniverse(dir, store, applogger.Nop())
	got, err := u.Load(context.Background(), UniverseSpec{Name: "custom", MaxTickers: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0] != "MINE1" {
		t.Fatalf("expected truncated custom list, got %v", got)
	}
	if dir.calls != 0 {
		t.Fatalf("custom universe must not hit the directory")
	}
}

func TestUniverseCustomMissingIsUnavailable(t *testing.T) {
	u := NewUniverse(&fakeDirectory{}, newFakeUniverseStore(), applogger.Nop())
	_, err := u.Load(context.Background(), UniverseSpec{Name: "custom"})
	if !errors.Is(err, domrepo.ErrUniverseUnavailable) {
		t.Fatalf("expected ErrUniverseUnavailable, got %v", err)
	}
}

func TestUniverseMaxTickersBound(t *testing.T) {
	dir := &fakeDirectory{symbols: []string{"A", "B", "C", "D"}}
	u := NewUniverse(dir, newFakeUniverseStore(), applogger.Nop())

	got, err := u.Load(context.Background(), UniverseSpec{Name: "nasdaq", MaxTickers: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 symbols, got %v", got)
	}
}
