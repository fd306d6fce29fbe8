package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"Rectifex/internal/domain/models"
	domrepo "Rectifex/internal/domain/repository"
	"Rectifex/pkg/cache"
	applogger "Rectifex/pkg/logger"
)

type fakeFundamentalsSource struct {
	calls int
	data  map[string]models.Fundamentals
	errs  map[string]error
}

func (f *fakeFundamentalsSource) Fundamentals(_ context.Context, symbol string) (models.Fundamentals, error) {
	f.calls++
	if err := f.errs[symbol]; err != nil {
		return nil, err
	}
	return f.data[symbol], nil
}

func newTestFundamentals(t *testing.T, src *fakeFundamentalsSource) *FundamentalsService {
	t.Helper()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })
	return NewFundamentalsService(src, c, applogger.Nop(), time.Hour)
}

func TestFundamentalsCachesLookups(t *testing.T) {
	src := &fakeFundamentalsSource{
		data: map[string]models.Fundamentals{"AAPL": {"roe": 0.3}},
	}
	s := newTestFundamentals(t, src)

	for i := 0; i < 3; i++ {
		f, err := s.Get(context.Background(), "AAPL")
		if err != nil {
			t.Fatalf("lookup %d: %v", i, err)
		}
		if f["roe"] != 0.3 {
			t.Fatalf("lookup %d: got %v", i, f)
		}
	}
	if src.calls != 1 {
		t.Fatalf("expected one provider call, got %d", src.calls)
	}
}

func TestFundamentalsNoDataIsSticky(t *testing.T) {
	src := &fakeFundamentalsSource{
		errs: map[string]error{"DEAD": domrepo.ErrNoData},
	}
	s := newTestFundamentals(t, src)

	for i := 0; i < 3; i++ {
		if _, err := s.Get(context.Background(), "DEAD"); !errors.Is(err, domrepo.ErrNoData) {
			t.Fatalf("lookup %d: expected ErrNoData, got %v", i, err)
		}
	}
	if src.calls != 1 {
		t.Fatalf("remembered miss should not re-query, got %d calls", src.calls)
	}
}

func TestFundamentalsTransientErrorNotCached(t *testing.T) {
	src := &fakeFundamentalsSource{
		errs: map[string]error{"AAPL": errors.New("timeout")},
	}
	s := newTestFundamentals(t, src)

	if _, err := s.Get(context.Background(), "AAPL"); err == nil {
		t.Fatalf("expected error")
	}

	src.errs = map[string]error{}
	src.data = map[string]models.Fundamentals{"AAPL": {"roe": 0.2}}
	f, err := s.Get(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("recovered provider should answer: %v", err)
	}
	if f["roe"] != 0.2 {
		t.Fatalf("got %v", f)
	}
	if src.calls != 2 {
		t.Fatalf("transient error should not be cached, got %d calls", src.calls)
	}
}
