package scans

import (
	"math"
	"testing"
	"time"

	"Rectifex/internal/domain/models"
)

func TestScoreLinearBounds(t *testing.T) {
	if got := scoreLinear(0.05, 0.1, 0.25, false); got != 0 {
		t.Fatalf("below low should score 0, got %v", got)
	}
	if got := scoreLinear(0.3, 0.1, 0.25, false); got != 100 {
		t.Fatalf("above high should score 100, got %v", got)
	}
	if got := scoreLinear(0.175, 0.1, 0.25, false); math.Abs(got-50) > 1e-9 {
		t.Fatalf("midpoint should score 50, got %v", got)
	}
}

func TestScoreLinearReverse(t *testing.T) {
	if got := scoreLinear(8, 10, 40, true); got != 100 {
		t.Fatalf("cheap multiple should score 100, got %v", got)
	}
	if got := scoreLinear(50, 10, 40, true); got != 0 {
		t.Fatalf("expensive multiple should score 0, got %v", got)
	}
}

func TestScoreBandSweetSpot(t *testing.T) {
	if got := scoreBand(0.45, 0, 0.3, 0.6, 0.9); got != 100 {
		t.Fatalf("sweet spot should score 100, got %v", got)
	}
	if got := scoreBand(0.95, 0, 0.3, 0.6, 0.9); got != 0 {
		t.Fatalf("above high should score 0, got %v", got)
	}
	if got := scoreBand(0.15, 0, 0.3, 0.6, 0.9); math.Abs(got-50) > 1e-9 {
		t.Fatalf("halfway to sweet low should score 50, got %v", got)
	}
}

func TestAggregateIgnoresMissing(t *testing.T) {
	got := aggregate(80, math.NaN(), 60)
	if math.Abs(got-70) > 1e-9 {
		t.Fatalf("expected mean of finite scores, got %v", got)
	}
	if aggregate(math.NaN(), math.NaN()) != 0 {
		t.Fatalf("all missing should aggregate to 0")
	}
}

func TestCompositeWeighting(t *testing.T) {
	weights := map[string]float64{"a": 3, "b": 1}
	parts := map[string]float64{"a": 100, "b": 0}
	if got := Composite(weights, parts); math.Abs(got-75) > 1e-9 {
		t.Fatalf("expected 75, got %v", got)
	}
	if got := Composite(map[string]float64{}, parts); got != 0 {
		t.Fatalf("no weights should score 0, got %v", got)
	}
}

func TestScoreQualityFullMarks(t *testing.T) {
	f := models.Fundamentals{
		"roe":             0.30,
		"roa":             0.20,
		"grossMargin":     0.60,
		"operatingMargin": 0.35,
		"ebitdaMargin":    0.40,
	}
	if got := ScoreQuality(f); got != 100 {
		t.Fatalf("expected 100, got %v", got)
	}
}

func TestScoreFinanceUsesCashCoverage(t *testing.T) {
	strong := models.Fundamentals{
		"debtToEquity": 0.0,
		"currentRatio": 3.5,
		"totalDebt":    100.0,
		"totalCash":    200.0,
	}
	weak := models.Fundamentals{
		"debtToEquity": 2.5,
		"currentRatio": 0.8,
		"totalDebt":    200.0,
		"totalCash":    10.0,
	}
	if ScoreFinance(strong) <= ScoreFinance(weak) {
		t.Fatalf("strong balance sheet should outscore weak one")
	}
}

func TestTimingModifierRegimeFilter(t *testing.T) {
	// 250 bars trending down so the last close sits well below SMA200.
	series := syntheticSeries("TEST", 250, func(i int) float64 {
		return 300 - float64(i)
	})
	mod, reason := TimingModifier(series)
	if mod != -20 {
		t.Fatalf("expected regime penalty, got %v (%s)", mod, reason)
	}
}

func TestTimingModifierShortHistory(t *testing.T) {
	series := syntheticSeries("TEST", 30, func(i int) float64 { return 100 })
	mod, _ := TimingModifier(series)
	if mod != 0 {
		t.Fatalf("short history should be neutral, got %v", mod)
	}
}

func syntheticSeries(symbol string, n int, closeAt func(i int) float64) *models.PriceSeries {
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	bars := make([]models.Bar, n)
	for i := 0; i < n; i++ {
		c := closeAt(i)
		bars[i] = models.Bar{
			Date:   base.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 1_000_000,
		}
	}
	return &models.PriceSeries{Symbol: symbol, Period: "1y", Bars: bars}
}
