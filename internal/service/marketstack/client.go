package marketstack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"Rectifex/internal/domain/models"
	drepo "Rectifex/internal/domain/repository"
	xhttp "Rectifex/pkg/http"
)

const pageLimit = 1000

// Client fetches end-of-day price history from the Marketstack API.
// It implements domain.repository.MarketData.
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
	now     func() time.Time
}

// New creates a Marketstack client.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		now:     time.Now,
	}
}

type eodRow struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Date   string  `json:"date"` // "2024-04-01T00:00:00+0000"
	Symbol string  `json:"symbol"`
}

type eodResponse struct {
	Pagination struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
		Count  int `json:"count"`
		Total  int `json:"total"`
	} `json:"pagination"`
	Data []eodRow `json:"data"`
}

// History returns the daily history for a single symbol.
func (c *Client) History(ctx context.Context, symbol, period string) (*models.PriceSeries, error) {
	series, err := c.HistoryBatch(ctx, []string{symbol}, period)
	if err != nil {
		return nil, err
	}
	s, ok := series[symbol]
	if !ok || s.Empty() {
		return nil, fmt.Errorf("%s: %w", symbol, drepo.ErrNoData)
	}
	return s, nil
}

// HistoryBatch returns histories for many symbols from the eod endpoint.
// Pagination pages through one logical provider request; symbols the
// provider has no rows for are simply absent from the result.
func (c *Client) HistoryBatch(ctx context.Context, symbols []string, period string) (map[string]*models.PriceSeries, error) {
	if len(symbols) == 0 {
		return map[string]*models.PriceSeries{}, nil
	}

	params := map[string][]string{
		"access_key": {c.apiKey},
		"symbols":    {strings.Join(symbols, ",")},
		"limit":      {fmt.Sprintf("%d", pageLimit)},
		"sort":       {"ASC"},
	}
	if from, ok := c.dateFrom(period); ok {
		params["date_from"] = []string{from.Format("2006-01-02")}
	}

	bySymbol := make(map[string][]models.Bar)
	offset := 0
	for {
		params["offset"] = []string{fmt.Sprintf("%d", offset)}

		var resp eodResponse
		err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
			Method:      xhttp.MethodGet,
			URL:         c.baseURL + "/eod",
			QueryParams: params,
		}, &resp)
		if err != nil {
			return nil, classifyError(err)
		}

		for _, row := range resp.Data {
			bar, err := rowToBar(row)
			if err != nil {
				continue // malformed row, skip it
			}
			bySymbol[row.Symbol] = append(bySymbol[row.Symbol], bar)
		}

		if resp.Pagination.Count < pageLimit {
			break
		}
		offset += pageLimit
	}

	out := make(map[string]*models.PriceSeries, len(bySymbol))
	for symbol, bars := range bySymbol {
		sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
		out[symbol] = &models.PriceSeries{Symbol: symbol, Period: period, Bars: bars}
	}
	return out, nil
}

func rowToBar(row eodRow) (models.Bar, error) {
	ts, err := time.Parse("2006-01-02T15:04:05-0700", row.Date)
	if err != nil {
		// some plans return plain dates
		ts, err = time.Parse("2006-01-02", row.Date)
		if err != nil {
			return models.Bar{}, err
		}
	}
	return models.Bar{
		Date:   ts.UTC(),
		Open:   row.Open,
		High:   row.High,
		Low:    row.Low,
		Close:  row.Close,
		Volume: row.Volume,
	}, nil
}

// dateFrom maps a period string to the request start date. "max" means no
// lower bound.
func (c *Client) dateFrom(period string) (time.Time, bool) {
	now := c.now().UTC()
	switch period {
	case "1mo":
		return now.AddDate(0, -1, 0), true
	case "3mo":
		return now.AddDate(0, -3, 0), true
	case "6mo":
		return now.AddDate(0, -6, 0), true
	case "1y":
		return now.AddDate(-1, 0, 0), true
	case "2y":
		return now.AddDate(-2, 0, 0), true
	case "5y":
		return now.AddDate(-5, 0, 0), true
	case "10y":
		return now.AddDate(-10, 0, 0), true
	case "ytd":
		return time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC), true
	case "max":
		return time.Time{}, false
	default:
		return now.AddDate(-1, 0, 0), true
	}
}

func classifyError(err error) error {
	var se *xhttp.StatusError
	if errors.As(err, &se) {
		switch se.Status {
		case http.StatusTooManyRequests:
			return fmt.Errorf("marketstack: %w", drepo.ErrRateLimited)
		case http.StatusUnprocessableEntity:
			// no valid symbols in the request
			return fmt.Errorf("marketstack: %w", drepo.ErrNoData)
		}
	}
	return fmt.Errorf("marketstack: %w", err)
}
