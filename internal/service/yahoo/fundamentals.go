package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"Rectifex/internal/domain/models"
	drepo "Rectifex/internal/domain/repository"
	xhttp "Rectifex/pkg/http"
)

// Client reads fundamental metrics from the Yahoo quoteSummary API.
// It implements domain.repository.FundamentalsSource.
type Client struct {
	baseURL string
	http    *xhttp.Client
}

// New creates a Yahoo fundamentals client.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithUserAgent("Mozilla/5.0"),
		),
	}
}

// rawValue is Yahoo's {raw, fmt} number wrapper.
type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummary struct {
	QuoteSummary struct {
		Result []struct {
			FinancialData struct {
				ReturnOnEquity   rawValue `json:"returnOnEquity"`
				ReturnOnAssets   rawValue `json:"returnOnAssets"`
				GrossMargins     rawValue `json:"grossMargins"`
				OperatingMargins rawValue `json:"operatingMargins"`
				EbitdaMargins    rawValue `json:"ebitdaMargins"`
				RevenueGrowth    rawValue `json:"revenueGrowth"`
				EarningsGrowth   rawValue `json:"earningsGrowth"`
				DebtToEquity     rawValue `json:"debtToEquity"`
				TotalDebt        rawValue `json:"totalDebt"`
				TotalCash        rawValue `json:"totalCash"`
				CurrentRatio     rawValue `json:"currentRatio"`
			} `json:"financialData"`
			SummaryDetail struct {
				TrailingPE         rawValue `json:"trailingPE"`
				ForwardPE          rawValue `json:"forwardPE"`
				PriceToBook        rawValue `json:"priceToBook"`
				EnterpriseToEbitda rawValue `json:"enterpriseToEbitda"`
				DividendYield      rawValue `json:"dividendYield"`
				PayoutRatio        rawValue `json:"payoutRatio"`
				Beta               rawValue `json:"beta"`
				MarketCap          rawValue `json:"marketCap"`
				AverageVolume      rawValue `json:"averageVolume"`
			} `json:"summaryDetail"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// Fundamentals returns the curated metric map for one symbol. Metrics the
// provider does not report are absent from the map.
func (c *Client) Fundamentals(ctx context.Context, symbol string) (models.Fundamentals, error) {
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s", c.baseURL, url.PathEscape(symbol))

	var resp quoteSummary
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    u,
		QueryParams: map[string][]string{
			"modules": {"financialData,summaryDetail"},
		},
	}, &resp)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			switch se.Status {
			case http.StatusTooManyRequests:
				return nil, fmt.Errorf("yahoo: %w", drepo.ErrRateLimited)
			case http.StatusNotFound:
				return nil, fmt.Errorf("yahoo %s: %w", symbol, drepo.ErrNoData)
			}
		}
		return nil, fmt.Errorf("yahoo: %w", err)
	}

	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, drepo.ErrNoData)
	}

	r := resp.QuoteSummary.Result[0]
	f := models.Fundamentals{}
	put := func(key string, v rawValue) {
		if v.Raw != nil && !math.IsNaN(*v.Raw) {
			f[key] = *v.Raw
		}
	}

	put("roe", r.FinancialData.ReturnOnEquity)
	put("roa", r.FinancialData.ReturnOnAssets)
	put("grossMargin", r.FinancialData.GrossMargins)
	put("operatingMargin", r.FinancialData.OperatingMargins)
	put("ebitdaMargin", r.FinancialData.EbitdaMargins)
	put("revenueGrowth", r.FinancialData.RevenueGrowth)
	put("earningsGrowth", r.FinancialData.EarningsGrowth)
	put("debtToEquity", r.FinancialData.DebtToEquity)
	put("totalDebt", r.FinancialData.TotalDebt)
	put("totalCash", r.FinancialData.TotalCash)
	put("currentRatio", r.FinancialData.CurrentRatio)
	put("trailingPE", r.SummaryDetail.TrailingPE)
	put("forwardPE", r.SummaryDetail.ForwardPE)
	put("pb", r.SummaryDetail.PriceToBook)
	put("enterpriseToEbitda", r.SummaryDetail.EnterpriseToEbitda)
	put("dividendYield", r.SummaryDetail.DividendYield)
	put("payoutRatio", r.SummaryDetail.PayoutRatio)
	put("beta", r.SummaryDetail.Beta)
	put("marketCap", r.SummaryDetail.MarketCap)
	put("averageVolume", r.SummaryDetail.AverageVolume)

	return f, nil
}
