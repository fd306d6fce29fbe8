package symbols

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	drepo "Rectifex/internal/domain/repository"
	xhttp "Rectifex/pkg/http"
	"Rectifex/pkg/util"
)

const (
	nasdaqTradedURL = "https://www.nasdaqtrader.com/dynamic/SymDir/nasdaqtraded.txt"
	otherListedURL  = "https://www.nasdaqtrader.com/dynamic/SymDir/otherlisted.txt"
	sp500URL        = "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies"
)

// Directory resolves universe names to listed symbols. The Nasdaq Trader
// symbol directory covers the us-all, nasdaq and nyse universes; the S&P 500
// membership is scraped from its Wikipedia constituents table.
type Directory struct {
	http *xhttp.Client
}

// NewDirectory creates a symbol directory backed by public listings.
func NewDirectory(timeout time.Duration) *Directory {
	return &Directory{
		http: xhttp.NewClient(
			xhttp.WithTimeout(timeout),
			xhttp.WithUserAgent("Mozilla/5.0"),
		),
	}
}

// List returns the cleaned, sorted symbols of the named universe.
func (d *Directory) List(ctx context.Context, name string) ([]string, error) {
	switch name {
	case "us-all":
		nas, err := d.fetchColumn(ctx, nasdaqTradedURL, "Symbol")
		if err != nil {
			return nil, err
		}
		other, err := d.fetchColumn(ctx, otherListedURL, "ACT Symbol")
		if err != nil {
			return nil, err
		}
		return util.CleanListedSymbols(append(nas, other...)), nil
	case "nasdaq":
		syms, err := d.fetchColumn(ctx, nasdaqTradedURL, "Symbol")
		if err != nil {
			return nil, err
		}
		return util.CleanListedSymbols(syms), nil
	case "nyse":
		syms, err := d.fetchColumn(ctx, otherListedURL, "ACT Symbol")
		if err != nil {
			return nil, err
		}
		return util.CleanListedSymbols(syms), nil
	case "sp500":
		return d.fetchSP500(ctx)
	default:
		return nil, fmt.Errorf("universe %q: %w", name, drepo.ErrUnknownUniverse)
	}
}

// fetchColumn downloads a pipe-separated Nasdaq Trader directory file and
// extracts one column. The trailing "File Creation Time" row is skipped.
func (d *Directory) fetchColumn(ctx context.Context, url, column string) ([]string, error) {
	var body []byte
	err := d.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    url,
	}, &body)
	if err != nil {
		return nil, fmt.Errorf("symbol directory: %w", err)
	}

	lines := strings.Split(string(body), "\n")
	if len(lines) < 2 {
		return nil, fmt.Errorf("symbol directory: empty file from %s", url)
	}

	header := strings.Split(strings.TrimRight(lines[0], "\r"), "|")
	col := -1
	for i, h := range header {
		if h == column {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("symbol directory: column %q not found in %s", column, url)
	}

	syms := make([]string, 0, len(lines))
	for _, line := range lines[1:] {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "File Creation Time") {
			continue
		}
		fields := strings.Split(line, "|")
		if col >= len(fields) {
			continue
		}
		if s := strings.TrimSpace(fields[col]); s != "" {
			syms = append(syms, s)
		}
	}

	return syms, nil
}

// fetchSP500 scrapes the constituents table. The first cell of each row in
// the table with id "constituents" holds the ticker.
func (d *Directory) fetchSP500(ctx context.Context) ([]string, error) {
	resp, err := d.http.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    sp500URL,
	})
	if err != nil {
		return nil, fmt.Errorf("sp500 list: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("sp500 list: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sp500 list: parse html: %w", err)
	}

	var syms []string
	doc.Find("table#constituents tbody tr").Each(func(_ int, row *goquery.Selection) {
		cell := row.Find("td").First()
		if sym := strings.TrimSpace(cell.Text()); sym != "" {
			syms = append(syms, sym)
		}
	})
	if len(syms) == 0 {
		return nil, fmt.Errorf("sp500 list: no constituents found")
	}

	return util.CleanListedSymbols(syms), nil
}
