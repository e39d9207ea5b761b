// Package obligations fetches federal obligation pages, normalizes them into
// display records and tracks which fiscal year the displayed data belongs to.
package obligations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/obligation-finder/internal/fetcher"
	"github.com/sells-group/obligation-finder/internal/model"
)

const (
	// DefaultBaseURL is the USAspending federal obligations endpoint.
	DefaultBaseURL         = "https://api.usaspending.gov/api/v2/federal_obligations/"
	DefaultFundingAgencyID = 315
	DefaultLimit           = 100
)

// Source returns the raw records for one fiscal year.
type Source interface {
	Fetch(ctx context.Context, year model.FiscalYear) ([]model.RawObligationRecord, error)
}

// ClientConfig configures the obligations API client.
type ClientConfig struct {
	BaseURL         string
	FundingAgencyID int
	Limit           int
}

// Client reads the first page of obligations for a fiscal year.
type Client struct {
	f   fetcher.Fetcher
	cfg ClientConfig
}

// Ensure Client implements Source.
var _ Source = (*Client)(nil)

// NewClient creates a Client. Zero-valued config fields take the defaults.
func NewClient(f fetcher.Fetcher, cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.FundingAgencyID == 0 {
		cfg.FundingAgencyID = DefaultFundingAgencyID
	}
	if cfg.Limit == 0 {
		cfg.Limit = DefaultLimit
	}
	return &Client{f: f, cfg: cfg}
}

// URL returns the request URL for year. Only the first page is ever requested.
func (c *Client) URL(year model.FiscalYear) string {
	return fmt.Sprintf("%s?fiscal_year=%d&funding_agency_id=%d&limit=%d&page=1",
		c.cfg.BaseURL,
		int(year),
		c.cfg.FundingAgencyID,
		c.cfg.Limit,
	)
}

// Fetch downloads and decodes the page for year. Every failure is a
// *FetchError: KindTransport for network and status errors, KindParse for
// invalid JSON, KindShape for JSON whose results field is absent, null or
// not an array of records.
func (c *Client) Fetch(ctx context.Context, year model.FiscalYear) ([]model.RawObligationRecord, error) {
	body, err := c.f.Download(ctx, c.URL(year))
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Year: int(year), Err: err}
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &FetchError{Kind: KindTransport, Year: int(year), Err: eris.Wrap(err, "read response body")}
	}

	if !json.Valid(data) {
		return nil, &FetchError{Kind: KindParse, Year: int(year), Err: eris.New("response body is not valid JSON")}
	}

	page, err := fetcher.DecodeJSONObject[model.ObligationPage](bytes.NewReader(data))
	if err != nil {
		return nil, &FetchError{Kind: KindShape, Year: int(year), Err: err}
	}
	if page.Results == nil {
		return nil, &FetchError{Kind: KindShape, Year: int(year), Err: eris.New("results field missing or null")}
	}

	return *page.Results, nil
}
