package main

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/obligation-finder/internal/config"
	"github.com/sells-group/obligation-finder/internal/fetcher"
	"github.com/sells-group/obligation-finder/internal/model"
	"github.com/sells-group/obligation-finder/internal/obligations"
)

// usaspendingHost is throttled with the configured API rate instead of the
// fetcher default.
const usaspendingHost = "api.usaspending.gov"

// yearRange returns the selectable fiscal years from config.
func yearRange(c *config.Config) model.YearRange {
	return model.YearRange{
		Min: model.FiscalYear(c.Years.Min),
		Max: model.FiscalYear(c.Years.Max),
	}
}

// newSource builds the HTTP-backed obligations client from config.
func newSource(c *config.Config) *obligations.Client {
	limiters := fetcher.DefaultRateLimiters()
	if c.API.RateLimit > 0 {
		burst := c.API.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiters[usaspendingHost] = rate.NewLimiter(rate.Limit(c.API.RateLimit), burst)
	}

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:    c.API.UserAgent,
		Timeout:      time.Duration(c.API.TimeoutSecs) * time.Second,
		RateLimiters: limiters,
	})

	return obligations.NewClient(f, obligations.ClientConfig{
		BaseURL:         c.API.BaseURL,
		FundingAgencyID: c.API.FundingAgencyID,
		Limit:           c.API.Limit,
	})
}
