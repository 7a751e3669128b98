// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package polygon provides a client for fetching daily price aggregates from
// the Polygon.io API.
package polygon

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.astrophena.name/novadrop/internal/request"
)

// APIEndpoint is the base URL of the Polygon.io API.
const APIEndpoint = "https://api.polygon.io"

// Client holds configuration for interacting with the Polygon.io API.
type Client struct {
	// APIKey is the API key used for authentication.
	APIKey string
	// HTTPClient is an optional HTTP client to use for requests. Defaults to
	// request.DefaultClient.
	HTTPClient *http.Client
	// Scrubber is an optional strings.Replacer that scrubs unwanted data
	// from error messages.
	Scrubber *strings.Replacer

	// now returns the current time; used in tests.
	now func() time.Time
}

// Series is a daily price series for a single symbol, oldest bar first.
type Series struct {
	Symbol     string
	Closes     []float64
	Volumes    []float64
	Timestamps []int64 // Unix milliseconds
}

// Len returns the number of bars in the series.
func (s Series) Len() int { return len(s.Closes) }

// Last returns the most recent closing price, or zero for an empty series.
func (s Series) Last() float64 {
	if len(s.Closes) == 0 {
		return 0
	}
	return s.Closes[len(s.Closes)-1]
}

type agg struct {
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
	Timestamp int64   `json:"t"`
}

type aggsResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Results []agg  `json:"results"`
}

// DailySeries fetches daily aggregates for symbol covering the last days
// calendar days.
func (c *Client) DailySeries(ctx context.Context, symbol string, days int) (Series, error) {
	now := time.Now
	if c.now != nil {
		now = c.now
	}

	var (
		end   = now()
		start = end.AddDate(0, 0, -days)
	)
	url := fmt.Sprintf("%s/v2/aggs/ticker/%s/range/1/day/%s/%s?adjusted=true&sort=asc&limit=%d&apiKey=%s",
		APIEndpoint,
		strings.ToUpper(symbol),
		start.Format(time.DateOnly),
		end.Format(time.DateOnly),
		days,
		c.APIKey,
	)

	resp, err := request.MakeJSON[aggsResponse](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        url,
		HTTPClient: c.HTTPClient,
		Scrubber:   c.Scrubber,
	})
	if err != nil {
		return Series{}, err
	}
	if resp.Error != "" {
		return Series{}, fmt.Errorf("polygon: %s", resp.Error)
	}

	s := Series{Symbol: strings.ToUpper(symbol)}
	for _, a := range resp.Results {
		s.Closes = append(s.Closes, a.Close)
		s.Volumes = append(s.Volumes, a.Volume)
		s.Timestamps = append(s.Timestamps, a.Timestamp)
	}
	return s, nil
}
