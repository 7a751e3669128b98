// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package coingecko provides a client for fetching coin prices and trending
// coins from the CoinGecko API.
package coingecko

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.astrophena.name/novadrop/internal/request"
)

// APIEndpoint is the base URL of the CoinGecko API.
const APIEndpoint = "https://api.coingecko.com/api/v3"

// Client holds configuration for interacting with the CoinGecko API.
type Client struct {
	// HTTPClient is an optional HTTP client to use for requests. Defaults to
	// request.DefaultClient.
	HTTPClient *http.Client
}

// Price describes the current market state of a single coin.
type Price struct {
	Price     float64
	Change24h float64 // percent
	Volume24h float64
	MarketCap float64
}

// SimplePrices fetches current prices, 24h changes, volumes and market caps
// for the given coin ids, quoted in vs (e.g. "usd").
func (c *Client) SimplePrices(ctx context.Context, ids []string, vs string) (map[string]Price, error) {
	q := url.Values{
		"ids":                 {strings.Join(ids, ",")},
		"vs_currencies":       {vs},
		"include_24hr_change": {"true"},
		"include_24hr_vol":    {"true"},
		"include_market_cap":  {"true"},
	}

	raw, err := request.MakeJSON[map[string]map[string]float64](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        APIEndpoint + "/simple/price?" + q.Encode(),
		HTTPClient: c.HTTPClient,
	})
	if err != nil {
		return nil, err
	}

	prices := make(map[string]Price, len(raw))
	for id, fields := range raw {
		prices[id] = Price{
			Price:     fields[vs],
			Change24h: fields[vs+"_24h_change"],
			Volume24h: fields[vs+"_24h_vol"],
			MarketCap: fields[vs+"_market_cap"],
		}
	}
	return prices, nil
}

// TrendingCoin is a single entry of the CoinGecko trending list.
type TrendingCoin struct {
	ID            string  `json:"id"`
	Symbol        string  `json:"symbol"`
	MarketCapRank int     `json:"market_cap_rank"`
	Score         float64 `json:"score"`
}

type trendingResponse struct {
	Coins []struct {
		Item TrendingCoin `json:"item"`
	} `json:"coins"`
}

// Trending fetches the list of currently trending coins.
func (c *Client) Trending(ctx context.Context) ([]TrendingCoin, error) {
	resp, err := request.MakeJSON[trendingResponse](ctx, request.Params{
		Method:     http.MethodGet,
		URL:        APIEndpoint + "/search/trending",
		HTTPClient: c.HTTPClient,
	})
	if err != nil {
		return nil, err
	}

	coins := make([]TrendingCoin, 0, len(resp.Coins))
	for _, c := range resp.Coins {
		coins = append(coins, c.Item)
	}
	return coins, nil
}
