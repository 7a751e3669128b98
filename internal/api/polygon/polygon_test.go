// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package polygon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.astrophena.name/novadrop/internal/testutil"
)

type roundTripFunc func(r *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func testClient(mux *http.ServeMux) *Client {
	return &Client{
		APIKey: "test",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, r)
				return w.Result(), nil
			}),
		},
		now: func() time.Time { return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestDailySeries(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET api.polygon.io/v2/aggs/ticker/{symbol}/range/1/day/{from}/{to}", func(w http.ResponseWriter, r *http.Request) {
		testutil.AssertEqual(t, r.PathValue("symbol"), "XFOR")
		testutil.AssertEqual(t, r.PathValue("to"), "2025-06-01")
		testutil.AssertEqual(t, r.URL.Query().Get("apiKey"), "test")
		w.Write([]byte(`{"status":"OK","results":[
			{"c":4.2,"v":1000,"t":1748000000000},
			{"c":4.5,"v":1200,"t":1748086400000}
		]}`))
	})

	s, err := testClient(mux).DailySeries(context.Background(), "xfor", 90)
	if err != nil {
		t.Fatal(err)
	}

	testutil.AssertEqual(t, s.Symbol, "XFOR")
	testutil.AssertEqual(t, s.Len(), 2)
	testutil.AssertEqual(t, s.Closes, []float64{4.2, 4.5})
	testutil.AssertEqual(t, s.Volumes, []float64{1000, 1200})
	testutil.AssertEqual(t, s.Last(), 4.5)
}

func TestDailySeriesAPIError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET api.polygon.io/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ERROR","error":"unknown ticker"}`))
	})

	_, err := testClient(mux).DailySeries(context.Background(), "NOPE", 90)
	if err == nil || !strings.Contains(err.Error(), "unknown ticker") {
		t.Fatalf("want unknown ticker error, got %v", err)
	}
}

func TestDailySeriesEmpty(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET api.polygon.io/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"OK"}`))
	})

	s, err := testClient(mux).DailySeries(context.Background(), "XFOR", 90)
	if err != nil {
		t.Fatal(err)
	}
	testutil.AssertEqual(t, s.Len(), 0)
	testutil.AssertEqual(t, s.Last(), float64(0))
}
