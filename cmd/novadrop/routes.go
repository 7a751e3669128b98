// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"fmt"
	"net/http"

	"go.astrophena.name/novadrop/internal/version"
	"go.astrophena.name/novadrop/internal/web"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (e *engine) initRoutes() {
	e.mux = http.NewServeMux()

	e.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintf(w, "Nova Stratos is watching the tape. (%s)\n", version.Version())
	})

	e.mux.HandleFunc("POST /telegram", e.handleTelegramWebhook)
	e.mux.HandleFunc("POST /paypal/ipn", e.handlePayPalIPN)

	web.Health(e.mux)

	e.mux.Handle("GET /debug/metrics", promhttp.Handler())
	e.mux.Handle("GET /debug/log", e.logStream)
}
