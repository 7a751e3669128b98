// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	updatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "novadrop_telegram_updates_total",
		Help: "Telegram webhook updates received.",
	})
	dropsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novadrop_drops_total",
		Help: "Drop runs by trigger and outcome.",
	}, []string{"trigger", "outcome"})
	paymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "novadrop_payments_total",
		Help: "PayPal IPN messages by processing outcome.",
	}, []string{"outcome"})
)
