// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

/*
Novadrop runs Nova Stratos, a Telegram market commentary bot.

It serves a Telegram webhook that answers chat commands (/drop, /joke,
/memesnipe, /news, /status), posts a scheduled technical analysis drop (price
chart plus AI commentary) to a channel, and processes PayPal IPN payment
notifications, welcoming verified buyers.

Its configuration is read from the environment (optionally via a .env file):

  - TELEGRAM_TOKEN: Telegram Bot API token (required).
  - TELEGRAM_SECRET: secret token that Telegram sends back with webhook
    updates.
  - CHAT_ID: the chat the bot is restricted to and drops are posted to
    (required).
  - OPENAI_KEY: OpenAI API key used for commentary generation.
  - POLYGON_KEY: Polygon.io API key used for price data.
  - DROP_SYMBOL: ticker symbol of scheduled drops (default XFOR).
  - DROP_INTERVAL: interval between scheduled drops (default 4h).
  - PAYPAL_PRICE, PAYPAL_CURRENCY: expected payment amount and currency
    (defaults 97.00, USD).
  - HOST: public hostname used to register the webhook in production mode.
  - ADDR: network address to listen on (default localhost:3000).
*/
package main

import (
	_ "embed"

	"go.astrophena.name/novadrop/internal/cli"
)

//go:embed doc.go
var doc []byte

func init() { cli.SetDocComment(doc) }
