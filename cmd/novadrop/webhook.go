// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf16"

	"go.astrophena.name/novadrop/internal/web"
)

// update represents an incoming update from the Telegram Bot API.
type update struct {
	Message     *message `json:"message"`
	ChannelPost *message `json:"channel_post"`
}

func (u *update) message() *message {
	if u.Message != nil {
		return u.Message
	}
	return u.ChannelPost
}

type message struct {
	Text     string          `json:"text"`
	Chat     chat            `json:"chat"`
	From     *user           `json:"from"`
	Entities []messageEntity `json:"entities"`
}

type chat struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type user struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type messageEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
}

const (
	restrictedReply = "This bot is restricted to a specific channel."
	unknownReply    = "Unknown command. Try /drop, /joke, /memesnipe, /news or /status."
)

func (e *engine) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if e.tgSecret != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != e.tgSecret {
		web.RespondJSONError(e.logf, w, web.ErrNotFound)
		return
	}

	var u update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		web.RespondJSONError(e.logf, w, fmt.Errorf("%w: invalid JSON", web.ErrBadRequest))
		return
	}
	updatesTotal.Inc()

	msg := u.message()
	if msg == nil || msg.Chat.ID == 0 {
		web.RespondJSONError(e.logf, w, fmt.Errorf("%w: missing chat", web.ErrBadRequest))
		return
	}

	if reply := e.route(r.Context(), msg); reply != "" {
		if err := e.sendMessage(r.Context(), msg.Chat.ID, reply); err != nil {
			e.logf("Failed to reply in chat %d: %v", msg.Chat.ID, err)
		}
	}
	web.RespondJSON(w, map[string]string{"status": "ok"})
}

type handlerFunc func(ctx context.Context, chatID int64, args string) string

func (e *engine) commands() map[string]handlerFunc {
	return map[string]handlerFunc{
		"/drop":      e.cmdDrop,
		"/joke":      e.cmdJoke,
		"/memesnipe": e.cmdMemesnipe,
		"/news":      e.cmdNews,
		"/status":    e.cmdStatus,
	}
}

// route picks and runs a handler for msg, returning the text to reply with.
// An empty return means no reply is needed (the handler may have responded
// by other means, like /drop posting a photo).
func (e *engine) route(ctx context.Context, msg *message) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return ""
	}

	if !e.authorized(msg.Chat) {
		return restrictedReply
	}

	cmd, args := commandFrom(msg)
	if h, ok := e.commands()[cmd]; ok {
		return h(ctx, msg.Chat.ID, args)
	}

	if reply := keywordReply(text); reply != "" {
		return reply
	}
	return unknownReply
}

func (e *engine) authorized(c chat) bool {
	if e.chatID == "" {
		return true
	}
	if name, ok := strings.CutPrefix(e.chatID, "@"); ok {
		return strings.EqualFold(name, c.Username)
	}
	return strconv.FormatInt(c.ID, 10) == e.chatID
}

// commandFrom extracts the command and its arguments from a message. It
// prefers the first bot_command entity (whose offsets are in UTF-16 code
// units), falling back to the first whitespace-separated token. The command
// is lowercased and a trailing @botname is stripped.
func commandFrom(msg *message) (cmd, args string) {
	u16 := utf16.Encode([]rune(msg.Text))
	for _, ent := range msg.Entities {
		if ent.Type != "bot_command" {
			continue
		}
		if ent.Offset < 0 || ent.Length <= 0 || ent.Offset+ent.Length > len(u16) {
			break
		}
		cmd = string(utf16.Decode(u16[ent.Offset : ent.Offset+ent.Length]))
		args = string(utf16.Decode(u16[ent.Offset+ent.Length:]))
		break
	}
	if cmd == "" {
		cmd, args, _ = strings.Cut(strings.TrimSpace(msg.Text), " ")
	}

	cmd = strings.ToLower(cmd)
	cmd, _, _ = strings.Cut(cmd, "@")
	return cmd, strings.TrimSpace(args)
}

// keywordNudges is scanned in order, first match wins.
var keywordNudges = []struct{ keyword, reply string }{
	{"xfor", "Feeling the XFOR itch? /drop gets you the latest chart."},
	{"doge", "Meme radar is live. /memesnipe scans the usual suspects."},
	{"pepe", "Meme radar is live. /memesnipe scans the usual suspects."},
	{"shib", "Meme radar is live. /memesnipe scans the usual suspects."},
	{"pump", "Patience. /drop gets you signal, not noise."},
}

func keywordReply(text string) string {
	lower := strings.ToLower(text)
	for _, n := range keywordNudges {
		if strings.Contains(lower, n.keyword) {
			return n.reply
		}
	}
	return ""
}

func (e *engine) cmdStatus(ctx context.Context, chatID int64, args string) string {
	return fmt.Sprintf("Nova Stratos online. Watching %s, dropping every %s.", e.symbol, e.interval)
}
