// © 2025 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

package main

import (
	"context"
	"fmt"
	"strings"
)

const defaultNewsFeed = "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%5EGSPC&region=US&lang=en-US"

const (
	maxHeadlines         = 5
	newsUnavailableReply = "Newswire is down. The tape never lies, though."
)

func (e *engine) cmdNews(ctx context.Context, chatID int64, args string) string {
	feed, err := e.feeds.ParseURLWithContext(e.newsFeed, ctx)
	if err != nil {
		e.logf("Fetching headlines: %v", err)
		return newsUnavailableReply
	}
	if len(feed.Items) == 0 {
		return "No headlines right now. Quiet tape."
	}

	var sb strings.Builder
	sb.WriteString("Market headlines:\n")
	for i, item := range feed.Items {
		if i == maxHeadlines {
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n%s\n", i+1, strings.TrimSpace(item.Title), item.Link)
	}
	return strings.TrimRight(sb.String(), "\n")
}
