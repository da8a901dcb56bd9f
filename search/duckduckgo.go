package search

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"webscout/browser"
)

// NewDuckDuckGo drives duckduckgo.com through a pooled browser tab.
func NewDuckDuckGo(pool *browser.Pool, logger *zap.Logger, timeout time.Duration) Provider {
	return newBrowserProvider(engine{
		id: "duckduckgo",
		searchURL: func(query string) string {
			return "https://duckduckgo.com/?q=" + url.QueryEscape(query) + "&ia=web"
		},
		resultSelector: `section[data-testid="mainline"]`,
		blockedMarkers: []string{
			"anomaly-modal",
			"bots use duckduckgo too",
			"challenge-form",
		},
		parse: parseDuckDuckGo,
	}, pool, logger, timeout)
}

func parseDuckDuckGo(doc *goquery.Document) []Result {
	now := time.Now()
	var results []Result
	doc.Find(`article[data-testid="result"]`).Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find(`a[data-testid="result-title-a"]`).First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		results = append(results, Result{
			Title:       strings.TrimSpace(link.Text()),
			URL:         unwrapDuckDuckGoURL(href),
			Description: strings.TrimSpace(sel.Find(`div[data-result="snippet"]`).First().Text()),
			Timestamp:   now,
		})
	})
	return results
}

// unwrapDuckDuckGoURL resolves the /l/?uddg= redirect wrapper some result
// links carry.
func unwrapDuckDuckGoURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.HasSuffix(u.Hostname(), "duckduckgo.com") || !strings.HasPrefix(u.Path, "/l/") {
		return raw
	}
	target := u.Query().Get("uddg")
	if target == "" || ValidateURL(target) != nil {
		return raw
	}
	return target
}
