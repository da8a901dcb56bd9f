package search

import (
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"webscout/browser"
)

// NewBrave drives search.brave.com through a pooled browser tab. Brave
// serves direct result links, so no redirect unwrapping is needed.
func NewBrave(pool *browser.Pool, logger *zap.Logger, timeout time.Duration) Provider {
	return newBrowserProvider(engine{
		id: "brave",
		searchURL: func(query string) string {
			return "https://search.brave.com/search?q=" + url.QueryEscape(query)
		},
		resultSelector: "div#results",
		blockedMarkers: []string{
			"prove you're not a robot",
			"please complete the captcha",
		},
		parse: parseBrave,
	}, pool, logger, timeout)
}

func parseBrave(doc *goquery.Document) []Result {
	now := time.Now()
	var results []Result
	doc.Find(`div#results div.snippet[data-type="web"]`).Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		title := strings.TrimSpace(sel.Find("div.title").First().Text())
		if title == "" {
			title = strings.TrimSpace(link.Text())
		}
		results = append(results, Result{
			Title:       title,
			URL:         href,
			Description: strings.TrimSpace(sel.Find("div.snippet-description").First().Text()),
			Timestamp:   now,
		})
	})
	return results
}
