package search

import (
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"webscout/browser"
)

// NewBing drives bing.com/search through a pooled browser tab.
func NewBing(pool *browser.Pool, logger *zap.Logger, timeout time.Duration) Provider {
	return newBrowserProvider(engine{
		id: "bing",
		searchURL: func(query string) string {
			return "https://www.bing.com/search?q=" + url.QueryEscape(query)
		},
		resultSelector: "ol#b_results",
		blockedMarkers: []string{
			"b_captcha",
			"verify you are human",
			"unusual traffic from your computer",
		},
		parse: parseBing,
	}, pool, logger, timeout)
}

func parseBing(doc *goquery.Document) []Result {
	now := time.Now()
	var results []Result
	doc.Find("li.b_algo").Each(func(_ int, sel *goquery.Selection) {
		link := sel.Find("h2 a").First()
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		desc := strings.TrimSpace(sel.Find("div.b_caption p").First().Text())
		if desc == "" {
			desc = strings.TrimSpace(sel.Find("p").First().Text())
		}
		results = append(results, Result{
			Title:       strings.TrimSpace(link.Text()),
			URL:         unwrapBingURL(href),
			Description: desc,
			Timestamp:   now,
		})
	})
	return results
}

// unwrapBingURL decodes Bing's /ck/a click-tracking redirect. The target is
// carried base64url-encoded in the u parameter with an "a1" version prefix.
func unwrapBingURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if !strings.HasSuffix(u.Hostname(), "bing.com") || !strings.HasPrefix(u.Path, "/ck/") {
		return raw
	}
	enc := strings.TrimPrefix(u.Query().Get("u"), "a1")
	if enc == "" {
		return raw
	}
	decoded, err := base64.RawURLEncoding.DecodeString(enc)
	if err != nil {
		if decoded, err = base64.URLEncoding.DecodeString(enc); err != nil {
			return raw
		}
	}
	target := string(decoded)
	if ValidateURL(target) != nil {
		return raw
	}
	return target
}
