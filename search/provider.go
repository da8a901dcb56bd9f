package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"webscout/browser"
)

// Provider executes one search against one engine and parses its listing.
type Provider interface {
	ID() string
	Search(ctx context.Context, query string, count int) (*Response, error)
}

// engine describes how to drive one search provider: where to navigate,
// what to wait for, how to recognize a challenge page and how to pull
// results out of the rendered listing.
type engine struct {
	id             string
	searchURL      func(query string) string
	resultSelector string
	blockedMarkers []string
	parse          func(doc *goquery.Document) []Result
}

// browserProvider runs an engine through a pooled Chrome tab.
type browserProvider struct {
	engine
	pool    *browser.Pool
	logger  *zap.Logger
	timeout time.Duration
}

func newBrowserProvider(e engine, pool *browser.Pool, logger *zap.Logger, timeout time.Duration) *browserProvider {
	return &browserProvider{engine: e, pool: pool, logger: logger, timeout: timeout}
}

func (p *browserProvider) ID() string { return p.id }

func (p *browserProvider) Search(ctx context.Context, query string, count int) (*Response, error) {
	session, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, &ProviderError{Provider: p.id, Kind: ErrKindTimeout, Err: err}
	}
	defer p.pool.Release(session)

	target := p.searchURL(query)
	p.logger.Info("navigating to search",
		zap.String("engine", p.id),
		zap.String("url", target),
		zap.String("session_id", session.ID))

	// chromedp actions run on the session's context; honor whichever
	// deadline is tighter, the per-provider timeout or the caller's.
	timeout := p.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	navCtx, cancel := context.WithTimeout(session.Context(), timeout)
	defer cancel()

	var pageHTML string
	err = chromedp.Run(navCtx,
		chromedp.Navigate(target),
		chromedp.WaitVisible(p.resultSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &pageHTML),
	)
	if err != nil {
		// The listing never showed up. A challenge page in its place is a
		// block, not a timeout; grab whatever rendered to tell them apart.
		if snapshot := p.snapshot(session); p.isBlocked(snapshot) {
			return nil, &ProviderError{Provider: p.id, Kind: ErrKindBlocked, Err: err}
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &ProviderError{Provider: p.id, Kind: ErrKindTimeout, Err: err}
		}
		return nil, &ProviderError{Provider: p.id, Kind: ErrKindParseFailure, Err: err}
	}
	if p.isBlocked(pageHTML) {
		return nil, &ProviderError{Provider: p.id, Kind: ErrKindBlocked, Err: errors.New("challenge page served instead of results")}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return nil, &ProviderError{Provider: p.id, Kind: ErrKindParseFailure, Err: err}
	}

	results := dedupeResults(p.parse(doc))
	if len(results) == 0 {
		return nil, &ProviderError{Provider: p.id, Kind: ErrKindEmpty}
	}
	if len(results) > count {
		results = results[:count]
	}

	p.logger.Info("search parsed",
		zap.String("engine", p.id),
		zap.Int("results", len(results)))

	return &Response{EngineID: p.id, Results: results}, nil
}

// snapshot grabs the current DOM outside the expired navigation context,
// with its own short deadline.
func (p *browserProvider) snapshot(session *browser.Session) string {
	snapCtx, cancel := context.WithTimeout(session.Context(), 3*time.Second)
	defer cancel()

	var html string
	if err := chromedp.Run(snapCtx, chromedp.OuterHTML("html", &html)); err != nil {
		return ""
	}
	return html
}

func (p *browserProvider) isBlocked(pageHTML string) bool {
	if pageHTML == "" {
		return false
	}
	lower := strings.ToLower(pageHTML)
	for _, marker := range p.blockedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// dedupeResults drops later records whose URL was already seen, and any
// record without a usable http(s) URL.
func dedupeResults(results []Result) []Result {
	seen := make(map[string]struct{}, len(results))
	out := results[:0]
	for _, r := range results {
		if r.URL == "" || ValidateURL(r.URL) != nil {
			continue
		}
		if _, ok := seen[r.URL]; ok {
			continue
		}
		seen[r.URL] = struct{}{}
		out = append(out, r)
	}
	return out
}
