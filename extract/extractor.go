package extract

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/chromedp/chromedp"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/sync/errgroup"

	"webscout/browser"
	"webscout/search"
)

// Format selects the output shape of single-URL extraction.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
)

// Options tunes an Extractor. Zero fields get defaults from NewExtractor.
type Options struct {
	Workers       int           // concurrent extraction attempts
	Timeout       time.Duration // per-page navigation + load deadline
	PreviewLength int           // rune cap for derived previews
	MaxPageBytes  int           // captured DOM larger than this is rejected
}

// ContentRequest is the input of the single-URL extraction entry point.
type ContentRequest struct {
	URL              string
	MaxContentLength int
	Format           Format
}

// fetcher abstracts the page fetch so tests can run without Chrome.
type fetcher interface {
	fetch(ctx context.Context, pageURL string) (string, error)
}

// Extractor fetches and cleans full-page text for search results, a bounded
// number of pages at a time, sharing the browser session pool with search.
type Extractor struct {
	pool    *browser.Pool
	logger  *zap.Logger
	fetcher fetcher
	opts    Options
}

func NewExtractor(pool *browser.Pool, logger *zap.Logger, opts Options) *Extractor {
	if opts.Workers <= 0 {
		opts.Workers = 3
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.PreviewLength <= 0 {
		opts.PreviewLength = DefaultPreviewLength
	}
	if opts.MaxPageBytes <= 0 {
		opts.MaxPageBytes = 10 << 20
	}
	return &Extractor{
		pool:   pool,
		logger: logger,
		fetcher: &browserFetcher{
			pool:         pool,
			timeout:      opts.Timeout,
			maxPageBytes: opts.MaxPageBytes,
		},
		opts: opts,
	}
}

// ExtractForResults annotates up to limit non-document results with fetched
// page content. Every input record comes back, in input order; failures are
// recorded on the affected record and never abort siblings. With
// includeFullContent false, successful records carry a bounded preview
// instead of the full text.
func (e *Extractor) ExtractForResults(ctx context.Context, results []search.Result, limit int, includeFullContent bool) []search.Result {
	out := make([]search.Result, len(results))
	copy(out, results)

	// Document files pass through untouched and do not consume the limit.
	var chosen []int
	for i := range out {
		if limit >= 0 && len(chosen) >= limit {
			break
		}
		if IsDocumentURL(out[i].URL) {
			continue
		}
		chosen = append(chosen, i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, idx := range chosen {
		g.Go(func() error {
			e.extractInto(gctx, &out[idx], includeFullContent)
			return nil
		})
	}
	g.Wait()

	return out
}

// extractInto runs one extraction attempt and writes the outcome onto the
// record. Each goroutine owns a distinct index, so no locking is needed.
func (e *Extractor) extractInto(ctx context.Context, record *search.Result, includeFullContent bool) {
	text, err := e.extractText(ctx, record.URL)
	if err != nil {
		cerr, ok := err.(*ContentError)
		if !ok {
			cerr = &ContentError{URL: record.URL, Kind: ContentKindOther, Err: err}
		}
		if cerr.Kind == ContentKindTimeout {
			record.FetchStatus = search.FetchTimeout
		} else {
			record.FetchStatus = search.FetchError
		}
		record.Error = string(cerr.Kind)
		if cerr.Err != nil {
			record.Error = fmt.Sprintf("%s: %v", cerr.Kind, cerr.Err)
		}
		e.logger.Warn("content extraction failed",
			zap.String("url", record.URL),
			zap.String("kind", string(cerr.Kind)))
		return
	}

	record.FetchStatus = search.FetchSuccess
	record.WordCount = CountWords(text)
	if includeFullContent {
		record.FullContent = text
	} else {
		record.ContentPreview = GetContentPreview(text, e.opts.PreviewLength)
	}
}

// ExtractContent fetches and cleans a single page. Unlike the batch path it
// raises a typed *ContentError, and it applies MaxContentLength itself when
// positive.
func (e *Extractor) ExtractContent(ctx context.Context, req ContentRequest) (string, error) {
	if err := search.ValidateURL(req.URL); err != nil {
		return "", &ContentError{URL: req.URL, Kind: ContentKindOther, Err: err}
	}

	var text string
	var err error
	if req.Format == FormatMarkdown {
		text, err = e.extractMarkdown(ctx, req.URL)
	} else {
		text, err = e.extractText(ctx, req.URL)
	}
	if err != nil {
		return "", err
	}

	if req.MaxContentLength > 0 {
		text = CleanText(text, req.MaxContentLength)
	}
	return text, nil
}

// extractText fetches the page and reduces it to cleaned article text.
func (e *Extractor) extractText(ctx context.Context, pageURL string) (string, error) {
	pageHTML, err := e.fetcher.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	text, _, err := cleanArticle(pageHTML, pageURL)
	if err != nil {
		return "", &ContentError{URL: pageURL, Kind: ContentKindOther, Err: err}
	}
	return CleanText(text, 0), nil
}

// extractMarkdown fetches the page and converts the article body to
// markdown instead of flattening it to text.
func (e *Extractor) extractMarkdown(ctx context.Context, pageURL string) (string, error) {
	pageHTML, err := e.fetcher.fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}

	_, articleHTML, err := cleanArticle(pageHTML, pageURL)
	if err != nil {
		return "", &ContentError{URL: pageURL, Kind: ContentKindOther, Err: err}
	}
	md, err := htmltomarkdown.ConvertString(articleHTML)
	if err != nil {
		return "", &ContentError{URL: pageURL, Kind: ContentKindOther, Err: err}
	}
	return strings.TrimSpace(md), nil
}

// cleanArticle strips scripts, navigation, footers and other non-content
// markup, returning both the plain text and the article body HTML.
// Readability goes first; trafilatura covers pages it cannot parse.
func cleanArticle(pageHTML, pageURL string) (text, articleHTML string, err error) {
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return "", "", err
	}

	parser := readability.NewParser()
	article, rerr := parser.Parse(strings.NewReader(pageHTML), parsedURL)
	if rerr == nil && strings.TrimSpace(article.TextContent) != "" {
		return article.TextContent, article.Content, nil
	}

	result, terr := trafilatura.Extract(strings.NewReader(pageHTML), trafilatura.Options{OriginalURL: parsedURL})
	if terr != nil {
		if rerr != nil {
			return "", "", fmt.Errorf("readability: %v; trafilatura: %w", rerr, terr)
		}
		return "", "", terr
	}

	var buf strings.Builder
	if result.ContentNode != nil {
		if err := html.Render(&buf, result.ContentNode); err != nil {
			return "", "", err
		}
	}
	return result.ContentText, buf.String(), nil
}

// CloseAll tears down the shared browser pool. Idempotent.
func (e *Extractor) CloseAll() {
	e.pool.CloseAll()
}

// browserFetcher loads pages through pooled Chrome tabs.
type browserFetcher struct {
	pool         *browser.Pool
	timeout      time.Duration
	maxPageBytes int
}

var challengeMarkers = []string{
	"just a moment...",
	"checking your browser before accessing",
	"please complete the security check",
	"are you a robot",
}

func (f *browserFetcher) fetch(ctx context.Context, pageURL string) (string, error) {
	session, err := f.pool.Acquire(ctx)
	if err != nil {
		return "", classifyFetchError(pageURL, err)
	}
	defer f.pool.Release(session)

	timeout := f.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	navCtx, cancel := context.WithTimeout(session.Context(), timeout)
	defer cancel()

	var pageHTML string
	err = chromedp.Run(navCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.OuterHTML("html", &pageHTML),
	)
	if err != nil {
		return "", classifyFetchError(pageURL, err)
	}

	if len(pageHTML) > f.maxPageBytes {
		return "", &ContentError{URL: pageURL, Kind: ContentKindTooLarge,
			Err: fmt.Errorf("page is %d bytes, limit %d", len(pageHTML), f.maxPageBytes)}
	}
	lower := strings.ToLower(pageHTML)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return "", &ContentError{URL: pageURL, Kind: ContentKindBlocked,
				Err: fmt.Errorf("challenge page served")}
		}
	}
	return pageHTML, nil
}
