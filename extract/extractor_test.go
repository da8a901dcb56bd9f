package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"webscout/browser"
	"webscout/search"
)

// fakeFetcher serves canned pages or failures without a browser. Delays let
// tests force out-of-order completion.
type fakeFetcher struct {
	pages  map[string]string
	errs   map[string]error
	delays map[string]time.Duration
	calls  atomic.Int32
}

func (f *fakeFetcher) fetch(ctx context.Context, pageURL string) (string, error) {
	f.calls.Add(1)
	if d, ok := f.delays[pageURL]; ok {
		time.Sleep(d)
	}
	if err, ok := f.errs[pageURL]; ok {
		return "", err
	}
	page, ok := f.pages[pageURL]
	if !ok {
		return "", &ContentError{URL: pageURL, Kind: ContentKindNetwork, Err: errors.New("no such page")}
	}
	return page, nil
}

// articleHTML builds a page big enough for readability to accept.
func articleHTML(topic string) string {
	var b strings.Builder
	b.WriteString("<html><head><title>" + topic + "</title></head><body>")
	b.WriteString("<nav>home about contact</nav>")
	b.WriteString("<article><h2>" + topic + "</h2>")
	for i := 0; i < 6; i++ {
		b.WriteString(fmt.Sprintf(
			"<p>Paragraph %d about %s. This section discusses the subject at length, "+
				"covering background, context and a number of practical considerations "+
				"that make the article body substantial enough to extract reliably.</p>", i, topic))
	}
	b.WriteString("</article><footer>copyright footer</footer></body></html>")
	return b.String()
}

func newTestExtractor(f fetcher) *Extractor {
	pool := browser.NewPool(zap.NewNop(), 2, "", "test-agent")
	e := NewExtractor(pool, zap.NewNop(), Options{Workers: 2})
	e.fetcher = f
	return e
}

func TestExtractForResultsPreservesOrderAndLength(t *testing.T) {
	urls := []string{
		"https://a.com/slow",
		"https://b.com/fast",
		"https://c.com/mid",
	}
	f := &fakeFetcher{
		pages: map[string]string{
			urls[0]: articleHTML("alpha"),
			urls[1]: articleHTML("beta"),
			urls[2]: articleHTML("gamma"),
		},
		delays: map[string]time.Duration{
			urls[0]: 60 * time.Millisecond,
			urls[1]: 0,
			urls[2]: 30 * time.Millisecond,
		},
	}
	e := newTestExtractor(f)

	in := []search.Result{
		{Title: "A", URL: urls[0]},
		{Title: "B", URL: urls[1]},
		{Title: "C", URL: urls[2]},
	}
	out := e.ExtractForResults(context.Background(), in, 3, true)

	if len(out) != len(in) {
		t.Fatalf("output length %d != input length %d", len(out), len(in))
	}
	for i := range in {
		if out[i].URL != in[i].URL {
			t.Errorf("position %d: URL %q, want %q", i, out[i].URL, in[i].URL)
		}
		if out[i].FetchStatus != search.FetchSuccess {
			t.Errorf("position %d: status %q, want success", i, out[i].FetchStatus)
		}
		if out[i].FullContent == "" || out[i].WordCount == 0 {
			t.Errorf("position %d: content not populated", i)
		}
	}
	if !strings.Contains(out[0].FullContent, "alpha") {
		t.Error("slowest fetch landed on the wrong record")
	}
}

func TestExtractForResultsSkipsDocuments(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{
			"https://a.com/page1": articleHTML("one"),
			"https://a.com/page2": articleHTML("two"),
		},
	}
	e := newTestExtractor(f)

	in := []search.Result{
		{Title: "PDF", URL: "https://a.com/report.PDF"},
		{Title: "P1", URL: "https://a.com/page1"},
		{Title: "P2", URL: "https://a.com/page2"},
	}
	out := e.ExtractForResults(context.Background(), in, 2, true)

	// The document passes through untouched and does not consume the limit.
	if out[0].FetchStatus != "" || out[0].FullContent != "" {
		t.Errorf("document record was touched: %+v", out[0])
	}
	if out[1].FetchStatus != search.FetchSuccess || out[2].FetchStatus != search.FetchSuccess {
		t.Errorf("both HTML records should be extracted: %q / %q", out[1].FetchStatus, out[2].FetchStatus)
	}
	if got := f.calls.Load(); got != 2 {
		t.Errorf("expected 2 fetches, got %d", got)
	}
}

func TestExtractForResultsHonorsLimit(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{"https://a.com/1": articleHTML("one")},
	}
	e := newTestExtractor(f)

	in := []search.Result{
		{URL: "https://a.com/1"},
		{URL: "https://a.com/2"},
		{URL: "https://a.com/3"},
	}
	out := e.ExtractForResults(context.Background(), in, 1, true)

	if out[0].FetchStatus != search.FetchSuccess {
		t.Errorf("first record should be extracted, got %q", out[0].FetchStatus)
	}
	if out[1].FetchStatus != "" || out[2].FetchStatus != "" {
		t.Error("records beyond the limit must pass through untouched")
	}
	if got := f.calls.Load(); got != 1 {
		t.Errorf("expected 1 fetch, got %d", got)
	}
}

func TestExtractForResultsPartialFailure(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{"https://ok.com/x": articleHTML("fine")},
		errs: map[string]error{
			"https://down.com/x": &ContentError{URL: "https://down.com/x", Kind: ContentKindNetwork, Err: errors.New("connection refused")},
			"https://slow.com/x": &ContentError{URL: "https://slow.com/x", Kind: ContentKindTimeout, Err: context.DeadlineExceeded},
		},
	}
	e := newTestExtractor(f)

	in := []search.Result{
		{Title: "Down", URL: "https://down.com/x", Description: "still here"},
		{Title: "Slow", URL: "https://slow.com/x"},
		{Title: "OK", URL: "https://ok.com/x"},
	}
	out := e.ExtractForResults(context.Background(), in, 3, true)

	if out[0].FetchStatus != search.FetchError {
		t.Errorf("expected error status, got %q", out[0].FetchStatus)
	}
	if out[0].Error == "" {
		t.Error("expected diagnostic on failed record")
	}
	if out[0].Title != "Down" || out[0].Description != "still here" {
		t.Error("failed record lost its original fields")
	}
	if out[1].FetchStatus != search.FetchTimeout {
		t.Errorf("expected timeout status, got %q", out[1].FetchStatus)
	}
	if out[2].FetchStatus != search.FetchSuccess {
		t.Errorf("sibling failure must not affect the healthy record, got %q", out[2].FetchStatus)
	}
}

func TestExtractForResultsPreviewMode(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{"https://a.com/1": articleHTML("preview")},
	}
	e := newTestExtractor(f)

	out := e.ExtractForResults(context.Background(), []search.Result{{URL: "https://a.com/1"}}, 1, false)

	if out[0].ContentPreview == "" {
		t.Fatal("expected preview to be populated")
	}
	if out[0].FullContent != "" {
		t.Error("preview mode must not set full content")
	}
	if out[0].WordCount == 0 {
		t.Error("word count should still be recorded")
	}
}

func TestExtractContent(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{"https://a.com/long": articleHTML("truncation")},
	}
	e := newTestExtractor(f)

	full, err := e.ExtractContent(context.Background(), ContentRequest{URL: "https://a.com/long"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(full, "truncation") {
		t.Error("extracted text missing article content")
	}

	capped, err := e.ExtractContent(context.Background(), ContentRequest{
		URL:              "https://a.com/long",
		MaxContentLength: 50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len([]rune(capped)) > 50 {
		t.Errorf("content exceeds requested bound: %d runes", len([]rune(capped)))
	}
}

func TestExtractContentMarkdown(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{"https://a.com/md": articleHTML("markdown")},
	}
	e := newTestExtractor(f)

	md, err := e.ExtractContent(context.Background(), ContentRequest{
		URL:    "https://a.com/md",
		Format: FormatMarkdown,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if md == "" || !strings.Contains(md, "markdown") {
		t.Errorf("markdown output missing article content: %q", md)
	}
}

func TestExtractContentInvalidURL(t *testing.T) {
	e := newTestExtractor(&fakeFetcher{})

	_, err := e.ExtractContent(context.Background(), ContentRequest{URL: "ftp://example.com/x"})
	if err == nil {
		t.Fatal("expected error for non-http URL")
	}
	var contentErr *ContentError
	if !errors.As(err, &contentErr) {
		t.Fatalf("expected *ContentError, got %T", err)
	}
}

func TestExtractContentPropagatesTypedFailure(t *testing.T) {
	f := &fakeFetcher{
		errs: map[string]error{
			"https://big.com/x": &ContentError{URL: "https://big.com/x", Kind: ContentKindTooLarge},
		},
	}
	e := newTestExtractor(f)

	_, err := e.ExtractContent(context.Background(), ContentRequest{URL: "https://big.com/x"})
	var contentErr *ContentError
	if !errors.As(err, &contentErr) {
		t.Fatalf("expected *ContentError, got %T", err)
	}
	if contentErr.Kind != ContentKindTooLarge {
		t.Errorf("expected too_large, got %q", contentErr.Kind)
	}
}

func TestClassifyFetchError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected ContentKind
	}{
		{"Deadline", context.DeadlineExceeded, ContentKindTimeout},
		{"DNS", errors.New("page load error net::ERR_NAME_NOT_RESOLVED"), ContentKindDNS},
		{"SSL", errors.New("page load error net::ERR_CERT_AUTHORITY_INVALID"), ContentKindSSL},
		{"Connection", errors.New("page load error net::ERR_CONNECTION_REFUSED"), ContentKindNetwork},
		{"Unknown", errors.New("something else entirely"), ContentKindOther},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyFetchError("https://x.com", tc.err)
			if got.Kind != tc.expected {
				t.Errorf("classifyFetchError(%v) kind = %q, want %q", tc.err, got.Kind, tc.expected)
			}
		})
	}
}

func TestExtractorCloseAllIdempotent(t *testing.T) {
	e := newTestExtractor(&fakeFetcher{})
	e.CloseAll()
	e.CloseAll()
}
