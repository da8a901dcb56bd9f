package search

import "time"

// FetchStatus is the outcome of a content-extraction attempt for one result.
// The empty string means extraction has not been attempted.
type FetchStatus string

const (
	FetchSuccess FetchStatus = "success"
	FetchError   FetchStatus = "error"
	FetchTimeout FetchStatus = "timeout"
)

// Result is one ranked search result. Providers create it with FetchStatus
// unset; the content extractor fills in the content fields exactly once.
// FullContent and ContentPreview are mutually exclusive.
type Result struct {
	Title          string      `json:"title"`
	URL            string      `json:"url"`
	Description    string      `json:"description"`
	Timestamp      time.Time   `json:"timestamp"`
	FetchStatus    FetchStatus `json:"fetch_status,omitempty"`
	FullContent    string      `json:"full_content,omitempty"`
	ContentPreview string      `json:"content_preview,omitempty"`
	WordCount      int         `json:"word_count,omitempty"`
	Error          string      `json:"error,omitempty"`
}

// Query is a validated search request. Count is clamped into [1, MaxCount]
// before use; Domains, when non-empty, restricts results to those hosts.
type Query struct {
	Text    string
	Count   int
	Domains []string
	Timeout time.Duration
}

// Response pairs a provider's ordered results with the provider that
// produced them.
type Response struct {
	EngineID string   `json:"engine"`
	Results  []Result `json:"results"`
}
