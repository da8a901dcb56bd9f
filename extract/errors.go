package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ContentKind classifies why fetching or cleaning a page failed.
type ContentKind string

const (
	ContentKindTimeout  ContentKind = "timeout"
	ContentKindBlocked  ContentKind = "blocked"
	ContentKindNetwork  ContentKind = "network"
	ContentKindDNS      ContentKind = "dns"
	ContentKindSSL      ContentKind = "ssl"
	ContentKindTooLarge ContentKind = "too_large"
	ContentKindOther    ContentKind = "other"
)

// ContentError is the typed failure of one content-extraction attempt.
type ContentError struct {
	URL  string
	Kind ContentKind
	Err  error
}

func (e *ContentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract %s: %s: %v", e.URL, e.Kind, e.Err)
	}
	return fmt.Sprintf("extract %s: %s", e.URL, e.Kind)
}

func (e *ContentError) Unwrap() error { return e.Err }

// classifyFetchError maps a chromedp navigation failure onto the closed
// ContentKind set. Chrome reports network-level failures as net::ERR_*
// strings inside the error message.
func classifyFetchError(url string, err error) *ContentError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &ContentError{URL: url, Kind: ContentKindTimeout, Err: err}
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "ERR_NAME_NOT_RESOLVED"),
		strings.Contains(msg, "ERR_NAME_RESOLUTION_FAILED"):
		return &ContentError{URL: url, Kind: ContentKindDNS, Err: err}
	case strings.Contains(msg, "ERR_CERT_"),
		strings.Contains(msg, "ERR_SSL_"):
		return &ContentError{URL: url, Kind: ContentKindSSL, Err: err}
	case strings.Contains(msg, "ERR_CONNECTION_"),
		strings.Contains(msg, "ERR_INTERNET_DISCONNECTED"),
		strings.Contains(msg, "ERR_ADDRESS_UNREACHABLE"),
		strings.Contains(msg, "ERR_EMPTY_RESPONSE"):
		return &ContentError{URL: url, Kind: ContentKindNetwork, Err: err}
	}
	return &ContentError{URL: url, Kind: ContentKindOther, Err: err}
}
