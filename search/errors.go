package search

import (
	"fmt"
	"strings"
)

// ErrKind classifies why a single provider attempt failed.
type ErrKind string

const (
	ErrKindBlocked      ErrKind = "blocked"
	ErrKindTimeout      ErrKind = "timeout"
	ErrKindParseFailure ErrKind = "parse_failure"
	ErrKindEmpty        ErrKind = "empty"
)

// ProviderError is a failure local to one provider attempt. The orchestrator
// records it and moves on to the next provider.
type ProviderError struct {
	Provider string
	Kind     ErrKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// SearchError is raised only when every configured provider failed. It
// carries each provider's individual failure.
type SearchError struct {
	Attempts []*ProviderError
}

func (e *SearchError) Error() string {
	reasons := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		reasons = append(reasons, a.Error())
	}
	return "all search providers failed: " + strings.Join(reasons, "; ")
}
