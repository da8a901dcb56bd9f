package search

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultDomainThreshold is the largest domain set that still gets folded
// into the query text as site: clauses. Bigger sets fall back to
// post-filtering so the rewritten query cannot exceed provider query-length
// limits.
const DefaultDomainThreshold = 10

// MaxQueryLength caps sanitized query text.
const MaxQueryLength = 1000

// NormalizeDomain reduces a domain or URL fragment to a bare lowercase host:
// scheme and leading www. stripped, path and port cut off.
func NormalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "www.")
	if i := strings.Index(d, "/"); i >= 0 {
		d = d[:i]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	return d
}

// BuildDomainFilteredQuery appends a site-scoping clause for the given
// domains: " site:<d>" for one domain, " (site:<d1> OR site:<d2> ...)" for
// several. When the normalized set exceeds threshold the query is returned
// unchanged and the caller is expected to post-filter instead.
func BuildDomainFilteredQuery(query string, domains []string, threshold int) string {
	normalized := make([]string, 0, len(domains))
	seen := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		n := NormalizeDomain(d)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}

	if len(normalized) == 0 || len(normalized) > threshold {
		return query
	}
	if len(normalized) == 1 {
		return query + " site:" + normalized[0]
	}

	clauses := make([]string, len(normalized))
	for i, d := range normalized {
		clauses[i] = "site:" + d
	}
	return query + " (" + strings.Join(clauses, " OR ") + ")"
}

// DomainFilter is a normalized allow-list of hosts. The empty filter matches
// everything.
type DomainFilter map[string]struct{}

func NewDomainFilter(domains []string) DomainFilter {
	filter := make(DomainFilter, len(domains))
	for _, d := range domains {
		if n := NormalizeDomain(d); n != "" {
			filter[n] = struct{}{}
		}
	}
	return filter
}

// Matches reports whether the URL's normalized host is in the filter.
func (f DomainFilter) Matches(rawURL string) bool {
	if len(f) == 0 {
		return true
	}
	_, ok := f[NormalizeDomain(rawURL)]
	return ok
}

// SanitizeQuery trims surrounding whitespace and caps the query length.
func SanitizeQuery(query string) string {
	q := strings.TrimSpace(query)
	if runes := []rune(q); len(runes) > MaxQueryLength {
		q = string(runes[:MaxQueryLength])
	}
	return q
}

// ClampCount forces a requested result count into [1, max].
func ClampCount(count, max int) int {
	if count < 1 {
		return 1
	}
	if count > max {
		return max
	}
	return count
}

// ValidateURL accepts only absolute http and https URLs.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q in %q", u.Scheme, rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", rawURL)
	}
	return nil
}
