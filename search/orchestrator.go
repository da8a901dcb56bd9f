package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"webscout/browser"
)

// Orchestrator tries providers strictly in order until one returns at least
// one result. Sequential attempts keep the automated-traffic footprint down
// to a single engine at a time and avoid redundant browser work once a
// provider has answered.
type Orchestrator struct {
	providers       []Provider
	pool            *browser.Pool
	logger          *zap.Logger
	domainThreshold int
	maxCount        int
}

// DefaultProviders returns the fixed priority order: Bing first (most
// stable listing markup), then DuckDuckGo, then Brave.
func DefaultProviders(pool *browser.Pool, logger *zap.Logger, timeout time.Duration) []Provider {
	return []Provider{
		NewBing(pool, logger, timeout),
		NewDuckDuckGo(pool, logger, timeout),
		NewBrave(pool, logger, timeout),
	}
}

func NewOrchestrator(providers []Provider, pool *browser.Pool, logger *zap.Logger, domainThreshold, maxCount int) *Orchestrator {
	if domainThreshold <= 0 {
		domainThreshold = DefaultDomainThreshold
	}
	if maxCount <= 0 {
		maxCount = 10
	}
	return &Orchestrator{
		providers:       providers,
		pool:            pool,
		logger:          logger,
		domainThreshold: domainThreshold,
		maxCount:        maxCount,
	}
}

// Search resolves a query into ranked results and reports which provider
// served them. Small domain sets are folded into the query as site:
// clauses; sets above the threshold are post-filtered instead so the
// rewritten query cannot blow past provider query-length limits.
func (o *Orchestrator) Search(ctx context.Context, query Query) (*Response, error) {
	text := SanitizeQuery(query.Text)
	if text == "" {
		return nil, fmt.Errorf("empty search query")
	}
	count := ClampCount(query.Count, o.maxCount)

	searchText := text
	var postFilter DomainFilter
	if len(query.Domains) > 0 {
		searchText = BuildDomainFilteredQuery(text, query.Domains, o.domainThreshold)
		if searchText == text {
			postFilter = NewDomainFilter(query.Domains)
		}
	}

	if query.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, query.Timeout)
		defer cancel()
	}

	var attempts []*ProviderError
	for _, provider := range o.providers {
		resp, err := provider.Search(ctx, searchText, count)
		if err != nil {
			var perr *ProviderError
			if !errors.As(err, &perr) {
				perr = &ProviderError{Provider: provider.ID(), Kind: ErrKindParseFailure, Err: err}
			}
			attempts = append(attempts, perr)
			o.logger.Warn("provider attempt failed",
				zap.String("engine", provider.ID()),
				zap.String("kind", string(perr.Kind)),
				zap.Error(perr.Err))
			continue
		}

		results := resp.Results
		if len(postFilter) > 0 {
			kept := results[:0]
			for _, r := range results {
				if postFilter.Matches(r.URL) {
					kept = append(kept, r)
				}
			}
			results = kept
		}
		if len(results) > count {
			results = results[:count]
		}

		o.logger.Info("search served",
			zap.String("engine", resp.EngineID),
			zap.Int("results", len(results)),
			zap.Int("providers_tried", len(attempts)+1))

		return &Response{EngineID: resp.EngineID, Results: results}, nil
	}

	return nil, &SearchError{Attempts: attempts}
}

// CloseAll tears down the shared browser pool. Idempotent.
func (o *Orchestrator) CloseAll() {
	o.pool.CloseAll()
}
