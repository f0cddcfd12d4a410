// Package search provides the web search capability for the research
// pipeline. The contract is degrade-not-fail: a searcher always returns at
// least one result, substituting a fixed fallback when the upstream API is
// unreachable or returns nothing usable.
package search

import (
	"context"
	"fmt"

	"github.com/example/research-orchestrator/internal/models"
)

// Searcher returns ranked snippets for a topic. Implementations never fail;
// they degrade to Fallback instead.
type Searcher interface {
	Search(ctx context.Context, topic string) []models.SearchResult
}

// Fallback is the single result substituted when the search capability is
// unavailable, so the pipeline can continue with placeholder context.
func Fallback(topic string) []models.SearchResult {
	return []models.SearchResult{{
		Title:   fmt.Sprintf("Current Research on %s", topic),
		URL:     "#",
		Snippet: fmt.Sprintf("Recent findings and developments in %s research", topic),
		Source:  "web",
	}}
}
