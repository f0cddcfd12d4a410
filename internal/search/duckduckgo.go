package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/example/research-orchestrator/internal/models"
)

const defaultBaseURL = "https://api.duckduckgo.com"

// DuckDuckGo queries the DuckDuckGo Instant Answer API. Any transport or
// decode failure yields the fixed fallback result instead of an error.
type DuckDuckGo struct {
	HTTPClient *http.Client
	BaseURL    string // overridable for tests
	MaxResults int
	Enricher   *Enricher // optional snippet enrichment
	Logger     *slog.Logger
}

func NewDuckDuckGo(logger *slog.Logger) *DuckDuckGo {
	return &DuckDuckGo{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		MaxResults: 10,
		Logger:     logger,
	}
}

func (d *DuckDuckGo) Search(ctx context.Context, topic string) []models.SearchResult {
	base := d.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	endpoint := base + "/?q=" + url.QueryEscape(topic) + "&format=json&no_html=1&skip_disambig=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Fallback(topic)
	}
	client := d.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	res, err := client.Do(req)
	if err != nil {
		d.log().Warn("web search failed, using fallback", "topic", topic, "error", err)
		return Fallback(topic)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		d.log().Warn("web search returned non-200, using fallback", "topic", topic, "status", res.StatusCode)
		return Fallback(topic)
	}

	var payload struct {
		RelatedTopics []struct {
			Text     string `json:"Text"`
			FirstURL string `json:"FirstURL"`
		} `json:"RelatedTopics"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		d.log().Warn("web search decode failed, using fallback", "topic", topic, "error", err)
		return Fallback(topic)
	}

	max := d.MaxResults
	if max <= 0 {
		max = 10
	}
	results := make([]models.SearchResult, 0, max)
	for _, item := range payload.RelatedTopics {
		if item.Text == "" {
			continue
		}
		title := item.Text
		if i := strings.Index(title, " - "); i != -1 {
			title = title[:i]
		}
		if title == "" {
			title = "Web Source"
		}
		u := item.FirstURL
		if u == "" {
			u = "#"
		}
		results = append(results, models.SearchResult{
			Title:   title,
			URL:     u,
			Snippet: item.Text,
			Source:  "web",
		})
		if len(results) >= max {
			break
		}
	}
	if len(results) == 0 {
		return Fallback(topic)
	}

	if d.Enricher != nil {
		d.Enricher.Enrich(ctx, results)
	}
	return results
}

func (d *DuckDuckGo) log() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
