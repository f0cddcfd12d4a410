package search

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	pdfx "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/example/research-orchestrator/internal/models"
)

const (
	minUsefulSnippet = 120
	maxSnippetLen    = 600
	maxPDFPages      = 5
)

// Enricher upgrades thin search snippets by fetching the result URL and
// extracting readable text from the HTML or PDF body. Every failure is
// silent: the original snippet stays in place.
type Enricher struct {
	HTTPClient *http.Client
	MaxBytes   int
	Logger     *slog.Logger
}

func NewEnricher(maxBytes int, timeout time.Duration, logger *slog.Logger) *Enricher {
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	return &Enricher{
		HTTPClient: &http.Client{Timeout: timeout},
		MaxBytes:   maxBytes,
		Logger:     logger,
	}
}

// Enrich mutates results in place. Only results with a fetchable URL and a
// snippet below the usefulness threshold are touched.
func (e *Enricher) Enrich(ctx context.Context, results []models.SearchResult) {
	for i := range results {
		r := &results[i]
		if len(r.Snippet) >= minUsefulSnippet {
			continue
		}
		if !strings.HasPrefix(r.URL, "http://") && !strings.HasPrefix(r.URL, "https://") {
			continue
		}
		text, err := e.fetchText(ctx, r.URL)
		if err != nil || text == "" {
			if err != nil && e.Logger != nil {
				e.Logger.Debug("snippet enrichment skipped", "url", r.URL, "error", err)
			}
			continue
		}
		if len(text) > maxSnippetLen {
			text = text[:maxSnippetLen]
		}
		if len(text) > len(r.Snippet) {
			r.Snippet = text
		}
	}
}

func (e *Enricher) fetchText(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	res, err := e.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", res.StatusCode)
	}

	lr := io.LimitedReader{R: res.Body, N: int64(e.MaxBytes)}
	body, err := io.ReadAll(&lr)
	if err != nil {
		return "", err
	}

	ct := res.Header.Get("Content-Type")
	if strings.Contains(ct, "application/pdf") || strings.HasSuffix(strings.ToLower(rawURL), ".pdf") {
		return extractPDFText(body)
	}
	return extractHTMLText(body)
}

func extractHTMLText(body []byte) (string, error) {
	node, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	walkText(node, &b, false)
	return strings.TrimSpace(compactWhitespace(b.String())), nil
}

func walkText(n *html.Node, b *strings.Builder, inHidden bool) {
	if n.Type == html.ElementNode {
		switch strings.ToLower(n.Data) {
		case "script", "style", "noscript":
			inHidden = true
		case "br", "p", "div", "li", "tr":
			b.WriteString("\n")
		}
	}
	if !inHidden && n.Type == html.TextNode {
		b.WriteString(n.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walkText(c, b, inHidden)
	}
}

func compactWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\t", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	lines := strings.Split(s, "\n")
	var out []string
	for _, ln := range lines {
		ln = strings.Join(strings.Fields(ln), " ")
		if ln != "" {
			out = append(out, ln)
		}
	}
	return strings.Join(out, "\n")
}

// extractPDFText pulls text from the first few pages. The pdf library wants a
// file path, so the body goes through a temp file.
func extractPDFText(body []byte) (string, error) {
	path := filepath.Join(os.TempDir(), fmt.Sprintf("snippet_%d.pdf", os.Getpid()))
	if err := os.WriteFile(path, body, 0o600); err != nil {
		return "", err
	}
	defer os.Remove(path)

	f, r, err := pdfx.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var b strings.Builder
	pages := r.NumPage()
	if pages > maxPDFPages {
		pages = maxPDFPages
	}
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		txt, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(txt)
		b.WriteString("\n")
	}
	return strings.TrimSpace(compactWhitespace(b.String())), nil
}
