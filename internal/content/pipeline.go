// Package content holds the stateless transformations between pipeline
// stages: outline planning, per-section research, review, perspective
// generation and final report compilation. Each operation is one or more
// generation calls followed by deterministic post-processing.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/example/research-orchestrator/internal/llm"
	"github.com/example/research-orchestrator/internal/models"
)

const (
	maxSections   = 5
	maxSources    = 5
	minTitleChars = 5
)

var reURL = regexp.MustCompile(`https?://[\w.-]+(?:/[\w.-]*)*`)

// Pipeline binds the generation client to the content operations.
type Pipeline struct {
	LLM    llm.Client
	Logger *slog.Logger
}

func NewPipeline(client llm.Client, logger *slog.Logger) *Pipeline {
	return &Pipeline{LLM: client, Logger: logger}
}

// CreateOutline asks for 3-5 section titles and parses them into a structured
// outline. If fewer than 3 titles are recognized the parsed output is
// discarded for four topic-templated defaults; the result never exceeds 5
// sections.
func (p *Pipeline) CreateOutline(ctx context.Context, task *models.Task, results []models.SearchResult) (*models.Outline, error) {
	prompt := fmt.Sprintf(`Create a detailed research outline for the topic: %q

Research depth: %s
Perspectives to consider: %s

Available sources:
%s

Please create a structured outline with 3-5 main sections that would be suitable for a comprehensive research report.
Focus on creating realistic section titles that would provide thorough coverage of the topic.`,
		task.Topic, task.Depth, strings.Join(task.Perspectives, ", "), sourcesText(results, false))

	system := "You are an expert research editor creating comprehensive outlines for academic and professional research reports."

	text, err := p.LLM.Generate(ctx, prompt, system)
	if err != nil {
		return nil, fmt.Errorf("create outline: %w", err)
	}

	return &models.Outline{
		Topic:    task.Topic,
		Sections: ParseOutline(text, task.Topic),
		Text:     text,
	}, nil
}

// ResearchSections drafts content for each outline section sequentially. The
// prompt embeds up to 5 sources with their URLs and instructs the model to
// cite only those.
func (p *Pipeline) ResearchSections(ctx context.Context, sections []models.OutlineSection, task *models.Task, results []models.SearchResult) ([]models.Section, error) {
	sources := sourcesText(results, true)

	drafts := make([]models.Section, 0, len(sections))
	for _, section := range sections {
		prompt := fmt.Sprintf(`Write comprehensive content for this research section: %s
Topic context: %s
Research depth: %s

Use the following sources for your research. Where you use information from these sources, include the actual URL in your text:
%s

Create detailed, factual content including:
- Current research findings with specific data points
- Multiple stakeholder perspectives
- Real-world examples and case studies
- Quantitative data and statistics where relevant
- Evidence-based analysis

Where you use information from the sources above, cite the actual URL in your text. Do NOT include placeholder citations like "Insert URL" or "Replace with specific sources". Only use real URLs from the list above.
Focus on providing substantive analysis with concrete examples.`,
			section.Title, task.Topic, task.Depth, sources)

		system := fmt.Sprintf("You are an expert researcher writing detailed analysis on %s. Provide specific, factual content with concrete examples and data points. Avoid placeholder text. Cite real URLs from the provided sources where relevant.", task.Topic)

		body, err := p.LLM.Generate(ctx, prompt, system)
		if err != nil {
			return nil, fmt.Errorf("research section %q: %w", section.Title, err)
		}
		drafts = append(drafts, models.Section{
			Title:   section.Title,
			Content: Clean(body),
			Status:  "drafted",
		})
	}
	return drafts, nil
}

// ReviewSections runs each draft through an enhancement pass that adds
// specifics and strips placeholders while keeping citations intact.
func (p *Pipeline) ReviewSections(ctx context.Context, drafts []models.Section) ([]models.Section, error) {
	reviewed := make([]models.Section, 0, len(drafts))
	for _, draft := range drafts {
		prompt := fmt.Sprintf(`Review and enhance this research content:

Title: %s
Content: %s

Enhance by:
- Adding more specific examples and case studies
- Including relevant quantitative data where possible
- Improving clarity and structure
- Ensuring balanced perspectives
- Removing any placeholder text or generic statements
- Adding concrete details and evidence

Maintain the existing citations.
Focus on factual accuracy and specificity.`, draft.Title, draft.Content)

		system := "You are an expert fact-checker and editor ensuring accuracy, specificity, and quality in research content. Remove all placeholder text."

		body, err := p.LLM.Generate(ctx, prompt, system)
		if err != nil {
			return nil, fmt.Errorf("review section %q: %w", draft.Title, err)
		}
		reviewed = append(reviewed, models.Section{
			Title:   draft.Title,
			Content: Clean(body),
			Status:  "reviewed",
		})
	}
	return reviewed, nil
}

// GeneratePerspectives requests 3-4 stakeholder perspectives as a strict JSON
// array. Parse failures degrade to an empty list; they never abort the caller.
func (p *Pipeline) GeneratePerspectives(ctx context.Context, topic string, results []models.SearchResult) []models.Perspective {
	prompt := fmt.Sprintf(`Based on the following research sources, for the topic %q, provide 3-4 distinct perspectives from different stakeholder groups.

Sources:
%s

Create perspectives from stakeholder groups like:
- Industry/Business perspective
- Academic/Research perspective
- Policy/Government perspective
- Social/Ethical perspective

For each perspective, provide:
- A clear title indicating the stakeholder group
- A detailed viewpoint (2-3 sentences) based on the provided sources.
- 2-3 specific evidence points or examples from the sources.

Respond with ONLY a valid JSON array of objects. Each object should have keys: "title", "viewpoint", and "evidence" (which is an array of strings).
Do not include any introductory text, markdown formatting, or anything outside the JSON array.`,
		topic, sourcesText(results, false))

	system := fmt.Sprintf("You are an expert research analyst generating diverse, well-supported perspectives on %s. Provide specific, realistic viewpoints based on the provided source material, formatted as a clean JSON array.", topic)

	response, err := p.LLM.Generate(ctx, prompt, system)
	if err != nil {
		p.log().Error("perspective generation failed", "topic", topic, "error", err)
		return nil
	}

	perspectives, err := ParsePerspectives(response)
	if err != nil {
		p.log().Error("perspective parsing failed", "topic", topic, "error", err)
		return nil
	}
	return perspectives
}

// CompileReport assembles the final report: an executive summary generated
// from the section titles, cleaned sections, URL-deduplicated sources scanned
// out of the reviewed text, and stakeholder perspectives.
func (p *Pipeline) CompileReport(ctx context.Context, task *models.Task, reviewed []models.Section, results []models.SearchResult) (*models.Report, error) {
	titles := make([]string, 0, len(reviewed))
	for _, s := range reviewed {
		titles = append(titles, s.Title)
	}

	prompt := fmt.Sprintf(`Create a comprehensive executive summary for research on %q.
Based on the following section titles: %s

Include:
- Key findings and insights
- Major trends and developments
- Critical challenges and opportunities
- Evidence-based conclusions

Keep it factual and specific. Avoid generic statements.
Length: 2-3 sentences maximum.`, task.Topic, strings.Join(titles, ", "))

	summary, err := p.LLM.Generate(ctx, prompt, fmt.Sprintf("You are summarizing comprehensive research on %s. Be specific and factual.", task.Topic))
	if err != nil {
		return nil, fmt.Errorf("compile summary: %w", err)
	}

	sections := make([]models.Section, 0, len(reviewed))
	for _, s := range reviewed {
		sections = append(sections, models.Section{Title: s.Title, Content: Clean(s.Content)})
	}

	return &models.Report{
		Summary:       Clean(summary),
		Sections:      sections,
		Sources:       ExtractSources(reviewed),
		Perspectives:  p.GeneratePerspectives(ctx, task.Topic, results),
		TotalSections: len(sections),
	}, nil
}

// ExtractSources scans reviewed section text for http(s) URLs, preserving
// first-seen order and deduplicating by URL.
func ExtractSources(sections []models.Section) []models.Source {
	seen := map[string]bool{}
	var sources []models.Source
	for _, section := range sections {
		for _, u := range reURL.FindAllString(section.Content, -1) {
			if seen[u] {
				continue
			}
			seen[u] = true
			sources = append(sources, models.Source{Title: u, URL: u, Type: "web"})
		}
	}
	return sources
}

// ParseOutline recognizes heading, bullet and numeric list markers, keeps
// titles longer than 5 characters, substitutes four default sections when
// fewer than 3 titles parse, and caps the result at 5.
func ParseOutline(text, topic string) []models.OutlineSection {
	var sections []models.OutlineSection
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !hasListMarker(line) {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(line, "#- 1234567890."))
		if len(title) > minTitleChars {
			sections = append(sections, models.OutlineSection{
				Title:       title,
				Description: fmt.Sprintf("Comprehensive analysis of %s in the context of %s", strings.ToLower(title), topic),
			})
		}
	}
	if len(sections) < 3 {
		sections = defaultSections(topic)
	}
	if len(sections) > maxSections {
		sections = sections[:maxSections]
	}
	return sections
}

func hasListMarker(line string) bool {
	if strings.HasPrefix(line, "##") || strings.HasPrefix(line, "-") {
		return true
	}
	for i := 1; i <= 9; i++ {
		if strings.HasPrefix(line, fmt.Sprintf("%d.", i)) {
			return true
		}
	}
	return false
}

func defaultSections(topic string) []models.OutlineSection {
	return []models.OutlineSection{
		{
			Title:       fmt.Sprintf("Introduction and Background of %s", topic),
			Description: fmt.Sprintf("Historical context and foundational concepts of %s", topic),
		},
		{
			Title:       fmt.Sprintf("Current State and Analysis of %s", topic),
			Description: fmt.Sprintf("Present situation, key players, and current developments in %s", topic),
		},
		{
			Title:       fmt.Sprintf("Future Implications and Trends in %s", topic),
			Description: fmt.Sprintf("Emerging trends, future projections, and potential impacts of %s", topic),
		},
		{
			Title:       fmt.Sprintf("Challenges and Opportunities in %s", topic),
			Description: fmt.Sprintf("Key challenges facing the field and emerging opportunities in %s", topic),
		},
	}
}

// ParsePerspectives decodes the model's JSON array defensively: code-fence
// markers are stripped before parsing and every text field is cleaned.
func ParsePerspectives(response string) ([]models.Perspective, error) {
	text := stripCodeFences(response)

	var perspectives []models.Perspective
	if err := json.Unmarshal([]byte(text), &perspectives); err != nil {
		if arr := extractJSONArray(text); arr != "" {
			if err2 := json.Unmarshal([]byte(arr), &perspectives); err2 != nil {
				return nil, err2
			}
		} else {
			return nil, err
		}
	}

	for i := range perspectives {
		perspectives[i].Viewpoint = Clean(perspectives[i].Viewpoint)
		for j := range perspectives[i].Evidence {
			perspectives[i].Evidence[j] = Clean(perspectives[i].Evidence[j])
		}
	}
	return perspectives, nil
}

func stripCodeFences(s string) string {
	t := strings.TrimSpace(s)
	if after, ok := strings.CutPrefix(t, "```json"); ok {
		t = after
	} else if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```")
		if idx := strings.IndexByte(t, '\n'); idx != -1 {
			t = t[idx+1:]
		}
	}
	if j := strings.LastIndex(t, "```"); j != -1 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

// extractJSONArray finds the first balanced top-level JSON array in a string.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	if start == -1 {
		return ""
	}
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}

func sourcesText(results []models.SearchResult, withURLs bool) string {
	n := len(results)
	if n > maxSources {
		n = maxSources
	}
	lines := make([]string, 0, n)
	for _, r := range results[:n] {
		if withURLs {
			lines = append(lines, fmt.Sprintf("- %s: %s (%s)", r.Title, r.Snippet, r.URL))
		} else {
			lines = append(lines, fmt.Sprintf("- %s: %s", r.Title, r.Snippet))
		}
	}
	return strings.Join(lines, "\n")
}

func (p *Pipeline) log() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
