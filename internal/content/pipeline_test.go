package content

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/research-orchestrator/internal/models"
)

// fakeLLM routes prompts to canned replies by substring. A non-empty failOn
// makes matching prompts fail instead.
type fakeLLM struct {
	failOn  string
	replies map[string]string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt, system string) (string, error) {
	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return "", errors.New("generation failed")
	}
	for key, reply := range f.replies {
		if strings.Contains(prompt, key) {
			return reply, nil
		}
	}
	return "generic reply", nil
}

func TestParseOutlineRecognizesMarkers(t *testing.T) {
	text := strings.Join([]string{
		"Here is the outline:",
		"## Historical Foundations",
		"- Current Market Landscape",
		"3. Policy and Regulation",
		"ignored free-form line",
		"4. Future Outlook and Scenarios",
	}, "\n")

	sections := ParseOutline(text, "solar energy")
	if len(sections) != 4 {
		t.Fatalf("got %d sections, want 4: %+v", len(sections), sections)
	}
	want := []string{
		"Historical Foundations",
		"Current Market Landscape",
		"Policy and Regulation",
		"Future Outlook and Scenarios",
	}
	for i, w := range want {
		if sections[i].Title != w {
			t.Errorf("section %d title = %q, want %q", i, sections[i].Title, w)
		}
		if sections[i].Description == "" {
			t.Errorf("section %d missing description", i)
		}
	}
}

func TestParseOutlineFallsBackToDefaults(t *testing.T) {
	// Two recognizable titles is below the minimum of three.
	text := "## First Real Section\n- Second Real Section\nno marker here"
	sections := ParseOutline(text, "solar energy")
	if len(sections) != 4 {
		t.Fatalf("got %d sections, want the 4 defaults: %+v", len(sections), sections)
	}
	for _, s := range sections {
		if !strings.Contains(s.Title, "solar energy") {
			t.Errorf("default section title %q does not mention the topic", s.Title)
		}
	}
	if sections[0].Title != "Introduction and Background of solar energy" {
		t.Errorf("unexpected first default: %q", sections[0].Title)
	}
}

func TestParseOutlineCapsAtFive(t *testing.T) {
	var lines []string
	for _, title := range []string{
		"Historical Context", "Market Structure", "Technology Trends",
		"Policy Landscape", "Economic Impact", "Social Dimensions", "Future Scenarios",
	} {
		lines = append(lines, "- "+title)
	}
	sections := ParseOutline(strings.Join(lines, "\n"), "wind power")
	if len(sections) != 5 {
		t.Fatalf("got %d sections, want 5", len(sections))
	}
	if sections[4].Title != "Economic Impact" {
		t.Errorf("truncation changed order: last = %q", sections[4].Title)
	}
}

func TestParseOutlineDropsShortTitles(t *testing.T) {
	sections := ParseOutline("- Intro\n- A Proper Long Title\n- Ok", "ai")
	// only one title longer than 5 chars parses, so defaults substitute
	if len(sections) != 4 {
		t.Fatalf("got %d sections, want 4 defaults", len(sections))
	}
}

func TestExtractSourcesDedupesFirstSeen(t *testing.T) {
	sections := []models.Section{
		{Title: "One", Content: "see https://a.example for detail, and again https://a.example"},
		{Title: "Two", Content: "compare with https://b.example as well"},
	}
	sources := ExtractSources(sections)
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2: %+v", len(sources), sources)
	}
	if sources[0].URL != "https://a.example" || sources[1].URL != "https://b.example" {
		t.Errorf("first-seen order violated: %+v", sources)
	}
	for _, s := range sources {
		if s.Type != "web" {
			t.Errorf("source type = %q, want web", s.Type)
		}
	}
}

func TestParsePerspectivesStripsCodeFences(t *testing.T) {
	response := "```json\n[{\"title\":\"Industry\",\"viewpoint\":\"Costs are falling.\",\"evidence\":[\"Prices dropped 30%\"]}]\n```"
	got, err := ParsePerspectives(response)
	if err != nil {
		t.Fatalf("ParsePerspectives returned error: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Industry" {
		t.Fatalf("unexpected perspectives: %+v", got)
	}
	if len(got[0].Evidence) != 1 {
		t.Errorf("evidence lost: %+v", got[0])
	}
}

func TestParsePerspectivesMalformedJSON(t *testing.T) {
	if _, err := ParsePerspectives("this is not json at all"); err == nil {
		t.Fatal("expected an error for malformed input")
	}
}

func TestCompileReportSurvivesBadPerspectives(t *testing.T) {
	client := &fakeLLM{replies: map[string]string{
		"executive summary": "Adoption is accelerating. Storage remains the bottleneck.",
		"JSON array":        "sorry, I cannot produce JSON today",
	}}
	p := NewPipeline(client, nil)

	reviewed := []models.Section{
		{Title: "Market", Content: "Demand is growing, see https://x.example", Status: "reviewed"},
		{Title: "Policy", Content: "Subsidies vary by region", Status: "reviewed"},
	}
	task := &models.Task{ID: "t1", Topic: "solar energy", Depth: models.DepthBasic}

	report, err := p.CompileReport(context.Background(), task, reviewed, nil)
	if err != nil {
		t.Fatalf("CompileReport: %v", err)
	}
	if len(report.Perspectives) != 0 {
		t.Errorf("perspectives should degrade to empty, got %+v", report.Perspectives)
	}
	if report.Summary == "" {
		t.Error("summary missing")
	}
	if report.TotalSections != 2 || len(report.Sections) != 2 {
		t.Errorf("sections lost: %+v", report)
	}
	if len(report.Sources) != 1 || report.Sources[0].URL != "https://x.example" {
		t.Errorf("cited source not extracted: %+v", report.Sources)
	}
}

func TestResearchSectionsPropagatesFailure(t *testing.T) {
	client := &fakeLLM{failOn: "Write comprehensive content"}
	p := NewPipeline(client, nil)
	task := &models.Task{ID: "t1", Topic: "solar energy", Depth: models.DepthBasic}
	sections := []models.OutlineSection{{Title: "Anything At All"}}

	if _, err := p.ResearchSections(context.Background(), sections, task, nil); err == nil {
		t.Fatal("expected drafting failure to propagate")
	}
}
