package llm

import (
	"context"
	"strings"
)

// MockClient is used when no real provider is configured. The canned replies
// are shaped so a full pipeline run still produces a parseable outline and
// perspective list.
type MockClient struct{}

func (m *MockClient) Generate(ctx context.Context, prompt, system string) (string, error) {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "json array"):
		return `[{"title":"Industry Perspective","viewpoint":"Adoption is accelerating across the sector.","evidence":["Vendor investment is growing."]},{"title":"Academic Perspective","viewpoint":"Research output on the topic has expanded steadily.","evidence":["Publication counts are rising."]},{"title":"Policy Perspective","viewpoint":"Regulators are drafting guidance for the field.","evidence":["Several frameworks are under consultation."]}]`, nil
	case strings.Contains(p, "outline"):
		return "1. Historical Development and Foundations\n2. Current Applications and Key Players\n3. Open Challenges and Limitations\n4. Future Directions and Outlook", nil
	case strings.Contains(p, "executive summary"):
		return "The field shows sustained growth across research and industry. Key challenges remain around adoption and standardization.", nil
	default:
		return "Placeholder analysis generated without a configured provider. Configure GOOGLE_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY for real output.", nil
	}
}
