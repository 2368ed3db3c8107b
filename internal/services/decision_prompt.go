package services

import (
	"fmt"
	"strings"

	types "github.com/govairn/govairn-backend/internal/domain"
)

const (
	DefaultDescriptionLimit = 1000
	TruncationMarker        = "... [truncated]"
)

// TruncateDescription keeps at most limit runes of body and appends the
// truncation marker when anything was cut.
func TruncateDescription(body string, limit int) (string, bool) {
	if limit <= 0 {
		limit = DefaultDescriptionLimit
	}
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= limit {
		return body, false
	}
	return string(runes[:limit]) + TruncationMarker, true
}

func buildSystemPrompt(v types.PersonaValues) string {
	var b strings.Builder
	b.WriteString("You are govAIrn, an AI governance delegate that recommends how a DAO member should vote on a proposal.\n")
	b.WriteString("Recommend the vote that best matches the member's persona below. Every value is on a 0 to 100 scale.\n\n")
	fmt.Fprintf(&b, "- Risk tolerance: %d (higher = more risk-accepting, lower = prefers safe, proven changes)\n", v.Risk)
	fmt.Fprintf(&b, "- ESG weighting: %d (higher = environmental, social and governance impact matters more)\n", v.ESG)
	fmt.Fprintf(&b, "- Treasury bias: %d (higher = protect and grow the treasury, lower = willing to spend it)\n", v.Treasury)
	fmt.Fprintf(&b, "- Time horizon: %d (higher = long-term outcomes over short-term gains)\n", v.Horizon)
	fmt.Fprintf(&b, "- Voting frequency: %d (higher = participates actively, lower = abstains unless strongly convinced)\n", v.Frequency)
	b.WriteString("\nBe concise and ground every factor in the proposal text. Respond with JSON only.")
	return b.String()
}

const decisionContract = `Return a single JSON object with exactly these fields:
{
  "decision": "for" | "against" | "abstain",
  "confidence": integer 0-100,
  "persona_match": integer 0-100 (how well the decision aligns with the persona, independent of confidence),
  "reasoning": "two or three sentences",
  "chain_of_thought": "step by step analysis",
  "factors": [
    {
      "factor_name": "short label",
      "factor_value": integer -100 to 100 (negative argues against, positive argues for),
      "factor_weight": integer 0-100 (relative importance),
      "explanation": "one sentence"
    }
  ]
}
Provide between 2 and 5 factors. Do not wrap the JSON in markdown.`

func buildUserPrompt(title, body string, limit int) string {
	truncated, _ := TruncateDescription(body, limit)
	var b strings.Builder
	fmt.Fprintf(&b, "Proposal title: %s\n\n", strings.TrimSpace(title))
	b.WriteString("Proposal description:\n")
	b.WriteString(truncated)
	b.WriteString("\n\n")
	b.WriteString(decisionContract)
	return b.String()
}
