package services

import (
	"strings"
	"testing"
)

func TestParseDecision(t *testing.T) {
	cases := []struct {
		name       string
		raw        string
		decision   string
		confidence int
		reason     DegradedReason
	}{
		{
			name:       "plain_json",
			raw:        replyFor,
			decision:   "for",
			confidence: 82,
		},
		{
			name:       "fenced_with_prose",
			raw:        "Sure! ```json\n{\"decision\":\"for\",\"confidence\":80,\"persona_match\":70,\"reasoning\":\"ok\"}\n```",
			decision:   "for",
			confidence: 80,
		},
		{
			name:       "upper_case_and_string_numbers",
			raw:        `{"decision":"AGAINST","confidence":"71%","persona_match":"60"}`,
			decision:   "against",
			confidence: 71,
		},
		{
			name:       "clamped",
			raw:        `{"decision":"abstain","confidence":140,"persona_match":-3}`,
			decision:   "abstain",
			confidence: 100,
		},
		{
			name:       "brace_inside_string",
			raw:        `Here you go: {"decision":"for","confidence":55,"reasoning":"uses } and { freely"} thanks`,
			decision:   "for",
			confidence: 55,
		},
		{name: "not_json", raw: "not json at all", reason: ReasonMalformedJSON},
		{name: "truncated", raw: `{"decision":"for","confidence":8`, reason: ReasonMalformedJSON},
		{name: "empty", raw: "   ", reason: ReasonEmptyResponse},
		{name: "unknown_decision", raw: `{"decision":"maybe","confidence":50}`, reason: ReasonInvalidDecision},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, reason, err := ParseDecision(tc.raw)
			if tc.reason != "" {
				if err == nil {
					t.Fatalf("expected error, got decision=%+v", got)
				}
				if reason != tc.reason {
					t.Fatalf("reason: want=%q got=%q", tc.reason, reason)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecision: %v", err)
			}
			if got.Decision != tc.decision {
				t.Fatalf("decision: want=%q got=%q", tc.decision, got.Decision)
			}
			if got.Confidence != tc.confidence {
				t.Fatalf("confidence: want=%d got=%d", tc.confidence, got.Confidence)
			}
		})
	}
}

func TestParseDecisionClampsFactors(t *testing.T) {
	raw := `{"decision":"for","confidence":60,"persona_match":60,"factors":[
		{"factor_name":"Yield","factor_value":250,"factor_weight":180,"explanation":"x"},
		{"factor_name":"Risk","factor_value":-400,"factor_weight":-5},
		{"factor_name":"  ","factor_value":10,"factor_weight":10}
	]}`
	got, _, err := ParseDecision(raw)
	if err != nil {
		t.Fatalf("ParseDecision: %v", err)
	}
	if len(got.Factors) != 2 {
		t.Fatalf("factors: want=2 got=%d", len(got.Factors))
	}
	if got.Factors[0].Value != 100 || got.Factors[0].Weight != 100 {
		t.Fatalf("factor[0]: want=100/100 got=%d/%d", got.Factors[0].Value, got.Factors[0].Weight)
	}
	if got.Factors[1].Value != -100 || got.Factors[1].Weight != 0 {
		t.Fatalf("factor[1]: want=-100/0 got=%d/%d", got.Factors[1].Value, got.Factors[1].Weight)
	}
}

func TestResolveAlwaysRenderable(t *testing.T) {
	for _, raw := range []string{"not json at all", "", "```json\n{\"decision\":\"for\"", `{"decision":"perhaps"}`} {
		d, reason, err := ParseDecision(raw)
		got := Resolve(Outcome{Decision: d, Degraded: err != nil, Reason: reason, Err: err})
		if got.Decision != "abstain" {
			t.Fatalf("Resolve(%q).Decision: want=%q got=%q", raw, "abstain", got.Decision)
		}
		if !IsFallbackReasoning(got.Reasoning) {
			t.Fatalf("Resolve(%q).Reasoning: want fallback prefix got=%q", raw, got.Reasoning)
		}
		if !strings.Contains(got.Reasoning, string(reason)) {
			t.Fatalf("Resolve(%q).Reasoning should name reason %q: %q", raw, reason, got.Reasoning)
		}
		if len(got.Factors) == 0 || got.Factors[0].Name != FallbackFactorName {
			t.Fatalf("Resolve(%q).Factors: want fallback factor got=%+v", raw, got.Factors)
		}
	}
}

func TestFallbackDecisionShape(t *testing.T) {
	fb := FallbackDecision(ReasonTimeout)
	if fb.Confidence != 50 || fb.PersonaMatch != 50 {
		t.Fatalf("confidence/persona_match: want=50/50 got=%d/%d", fb.Confidence, fb.PersonaMatch)
	}
	if len(fb.Factors) != 1 || fb.Factors[0].Weight != 100 || fb.Factors[0].Value != 0 {
		t.Fatalf("factors: got=%+v", fb.Factors)
	}
}
