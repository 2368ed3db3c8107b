package services

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/govairn/govairn-backend/internal/domain/decision"
)

type DegradedReason string

const (
	ReasonTimeout         DegradedReason = "timeout"
	ReasonProviderError   DegradedReason = "provider_error"
	ReasonEmptyResponse   DegradedReason = "empty_response"
	ReasonMalformedJSON   DegradedReason = "malformed_json"
	ReasonInvalidDecision DegradedReason = "invalid_decision"
)

type GeneratedFactor struct {
	Name        string `json:"factor_name"`
	Value       int    `json:"factor_value"`
	Weight      int    `json:"factor_weight"`
	Explanation string `json:"explanation"`
}

type GeneratedDecision struct {
	Decision       string            `json:"decision"`
	Confidence     int               `json:"confidence"`
	PersonaMatch   int               `json:"persona_match"`
	Reasoning      string            `json:"reasoning"`
	ChainOfThought string            `json:"chain_of_thought"`
	Factors        []GeneratedFactor `json:"factors"`
}

// Outcome keeps a degraded generation distinguishable from a real one.
type Outcome struct {
	Decision GeneratedDecision
	Degraded bool
	Reason   DegradedReason
	Err      error
}

// Resolve always yields a renderable decision.
func Resolve(o Outcome) GeneratedDecision {
	if o.Degraded || o.Decision.Decision == "" {
		reason := o.Reason
		if reason == "" {
			reason = ReasonProviderError
		}
		return FallbackDecision(reason)
	}
	return o.Decision
}

const FallbackFactorName = "AI analysis unavailable"

func FallbackDecision(reason DegradedReason) GeneratedDecision {
	return GeneratedDecision{
		Decision:     decision.Abstain,
		Confidence:   50,
		PersonaMatch: 50,
		Reasoning: fmt.Sprintf(
			"Fallback decision: the AI analysis could not be completed (%s). Abstain is suggested until the proposal is reviewed manually.",
			reason,
		),
		Factors: []GeneratedFactor{{
			Name:        FallbackFactorName,
			Value:       0,
			Weight:      100,
			Explanation: fmt.Sprintf("No usable recommendation was produced by the AI provider (%s).", reason),
		}},
	}
}

// IsFallbackReasoning reports whether reasoning came from FallbackDecision.
func IsFallbackReasoning(reasoning string) bool {
	return strings.HasPrefix(reasoning, "Fallback decision:")
}

var (
	errEmptyResponse   = errors.New("empty model response")
	errNoJSONObject    = errors.New("no JSON object in model response")
	errInvalidDecision = errors.New("decision must be for, against or abstain")
)

// flexInt accepts JSON numbers, numeric strings and null.
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*f = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", string(b))
	}
	*f = flexInt(math.Round(v))
	return nil
}

type wireFactor struct {
	Name        string  `json:"factor_name"`
	Value       flexInt `json:"factor_value"`
	Weight      flexInt `json:"factor_weight"`
	Explanation string  `json:"explanation"`
}

type wireDecision struct {
	Decision       string       `json:"decision"`
	Confidence     flexInt      `json:"confidence"`
	PersonaMatch   flexInt      `json:"persona_match"`
	Reasoning      string       `json:"reasoning"`
	ChainOfThought string       `json:"chain_of_thought"`
	Factors        []wireFactor `json:"factors"`
}

// ParseDecision extracts and validates a decision from raw model output. It
// tolerates markdown fences and prose around the JSON object. On failure it
// returns the reason the output was rejected.
func ParseDecision(raw string) (GeneratedDecision, DegradedReason, error) {
	if strings.TrimSpace(raw) == "" {
		return GeneratedDecision{}, ReasonEmptyResponse, errEmptyResponse
	}
	payload, ok := extractJSONObject(raw)
	if !ok {
		return GeneratedDecision{}, ReasonMalformedJSON, errNoJSONObject
	}
	var w wireDecision
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	if err := dec.Decode(&w); err != nil {
		return GeneratedDecision{}, ReasonMalformedJSON, fmt.Errorf("decode decision: %w", err)
	}
	choice, ok := decision.Normalize(w.Decision)
	if !ok {
		return GeneratedDecision{}, ReasonInvalidDecision, fmt.Errorf("%w: got %q", errInvalidDecision, w.Decision)
	}

	out := GeneratedDecision{
		Decision:       choice,
		Confidence:     lo.Clamp(int(w.Confidence), 0, 100),
		PersonaMatch:   lo.Clamp(int(w.PersonaMatch), 0, 100),
		Reasoning:      strings.TrimSpace(w.Reasoning),
		ChainOfThought: strings.TrimSpace(w.ChainOfThought),
	}
	out.Factors = lo.FilterMap(w.Factors, func(f wireFactor, _ int) (GeneratedFactor, bool) {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return GeneratedFactor{}, false
		}
		return GeneratedFactor{
			Name:        name,
			Value:       lo.Clamp(int(f.Value), -100, 100),
			Weight:      lo.Clamp(int(f.Weight), 0, 100),
			Explanation: strings.TrimSpace(f.Explanation),
		}, true
	})
	return out, "", nil
}

// extractJSONObject returns the first balanced {...} in s, preferring the
// body of a ``` fence when one is present.
func extractJSONObject(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 && !strings.Contains(rest[:nl], "{") {
			rest = rest[nl+1:]
		} else {
			rest = strings.TrimPrefix(strings.TrimPrefix(rest, "json"), "JSON")
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		if obj, ok := balancedObject(rest); ok {
			return obj, true
		}
	}
	return balancedObject(s)
}

func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
