// Package presenter projects a stored AI decision onto the shapes each
// dashboard surface renders. Every mapper is total over (nil, loading).
package presenter

import (
	"context"
	"strings"

	"github.com/samber/lo"

	types "github.com/govairn/govairn-backend/internal/domain"
)

const Placeholder = "No AI decision is available for this proposal yet."

type Direction string

const (
	DirectionFor     Direction = "for"
	DirectionAgainst Direction = "against"
	DirectionNeutral Direction = "neutral"
)

type Factor struct {
	Name        string    `json:"name"`
	Value       int       `json:"value"`
	Weight      int       `json:"weight"`
	Direction   Direction `json:"direction"`
	Explanation string    `json:"explanation,omitempty"`
}

type DetailView struct {
	Available             bool     `json:"available"`
	Loading               bool     `json:"loading"`
	Decision              string   `json:"decision"`
	DisplayDecision       string   `json:"display_decision"`
	Confidence            int      `json:"confidence"`
	PersonaMatch          int      `json:"persona_match"`
	Reasoning             string   `json:"reasoning"`
	ChainOfThought        string   `json:"chain_of_thought"`
	Factors               []Factor `json:"factors"`
	Degraded              bool     `json:"degraded"`
	RequiresRecalculation bool     `json:"requires_recalculation"`
}

type CardView struct {
	Available       bool   `json:"available"`
	Loading         bool   `json:"loading"`
	Decision        string `json:"decision"`
	DisplayDecision string `json:"display_decision"`
	Confidence      int    `json:"confidence"`
	PersonaMatch    int    `json:"persona_match"`
	Degraded        bool   `json:"degraded"`
	Message         string `json:"message,omitempty"`
}

type FactorChartView struct {
	Available bool     `json:"available"`
	Loading   bool     `json:"loading"`
	Points    []Factor `json:"points"`
	Message   string   `json:"message,omitempty"`
}

type ReasoningView struct {
	Available      bool   `json:"available"`
	Loading        bool   `json:"loading"`
	Reasoning      string `json:"reasoning"`
	ChainOfThought string `json:"chain_of_thought"`
	Degraded       bool   `json:"degraded"`
}

// CastFunc records a vote for the given choice.
type CastFunc func(ctx context.Context, choice string) error

type VoteButtonView struct {
	Disabled   bool                            `json:"disabled"`
	Loading    bool                            `json:"loading"`
	VoteChoice string                          `json:"vote_choice"`
	Confidence int                             `json:"confidence"`
	Message    string                          `json:"message,omitempty"`
	OnClick    func(ctx context.Context) error `json:"-"`
}

func DisplayDecision(decision string) string {
	return strings.ToUpper(strings.TrimSpace(decision))
}

func DirectionOf(value int) Direction {
	switch {
	case value > 0:
		return DirectionFor
	case value < 0:
		return DirectionAgainst
	default:
		return DirectionNeutral
	}
}

func factors(d *types.AIDecision) []Factor {
	return lo.Map(d.Factors, func(f types.AIDecisionFactor, _ int) Factor {
		return Factor{
			Name:        f.FactorName,
			Value:       f.FactorValue,
			Weight:      f.FactorWeight,
			Direction:   DirectionOf(f.FactorValue),
			Explanation: f.Explanation,
		}
	})
}

func Detail(d *types.AIDecision, loading bool) DetailView {
	switch {
	case loading:
		return DetailView{Loading: true, Factors: []Factor{}}
	case d == nil:
		return DetailView{Reasoning: Placeholder, Factors: []Factor{}}
	}
	return DetailView{
		Available:             true,
		Decision:              d.Decision,
		DisplayDecision:       DisplayDecision(d.Decision),
		Confidence:            d.Confidence,
		PersonaMatch:          d.PersonaMatch,
		Reasoning:             d.Reasoning,
		ChainOfThought:        d.ChainOfThought,
		Factors:               factors(d),
		Degraded:              d.Degraded,
		RequiresRecalculation: d.RequiresRecalculation,
	}
}

func Card(d *types.AIDecision, loading bool) CardView {
	switch {
	case loading:
		return CardView{Loading: true}
	case d == nil:
		return CardView{Message: Placeholder}
	}
	return CardView{
		Available:       true,
		Decision:        d.Decision,
		DisplayDecision: DisplayDecision(d.Decision),
		Confidence:      d.Confidence,
		PersonaMatch:    d.PersonaMatch,
		Degraded:        d.Degraded,
	}
}

func FactorChart(d *types.AIDecision, loading bool) FactorChartView {
	switch {
	case loading:
		return FactorChartView{Loading: true, Points: []Factor{}}
	case d == nil:
		return FactorChartView{Points: []Factor{}, Message: Placeholder}
	}
	return FactorChartView{Available: true, Points: factors(d)}
}

func Reasoning(d *types.AIDecision, loading bool) ReasoningView {
	switch {
	case loading:
		return ReasoningView{Loading: true}
	case d == nil:
		return ReasoningView{Reasoning: Placeholder}
	}
	return ReasoningView{
		Available:      true,
		Reasoning:      d.Reasoning,
		ChainOfThought: d.ChainOfThought,
		Degraded:       d.Degraded,
	}
}

// VoteButton binds cast to the AI's choice, or to override when it is set.
// The button is disabled while loading, without a decision, or without cast.
func VoteButton(d *types.AIDecision, loading bool, cast CastFunc, override string) VoteButtonView {
	v := VoteButtonView{Loading: loading, Disabled: true}
	if loading {
		return v
	}
	if d == nil {
		v.Message = Placeholder
		return v
	}
	choice := d.Decision
	if o := strings.ToLower(strings.TrimSpace(override)); o != "" {
		choice = o
	}
	v.VoteChoice = choice
	v.Confidence = d.Confidence
	if cast == nil {
		return v
	}
	v.Disabled = false
	v.OnClick = func(ctx context.Context) error {
		return cast(ctx, choice)
	}
	return v
}
