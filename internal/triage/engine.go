// Package triage classifies an issue as bug, config, feature, question or
// unclear with a confidence score. It is a stateless single-shot scorer:
// no transitions, just a weighted factor table over the issue's text,
// labels and metadata.
package triage

import (
	"fmt"
	"strings"

	"signalhub.app/correlator/internal/domain"
)

// baseline is the neutral starting confidence before any factor fires.
const baseline = 0.5

// Breakpoints mapping confidence to a category. Hand-tuned constants,
// treated as configuration rather than derived values.
const (
	bugHighBreak  = 0.70
	bugBreak      = 0.50
	unclearBreak  = 0.35
	configBreak   = 0.20
	questionBreak = 0.10
)

// Input is the slice of an issue the scorer looks at.
type Input struct {
	Title    string
	Body     string
	Labels   []string
	Metadata map[string]string
}

// FromSignal adapts a normalized signal for scoring.
func FromSignal(s domain.Signal) Input {
	return Input{
		Title:    s.Title,
		Body:     s.Body,
		Labels:   s.Labels,
		Metadata: s.Metadata,
	}
}

// Score evaluates every factor in order and maps the clamped confidence to
// a category. Identical input always yields an identical result.
func Score(in Input) domain.TriageResult {
	confidence := baseline
	evaluated := make([]domain.TriageFactor, 0, len(factors))
	var fired []string

	for _, f := range factors {
		matched, detail := f.check(in)
		evaluated = append(evaluated, domain.TriageFactor{
			Name:    f.name,
			Weight:  f.weight,
			Matched: matched,
			Detail:  detail,
		})
		if matched {
			confidence += f.weight
			fired = append(fired, f.name)
		}
	}

	confidence = clamp(confidence)

	return domain.TriageResult{
		Result:     categorize(confidence),
		Confidence: confidence,
		Reasoning:  reasoning(confidence, fired),
		Factors:    evaluated,
	}
}

func categorize(confidence float64) domain.TriageCategory {
	switch {
	case confidence >= bugHighBreak:
		return domain.TriageBug
	case confidence >= bugBreak:
		return domain.TriageBug
	case confidence >= unclearBreak:
		return domain.TriageUnclear
	case confidence >= configBreak:
		return domain.TriageConfig
	case confidence >= questionBreak:
		return domain.TriageQuestion
	default:
		return domain.TriageFeature
	}
}

func reasoning(confidence float64, fired []string) string {
	if len(fired) == 0 {
		return fmt.Sprintf("no factors matched; neutral confidence %.2f", confidence)
	}
	return fmt.Sprintf("confidence %.2f from factors: %s", confidence, strings.Join(fired, ", "))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
