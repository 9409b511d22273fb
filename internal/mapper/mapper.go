// Package mapper converts raw source webhook payloads into normalized
// signal parameters. Each source has its own wire format; everything past
// the mapper speaks only the normalized shape.
package mapper

import (
	"context"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/service"
)

// SignalMapper extracts one normalized signal from a webhook delivery.
type SignalMapper interface {
	Map(ctx context.Context, body map[string]any, headers map[string]string) (service.SignalIngestParams, error)
}

// ForSource returns the mapper for a webhook source. Sources without a
// webhook format (their adapters push normalized signals directly) have no
// mapper.
func ForSource(source domain.Source) (SignalMapper, bool) {
	switch source {
	case domain.SourceGitHub:
		return NewGitHubIssueMapper(), true
	case domain.SourceDiscord:
		return NewDiscordThreadMapper(), true
	default:
		return nil, false
	}
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func mapField(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}
