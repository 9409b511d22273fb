package mapper

import (
	"context"
	"fmt"
	"time"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/service"
)

// DiscordThreadMapper handles forum-thread payloads pushed by the Discord
// relay bot. The bot flattens the opening post of a thread into a single
// JSON object; replies are not separate signals.
type DiscordThreadMapper struct{}

func NewDiscordThreadMapper() *DiscordThreadMapper {
	return &DiscordThreadMapper{}
}

func (m *DiscordThreadMapper) Map(ctx context.Context, body map[string]any, headers map[string]string) (service.SignalIngestParams, error) {
	threadID := stringField(body, "thread_id")
	if threadID == "" {
		return service.SignalIngestParams{}, fmt.Errorf("discord payload missing thread_id")
	}

	var labels []string
	if raw, ok := body["tags"].([]any); ok {
		for _, t := range raw {
			if tag, ok := t.(string); ok && tag != "" {
				labels = append(labels, tag)
			}
		}
	}

	params := service.SignalIngestParams{
		Source:    domain.SourceDiscord,
		SourceID:  threadID,
		Permalink: stringField(body, "url"),
		Title:     stringField(body, "title"),
		Body:      stringField(body, "content"),
		Labels:    labels,
		Metadata: map[string]string{
			"guild_id":   stringField(body, "guild_id"),
			"channel_id": stringField(body, "channel_id"),
		},
	}
	if t, err := time.Parse(time.RFC3339, stringField(body, "timestamp")); err == nil {
		params.CreatedAt = &t
		params.UpdatedAt = &t
	}
	return params, nil
}
