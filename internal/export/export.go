// Package export turns persisted groups into issue-tracker payloads. The
// pipeline's only obligation is a well-formed payload and recording the
// returned identifier so a re-export never creates a second issue.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/store"
)

// Payload is the tracker-agnostic issue shape targets accept.
type Payload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Labels      []string `json:"labels,omitempty"`
}

// Result identifies the created external issue.
type Result struct {
	ExternalID  string `json:"external_id"`
	ExternalURL string `json:"external_url"`
}

// Target creates an issue in an external PM tool.
type Target interface {
	Create(ctx context.Context, payload Payload) (Result, error)
}

type Exporter struct {
	target  Target
	groups  store.GroupStore
	signals store.SignalStore
	logger  *slog.Logger
}

func NewExporter(target Target, groups store.GroupStore, signals store.SignalStore, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{target: target, groups: groups, signals: signals, logger: logger}
}

// ExportGroup creates an external issue for the group, or returns the
// previously recorded identifier when the group was already exported.
func (e *Exporter) ExportGroup(ctx context.Context, group *domain.GroupCandidate) (Result, error) {
	if group.ExternalID != nil && *group.ExternalID != "" {
		result := Result{ExternalID: *group.ExternalID}
		if group.ExternalURL != nil {
			result.ExternalURL = *group.ExternalURL
		}
		e.logger.InfoContext(ctx, "group already exported, skipping",
			"group_id", group.ID, "external_id", result.ExternalID)
		return result, nil
	}

	payload, err := e.buildPayload(ctx, group)
	if err != nil {
		return Result{}, fmt.Errorf("building export payload for group %d: %w", group.ID, err)
	}

	result, err := e.target.Create(ctx, payload)
	if err != nil {
		return Result{}, fmt.Errorf("creating external issue for group %d: %w", group.ID, err)
	}

	if err := e.groups.MarkExported(ctx, group.ID, result.ExternalID, result.ExternalURL); err != nil {
		// The issue exists externally; losing the id would duplicate it on
		// the next run, so this is an error, not a warning.
		return result, fmt.Errorf("recording external id for group %d: %w", group.ID, err)
	}

	e.logger.InfoContext(ctx, "group exported",
		"group_id", group.ID, "external_id", result.ExternalID, "members", len(group.Members))
	return result, nil
}

func (e *Exporter) buildPayload(ctx context.Context, group *domain.GroupCandidate) (Payload, error) {
	canonical, err := e.signals.GetByID(ctx, group.CanonicalID)
	if err != nil {
		return Payload{}, fmt.Errorf("loading canonical signal %d: %w", group.CanonicalID, err)
	}

	var b strings.Builder
	if canonical.Body != "" {
		b.WriteString(canonical.Body)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "## Linked reports (%d, avg similarity %.2f)\n", len(group.Members), group.AvgSimilarity)

	for _, m := range group.Members {
		member, err := e.signals.GetByID(ctx, m.SignalID)
		if err != nil {
			e.logger.WarnContext(ctx, "skipping unresolvable group member",
				"group_id", group.ID, "signal_id", m.SignalID, "error", err)
			continue
		}
		title := member.Title
		if title == "" {
			title = member.SourceID
		}
		fmt.Fprintf(&b, "- [%s](%s) (%s, similarity %.2f)\n",
			title, member.Permalink, member.Source, m.Similarity)
	}

	labels := append([]string(nil), canonical.Labels...)
	if group.IsCrossCutting {
		labels = append(labels, "cross-cutting")
	}

	title := canonical.Title
	if title == "" {
		title = firstLine(canonical.Body)
	}

	return Payload{Title: title, Description: b.String(), Labels: labels}, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:80]
	}
	return strings.TrimSpace(s)
}
