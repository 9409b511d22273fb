package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"signalhub.app/correlator/common/id"
	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/queue"
	"signalhub.app/correlator/internal/store"
)

// SignalIngestParams is one normalized signal as submitted by a source
// adapter. The pipeline never talks to Discord/GitHub/Slack directly.
type SignalIngestParams struct {
	Source    domain.Source     `json:"source"`
	SourceID  string            `json:"source_id"`
	Permalink string            `json:"permalink"`
	Title     string            `json:"title,omitempty"`
	Body      string            `json:"body"`
	Labels    []string          `json:"labels,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`

	TraceID *string `json:"trace_id,omitempty"`
}

type SignalIngestResult struct {
	Signal   *domain.Signal
	Enqueued bool
}

type SignalIngestService interface {
	Ingest(ctx context.Context, params SignalIngestParams) (*SignalIngestResult, error)
}

type signalIngestService struct {
	signals store.SignalStore
	queue   queue.Producer
	logger  *slog.Logger
}

func NewSignalIngestService(signals store.SignalStore, producer queue.Producer, logger *slog.Logger) SignalIngestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &signalIngestService{
		signals: signals,
		queue:   producer,
		logger:  logger,
	}
}

// Ingest upserts the signal (keyed by source + source_id) and enqueues a
// correlation task for it. Re-ingesting the same signal refreshes its text
// and updated_at, which in turn invalidates its cached embedding.
func (s *signalIngestService) Ingest(ctx context.Context, params SignalIngestParams) (*SignalIngestResult, error) {
	switch params.Source {
	case domain.SourceDiscord, domain.SourceGitHub, domain.SourceSlack:
	default:
		return nil, &faults.ValidationError{Field: "source", Reason: fmt.Sprintf("unknown source %q", params.Source)}
	}
	if params.SourceID == "" {
		return nil, &faults.ValidationError{Field: "source_id", Reason: "required"}
	}
	if params.Body == "" && params.Title == "" {
		return nil, &faults.ValidationError{Field: "body", Reason: "signal has no text"}
	}

	now := time.Now().UTC()
	createdAt, updatedAt := now, now
	if params.CreatedAt != nil {
		createdAt = *params.CreatedAt
	}
	if params.UpdatedAt != nil {
		updatedAt = *params.UpdatedAt
	}

	signal, err := s.signals.Upsert(ctx, &domain.Signal{
		ID:        id.New(),
		Source:    params.Source,
		SourceID:  params.SourceID,
		Permalink: params.Permalink,
		Title:     params.Title,
		Body:      params.Body,
		Labels:    params.Labels,
		Metadata:  params.Metadata,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("upserting signal: %w", err)
	}

	result := &SignalIngestResult{Signal: signal}

	if err := s.queue.Enqueue(ctx, queue.SignalMessage{
		TaskType: queue.TaskTypeSignal,
		SignalID: signal.ID,
		Source:   string(signal.Source),
		TraceID:  params.TraceID,
	}); err != nil {
		// The signal is persisted; a failed enqueue is recoverable by the
		// next batch pass, so report it without undoing the write.
		s.logger.ErrorContext(ctx, "enqueueing signal task failed",
			"signal_id", signal.ID, "error", err)
		return result, nil
	}

	result.Enqueued = true
	return result, nil
}
