package dto

import (
	"time"

	"signalhub.app/correlator/internal/domain"
)

type IngestSignalRequest struct {
	Source    string            `json:"source" binding:"required"`
	SourceID  string            `json:"source_id" binding:"required"`
	Permalink string            `json:"permalink"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Labels    []string          `json:"labels"`
	Metadata  map[string]string `json:"metadata"`
	CreatedAt *time.Time        `json:"created_at"`
	UpdatedAt *time.Time        `json:"updated_at"`
}

type IngestSignalResponse struct {
	SignalID int64 `json:"signal_id"`
	Enqueued bool  `json:"enqueued"`
}

type TriageResponse struct {
	SignalID int64               `json:"signal_id"`
	Triage   domain.TriageResult `json:"triage"`
}

type GroupListResponse struct {
	Groups []domain.GroupCandidate `json:"groups"`
}
