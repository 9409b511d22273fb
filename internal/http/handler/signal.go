package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/http/dto"
	"signalhub.app/correlator/internal/service"
	"signalhub.app/correlator/internal/store"
	"signalhub.app/correlator/internal/triage"
)

type SignalHandler struct {
	ingest      service.SignalIngestService
	signals     store.SignalStore
	traceHeader string
}

func NewSignalHandler(ingest service.SignalIngestService, signals store.SignalStore, traceHeader string) *SignalHandler {
	return &SignalHandler{
		ingest:      ingest,
		signals:     signals,
		traceHeader: traceHeader,
	}
}

func (h *SignalHandler) Ingest(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.IngestSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid ingest request", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	traceID := c.GetHeader(h.traceHeader)
	if traceID == "" {
		if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
			traceID = spanCtx.TraceID().String()
		}
	}
	params := service.SignalIngestParams{
		Source:    domain.Source(req.Source),
		SourceID:  req.SourceID,
		Permalink: req.Permalink,
		Title:     req.Title,
		Body:      req.Body,
		Labels:    req.Labels,
		Metadata:  req.Metadata,
		CreatedAt: req.CreatedAt,
		UpdatedAt: req.UpdatedAt,
	}
	if traceID != "" {
		params.TraceID = &traceID
	}

	result, err := h.ingest.Ingest(ctx, params)
	if err != nil {
		if faults.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest signal", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest signal"})
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestSignalResponse{
		SignalID: result.Signal.ID,
		Enqueued: result.Enqueued,
	})
}

// Triage scores the stored signal on demand. Scoring is stateless and
// deterministic, so nothing is persisted.
func (h *SignalHandler) Triage(c *gin.Context) {
	ctx := c.Request.Context()

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signal id"})
		return
	}

	signal, err := h.signals.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load signal", "error", err, "signal_id", id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load signal"})
		return
	}

	c.JSON(http.StatusOK, dto.TriageResponse{
		SignalID: signal.ID,
		Triage:   triage.Score(triage.FromSignal(*signal)),
	})
}
