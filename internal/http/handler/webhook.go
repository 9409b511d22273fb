package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"signalhub.app/correlator/internal/domain"
	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/http/dto"
	"signalhub.app/correlator/internal/mapper"
	"signalhub.app/correlator/internal/service"
)

type WebhookHandler struct {
	ingest service.SignalIngestService
}

func NewWebhookHandler(ingest service.SignalIngestService) *WebhookHandler {
	return &WebhookHandler{ingest: ingest}
}

// Receive accepts a raw source webhook, maps it to a normalized signal and
// ingests it. Sources without a webhook format must use the signals API.
func (h *WebhookHandler) Receive(c *gin.Context) {
	ctx := c.Request.Context()

	source := domain.Source(c.Param("source"))
	m, ok := mapper.ForSource(source)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no webhook mapper for source"})
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json payload"})
		return
	}

	headers := make(map[string]string, len(c.Request.Header))
	for name := range c.Request.Header {
		headers[name] = c.GetHeader(name)
	}

	params, err := m.Map(ctx, body, headers)
	if err != nil {
		slog.WarnContext(ctx, "webhook mapping failed", "source", source, "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		traceID := spanCtx.TraceID().String()
		params.TraceID = &traceID
	}

	result, err := h.ingest.Ingest(ctx, params)
	if err != nil {
		if faults.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.ErrorContext(ctx, "failed to ingest webhook signal", "source", source, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to ingest signal"})
		return
	}

	c.JSON(http.StatusAccepted, dto.IngestSignalResponse{
		SignalID: result.Signal.ID,
		Enqueued: result.Enqueued,
	})
}
