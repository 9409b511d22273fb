package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within a context.
// Fields flow through context enrichment, enabling zero-touch logging where business
// context (signal_id, group_id, etc.) is automatically included in all log statements.
type LogFields struct {
	SignalID  *int64  // Normalized signal ID
	GroupID   *int64  // Group/cluster ID
	BatchID   *int64  // Pipeline batch ID
	MessageID *string // Redis stream message ID
	Source    *string // Signal source (discord, github, slack)
	TaskType  *string // Queue task type
	Component string  // Component name (OTel semantic convention style, e.g., "correlator.worker.processor")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking precedence.
// Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// mergeFields merges two LogFields, preferring non-nil/non-empty values from 'new'.
func mergeFields(existing, new LogFields) LogFields {
	result := existing

	if new.SignalID != nil {
		result.SignalID = new.SignalID
	}
	if new.GroupID != nil {
		result.GroupID = new.GroupID
	}
	if new.BatchID != nil {
		result.BatchID = new.BatchID
	}
	if new.MessageID != nil {
		result.MessageID = new.MessageID
	}
	if new.Source != nil {
		result.Source = new.Source
	}
	if new.TaskType != nil {
		result.TaskType = new.TaskType
	}
	if new.Component != "" {
		result.Component = new.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value.
// Useful for setting LogFields inline: logger.WithLogFields(ctx, logger.LogFields{SignalID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}

// Truncate truncates a string to maxLen characters, appending "..." if truncated.
// Useful for logging potentially long strings like bodies or error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
