package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across capstat.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldStudyID   = "study_id"
	FieldClient    = "client"
	FieldReference = "reference"
	FieldLot       = "lot"
	FieldElement   = "element"
	FieldSource    = "source"

	// Operations
	FieldOperation = "operation"
	FieldQuery     = "query"
	FieldAttempt   = "attempt"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"

	// Counts and sizes
	FieldCount      = "count"
	FieldSampleSize = "sample_size"
	FieldSynthetic  = "synthetic"

	// Statistics
	FieldPValue = "p_value"
	FieldStatus = "status"
)

// Context keys for propagating logging context
type contextKey string

const (
	studyIDKey contextKey = "logger_study_id"
	elementKey contextKey = "logger_element"
)

// WithStudyID adds a study ID to the context for logging
func WithStudyID(ctx context.Context, studyID string) context.Context {
	return context.WithValue(ctx, studyIDKey, studyID)
}

// WithElement adds an element identifier to the context for logging
func WithElement(ctx context.Context, element string) context.Context {
	return context.WithValue(ctx, elementKey, element)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if studyID, ok := ctx.Value(studyIDKey).(string); ok && studyID != "" {
		fields = append(fields, FieldStudyID, studyID)
	}
	if element, ok := ctx.Value(elementKey).(string); ok && element != "" {
		fields = append(fields, FieldElement, element)
	}

	return fields
}

// FromContext returns a logger with fields extracted from context.
func FromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}
