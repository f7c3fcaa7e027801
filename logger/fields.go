package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across dqguard.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldCycleID = "cycle_id"
	FieldAlertID = "alert_id"

	// Dataset identity
	FieldLayer   = "layer"
	FieldDataset = "dataset"
	FieldSuite   = "suite"

	// Components
	FieldComponent = "component"

	// Validation flow
	FieldDecision    = "decision"
	FieldReason      = "reason"
	FieldFingerprint = "fingerprint"
	FieldSampled     = "sampled"
	FieldRows        = "rows"

	// Alerting
	FieldSeverity = "severity"
	FieldScope    = "scope"
	FieldKind     = "kind"
	FieldLevel    = "level"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount = "count"
)

// Context keys for propagating logging context
type contextKey string

const (
	cycleIDKey contextKey = "logger_cycle_id"
	datasetKey contextKey = "logger_dataset"
)

// WithCycleID adds a validation cycle ID to the context for logging
func WithCycleID(ctx context.Context, cycleID string) context.Context {
	return context.WithValue(ctx, cycleIDKey, cycleID)
}

// WithDataset adds a dataset identifier to the context for logging
func WithDataset(ctx context.Context, dataset string) context.Context {
	return context.WithValue(ctx, datasetKey, dataset)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if cycleID, ok := ctx.Value(cycleIDKey).(string); ok && cycleID != "" {
		fields = append(fields, FieldCycleID, cycleID)
	}
	if dataset, ok := ctx.Value(datasetKey).(string); ok && dataset != "" {
		fields = append(fields, FieldDataset, dataset)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Sweeper struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewSweeper() *Sweeper {
//	    return &Sweeper{
//	        logger: logger.ComponentLogger("alert.sweeper"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
// Use for sub-operations that need extra context fields.
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
