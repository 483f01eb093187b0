package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across metamap.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Components
	FieldComponent = "component"
	FieldOperation = "operation"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and sizes
	FieldCount      = "count"
	FieldCategories = "categories"
	FieldCandidates = "candidates"

	// Data store
	FieldPath   = "path"
	FieldTable  = "table"
	FieldColumn = "column"
	FieldDriver = "driver"

	// Engine
	FieldConcept  = "concept"
	FieldBaseType = "base_type"
	FieldRule     = "rule"
	FieldShape    = "geometry_shape"
	FieldRole     = "dataset_role"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	matcher := annotate.New(store, inspector, cfg, logger.ComponentLogger("annotate"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
