package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging across framemark.
// Use these constants instead of raw strings to keep log queries stable.
const (
	// Identity and context
	FieldSession   = "session"
	FieldClientID  = "client_id"
	FieldRequestID = "request_id"

	// Components
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldCommand   = "command"

	// Annotation cursor
	FieldFrame     = "frame"
	FieldFromFrame = "from_frame"
	FieldToFrame   = "to_frame"
	FieldPerson    = "person"
	FieldPersonID  = "person_id"
	FieldZone      = "zone"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount = "count"

	// Files and paths
	FieldWorkspace = "workspace"
	FieldFile      = "file"
	FieldPath      = "path"
	FieldBinary    = "binary"

	// Network
	FieldAddress = "address"
	FieldPort    = "port"
)

type contextKey string

const (
	sessionKey   contextKey = "logger_session"
	requestIDKey contextKey = "logger_request_id"
	componentKey contextKey = "logger_component"
)

// WithSession adds a store session id to the context for logging
func WithSession(ctx context.Context, session string) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

// WithRequestID adds a request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if session, ok := ctx.Value(sessionKey).(string); ok && session != "" {
		fields = append(fields, FieldSession, session)
	}
	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger carrying the fields stored in ctx.
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
//	type Resolver struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func NewResolver() *Resolver {
//	    return &Resolver{
//	        logger: logger.ComponentLogger("locate"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
//	frameLogger := logger.ChildLogger(baseLogger, logger.FieldFrame, 12)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
