package log

import (
	"time"
)

// Standard field names for consistent logging across the application
const (
	FieldError = "error"

	// Request/Response fields
	FieldRequestID    = "request_id"
	FieldTraceID      = "trace_id"
	FieldSpanID       = "span_id"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldRoute        = "route"
	FieldStatusCode   = "status_code"
	FieldLatency      = "latency"
	FieldClientIP     = "client_ip"
	FieldUserAgent    = "user_agent"
	FieldRequestSize  = "request_size"
	FieldResponseSize = "response_size"

	// Service fields
	FieldService   = "service"
	FieldVersion   = "version"
	FieldComponent = "component"

	// Repository fields
	FieldCollection = "collection"
	FieldOperation  = "operation"
	FieldEntityID   = "entity_id"
	FieldOutcome    = "outcome"
)

// RequestFields creates standard request logging fields
func RequestFields(requestID, method, path string) []Field {
	return []Field{
		String(FieldRequestID, requestID),
		String(FieldMethod, method),
		String(FieldPath, path),
	}
}

// ResponseFields creates standard response logging fields
func ResponseFields(statusCode int, responseSize int64, latency time.Duration) []Field {
	return []Field{
		Int(FieldStatusCode, statusCode),
		Int64(FieldResponseSize, responseSize),
		Duration(FieldLatency, latency),
	}
}

// OperationFields creates standard repository operation fields
func OperationFields(collection, operation string) []Field {
	return []Field{
		String(FieldCollection, collection),
		String(FieldOperation, operation),
	}
}
