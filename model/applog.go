package model

import "time"

// App log levels persisted alongside the structured logger output.
const (
	AppLogLevelInfo  = "INFO"
	AppLogLevelWarn  = "WARN"
	AppLogLevelError = "ERROR"
)

// AppLog is one persisted application event, queryable by correlation ID so
// an operator can reconstruct what a webhook run did.
type AppLog struct {
	LogID         string                 `json:"log_id"`
	Level         string                 `json:"level"`
	Event         string                 `json:"event"`
	CorrelationID string                 `json:"correlation_id,omitempty"`
	Message       string                 `json:"message,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
}
