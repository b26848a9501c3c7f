package handler

import (
	"time"

	"github.com/yndnr/crudkv-go/internal/infra/buildinfo"
	"github.com/yndnr/crudkv-go/internal/storage"
)

// Response is the envelope used by health and admin endpoints.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HealthResponse is the data of GET /health and GET /ready.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StatusResponse is the data of GET /admin/v1/status.
type StatusResponse struct {
	Build         buildinfo.Info `json:"build"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	Collection    string         `json:"collection"`
	Storage       *storage.Stats `json:"storage"`
}

// GCResponse is the data of POST /admin/v1/gc.
type GCResponse struct {
	TriggeredAt string `json:"triggered_at"`
	DurationMS  int64  `json:"duration_ms"`
}

// RestoreResponse is the data of POST /admin/v1/restore.
type RestoreResponse struct {
	Restored int `json:"restored"`
}
