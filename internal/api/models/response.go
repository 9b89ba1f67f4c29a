package models

import (
	"time"

	"portal-gateway/internal/session"
)

// BaseResponse represents the base API response structure
type BaseResponse struct {
	Success   bool        `json:"success" example:"true"`
	Message   string      `json:"message,omitempty" example:"Operation completed successfully"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp int64       `json:"timestamp" example:"1640995200"`
	RequestID string      `json:"request_id,omitempty" example:"req_123456"`
}

// ErrorInfo represents error information
type ErrorInfo struct {
	Code    string `json:"code" example:"INVALID_REQUEST"`
	Message string `json:"message" example:"Invalid request parameters"`
	Details string `json:"details,omitempty" example:"Field 'email' is required"`
}

// NewErrorResponse wraps an APIError in the response envelope
func NewErrorResponse(err *APIError, requestID string) BaseResponse {
	return BaseResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    err.Code,
			Message: err.Message,
			Details: err.Details,
		},
		Timestamp: time.Now().Unix(),
		RequestID: requestID,
	}
}

// SessionResponse is what the UI layer reads to learn who is logged in
type SessionResponse struct {
	IsLoggedIn bool                 `json:"isLoggedIn" example:"true"`
	User       *session.UserProfile `json:"user"`
	Token      *string              `json:"token"`
}

// RoleResponse reports the decoded role of the caller
type RoleResponse struct {
	Authenticated bool   `json:"authenticated" example:"true"`
	Role          string `json:"role" example:"customer"`
	UserID        string `json:"userId,omitempty" example:"42"`
}

// LoginResponse is returned after a successful login exchange
type LoginResponse struct {
	IsLoggedIn    bool                 `json:"isLoggedIn" example:"true"`
	User          *session.UserProfile `json:"user"`
	ProfileCached bool                 `json:"profileCached" example:"true"`
	ExpiresAt     int64                `json:"expiresAt" example:"1640995200"`
}

// SectionResponse is the placeholder payload of a protected section
type SectionResponse struct {
	Section string `json:"section" example:"admin"`
	UserID  string `json:"userId" example:"42"`
	Role    string `json:"role" example:"admin"`
}

// AuthEventsResponse lists recorded auth events
type AuthEventsResponse struct {
	Events interface{}      `json:"events"`
	Counts map[string]int64 `json:"counts"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// HealthCheckResponse represents health check response
type HealthCheckResponse struct {
	Status    string                 `json:"status" example:"healthy"`
	Timestamp int64                  `json:"timestamp" example:"1640995200"`
	Version   string                 `json:"version" example:"1.0.0"`
	Uptime    int64                  `json:"uptime" example:"86400"`
	Checks    map[string]HealthCheck `json:"checks"`
}

// HealthCheck represents individual health check
type HealthCheck struct {
	Status  string `json:"status" example:"healthy"`
	Message string `json:"message,omitempty" example:"Service is running normally"`
}
