package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/aerial/internal/domain/activity"
	"github.com/rpggio/aerial/internal/domain/identity"
	"github.com/rpggio/aerial/internal/domain/metrics"
	"github.com/rpggio/aerial/internal/domain/project"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, project.ErrProjectNotFound):
		return &APIError{Code: "PROJECT_NOT_FOUND", Message: "project not found", RecoveryHint: "Call list_projects for valid ids"}
	case errors.Is(err, project.ErrDataLoadFailed):
		return &APIError{Code: "DATA_LOAD_FAILED", Message: "failed to load projects"}
	case errors.Is(err, project.ErrInvalidInput), errors.Is(err, activity.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, metrics.ErrMalformed), errors.Is(err, metrics.ErrUnsupportedVersion):
		return &APIError{Code: "MALFORMED_METRICS", Message: err.Error()}
	case errors.Is(err, identity.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found", RecoveryHint: "Sign in again"}
	case errors.Is(err, identity.ErrAuthenticationFailed):
		return &APIError{Code: "AUTHENTICATION_FAILED", Message: "authentication failed"}
	default:
		return nil
	}
}

// toolError returns the mapped API error when there is one.
func toolError(err error) error {
	if api := MapError(err); api != nil {
		return api
	}
	return err
}
