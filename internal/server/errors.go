// Package server provides the HTTP API for building knowledge bases step by
// step.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/pipeline/steps"
)

// ErrSessionNotFound indicates an unknown session ID
type ErrSessionNotFound struct {
	SessionID uuid.UUID
}

func (e *ErrSessionNotFound) Error() string {
	return fmt.Sprintf("session not found: %s", e.SessionID)
}

// ErrInvalidCredentials indicates a wrong admin password
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid password"
}

// ErrSessionBusy indicates another step is running on the session
type ErrSessionBusy struct {
	SessionID uuid.UUID
}

func (e *ErrSessionBusy) Error() string {
	return fmt.Sprintf("session %s is running another step", e.SessionID)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		notFound   *ErrSessionNotFound
		creds      *ErrInvalidCredentials
		busy       *ErrSessionBusy
		validation *ErrValidation
		dependency *steps.DependencyError
	)
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &creds):
		return http.StatusUnauthorized
	case errors.As(err, &busy), errors.As(err, &dependency):
		return http.StatusConflict
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.Is(err, knowledge.ErrNoValidContent), errors.Is(err, knowledge.ErrUnprocessed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, pipeline.ErrNoLLM):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
