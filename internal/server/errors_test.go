package server

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/voice-agent-builder/internal/knowledge"
	"github.com/jonathan/voice-agent-builder/internal/pipeline"
	"github.com/jonathan/voice-agent-builder/internal/pipeline/steps"
)

func TestErrSessionNotFound(t *testing.T) {
	id := uuid.New()
	err := &ErrSessionNotFound{SessionID: id}
	assert.Equal(t, "session not found: "+id.String(), err.Error())
	assert.Equal(t, http.StatusNotFound, HTTPStatus(err))
}

func TestErrInvalidCredentials(t *testing.T) {
	err := &ErrInvalidCredentials{}
	assert.Equal(t, "invalid password", err.Error())
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(err))
}

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "urls", Message: "url"}
	assert.Equal(t, "validation error: urls - url", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus_Wrapped(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("step: %w", &ErrSessionBusy{}), http.StatusConflict},
		{&steps.DependencyError{Step: "combine", MissingDependencies: []string{"process"}}, http.StatusConflict},
		{fmt.Errorf("processing failed: %w", knowledge.ErrNoValidContent), http.StatusUnprocessableEntity},
		{knowledge.ErrUnprocessed, http.StatusUnprocessableEntity},
		{pipeline.ErrNoLLM, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
