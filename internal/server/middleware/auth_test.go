package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testTokenValidator struct {
	validTokens map[string]string
}

func (v *testTokenValidator) ValidateToken(tokenString string) (SubjectGetter, error) {
	subject, ok := v.validTokens[tokenString]
	if !ok {
		return nil, fmt.Errorf("invalid token")
	}
	return testClaims(subject), nil
}

type testClaims string

func (c testClaims) GetSubject() (string, error) {
	return string(c), nil
}

func newProtectedHandler(t *testing.T) http.Handler {
	t.Helper()
	validator := &testTokenValidator{validTokens: map[string]string{
		"good":  "admin",
		"empty": "",
	}}
	return AuthMiddleware(validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := GetSubject(r)
		require.NoError(t, err)
		_, _ = w.Write([]byte(subject))
	}))
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	handler := newProtectedHandler(t)

	for _, header := range []string{"Bearer good", "bearer good", "BEARER   good"} {
		req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
		req.Header.Set("Authorization", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code, header)
		assert.Equal(t, "admin", rec.Body.String())
	}
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	handler := newProtectedHandler(t)

	tests := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic good",
		"no token":       "Bearer",
		"extra parts":    "Bearer good extra",
		"unknown token":  "Bearer bad",
		"empty subject":  "Bearer empty",
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())
		})
	}
}

func TestGetSubject(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := GetSubject(req)
	assert.Error(t, err)

	ctx := context.WithValue(req.Context(), SubjectKey(), "admin")
	subject, err := GetSubject(req.WithContext(ctx))
	require.NoError(t, err)
	assert.Equal(t, "admin", subject)
}
