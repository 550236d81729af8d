package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireSession(t *testing.T) {
	service := NewService([]byte("test-secret"), time.Hour)
	token, err := service.IssueToken("abc")
	require.NoError(t, err)

	var seen string
	router := httprouter.New()
	router.GET("/sessions/:id", service.RequireSession(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		seen = GetSessionIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantSeen   string
	}{
		{"Bearer header", "/sessions/abc", "Bearer " + token, http.StatusOK, "abc"},
		{"Query token", "/sessions/abc?token=" + token, "", http.StatusOK, "abc"},
		{"Missing token", "/sessions/abc", "", http.StatusUnauthorized, ""},
		{"Malformed header", "/sessions/abc", "Token " + token, http.StatusUnauthorized, ""},
		{"Invalid token", "/sessions/abc", "Bearer nope", http.StatusUnauthorized, ""},
		{"Other session", "/sessions/xyz", "Bearer " + token, http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantSeen, seen)
		})
	}
}

func TestSessionIDContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, GetSessionIDFromContext(req.Context()))

	ctx := SetSessionIDInContext(req.Context(), "abc")
	assert.Equal(t, "abc", GetSessionIDFromContext(ctx))
}
