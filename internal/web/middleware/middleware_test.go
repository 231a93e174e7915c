package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
)

func teapot(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	w.Write([]byte("short and stout"))
}

func TestCORSPreflight(t *testing.T) {
	called := false
	h := CORS()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/reconcile", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/score", nil))
	assert.True(t, called)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogging(t *testing.T) {
	var logs bytes.Buffer
	logger := hclog.New(&hclog.LoggerOptions{Name: "http", Output: &logs, Level: hclog.Info})
	h := RequestLogging(logger)(http.HandlerFunc(teapot))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/score", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	out := logs.String()
	assert.Contains(t, out, "path=/api/score")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "bytes=15")
}

func TestAuthentication(t *testing.T) {
	h := Authentication("k3y")(http.HandlerFunc(teapot))

	tests := []struct {
		name   string
		method string
		header string
		value  string
		want   int
	}{
		{"no key", http.MethodGet, "", "", http.StatusUnauthorized},
		{"wrong key", http.MethodGet, "X-API-Key", "key", http.StatusUnauthorized},
		{"header key", http.MethodGet, "X-API-Key", "k3y", http.StatusTeapot},
		{"bearer token", http.MethodPost, "Authorization", "Bearer k3y", http.StatusTeapot},
		{"preflight passes", http.MethodOptions, "", "", http.StatusTeapot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/score", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
