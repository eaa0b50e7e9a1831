package slogx_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aussiebroadwan/authcore/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	tests := map[string]string{
		"alice@example.com":  "a****@example.com",
		"bo@example.com":     "b***@example.com",
		"x@example.com":      "x***@example.com",
		"not-an-email":       "***",
		"@example.com":       "***",
		"":                   "***",
		"first.last@corp.io": "f*********@corp.io",
	}
	for in, want := range tests {
		require.Equal(t, want, slogx.MaskEmail(in), in)
	}
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, slogx.ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelWarn, slogx.ParseLevel("warning"))
	require.Equal(t, slog.LevelError, slogx.ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, slogx.ParseLevel("nonsense"))
}

func TestHTTPMiddlewareLogsRouteNotPath(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "test", Format: "json", Output: &buf})

	var ctxLogger *slog.Logger
	mux := http.NewServeMux()
	mux.HandleFunc("GET /verify/{token}", func(w http.ResponseWriter, r *http.Request) {
		ctxLogger = slogx.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	})

	h := slogx.HTTPMiddleware(logger)(mux)

	req := httptest.NewRequest(http.MethodGet, "/verify/super-secret-token", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.NotEmpty(t, rec.Header().Get(slogx.RequestIDHeader))
	require.NotNil(t, ctxLogger)
	require.NotContains(t, buf.String(), "super-secret-token")

	var line map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &line))
	require.Equal(t, "http_request", line["msg"])
	require.Equal(t, "GET /verify/{token}", line["route"])
	require.EqualValues(t, http.StatusTeapot, line["status"])
}

func TestHTTPMiddlewareHonoursRequestID(t *testing.T) {
	logger := slogx.New(slogx.Config{Output: &bytes.Buffer{}})
	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(slogx.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, "abc-123", rec.Header().Get(slogx.RequestIDHeader))
}
