package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/config"
)

func newTestServer() *Server {
	return &Server{logger: common.NewSilentLogger()}
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestCorrelationIDMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"generated", nil, ""},
		{"request id", map[string]string{"X-Request-ID": "req-00126380"}, "req-00126380"},
		{"correlation id", map[string]string{"X-Correlation-ID": "corr-2024"}, "corr-2024"},
		{"request id wins", map[string]string{"X-Request-ID": "req-1", "X-Correlation-ID": "corr-1"}, "req-1"},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			handler := s.correlationIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = r.Context().Value(correlationIDKey).(string)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/search?q=삼성", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			got := w.Header().Get("X-Correlation-ID")
			if got == "" || got != seen {
				t.Fatalf("expected header and context to carry the same id, got %q and %q", got, seen)
			}
			if tt.want != "" && got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCORSMiddleware_AllowsMCPSessionHeader(t *testing.T) {
	s := newTestServer()
	handler := s.corsMiddleware(http.HandlerFunc(okHandler))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("expected origin *, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
	if methods := w.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "POST") {
		t.Errorf("expected POST in allowed methods, got %q", methods)
	}
	if headers := w.Header().Get("Access-Control-Allow-Headers"); !strings.Contains(headers, "Mcp-Session-Id") {
		t.Errorf("expected Mcp-Session-Id in allowed headers, got %q", headers)
	}
}

func TestCORSMiddleware_PreflightShortCircuits(t *testing.T) {
	s := newTestServer()
	handler := s.corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight reached the route handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/explain-financial-statement", nil)
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestRecoveryMiddleware_WritesJSONError(t *testing.T) {
	s := newTestServer()
	handler := s.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ts map[string]int
		ts["years"]++
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/financial-statement?corp_code=00126380&bsns_year=2024", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("expected JSON content type, got %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON error body: %v", err)
	}
	if body["error"] == "" || body["error"] == nil {
		t.Error("expected error field in response")
	}
}

func TestRecoveryMiddleware_PassesThrough(t *testing.T) {
	s := newTestServer()
	handler := s.recoveryMiddleware(http.HandlerFunc(okHandler))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestLoggingMiddleware_KeepsStatusAndBytes(t *testing.T) {
	s := newTestServer()
	payload := `{"error":"사업연도는 숫자여야 합니다."}`

	var rw *responseWriter
	handler := s.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw, _ = w.(*responseWriter)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(payload))
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/financial-statement?bsns_year=abc", nil))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
	if rw == nil {
		t.Fatal("expected handler to receive the wrapping responseWriter")
	}
	if rw.statusCode != http.StatusBadRequest || rw.bytesWritten != len(payload) {
		t.Errorf("expected 400/%d bytes, got %d/%d", len(payload), rw.statusCode, rw.bytesWritten)
	}
}

func TestResponseWriter_Flush(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}

	rw.Write([]byte("event: message\n\n"))
	rw.Flush()

	if !rec.Flushed {
		t.Error("expected Flush to reach the underlying writer for streamed MCP responses")
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	s := newTestServer()
	handler := s.securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/version", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	}
	for header, value := range want {
		if got := w.Header().Get(header); got != value {
			t.Errorf("expected %s=%q, got %q", header, value, got)
		}
	}
	if w.Code != http.StatusAccepted {
		t.Errorf("expected handler status to pass through, got %d", w.Code)
	}
}

func TestMaxBodySizeMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantErr bool
	}{
		{"five year series", 256 << 10, false},
		{"at limit", maxBodyBytes, false},
		{"over limit", maxBodyBytes + 1, true},
	}

	s := newTestServer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var readErr error
			var n int
			handler := s.maxBodySizeMiddleware(maxBodyBytes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				n, readErr = len(body), err
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/explain-financial-statement", strings.NewReader(strings.Repeat("x", tt.size)))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if tt.wantErr {
				var maxErr *http.MaxBytesError
				if !errors.As(readErr, &maxErr) {
					t.Errorf("expected MaxBytesError, got %v", readErr)
				}
				return
			}
			if readErr != nil || n != tt.size {
				t.Errorf("expected %d bytes without error, got %d (%v)", tt.size, n, readErr)
			}
		})
	}
}

func TestMaxBodySizeMiddleware_GETWithoutBody(t *testing.T) {
	s := newTestServer()
	handler := s.maxBodySizeMiddleware(maxBodyBytes)(http.HandlerFunc(okHandler))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/search?q=005930", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
}

func TestWithMiddleware_ChainOrder(t *testing.T) {
	s := newTestServer()
	handler := s.withMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Context().Value(correlationIDKey).(string); !ok {
			t.Error("expected correlation ID before handler")
		}
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=삼성", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
	if w.Header().Get("X-Correlation-ID") == "" {
		t.Error("expected X-Correlation-ID header on recovered response")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers on recovered response")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("expected CORS headers on recovered response")
	}
}

func TestWriteTimeout(t *testing.T) {
	tests := []struct {
		name string
		gc   config.GeminiConfig
		want time.Duration
	}{
		{"defaults", config.GeminiConfig{}, 6*time.Minute + 30*time.Second},
		{
			"configured",
			config.GeminiConfig{
				MaxAttempts: 3,
				Timeout:     config.Duration{Duration: 2 * time.Minute},
				BackoffUnit: config.Duration{Duration: 10 * time.Second},
			},
			// 3*2m + (2+4)*10s + 1m
			8 * time.Minute,
		},
		{
			"floor",
			config.GeminiConfig{
				MaxAttempts: 1,
				Timeout:     config.Duration{Duration: 5 * time.Second},
				BackoffUnit: config.Duration{Duration: time.Millisecond},
			},
			minWriteTimeout,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := writeTimeout(tt.gc); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
