package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/faults"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method || (method == http.MethodGet && r.Method == http.MethodHead) {
		return true
	}
	w.Header().Set("Allow", method)
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// ErrorBody is the JSON shape of every failed API call.
type ErrorBody struct {
	Error      string `json:"error"`
	Detail     string `json:"detail,omitempty"`
	Type       string `json:"type,omitempty"`
	Hint       string `json:"hint,omitempty"`
	RetryCount int    `json:"retry_count,omitempty"`
}

// WriteError writes a plain error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, ErrorBody{Error: message})
}

// WriteFault maps err onto a status code and error body. Unclassified
// errors are logged and answered with a generic 500.
func WriteFault(w http.ResponseWriter, logger *common.Logger, err error) {
	fe, ok := faults.As(err)
	if !ok {
		logger.Error().Err(err).Msg("unhandled error")
		WriteJSON(w, http.StatusInternalServerError, ErrorBody{
			Error: "요청을 처리하는 중 오류가 발생했습니다.",
			Type:  string(faults.KindInternal),
		})
		return
	}

	status := faults.StatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("type", fe.Type()).Msg("request failed")
	} else {
		logger.Debug().Str("type", fe.Type()).Str("error", fe.Message).Msg("request rejected")
	}

	WriteJSON(w, status, ErrorBody{
		Error:      fe.Message,
		Detail:     fe.Detail,
		Type:       fe.Type(),
		Hint:       fe.Hint,
		RetryCount: fe.RetryCount,
	})
}

// queryInt parses an optional integer query parameter; absent or invalid
// values yield def.
func queryInt(r *http.Request, name string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
