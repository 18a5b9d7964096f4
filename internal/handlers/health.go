package handlers

import (
	"net/http"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/corpus"
)

// HealthSource reports what the service has loaded and configured.
type HealthSource interface {
	CompanyStatus() corpus.Status
	StatementsConfigured() bool
	ExplainerConfigured() bool
}

type healthResponse struct {
	Status           string `json:"status"`
	CompaniesLoaded  int    `json:"companies_loaded"`
	APIKeyConfigured bool   `json:"api_key_configured"`
	GeminiConfigured bool   `json:"gemini_configured"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabasePath     string `json:"database_path"`
	Error            string `json:"error,omitempty"`
	Action           string `json:"action,omitempty"`
	Warning          string `json:"warning,omitempty"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	logger *common.Logger
	source HealthSource
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(logger *common.Logger, source HealthSource) *HealthHandler {
	return &HealthHandler{logger: logger, source: source}
}

// ServeHTTP handles GET /api/health. It always answers 200; problems are
// reported in the body.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	st := h.source.CompanyStatus()
	resp := healthResponse{
		Status:           "ok",
		CompaniesLoaded:  st.Companies,
		APIKeyConfigured: h.source.StatementsConfigured(),
		GeminiConfigured: h.source.ExplainerConfigured(),
		DatabaseExists:   st.DatabaseExists,
		DatabasePath:     st.DatabasePath,
	}

	switch {
	case !st.DatabaseExists:
		resp.Status = "error"
		resp.Error = "데이터베이스 파일이 없습니다."
		resp.Action = "dart-corpus를 실행하여 데이터베이스를 초기화하세요."
	case st.LastError != "":
		resp.Status = "error"
		resp.Error = st.LastError
		resp.Action = "dart-corpus를 실행하여 데이터베이스를 재생성하세요."
	}
	if !resp.APIKeyConfigured {
		resp.Warning = "OPENDART_API_KEY가 설정되지 않았습니다."
	}

	WriteJSON(w, http.StatusOK, resp)
}
