package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/faults"
)

// CompanyReloader rebuilds the company snapshot.
type CompanyReloader interface {
	ReloadCompanies(ctx context.Context) (int, error)
}

type reloadResponse struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	CompaniesLoaded int    `json:"companies_loaded"`
	Suggestion      string `json:"suggestion,omitempty"`
}

// ReloadHandler serves POST /api/reload-data.
type ReloadHandler struct {
	logger   *common.Logger
	reloader CompanyReloader
}

// NewReloadHandler creates a new reload handler.
func NewReloadHandler(logger *common.Logger, reloader CompanyReloader) *ReloadHandler {
	return &ReloadHandler{logger: logger, reloader: reloader}
}

// ServeHTTP handles POST /api/reload-data.
func (h *ReloadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	n, err := h.reloader.ReloadCompanies(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("company reload failed")
		resp := reloadResponse{Message: err.Error()}
		if fe, ok := faults.As(err); ok {
			resp.Message = fe.Message
			resp.Suggestion = fe.Hint
		}
		WriteJSON(w, http.StatusInternalServerError, resp)
		return
	}

	WriteJSON(w, http.StatusOK, reloadResponse{
		Success:         true,
		Message:         fmt.Sprintf("%s개의 회사 정보가 준비되었습니다.", common.FormatCount(n)),
		CompaniesLoaded: n,
	})
}
