package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/faults"
	"github.com/bobmcallan/dart-portal/internal/statements"
)

// StatementFetcher returns the multi-year series for a company.
type StatementFetcher interface {
	FetchStatements(ctx context.Context, corpCode string, year int, reportCode string) (*statements.TimeSeries, error)
}

// StatementsHandler serves GET /api/financial-statement.
type StatementsHandler struct {
	logger  *common.Logger
	fetcher StatementFetcher
}

// NewStatementsHandler creates a new statements handler.
func NewStatementsHandler(logger *common.Logger, fetcher StatementFetcher) *StatementsHandler {
	return &StatementsHandler{logger: logger, fetcher: fetcher}
}

// ServeHTTP handles GET /api/financial-statement?corp_code=&bsns_year=&reprt_code=.
func (h *StatementsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := r.URL.Query()
	corpCode := strings.TrimSpace(q.Get("corp_code"))
	yearText := strings.TrimSpace(q.Get("bsns_year"))
	reportCode := strings.TrimSpace(q.Get("reprt_code"))

	if corpCode == "" {
		WriteFault(w, h.logger, faults.Validation("회사 고유번호가 필요합니다.", "corp_code 파라미터에 8자리 고유번호를 전달하세요."))
		return
	}
	if yearText == "" {
		WriteFault(w, h.logger, faults.Validation("사업연도가 필요합니다.", "bsns_year 파라미터에 4자리 연도를 전달하세요."))
		return
	}
	year, err := strconv.Atoi(yearText)
	if err != nil || year <= 0 {
		WriteFault(w, h.logger, faults.Validation("사업연도는 숫자여야 합니다.", "예: bsns_year=2024"))
		return
	}

	ts, err := h.fetcher.FetchStatements(r.Context(), corpCode, year, reportCode)
	if err != nil {
		WriteFault(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, ts)
}
