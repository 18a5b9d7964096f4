package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/faults"
	"github.com/bobmcallan/dart-portal/internal/service"
	"github.com/bobmcallan/dart-portal/internal/statements"
)

// StatementExplainer produces a plain-language explanation of a series.
type StatementExplainer interface {
	ExplainStatements(ctx context.Context, ts *statements.TimeSeries, companyName string, flag statements.Flag) (*service.Explanation, error)
}

// explainRequest is the POST body of /api/explain-financial-statement.
type explainRequest struct {
	FinancialData *statements.TimeSeries `json:"financial_data"`
	CompanyName   string                 `json:"company_name"`
	FsType        string                 `json:"fs_type"`
}

type explainResponse struct {
	Success bool `json:"success"`
	*service.Explanation
}

// ExplainHandler serves POST /api/explain-financial-statement.
type ExplainHandler struct {
	logger    *common.Logger
	explainer StatementExplainer
}

// NewExplainHandler creates a new explain handler.
func NewExplainHandler(logger *common.Logger, explainer StatementExplainer) *ExplainHandler {
	return &ExplainHandler{logger: logger, explainer: explainer}
}

// ServeHTTP handles POST /api/explain-financial-statement.
func (h *ExplainHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodPost) {
		return
	}

	var req explainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			WriteFault(w, h.logger, faults.Validation("요청 데이터가 없습니다.", "JSON 본문에 financial_data를 포함하세요."))
			return
		}
		WriteFault(w, h.logger, faults.Validation("요청 데이터를 해석할 수 없습니다.", err.Error()))
		return
	}

	out, err := h.explainer.ExplainStatements(r.Context(), req.FinancialData, req.CompanyName, statements.Flag(req.FsType))
	if err != nil {
		WriteFault(w, h.logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, explainResponse{Success: true, Explanation: out})
}
