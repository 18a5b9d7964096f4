package handlers

import (
	"net/http"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/corpus"
)

// CompanySearcher ranks companies for a keyword.
type CompanySearcher interface {
	SearchCompanies(keyword string, limit int) ([]corpus.Result, error)
}

// SearchHandler serves GET /api/search?q=&limit=.
type SearchHandler struct {
	logger   *common.Logger
	searcher CompanySearcher
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(logger *common.Logger, searcher CompanySearcher) *SearchHandler {
	return &SearchHandler{logger: logger, searcher: searcher}
}

// ServeHTTP handles GET /api/search.
func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	limit := queryInt(r, "limit", corpus.DefaultSearchLimit)
	results, err := h.searcher.SearchCompanies(r.URL.Query().Get("q"), limit)
	if err != nil {
		WriteFault(w, h.logger, err)
		return
	}
	if results == nil {
		results = []corpus.Result{}
	}
	WriteJSON(w, http.StatusOK, results)
}
