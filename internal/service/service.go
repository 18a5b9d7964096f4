// Package service is the surface the HTTP handlers and MCP tools call:
// company search, multi-year statement lookup and statement explanations.
package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/yuin/goldmark"

	"github.com/bobmcallan/dart-portal/internal/cache"
	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/corpus"
	"github.com/bobmcallan/dart-portal/internal/faults"
	"github.com/bobmcallan/dart-portal/internal/generation"
	"github.com/bobmcallan/dart-portal/internal/interfaces"
	"github.com/bobmcallan/dart-portal/internal/narrative"
	"github.com/bobmcallan/dart-portal/internal/statements"
)

// DefaultCompanyName is used when an explanation request names no company.
const DefaultCompanyName = "회사"

const explanationKeyPrefix = "explain:"

// CompanyIndex is the searchable company corpus.
type CompanyIndex interface {
	Search(keyword string, limit int) ([]corpus.Result, error)
	Reload(ctx context.Context) (int, error)
	Status() corpus.Status
}

// StatementFetcher builds the multi-year time series for one company.
type StatementFetcher interface {
	Fetch(ctx context.Context, corpCode string, baseYear int, reportCode string) (*statements.TimeSeries, error)
}

// Explainer turns a prompt into text.
type Explainer interface {
	Explain(ctx context.Context, prompt string) (*generation.Result, error)
}

// Deps are the collaborators a Service works with. Statements and
// Explainer are nil when their API key is not configured; Explanations and
// the caches are optional. ReportCode is used when a request names none.
type Deps struct {
	ReportCode     string
	Companies      CompanyIndex
	Statements     StatementFetcher
	Explainer      Explainer
	Explanations   interfaces.KeyValueStorage
	StatementCache *cache.Cache[*statements.TimeSeries]
	SearchCache    *cache.Cache[[]corpus.Result]
	Logger         *common.Logger
}

// Service implements the application operations.
type Service struct {
	reportCode     string
	companies      CompanyIndex
	statements     StatementFetcher
	explainer      Explainer
	explanations   interfaces.KeyValueStorage
	statementCache *cache.Cache[*statements.TimeSeries]
	searchCache    *cache.Cache[[]corpus.Result]
	markdown       goldmark.Markdown
	logger         *common.Logger

	// reloads counts completed corpus reloads; searches that span one are not cached
	reloads atomic.Uint64
}

// New creates a Service.
func New(deps Deps) *Service {
	reportCode := deps.ReportCode
	if reportCode == "" {
		reportCode = statements.DefaultReportCode
	}
	return &Service{
		reportCode:     reportCode,
		companies:      deps.Companies,
		statements:     deps.Statements,
		explainer:      deps.Explainer,
		explanations:   deps.Explanations,
		statementCache: deps.StatementCache,
		searchCache:    deps.SearchCache,
		markdown:       goldmark.New(),
		logger:         deps.Logger,
	}
}

// StatementsConfigured reports whether an OpenDART client is wired.
func (s *Service) StatementsConfigured() bool { return s.statements != nil }

// ExplainerConfigured reports whether a generator is wired.
func (s *Service) ExplainerConfigured() bool { return s.explainer != nil }

// SearchCompanies ranks companies by name or ticker.
func (s *Service) SearchCompanies(keyword string, limit int) ([]corpus.Result, error) {
	keyword = strings.TrimSpace(keyword)
	limit = corpus.ClampLimit(limit)
	key := strings.ToLower(keyword) + "|" + strconv.Itoa(limit)

	if s.searchCache != nil && keyword != "" {
		if results, ok := s.searchCache.Get(key); ok {
			return results, nil
		}
	}

	seen := s.reloads.Load()
	results, err := s.companies.Search(keyword, limit)
	if err != nil {
		return nil, err
	}
	if s.searchCache != nil && s.reloads.Load() == seen {
		s.searchCache.Set(key, results)
	}
	return results, nil
}

// ReloadCompanies rebuilds the company snapshot and drops cached searches.
func (s *Service) ReloadCompanies(ctx context.Context) (int, error) {
	n, err := s.companies.Reload(ctx)
	if err != nil {
		if errors.Is(err, corpus.ErrNoDatabase) {
			fe := faults.Configuration("데이터베이스 파일이 없습니다.", "dart-corpus를 실행하여 데이터베이스를 초기화하세요.")
			fe.Err = err
			return 0, fe
		}
		fe := faults.Internal("회사 정보를 불러오지 못했습니다.", err)
		fe.Hint = "dart-corpus를 실행하여 데이터베이스를 재생성하세요."
		return 0, fe
	}
	s.reloads.Add(1)
	if s.searchCache != nil {
		s.searchCache.InvalidatePrefix("")
	}
	return n, nil
}

// CompanyStatus describes the loaded corpus.
func (s *Service) CompanyStatus() corpus.Status {
	return s.companies.Status()
}

// FetchStatements returns the five-year series ending at year.
func (s *Service) FetchStatements(ctx context.Context, corpCode string, year int, reportCode string) (*statements.TimeSeries, error) {
	corpCode = strings.TrimSpace(corpCode)
	if corpCode == "" {
		return nil, faults.Validation("회사 고유번호가 필요합니다.", "corp_code 파라미터에 8자리 고유번호를 전달하세요.")
	}
	if year <= 0 {
		return nil, faults.Validation("사업연도가 필요합니다.", "bsns_year 파라미터에 4자리 연도를 전달하세요.")
	}
	if reportCode == "" {
		reportCode = s.reportCode
	}
	if !statements.ValidReportCode(reportCode) {
		return nil, faults.Validation("알 수 없는 보고서 코드입니다.", "reprt_code는 11011, 11012, 11013, 11014 중 하나입니다.")
	}
	if s.statements == nil {
		return nil, faults.Configuration("OpenDart API 키가 설정되지 않았습니다.", "OPENDART_API_KEY 환경변수를 설정하세요.")
	}

	key := cache.StatementKey(corpCode, year, reportCode)
	if s.statementCache != nil {
		if ts, ok := s.statementCache.Get(key); ok {
			s.logger.Debug().Str("key", key).Msg("statement cache hit")
			return ts, nil
		}
	}

	ts, err := s.statements.Fetch(ctx, corpCode, year, reportCode)
	if err != nil {
		return nil, err
	}
	if s.statementCache != nil {
		s.statementCache.Set(key, ts)
	}
	return ts, nil
}

// Explanation is a generated plain-language description of a TimeSeries.
type Explanation struct {
	Text        string `json:"explanation"`
	HTML        string `json:"explanation_html"`
	CompanyName string `json:"company_name"`
	FsType      string `json:"fs_type"`
	Summary     string `json:"summary"`
	RetryCount  int    `json:"retry_count"`
	Cached      bool   `json:"cached"`
}

// ExplainStatements summarises ts for flag and asks the generator to explain it.
// Identical prompts are answered from the explanation store while fresh.
func (s *Service) ExplainStatements(ctx context.Context, ts *statements.TimeSeries, companyName string, flag statements.Flag) (*Explanation, error) {
	if s.explainer == nil {
		return nil, faults.Configuration("Gemini API 키가 설정되지 않았습니다.", ".env 파일에 GEMINI_API_KEY를 추가해주세요.")
	}
	if ts == nil || len(ts.Years) == 0 {
		return nil, faults.Validation("재무 데이터가 없습니다.", "financial_data에 재무제표 조회 결과를 전달하세요.")
	}
	if flag == "" {
		flag = statements.FlagConsolidated
	}
	if !flag.Valid() {
		return nil, faults.Validation("알 수 없는 재무제표 구분입니다.", "fs_type은 cfs 또는 ofs입니다.")
	}
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		companyName = DefaultCompanyName
	}

	summary := narrative.Summarize(ts, flag)
	prompt := narrative.BuildPrompt(companyName, flag, summary)

	out := &Explanation{
		CompanyName: companyName,
		FsType:      flag.DisplayName(),
		Summary:     narrative.Truncate(summary, narrative.SummaryPreviewRunes),
	}

	key := explanationKey(prompt)
	if text, ok := s.storedExplanation(ctx, key); ok {
		out.Text = text
		out.Cached = true
	} else {
		s.logger.Info().Str("company", companyName).Str("fs_type", string(flag)).Msg("generating explanation")
		res, err := s.explainer.Explain(ctx, prompt)
		if err != nil {
			return nil, err
		}
		out.Text = res.Text
		out.RetryCount = res.RetryCount
		s.storeExplanation(ctx, key, res.Text)
	}

	out.HTML = s.renderHTML(out.Text)
	return out, nil
}

func explanationKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return explanationKeyPrefix + hex.EncodeToString(sum[:])
}

func (s *Service) storedExplanation(ctx context.Context, key string) (string, bool) {
	if s.explanations == nil {
		return "", false
	}
	text, err := s.explanations.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("explanation lookup failed")
		}
		return "", false
	}
	return text, true
}

func (s *Service) storeExplanation(ctx context.Context, key, text string) {
	if s.explanations == nil {
		return
	}
	if err := s.explanations.Set(ctx, key, text); err != nil {
		s.logger.Warn().Err(err).Msg("failed to store explanation")
	}
}

// renderHTML converts the markdown explanation. Failures leave HTML empty;
// the plain text is always returned.
func (s *Service) renderHTML(text string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		s.logger.Warn().Err(err).Msg("failed to render explanation markdown")
		return ""
	}
	return buf.String()
}
