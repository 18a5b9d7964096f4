package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/corpus"
	"github.com/bobmcallan/dart-portal/internal/faults"
	"github.com/bobmcallan/dart-portal/internal/service"
	"github.com/bobmcallan/dart-portal/internal/statements"
)

type fakeService struct {
	results     []corpus.Result
	ts          *statements.TimeSeries
	explanation *service.Explanation
	err         error

	limit       int
	year        int
	reportCode  string
	companyName string
	flag        statements.Flag
}

func (f *fakeService) SearchCompanies(keyword string, limit int) ([]corpus.Result, error) {
	f.limit = limit
	return f.results, f.err
}

func (f *fakeService) FetchStatements(ctx context.Context, corpCode string, year int, reportCode string) (*statements.TimeSeries, error) {
	f.year, f.reportCode = year, reportCode
	return f.ts, f.err
}

func (f *fakeService) ExplainStatements(ctx context.Context, ts *statements.TimeSeries, companyName string, flag statements.Flag) (*service.Explanation, error) {
	f.companyName, f.flag = companyName, flag
	return f.explanation, nil
}

func callTool(args map[string]interface{}) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      "test_tool",
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, r *mcpgo.CallToolResult) string {
	t.Helper()
	if len(r.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(r.Content))
	}
	tc, ok := r.Content[0].(mcpgo.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", r.Content[0])
	}
	return tc.Text
}

func sampleSeries() *statements.TimeSeries {
	return &statements.TimeSeries{
		Years:   []int{2024},
		Periods: []statements.Period{{Year: 2024, Period: "제 56 기", Label: "제 56 기 (2024)"}},
		BalanceSheet: map[statements.Flag]statements.AccountSeries{
			statements.FlagConsolidated: {"자산총계": {{Year: 2024, Amount: 500_000_000_000}}},
		},
		IncomeStatement: map[statements.Flag]statements.AccountSeries{},
	}
}

func TestSearchCompanies_FormatsTable(t *testing.T) {
	svc := &fakeService{results: []corpus.Result{
		{CorpCode: "00126380", CorpName: "삼성전자", StockCode: "005930"},
		{CorpCode: "00999999", CorpName: "삼성비상장"},
	}}

	result, err := handleSearchCompanies(svc)(context.Background(), callTool(map[string]interface{}{"query": "삼성", "limit": float64(10)}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatal("expected success result")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "| 삼성전자 | 00126380 | 005930 |") {
		t.Errorf("expected listed row, got:\n%s", text)
	}
	if !strings.Contains(text, "| 삼성비상장 | 00999999 | - |") {
		t.Errorf("expected unlisted row with dash, got:\n%s", text)
	}
	if svc.limit != 10 {
		t.Errorf("expected limit 10, got %d", svc.limit)
	}
}

func TestSearchCompanies_MissingQuery(t *testing.T) {
	result, _ := handleSearchCompanies(&fakeService{})(context.Background(), callTool(map[string]interface{}{}))
	if !result.IsError {
		t.Error("expected error result without query")
	}
}

func TestSearchCompanies_NoMatches(t *testing.T) {
	result, _ := handleSearchCompanies(&fakeService{})(context.Background(), callTool(map[string]interface{}{"query": "zz"}))
	if result.IsError {
		t.Fatal("expected success result")
	}
	if !strings.Contains(resultText(t, result), "No companies match") {
		t.Error("expected no-match message")
	}
}

func TestGetStatements_RendersSummary(t *testing.T) {
	svc := &fakeService{ts: sampleSeries()}
	args := map[string]interface{}{"corp_code": "00126380", "bsns_year": float64(2024), "reprt_code": "11012"}

	result, _ := handleGetStatements(svc)(context.Background(), callTool(args))
	if result.IsError {
		t.Fatalf("expected success, got %s", resultText(t, result))
	}
	text := resultText(t, result)
	if !strings.Contains(text, "【자산총계】") || !strings.Contains(text, "2024년: 5,000억원") {
		t.Errorf("unexpected summary:\n%s", text)
	}
	if svc.year != 2024 || svc.reportCode != "11012" {
		t.Errorf("expected 2024/11012, got %d/%s", svc.year, svc.reportCode)
	}
}

func TestGetStatements_ArgumentErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
	}{
		{"missing corp code", map[string]interface{}{"bsns_year": float64(2024)}},
		{"missing year", map[string]interface{}{"corp_code": "00126380"}},
		{"bad fs type", map[string]interface{}{"corp_code": "00126380", "bsns_year": float64(2024), "fs_type": "xyz"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{ts: sampleSeries()}
			result, _ := handleGetStatements(svc)(context.Background(), callTool(tt.args))
			if !result.IsError {
				t.Error("expected error result")
			}
			if svc.year != 0 {
				t.Error("expected service not to be called")
			}
		})
	}
}

func TestGetStatements_FaultText(t *testing.T) {
	svc := &fakeService{err: faults.NoData("재무제표 데이터가 없습니다.", "다른 연도를 선택하세요.")}
	args := map[string]interface{}{"corp_code": "00126380", "bsns_year": float64(2024)}

	result, _ := handleGetStatements(svc)(context.Background(), callTool(args))
	if !result.IsError {
		t.Fatal("expected error result")
	}
	text := resultText(t, result)
	if !strings.Contains(text, "no_data") || !strings.Contains(text, "다른 연도를 선택하세요.") {
		t.Errorf("unexpected fault text: %s", text)
	}
}

func TestExplainStatements_FetchesThenExplains(t *testing.T) {
	svc := &fakeService{
		ts: sampleSeries(),
		explanation: &service.Explanation{
			Text:        "자산이 늘었습니다.",
			CompanyName: "삼성전자",
			FsType:      "별도재무제표",
		},
	}
	args := map[string]interface{}{
		"corp_code":    "00126380",
		"bsns_year":    float64(2024),
		"company_name": "삼성전자",
		"fs_type":      "ofs",
	}

	result, _ := handleExplainStatements(svc, common.NewSilentLogger())(context.Background(), callTool(args))
	if result.IsError {
		t.Fatalf("expected success, got %s", resultText(t, result))
	}
	if svc.companyName != "삼성전자" || svc.flag != statements.FlagSeparate {
		t.Errorf("unexpected explain call: %q %q", svc.companyName, svc.flag)
	}
	if text := resultText(t, result); !strings.HasPrefix(text, "# 삼성전자 별도재무제표") {
		t.Errorf("unexpected explanation text: %s", text)
	}
}

func TestVersionToolHandler(t *testing.T) {
	result, _ := VersionToolHandler()(context.Background(), callTool(nil))
	var body map[string]string
	if err := json.Unmarshal([]byte(resultText(t, result)), &body); err != nil {
		t.Fatalf("expected JSON version info: %v", err)
	}
	if body["version"] == "" {
		t.Error("expected version field")
	}
}

func TestHandler_InitializeOverHTTP(t *testing.T) {
	h := NewHandler(&fakeService{}, common.NewSilentLogger())

	payload := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1.0"}}}`
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()

	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, ServerName) {
		t.Errorf("expected server name in initialize result, got %s", body)
	}
	if !strings.Contains(body, `"tools"`) {
		t.Errorf("expected tools capability, got %s", body)
	}
}
