package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/corpus"
	"github.com/bobmcallan/dart-portal/internal/faults"
	"github.com/bobmcallan/dart-portal/internal/narrative"
	"github.com/bobmcallan/dart-portal/internal/statements"
)

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// errorResult creates an MCP error result.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}

// faultResult renders err the way the HTTP API reports it, as text.
func faultResult(err error) *mcp.CallToolResult {
	fe, ok := faults.As(err)
	if !ok {
		return errorResult("Error: " + err.Error())
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Error (%s): %s", fe.Type(), fe.Message)
	if fe.Detail != "" {
		sb.WriteString("\n" + fe.Detail)
	}
	if fe.Hint != "" {
		sb.WriteString("\n" + fe.Hint)
	}
	return errorResult(sb.String())
}

// statementArgs are the parameters shared by the statement tools.
type statementArgs struct {
	corpCode   string
	year       int
	reportCode string
	flag       statements.Flag
}

func parseStatementArgs(request mcp.CallToolRequest) (statementArgs, error) {
	corpCode, err := request.RequireString("corp_code")
	if err != nil {
		return statementArgs{}, err
	}
	year := request.GetInt("bsns_year", 0)
	if year <= 0 {
		return statementArgs{}, fmt.Errorf("bsns_year must be a positive year")
	}
	flag := statements.Flag(request.GetString("fs_type", string(statements.FlagConsolidated)))
	if !flag.Valid() {
		return statementArgs{}, fmt.Errorf("fs_type must be cfs or ofs")
	}
	return statementArgs{
		corpCode:   corpCode,
		year:       year,
		reportCode: request.GetString("reprt_code", ""),
		flag:       flag,
	}, nil
}

func handleSearchCompanies(svc Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return errorResult("Error: query parameter is required"), nil
		}
		results, err := svc.SearchCompanies(query, request.GetInt("limit", corpus.DefaultSearchLimit))
		if err != nil {
			return faultResult(err), nil
		}
		return textResult(formatSearchResults(query, results)), nil
	}
}

func handleGetStatements(svc Service) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := parseStatementArgs(request)
		if err != nil {
			return errorResult("Error: " + err.Error()), nil
		}
		ts, err := svc.FetchStatements(ctx, args.corpCode, args.year, args.reportCode)
		if err != nil {
			return faultResult(err), nil
		}
		return textResult(narrative.Summarize(ts, args.flag)), nil
	}
}

func handleExplainStatements(svc Service, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := parseStatementArgs(request)
		if err != nil {
			return errorResult("Error: " + err.Error()), nil
		}
		ts, err := svc.FetchStatements(ctx, args.corpCode, args.year, args.reportCode)
		if err != nil {
			return faultResult(err), nil
		}
		out, err := svc.ExplainStatements(ctx, ts, request.GetString("company_name", ""), args.flag)
		if err != nil {
			return faultResult(err), nil
		}
		logger.Debug().
			Str("corp_code", args.corpCode).
			Int("retry_count", out.RetryCount).
			Bool("cached", out.Cached).
			Msg("explanation served over MCP")
		return textResult(formatExplanation(out.CompanyName, out.FsType, out.Text)), nil
	}
}

func formatSearchResults(query string, results []corpus.Result) string {
	if len(results) == 0 {
		return fmt.Sprintf("No companies match %q.", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Companies matching %q (%d)\n\n", query, len(results))
	sb.WriteString("| Company | Corp Code | Stock Code |\n")
	sb.WriteString("|---------|-----------|------------|\n")
	for _, r := range results {
		stock := r.StockCode
		if stock == "" {
			stock = "-"
		}
		fmt.Fprintf(&sb, "| %s | %s | %s |\n", r.CorpName, r.CorpCode, stock)
	}
	return sb.String()
}

func formatExplanation(company, fsType, text string) string {
	return fmt.Sprintf("# %s %s\n\n%s\n", company, fsType, strings.TrimSpace(text))
}
