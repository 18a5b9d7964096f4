package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/dart-portal/internal/common"
)

// registerTools registers all MCP tools on the server and returns how many.
func registerTools(s *server.MCPServer, svc Service, logger *common.Logger) int {
	tools := []struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}{
		{VersionTool(), VersionToolHandler()},
		{searchCompaniesTool(), handleSearchCompanies(svc)},
		{getStatementsTool(), handleGetStatements(svc)},
		{explainStatementsTool(), handleExplainStatements(svc, logger)},
	}
	for _, t := range tools {
		s.AddTool(t.tool, t.handler)
	}
	return len(tools)
}

func searchCompaniesTool() mcp.Tool {
	return mcp.NewTool("search_companies",
		mcp.WithDescription("Search Korean companies registered with OpenDART by name or 6-digit stock code. Listed companies rank first. Returns corp_code values for the statement tools."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Company name fragment or stock code (e.g., '삼성', '005930')")),
		mcp.WithNumber("limit", mcp.Description("Maximum results to return (default: 50, max: 100)")),
	)
}

func getStatementsTool() mcp.Tool {
	return mcp.NewTool("get_financial_statements",
		mcp.WithDescription("Get five years of key balance sheet and income statement accounts for a company, ending at the given business year. Amounts are reported in 억원."),
		mcp.WithString("corp_code", mcp.Required(), mcp.Description("8-digit OpenDART corp code from search_companies")),
		mcp.WithNumber("bsns_year", mcp.Required(), mcp.Description("Most recent business year of the window (e.g., 2024)")),
		mcp.WithString("reprt_code", mcp.Description("Report code: 11011 annual (default), 11012 half-year, 11013 Q1, 11014 Q3")),
		mcp.WithString("fs_type", mcp.Description("cfs for consolidated (default) or ofs for separate statements")),
	)
}

func explainStatementsTool() mcp.Tool {
	return mcp.NewTool("explain_financial_statements",
		mcp.WithDescription("SLOW: Fetch five years of statements for a company and ask the language model for a plain-language explanation aimed at non-specialists. May take a minute or more when the model service retries."),
		mcp.WithString("corp_code", mcp.Required(), mcp.Description("8-digit OpenDART corp code from search_companies")),
		mcp.WithNumber("bsns_year", mcp.Required(), mcp.Description("Most recent business year of the window (e.g., 2024)")),
		mcp.WithString("company_name", mcp.Description("Company name used in the explanation")),
		mcp.WithString("reprt_code", mcp.Description("Report code: 11011 annual (default), 11012 half-year, 11013 Q1, 11014 Q3")),
		mcp.WithString("fs_type", mcp.Description("cfs for consolidated (default) or ofs for separate statements")),
	)
}
