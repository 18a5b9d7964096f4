package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/bobmcallan/dart-portal/internal/common"
	"github.com/bobmcallan/dart-portal/internal/config"
	"github.com/bobmcallan/dart-portal/internal/corpus"
	"github.com/bobmcallan/dart-portal/internal/service"
	"github.com/bobmcallan/dart-portal/internal/statements"
)

// ServerName is the MCP implementation name reported to clients.
const ServerName = "dart-portal"

// Service is the subset of the application the tools call.
type Service interface {
	SearchCompanies(keyword string, limit int) ([]corpus.Result, error)
	FetchStatements(ctx context.Context, corpCode string, year int, reportCode string) (*statements.TimeSeries, error)
	ExplainStatements(ctx context.Context, ts *statements.TimeSeries, companyName string, flag statements.Flag) (*service.Explanation, error)
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	server     *mcpserver.MCPServer
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler creates an MCP server exposing the statement tools.
func NewHandler(svc Service, logger *common.Logger) *Handler {
	mcpSrv := mcpserver.NewMCPServer(
		ServerName,
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	toolCount := registerTools(mcpSrv, svc, logger)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithStateLess(true),
	)

	logger.Info().Int("tools", toolCount).Msg("MCP handler initialized")

	return &Handler{
		server:     mcpSrv,
		streamable: streamable,
		logger:     logger,
	}
}

// ServeHTTP delegates to the mcp-go StreamableHTTPServer.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.streamable.ServeHTTP(w, r)
}

// ServeStdio serves the same tools as JSON-RPC over stdin/stdout until
// stdin closes.
func (h *Handler) ServeStdio() error {
	h.logger.Info().Msg("MCP stdio transport starting")
	return mcpserver.ServeStdio(h.server)
}
