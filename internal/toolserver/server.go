// Package toolserver wires the coordination engine, fetch layer, and
// extraction pipeline into an MCP server. No business logic lives here, only
// registration; schema validation happens in front of the core packages,
// which document the same constraints as preconditions.
package toolserver

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/hochfrequenz/review-coordinator/internal/config"
	"github.com/hochfrequenz/review-coordinator/internal/coord"
	"github.com/hochfrequenz/review-coordinator/internal/fetch"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Deps carries the shared dependencies the tools close over.
type Deps struct {
	Engine  *coord.Engine
	Fetcher *fetch.Fetcher
	Agents  []config.Agent
}

// New creates the MCP server with every tool registered.
func New(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"review-coordinator",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	startRun := NewStartRunTool(deps.Engine, deps.Fetcher)
	s.AddTool(startRun.Definition(), startRun.Handle)

	claimWork := NewClaimWorkTool(deps.Engine)
	s.AddTool(claimWork.Definition(), claimWork.Handle)

	reportProgress := NewReportProgressTool(deps.Engine)
	s.AddTool(reportProgress.Definition(), reportProgress.Handle)

	getStatus := NewGetWorkStatusTool(deps.Engine)
	s.AddTool(getStatus.Definition(), getStatus.Handle)

	reset := NewResetCoordinationTool(deps.Engine)
	s.AddTool(reset.Definition(), reset.Handle)

	detectAgents := NewDetectReviewedAgentsTool(deps)
	s.AddTool(detectAgents.Definition(), detectAgents.Handle)

	extractSeverity := NewExtractSeverityTool()
	s.AddTool(extractSeverity.Definition(), extractSeverity.Handle)

	fetchComments := NewFetchCommentsTool(deps.Fetcher)
	s.AddTool(fetchComments.Definition(), fetchComments.Handle)

	return s
}

// ServeStdio runs the server over stdin/stdout until EOF.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}
