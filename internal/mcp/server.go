package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("fitjoin", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("fitjoin Fitbit telemetry server. Every call reconciles the daily activity, sleep, heart rate, hourly and weight sources into one record per user and day, then answers from that run. Dates are YYYY-MM-DD; user ids are the numeric Fitbit Id."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolGetLeaderboard, Handler: h.getLeaderboard},
		server.ServerTool{Tool: toolGetUserSummary, Handler: h.getUserSummary},
		server.ServerTool{Tool: toolGetIntradayCurve, Handler: h.getIntradayCurve},
		server.ServerTool{Tool: toolGetDailyRecords, Handler: h.getDailyRecords},
		server.ServerTool{Tool: toolGetDiagnostics, Handler: h.getDiagnostics},
		server.ServerTool{Tool: toolListUsers, Handler: h.listUsers},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resChampions, Handler: h.champions},
		server.ServerResource{Resource: resUsers, Handler: h.users},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resChampions = mcp.NewResource(
	"fitjoin://champions",
	"Champions",
	mcp.WithResourceDescription("Holder of the maximum of each leaderboard metric over the configured window"),
	mcp.WithMIMEType("application/json"),
)

var resUsers = mcp.NewResource(
	"fitjoin://users",
	"Users",
	mcp.WithResourceDescription("Distinct user ids present in the daily activity spine"),
	mcp.WithMIMEType("application/json"),
)
