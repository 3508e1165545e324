// Package mcp exposes the kiln kernel over the Model Context Protocol so
// agent hosts can transform intents and verify artifacts as tools.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with kiln tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"kiln",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("kiln/transform",
			mcp.WithDescription("Transform an intent (goal + constraints) into a content-addressed bundle"),
			mcp.WithString("goal", mcp.Description("Intent goal text (alternative to path)")),
			mcp.WithString("path", mcp.Description("Path to an intent YAML file (alternative to goal)")),
		),
		HandleTransform,
	)

	s.AddTool(
		mcp.NewTool("kiln/verify",
			mcp.WithDescription("Verify an artifact JSON file against its rule catalogue"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the artifact JSON file")),
			mcp.WithString("kind", mcp.Required(), mcp.Description("Artifact kind: bundle, modelio, repostate, workspace, patch, or apply")),
			mcp.WithBoolean("skip_hashes", mcp.Description("Skip content-hash recomputation")),
			mcp.WithBoolean("enforce_limits", mcp.Description("Enable size-limit rules")),
		),
		HandleVerify,
	)

	s.AddTool(
		mcp.NewTool("kiln/hash",
			mcp.WithDescription("Compute the canonical content hash of a JSON or YAML value"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the JSON or YAML file")),
		),
		HandleHash,
	)

	s.AddTool(
		mcp.NewTool("kiln/schema",
			mcp.WithDescription("Export the JSON Schema for a kiln artifact kind"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Artifact kind: intent, bundle, session, repostate, workspace, patch, or apply")),
		),
		HandleSchema,
	)

	return s
}
