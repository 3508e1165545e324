// Package main provides the kiln-mcp binary, the MCP server for AI agents.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	kmcp "github.com/ormasoftchile/kiln/pkg/ecosystem/mcp"
)

var version = "dev"

func main() {
	s := kmcp.NewServer(version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
