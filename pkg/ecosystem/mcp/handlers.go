package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/kiln/pkg/kernel/canonical"
	"github.com/ormasoftchile/kiln/pkg/kernel/engine"
	kschema "github.com/ormasoftchile/kiln/pkg/kernel/schema"
	"github.com/ormasoftchile/kiln/pkg/kernel/verify"
)

// HandleTransform implements the kiln/transform MCP tool.
func HandleTransform(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	goal, _ := args["goal"].(string)
	path, _ := args["path"].(string)

	var intent *kschema.Intent
	switch {
	case path != "":
		loaded, err := kschema.LoadIntentFile(path)
		if err != nil {
			return errorResult(fmt.Sprintf("load intent: %s", err)), nil
		}
		intent = loaded
	case goal != "":
		intent = &kschema.Intent{Goal: goal}
	default:
		return errorResult("either goal or path is required"), nil
	}

	outcome := engine.Run(*intent, kschema.DefaultConfig())
	data, _ := json.MarshalIndent(outcome, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: outcome.Kind == engine.OutcomeRefuse,
	}, nil
}

// HandleVerify implements the kiln/verify MCP tool.
func HandleVerify(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	kind, _ := args["kind"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	cat := verify.ForKind(kind)
	if cat == nil {
		return errorResult(fmt.Sprintf("unknown kind %q, want one of %s", kind, strings.Join(verify.Kinds(), ", "))), nil
	}

	raw, err := loadValue(path)
	if err != nil {
		return errorResult(fmt.Sprintf("load artifact: %s", err)), nil
	}

	skipHashes, _ := args["skip_hashes"].(bool)
	enforceLimits, _ := args["enforce_limits"].(bool)
	result := cat.Verify(raw, verify.Options{
		SkipHashVerification: skipHashes,
		EnforceSizeLimits:    enforceLimits,
	})

	data, _ := json.MarshalIndent(result, "", "  ")
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: !result.OK,
	}, nil
}

// HandleHash implements the kiln/hash MCP tool.
func HandleHash(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}

	raw, err := loadValue(path)
	if err != nil {
		return errorResult(fmt.Sprintf("load value: %s", err)), nil
	}
	hash, err := canonical.ContentHash(raw)
	if err != nil {
		return errorResult(fmt.Sprintf("hash: %s", err)), nil
	}
	return textResult(hash), nil
}

// HandleSchema implements the kiln/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	name, _ := args["type"].(string)

	data, err := kschema.GenerateJSONSchema(name)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

// loadValue reads a JSON or YAML file into the generic value space.
func loadValue(path string) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		var v any
		if err := yaml.Unmarshal(data, &v); err != nil {
			return nil, err
		}
		return v, nil
	default:
		return canonical.Parse(string(data))
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(msg)},
		IsError: true,
	}
}
