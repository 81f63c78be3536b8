package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	goresolve "github.com/standardbeagle/goresolve"
	"github.com/standardbeagle/goresolve/internal/options"
	"github.com/standardbeagle/goresolve/internal/resolverconfig"
	"github.com/standardbeagle/goresolve/internal/version"
)

// Server exposes the resolution engine as an MCP tool over stdio.
type Server struct {
	server *mcp.Server
	engine *goresolve.Engine
}

// resolveParams is the "resolve" tool's input shape.
type resolveParams struct {
	Directory string `json:"directory"`
	Specifier string `json:"specifier"`
}

// NewServer builds the MCP server and registers its tools, loading
// ResolveOptions from configPath if non-empty (resolver.toml/resolver.kdl),
// else from the built-in defaults.
func NewServer(configPath string) (*Server, error) {
	opts, err := loadOptions(configPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		engine: goresolve.New(opts),
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "goresolve-mcp-server",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s, nil
}

func loadOptions(configPath string) (options.ResolveOptions, error) {
	if configPath == "" {
		return resolverconfig.DefaultResolveOptions(), nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return options.ResolveOptions{}, fmt.Errorf("failed to read config from %s: %w", configPath, err)
	}
	if strings.HasSuffix(configPath, ".kdl") {
		return resolverconfig.LoadKDL(data)
	}
	return resolverconfig.LoadTOML(data)
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "resolve",
		Description: "Resolve a module specifier (relative, bare, or subpath) against a directory using Node.js/bundler module resolution semantics.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"directory": {
					Type:        "string",
					Description: "Absolute directory the specifier is resolved relative to",
				},
				"specifier": {
					Type:        "string",
					Description: "The module specifier to resolve, e.g. \"./lib\", \"lodash\", \"lodash/fp\", \"#internal\"",
				},
			},
			Required: []string{"directory", "specifier"},
		},
	}, s.handleResolve)

	s.server.AddTool(&mcp.Tool{
		Name:        "clear_cache",
		Description: "Drop every cached path, package.json, tsconfig and PnP manifest the server has memoized.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleClearCache)

	s.server.AddTool(&mcp.Tool{
		Name:        "version",
		Description: "Get server version and build info.",
		InputSchema: &jsonschema.Schema{Type: "object"},
	}, s.handleVersion)
}

func (s *Server) handleVersion(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(map[string]interface{}{
		"success": true,
		"version": version.FullInfo(),
	})
}

func (s *Server) handleResolve(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params resolveParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return errorResult("resolve", fmt.Errorf("invalid parameters: %w", err)), nil
	}
	if params.Directory == "" || params.Specifier == "" {
		return errorResult("resolve", fmt.Errorf("both directory and specifier are required")), nil
	}

	res, err := s.engine.Resolve(params.Directory, params.Specifier)
	if err != nil {
		return errorResult("resolve", err), nil
	}

	return jsonResult(map[string]interface{}{
		"success":  true,
		"path":     res.Path,
		"query":    res.Query,
		"fragment": res.Fragment,
	})
}

func (s *Server) handleClearCache(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.engine.ClearCache()
	return jsonResult(map[string]interface{}{"success": true})
}

func jsonResult(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

func errorResult(operation string, err error) *mcp.CallToolResult {
	content, marshalErr := json.Marshal(map[string]interface{}{
		"success":   false,
		"operation": operation,
		"error":     err.Error(),
	})
	if marshalErr != nil {
		content = []byte(`{"success":false}`)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
		IsError: true,
	}
}

func (s *Server) Start(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func main() {
	configPath := os.Getenv("GORESOLVE_CONFIG")
	server, err := NewServer(configPath)
	if err != nil {
		log.Fatalf("failed to create MCP server: %v", err)
	}

	if err := server.Start(context.Background()); err != nil {
		log.Fatalf("MCP server error: %v", err)
	}
}
