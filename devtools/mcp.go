package devtools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/spetersoncode/unistore/store"
)

// ServerOption configures the MCP server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	name    string
	version string
}

// WithName sets the server name reported to MCP clients.
func WithName(name string) ServerOption {
	return func(c *serverConfig) {
		c.name = name
	}
}

// WithVersion sets the server version reported to MCP clients.
func WithVersion(version string) ServerOption {
	return func(c *serverConfig) {
		c.version = version
	}
}

var (
	getStateSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {"type": "string", "description": "Dot-separated path into the state, e.g. user.tags.0. Empty returns the whole state."}
		}
	}`)
	setStateSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"state": {"type": "object", "description": "Top-level keys to set"},
			"action": {"type": "string", "description": "Action name subscribers are notified with (default: set)"},
			"overwrite": {"type": "boolean", "description": "Replace the whole state instead of merging"}
		},
		"required": ["state"]
	}`)
	historySchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"limit": {"type": "integer", "description": "Return only the most recent entries"}
		}
	}`)
	jumpSchema = json.RawMessage(`{
		"type": "object",
		"properties": {
			"index": {"type": "integer", "description": "History entry index to restore"}
		},
		"required": ["index"]
	}`)
)

type getStateArgs struct {
	Path string `json:"path"`
}

type setStateArgs struct {
	State     store.State `json:"state"`
	Action    string      `json:"action"`
	Overwrite bool        `json:"overwrite"`
}

type historyArgs struct {
	Limit int `json:"limit"`
}

type jumpArgs struct {
	Index *int `json:"index"`
}

// NewMCPServer creates an MCP server exposing the bridge's store through the
// tools get_state, set_state, history and jump.
//
// Example:
//
//	srv := devtools.NewMCPServer(bridge, devtools.WithName("my-app-state"))
//	server.ServeStdio(srv)
func NewMCPServer(b *Bridge, opts ...ServerOption) *server.MCPServer {
	cfg := &serverConfig{
		name:    "unistore-devtools",
		version: "1.0.0",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	s := server.NewMCPServer(
		cfg.name,
		cfg.version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(mcp.NewToolWithRawSchema("get_state", "Read the current store state or a value inside it", getStateSchema),
		withArgs(func(_ context.Context, args getStateArgs) (any, error) {
			return b.Store().Lookup(args.Path, nil), nil
		}))

	s.AddTool(mcp.NewToolWithRawSchema("set_state", "Apply a change to the store and notify subscribers", setStateSchema),
		withArgs(func(_ context.Context, args setStateArgs) (any, error) {
			if args.State == nil {
				return nil, fmt.Errorf("state is required")
			}
			opts := []store.SetOption{}
			if args.Action != "" {
				opts = append(opts, store.WithAction(args.Action))
			}
			if args.Overwrite {
				opts = append(opts, store.WithOverwrite())
			}
			next := b.Store().Set(args.State, opts...)
			if next == nil {
				return nil, ErrStoreDestroyed
			}
			return next, nil
		}))

	s.AddTool(mcp.NewToolWithRawSchema("history", "List recorded actions, oldest first", historySchema),
		withArgs(func(_ context.Context, args historyArgs) (any, error) {
			entries := b.History()
			if args.Limit > 0 && args.Limit < len(entries) {
				entries = entries[len(entries)-args.Limit:]
			}
			return entries, nil
		}))

	s.AddTool(mcp.NewToolWithRawSchema("jump", "Restore the state recorded in a history entry", jumpSchema),
		withArgs(func(_ context.Context, args jumpArgs) (any, error) {
			if args.Index == nil {
				return nil, fmt.Errorf("index is required")
			}
			return b.Jump(*args.Index)
		}))

	return s
}

// withArgs decodes the call arguments into A, runs fn and renders its
// result as JSON text. Errors become MCP tool errors.
func withArgs[A any](fn func(ctx context.Context, args A) (any, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsJSON := []byte("{}")
		if req.Params.Arguments != nil {
			data, err := json.Marshal(req.Params.Arguments)
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("failed to marshal arguments: %v", err)), nil
			}
			argsJSON = data
		}

		var args A
		if err := json.Unmarshal(argsJSON, &args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result, err := fn(ctx, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		out, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
}

// ServeStdio serves the bridge's MCP tools over stdin/stdout.
func ServeStdio(b *Bridge, opts ...ServerOption) error {
	return server.ServeStdio(NewMCPServer(b, opts...))
}
