// Package engine defines the contract between the session pool and the
// tool-execution engine it manages. The pool treats the engine as an opaque
// async resource: a Factory builds a Handle scoped to a tenant key and a set
// of tool names, and the pool owns when that Handle is built, reused, and
// closed. Implementations live in subpackages (mcpengine) or in test code
// (pool/pooltest).
package engine

import (
	"context"
	"encoding/json"
)

// Tool describes a single tool binding exposed by a Handle.
type Tool struct {
	Name        string
	Description string

	// InputSchema is the JSON Schema for the tool's arguments, as advertised
	// by the upstream engine. May be nil when the upstream does not publish
	// one.
	InputSchema json.RawMessage
}

// ToolResult is the flattened outcome of a single tool invocation.
type ToolResult struct {
	// Text is the concatenated text content of the result.
	Text string

	// IsError reports whether the upstream engine flagged the result as an
	// execution error (as opposed to a transport failure, which surfaces as
	// a Go error from CallTool).
	IsError bool
}

// Handle is one live tool-execution context. Handles are created by a Factory
// and closed exactly once by their owning pool; they are safe for concurrent
// CallTool use.
type Handle interface {
	// Tools returns the bindings this handle was built with.
	Tools() []Tool

	// CallTool invokes a bound tool by name.
	CallTool(ctx context.Context, name string, args map[string]any) (*ToolResult, error)

	// Close tears down the underlying execution context. Close is
	// best-effort: callers log failures and move on.
	Close(ctx context.Context) error
}

// Factory constructs Handles on behalf of the pool.
type Factory interface {
	// Build creates a new Handle for the given tenant key, bound to exactly
	// the named tools. Build must honor ctx cancellation and must not leave
	// partial state behind on failure.
	Build(ctx context.Context, key string, tools []string) (Handle, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(ctx context.Context, key string, tools []string) (Handle, error)

func (f FactoryFunc) Build(ctx context.Context, key string, tools []string) (Handle, error) {
	return f(ctx, key, tools)
}

var _ Factory = (FactoryFunc)(nil)
