package mcpengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agentfleet/toolpool/engine"
	"github.com/agentfleet/toolpool/internal/logctx"
)

// ErrNoTransport is returned by New when no transport source was configured.
var ErrNoTransport = errors.New("mcpengine: a transport, endpoint, or command must be configured")

// TransportFunc resolves the MCP transport to use for a tenant key.
type TransportFunc func(ctx context.Context, key string) (sdk.Transport, error)

// Factory builds pool sessions backed by MCP client sessions. Each Build
// connects a fresh client to the tenant's MCP server, discovers the
// advertised tools, and binds the requested subset.
type Factory struct {
	impl      *sdk.Implementation
	log       *slog.Logger
	transport TransportFunc
}

// New creates a Factory. Exactly one transport source must be provided via
// WithEndpoint, WithEndpointFunc, WithCommandFunc, or WithTransportFunc.
func New(opts ...Option) (*Factory, error) {
	f := &Factory{
		impl: &sdk.Implementation{
			Name:    "toolpool",
			Version: "0.1.0",
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.transport == nil {
		return nil, ErrNoTransport
	}
	return f, nil
}

// Build implements engine.Factory.
func (f *Factory) Build(ctx context.Context, key string, tools []string) (engine.Handle, error) {
	transport, err := f.transport(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("resolve transport: %w", err)
	}

	client := sdk.NewClient(f.impl, &sdk.ClientOptions{})
	cs, err := client.Connect(ctx, transport, &sdk.ClientSessionOptions{})
	if err != nil {
		return nil, fmt.Errorf("connect mcp server: %w", err)
	}

	available, err := listAllTools(ctx, cs)
	if err != nil {
		_ = cs.Close()
		return nil, fmt.Errorf("list tools: %w", err)
	}

	bound, err := bindTools(ctx, f.log, available, tools)
	if err != nil {
		_ = cs.Close()
		return nil, err
	}

	f.log.DebugContext(ctx, "mcp session connected",
		slog.Int("advertised_tools", len(available)),
		slog.Int("bound_tools", len(bound)))

	return &handle{cs: cs, tools: bound, log: f.log}, nil
}

func listAllTools(ctx context.Context, cs *sdk.ClientSession) ([]*sdk.Tool, error) {
	var all []*sdk.Tool
	cursor := ""
	for {
		res, err := cs.ListTools(ctx, &sdk.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, err
		}
		all = append(all, res.Tools...)
		if res.NextCursor == "" {
			return all, nil
		}
		cursor = res.NextCursor
	}
}

// marshalSchema encodes an advertised tool's input schema for transport as
// engine.Tool raw JSON.
var marshalSchema = json.Marshal

// bindTools projects the requested names onto the advertised tools. A
// requested tool the upstream does not advertise fails the whole build: the
// pool must never hand out a session that silently omits tools. An input
// schema that cannot be re-encoded is dropped with a warning; the tool still
// binds and remains callable.
func bindTools(ctx context.Context, log *slog.Logger, available []*sdk.Tool, requested []string) ([]engine.Tool, error) {
	byName := make(map[string]*sdk.Tool, len(available))
	for _, t := range available {
		byName[t.Name] = t
	}

	bound := make([]engine.Tool, 0, len(requested))
	for _, name := range requested {
		t, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("tool %q not advertised by upstream server", name)
		}
		var schema json.RawMessage
		if t.InputSchema != nil {
			raw, err := marshalSchema(t.InputSchema)
			if err != nil {
				log.WarnContext(ctx, "failed to encode tool input schema",
					slog.String("tool", t.Name),
					slog.String("err", err.Error()))
			} else {
				schema = raw
			}
		}
		bound = append(bound, engine.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return bound, nil
}

type handle struct {
	cs    *sdk.ClientSession
	tools []engine.Tool
	log   *slog.Logger
}

func (h *handle) Tools() []engine.Tool {
	out := make([]engine.Tool, len(h.tools))
	copy(out, h.tools)
	return out
}

func (h *handle) CallTool(ctx context.Context, name string, args map[string]any) (*engine.ToolResult, error) {
	if !h.bound(name) {
		return nil, fmt.Errorf("tool %q is not bound to this session", name)
	}

	ctx = logctx.WithToolCallData(ctx, &logctx.ToolCallData{ToolName: name})
	res, err := h.cs.CallTool(ctx, &sdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, fmt.Errorf("call tool %q: %w", name, err)
	}

	out := &engine.ToolResult{IsError: res.IsError}
	for _, c := range res.Content {
		if tc, ok := c.(*sdk.TextContent); ok {
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += tc.Text
		}
	}
	if res.IsError {
		h.log.WarnContext(ctx, "tool call returned error result")
	}
	return out, nil
}

func (h *handle) bound(name string) bool {
	for _, t := range h.tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Close terminates the MCP client session. The SDK close does not take a
// context and may block; callers needing a bound teardown must enforce the
// bound themselves, as the pool does by abandoning a close that overruns its
// teardown timeout.
func (h *handle) Close(ctx context.Context) error {
	return h.cs.Close()
}

var (
	_ engine.Factory = (*Factory)(nil)
	_ engine.Handle  = (*handle)(nil)
)
