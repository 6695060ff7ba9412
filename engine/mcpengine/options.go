package mcpengine

import (
	"context"
	"log/slog"
	"net/http"
	"os/exec"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Option customizes a Factory.
type Option func(*Factory)

// WithEndpoint connects every tenant to the same streamable HTTP endpoint.
func WithEndpoint(endpoint string) Option {
	return WithEndpointFunc(func(string) string { return endpoint })
}

// WithEndpointFunc resolves the streamable HTTP endpoint per tenant key, for
// deployments where each tenant has its own MCP server URL.
func WithEndpointFunc(fn func(key string) string) Option {
	return func(f *Factory) {
		if fn == nil {
			return
		}
		f.transport = func(ctx context.Context, key string) (sdk.Transport, error) {
			return &sdk.StreamableClientTransport{
				Endpoint: fn(key),
			}, nil
		}
	}
}

// WithEndpointHTTPClient is like WithEndpointFunc but with a caller-supplied
// HTTP client, typically to inject per-tenant authentication.
func WithEndpointHTTPClient(fn func(key string) string, hc *http.Client) Option {
	return func(f *Factory) {
		if fn == nil {
			return
		}
		f.transport = func(ctx context.Context, key string) (sdk.Transport, error) {
			return &sdk.StreamableClientTransport{
				Endpoint:   fn(key),
				HTTPClient: hc,
			}, nil
		}
	}
}

// WithCommandFunc launches a stdio MCP server subprocess per session.
func WithCommandFunc(fn func(ctx context.Context, key string) *exec.Cmd) Option {
	return func(f *Factory) {
		if fn == nil {
			return
		}
		f.transport = func(ctx context.Context, key string) (sdk.Transport, error) {
			return &sdk.CommandTransport{Command: fn(ctx, key)}, nil
		}
	}
}

// WithTransportFunc supplies a fully custom transport resolver.
func WithTransportFunc(fn TransportFunc) Option {
	return func(f *Factory) {
		if fn != nil {
			f.transport = fn
		}
	}
}

// WithClientInfo overrides the client implementation info announced during
// the MCP initialize handshake.
func WithClientInfo(name, version string) Option {
	return func(f *Factory) {
		f.impl = &sdk.Implementation{Name: name, Version: version}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}
