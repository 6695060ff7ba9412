// Package mcpengine implements the pool's engine contract on top of the
// official MCP Go SDK. A Factory owns how tenants map to MCP servers
// (shared endpoint, per-tenant endpoint, stdio subprocess, or a custom
// transport); each Build performs the initialize handshake, discovers the
// advertised tools, and binds the requested subset. Sessions built here are
// the expensive resource the pool exists to reuse: a build costs a network
// round trip and an MCP handshake, a reuse costs a map lookup.
package mcpengine
