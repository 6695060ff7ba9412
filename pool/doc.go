// Package pool maintains tenant-scoped tool-execution sessions over an
// externally supplied engine. Sessions are expensive to construct (an MCP
// handshake and tool discovery against an upstream server) and cheap to
// reuse, so the pool keeps at most one live session per tenant key and
// shares it across concurrent callers.
//
// # Lifecycle
//
// A session moves through Constructing -> Ready -> (Reused)* -> Evicting ->
// Destroyed. Construction failures go straight to Destroyed without ever
// being registered. Only Ready sessions are reused or evicted.
//
//	p := pool.New(factory, pool.WithTTL(10*time.Minute))
//	defer p.DisposeAll(context.Background())
//
//	err := p.With(ctx, tenantID, []string{"read_tasks"}, func(s *pool.Session) error {
//		res, err := s.Handle().CallTool(ctx, "read_tasks", nil)
//		...
//	})
//
// # Reuse and rebuild
//
// Acquire returns the live session when its bound tool set is a superset of
// the request. When the request needs tools outside that set, the pool tears
// the old session down (best-effort) and builds a replacement bound to the
// union of the old and new tools; it never hands out a session that silently
// omits requested tools.
//
// # Concurrency
//
// Acquire is atomic per key: concurrent acquirers for the same missing key
// await a single in-flight construction instead of duplicating it, and
// acquirers for different keys never contend beyond a registry map access.
//
// # Eviction
//
// A background sweep, started on first use and cancelled by DisposeAll,
// evicts sessions idle past the TTL with zero in-flight callers. Release
// only decrements the caller count; eviction is solely timer-driven.
// Teardown failures everywhere are logged and swallowed, and the registry
// entry is removed regardless.
package pool
