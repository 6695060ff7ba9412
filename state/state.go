// Package state defines the optional tool-set memory consumed by the pool.
// A Store remembers, per tenant key, the union of tool names that tenant's
// sessions have been built with, so a fresh construction after an eviction or
// a process restart can restore the tools the tenant historically needed.
//
// Implementations
//
//	memorystate : in-memory LRU used for tests and single-process deployments
//	redisstate  : Redis backed implementation shared across processes
package state

import "context"

// Store is the tool-set memory interface. Implementations must be safe for
// concurrent use. All operations are best-effort from the pool's point of
// view: errors are logged by the caller, never fatal.
type Store interface {
	// ToolSet returns the remembered tool union for key. A key with no
	// memory yields a nil slice and no error.
	ToolSet(ctx context.Context, key string) ([]string, error)

	// RememberToolSet merges tools into the remembered union for key,
	// refreshing its expiry.
	RememberToolSet(ctx context.Context, key string, tools []string) error

	// Forget drops the remembered union for key.
	Forget(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}
