package pool

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKey is returned by Acquire when the tenant key is empty. It
	// is reported synchronously, before any engine work starts.
	ErrInvalidKey = errors.New("toolpool: session key must be non-empty")

	// ErrPoolClosed is returned by Acquire after DisposeAll has run.
	ErrPoolClosed = errors.New("toolpool: pool has been disposed")
)

// AcquireError wraps an upstream construction failure. The pool does not
// retry construction internally and does not poison the registry entry: the
// tenant's next Acquire attempts a fresh build.
type AcquireError struct {
	Key string
	Err error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("toolpool: acquire session for %q: %v", e.Key, e.Err)
}

func (e *AcquireError) Unwrap() error { return e.Err }
