package pool

import (
	"sort"
	"time"

	"github.com/agentfleet/toolpool/engine"
)

// Session is one live, tenant-scoped tool-execution context. Sessions are
// created and destroyed exclusively by their owning Pool; callers borrow them
// between Acquire and Release and must not close the underlying handle
// themselves.
type Session struct {
	id     string
	key    string
	handle engine.Handle
	tools  map[string]struct{}

	createdAt time.Time

	// lastUsed and callers are guarded by the owning Pool's mutex.
	lastUsed time.Time
	callers  int
}

// ID returns the pool-assigned session identifier.
func (s *Session) ID() string { return s.id }

// Key returns the tenant key the session is scoped to.
func (s *Session) Key() string { return s.key }

// Handle returns the underlying engine handle.
func (s *Session) Handle() engine.Handle { return s.handle }

// CreatedAt returns the construction time of the session.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Tools returns the sorted set of tool names the session was built with.
func (s *Session) Tools() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// satisfies reports whether every required tool is bound to the session.
func (s *Session) satisfies(required []string) bool {
	for _, name := range required {
		if _, ok := s.tools[name]; !ok {
			return false
		}
	}
	return true
}

type toolSet map[string]struct{}

func newToolSet(names []string) toolSet {
	set := make(toolSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

func (ts toolSet) add(names []string) {
	for _, name := range names {
		ts[name] = struct{}{}
	}
}

func (ts toolSet) sorted() []string {
	names := make([]string, 0, len(ts))
	for name := range ts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
