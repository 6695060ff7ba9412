// Package pooltest provides an instrumented in-memory engine for exercising
// pool behavior in tests: it counts constructions and teardowns, records the
// tool sets sessions were built with, and can be made to fail or stall on
// demand.
package pooltest

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentfleet/toolpool/engine"
)

// Factory is a fake engine.Factory.
type Factory struct {
	mu          sync.Mutex
	builds      int
	teardowns   int
	buildErr     error
	teardownErr  error
	gate         chan struct{}
	teardownGate chan struct{}
	built        [][]string
	handles      []*Handle
}

// NewFactory creates a Factory that succeeds on every build and teardown.
func NewFactory() *Factory {
	return &Factory{}
}

// Build implements engine.Factory.
func (f *Factory) Build(ctx context.Context, key string, tools []string) (engine.Handle, error) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.buildErr != nil {
		return nil, f.buildErr
	}

	f.builds++
	f.built = append(f.built, append([]string(nil), tools...))

	bound := make([]engine.Tool, 0, len(tools))
	for _, name := range tools {
		bound = append(bound, engine.Tool{Name: name})
	}
	h := &Handle{f: f, key: key, tools: bound}
	f.handles = append(f.handles, h)
	return h, nil
}

// FailBuilds makes subsequent builds return err. Pass nil to restore
// success.
func (f *Factory) FailBuilds(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buildErr = err
}

// FailTeardowns makes subsequent handle closes return err. Pass nil to
// restore success.
func (f *Factory) FailTeardowns(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardownErr = err
}

// HoldBuilds blocks every Build until the returned release function is
// called.
func (f *Factory) HoldBuilds() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

// HoldTeardowns blocks every handle Close until the returned release function
// is called. The block ignores the Close context, mimicking an engine whose
// shutdown does not honor cancellation.
func (f *Factory) HoldTeardowns() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.teardownGate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.teardownGate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Builds returns the number of successful constructions.
func (f *Factory) Builds() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.builds
}

// Teardowns returns the number of teardown attempts, including failed ones.
func (f *Factory) Teardowns() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.teardowns
}

// BuiltToolSets returns the tool set of every successful construction, in
// order.
func (f *Factory) BuiltToolSets() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.built))
	for i, tools := range f.built {
		out[i] = append([]string(nil), tools...)
	}
	return out
}

// LastBuilt returns the tool set of the most recent construction, or nil.
func (f *Factory) LastBuilt() []string {
	sets := f.BuiltToolSets()
	if len(sets) == 0 {
		return nil
	}
	return sets[len(sets)-1]
}

// Handles returns every handle ever built, in construction order.
func (f *Factory) Handles() []*Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Handle(nil), f.handles...)
}

// Handle is a fake engine.Handle whose tool calls echo their input.
type Handle struct {
	f     *Factory
	key   string
	tools []engine.Tool

	mu     sync.Mutex
	closed bool
}

// Key returns the tenant key the handle was built for.
func (h *Handle) Key() string { return h.key }

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

func (h *Handle) Tools() []engine.Tool {
	return append([]engine.Tool(nil), h.tools...)
}

func (h *Handle) CallTool(ctx context.Context, name string, args map[string]any) (*engine.ToolResult, error) {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("handle for %q is closed", h.key)
	}
	for _, t := range h.tools {
		if t.Name == name {
			return &engine.ToolResult{Text: fmt.Sprintf("%s(%v)", name, args)}, nil
		}
	}
	return nil, fmt.Errorf("tool %q is not bound", name)
}

func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()

	h.f.mu.Lock()
	h.f.teardowns++
	err := h.f.teardownErr
	gate := h.f.teardownGate
	h.f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return err
}

var (
	_ engine.Factory = (*Factory)(nil)
	_ engine.Handle  = (*Handle)(nil)
)
