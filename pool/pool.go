package pool

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/agentfleet/toolpool/engine"
	"github.com/agentfleet/toolpool/internal/logctx"
	"github.com/agentfleet/toolpool/state"
)

// Pool maintains at most one live tool-execution session per tenant key. It
// builds sessions on demand through an engine.Factory, shares them across
// concurrent callers, evicts them after an idle TTL, and tears everything
// down on DisposeAll.
//
// A Pool is an explicitly constructed object with an owned lifecycle: build
// it once at process startup, pass it to request handlers, and call
// DisposeAll on shutdown. It is safe for concurrent use.
type Pool struct {
	factory engine.Factory
	log     *slog.Logger
	states  state.Store

	ttl             time.Duration
	sweepInterval   time.Duration
	teardownTimeout time.Duration
	disposeTimeout  time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	closed  bool

	sweepOnce   sync.Once
	sweepCancel context.CancelFunc
	sweepDone   chan struct{}

	disposeOnce sync.Once
	disposeErr  error

	hits      atomic.Uint64
	misses    atomic.Uint64
	rebuilds  atomic.Uint64
	evictions atomic.Uint64
}

// entry is the registry slot for one tenant key. The slot outlives the
// sessions it holds: once created it stays in the registry so that waiters
// holding a reference to it always register on the same slot the map points
// at.
type entry struct {
	// sem serializes construction decisions for the key. Waiting on it is
	// context-aware; holding it spans the upstream build so concurrent
	// acquirers for the same key await the in-flight construction instead
	// of starting their own.
	sem chan struct{}

	// sess is the live session, or nil. Guarded by Pool.mu.
	sess *Session

	// owed counts releases still expected from callers of sessions this
	// slot has since replaced. Guarded by Pool.mu.
	owed int
}

// New creates a Pool over the given engine factory.
func New(factory engine.Factory, opts ...Option) *Pool {
	p := &Pool{
		factory:         factory,
		log:             slog.Default(),
		ttl:             DefaultTTL,
		sweepInterval:   DefaultSweepInterval,
		teardownTimeout: DefaultTeardownTimeout,
		disposeTimeout:  DefaultDisposeTimeout,
		entries:         make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Acquire returns the live session for key when its bound tool set covers
// requiredTools, rebuilding or constructing one otherwise. Every successful
// Acquire must be paired with a Release; prefer With for scoped use.
//
// Construction failures surface as *AcquireError and leave the registry slot
// empty, so a later Acquire retries construction fresh.
func (p *Pool) Acquire(ctx context.Context, key string, requiredTools []string) (*Session, error) {
	if key == "" {
		return nil, ErrInvalidKey
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	e, ok := p.entries[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		p.entries[key] = e
	}
	// Fast path: the live session already covers the request.
	if s := e.sess; s != nil && s.satisfies(requiredTools) {
		s.callers++
		s.lastUsed = time.Now()
		p.mu.Unlock()
		p.hits.Add(1)
		return s, nil
	}
	p.mu.Unlock()

	p.startSweep()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-e.sem }()

	// Re-check under the semaphore: a concurrent acquirer may have built a
	// satisfying session while we waited.
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	var old *Session
	if s := e.sess; s != nil {
		if s.satisfies(requiredTools) {
			s.callers++
			s.lastUsed = time.Now()
			p.mu.Unlock()
			p.hits.Add(1)
			return s, nil
		}
		// Insufficient tool set: the replacement is built with the union of
		// the old and newly required tools. Detach first so the slot is
		// never half-registered. Callers still holding the detached session
		// owe releases that must not land on the replacement's count.
		old = s
		e.sess = nil
		e.owed += s.callers
	}
	p.mu.Unlock()

	ctx = logctx.WithPoolData(ctx, &logctx.PoolData{Key: key})

	set := newToolSet(requiredTools)
	if old != nil {
		p.rebuilds.Add(1)
		set.add(old.Tools())
		p.teardown(old, "rebuild")
	} else {
		p.misses.Add(1)
		if p.states != nil {
			remembered, err := p.states.ToolSet(ctx, key)
			if err != nil {
				p.log.WarnContext(ctx, "tool-set memory lookup failed", slog.String("err", err.Error()))
			} else {
				set.add(remembered)
			}
		}
	}

	names := set.sorted()
	handle, err := p.factory.Build(ctx, key, names)
	if err != nil {
		return nil, &AcquireError{Key: key, Err: err}
	}

	now := time.Now()
	sess := &Session{
		id:        uuid.NewString(),
		key:       key,
		handle:    handle,
		tools:     set,
		createdAt: now,
		lastUsed:  now,
		callers:   1,
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.teardown(sess, "disposed during construction")
		return nil, ErrPoolClosed
	}
	e.sess = sess
	p.mu.Unlock()

	if p.states != nil {
		if err := p.states.RememberToolSet(ctx, key, names); err != nil {
			p.log.WarnContext(ctx, "tool-set memory update failed", slog.String("err", err.Error()))
		}
	}

	p.log.DebugContext(ctx, "session constructed",
		slog.String("session_id", sess.id),
		slog.Int("tools", len(names)))
	return sess, nil
}

// Release returns a borrowed session to the pool, decrementing its in-flight
// caller count. Release never destroys the session: eviction is solely
// timer-driven, because sessions are expensive to rebuild and tenants issue
// bursts of calls.
func (p *Pool) Release(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e := p.entries[key]
	if e == nil {
		p.log.Warn("release without a live session", slog.String("key", key))
		return
	}
	// Releases owed for sessions a rebuild has since replaced are absorbed
	// here; they never touch the replacement's count.
	if e.owed > 0 {
		e.owed--
		return
	}
	if e.sess == nil {
		p.log.Warn("release without a live session", slog.String("key", key))
		return
	}
	s := e.sess
	if s.callers == 0 {
		p.log.Warn("unbalanced release", slog.String("key", key), slog.String("session_id", s.id))
		return
	}
	s.callers--
	s.lastUsed = time.Now()
}

// With acquires a session, runs fn with it, and releases it on every exit
// path.
func (p *Pool) With(ctx context.Context, key string, requiredTools []string, fn func(*Session) error) error {
	s, err := p.Acquire(ctx, key, requiredTools)
	if err != nil {
		return err
	}
	defer p.Release(key)
	return fn(s)
}

// DisposeAll tears down every registered session concurrently and stops the
// sweep. It is idempotent: the second and later calls are no-ops returning
// the first call's result. When ctx carries no deadline the configured
// dispose timeout applies; sessions not torn down within the window are
// abandoned and logged rather than blocking shutdown.
func (p *Pool) DisposeAll(ctx context.Context) error {
	p.disposeOnce.Do(func() {
		p.disposeErr = p.disposeAll(ctx)
	})
	return p.disposeErr
}

func (p *Pool) disposeAll(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	victims := make([]*Session, 0, len(p.entries))
	for _, e := range p.entries {
		if e.sess != nil {
			victims = append(victims, e.sess)
			e.sess = nil
		}
	}
	p.entries = make(map[string]*entry)
	cancel := p.sweepCancel
	done := p.sweepDone
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}

	if len(victims) == 0 {
		return nil
	}

	dctx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancelTimeout context.CancelFunc
		dctx, cancelTimeout = context.WithTimeout(ctx, p.disposeTimeout)
		defer cancelTimeout()
	}

	var wg sync.WaitGroup
	for _, s := range victims {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			if err := s.handle.Close(dctx); err != nil {
				p.log.Warn("session teardown failed during disposal",
					slog.String("key", s.key),
					slog.String("session_id", s.id),
					slog.String("err", err.Error()))
			}
		}(s)
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		p.log.Info("pool disposed", slog.Int("sessions", len(victims)))
		return nil
	case <-dctx.Done():
		p.log.Warn("disposal timed out; abandoning sessions",
			slog.Int("sessions", len(victims)))
		return dctx.Err()
	}
}

// startSweep launches the idle-eviction task once, on first use. The task is
// owned by the pool and cancelled by DisposeAll.
func (p *Pool) startSweep() {
	p.sweepOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})

		p.mu.Lock()
		p.sweepCancel = cancel
		p.sweepDone = done
		closed := p.closed
		p.mu.Unlock()

		if closed {
			cancel()
			close(done)
			return
		}

		go func() {
			defer close(done)
			ticker := time.NewTicker(p.sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.evictIdle()
				}
			}
		}()
	})
}

// evictIdle removes sessions idle past the TTL with zero in-flight callers
// and tears them down concurrently. Removal is fail-open: the registry slot
// is cleared before the teardown outcome is known so a stuck engine cannot
// pin a slot.
func (p *Pool) evictIdle() {
	cutoff := time.Now().Add(-p.ttl)

	p.mu.Lock()
	var victims []*Session
	for _, e := range p.entries {
		s := e.sess
		if s == nil || s.callers > 0 || s.lastUsed.After(cutoff) {
			continue
		}
		e.sess = nil
		victims = append(victims, s)
	}
	p.mu.Unlock()

	if len(victims) == 0 {
		return
	}
	p.evictions.Add(uint64(len(victims)))

	var wg sync.WaitGroup
	for _, s := range victims {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			p.teardown(s, "idle")
		}(s)
	}
	wg.Wait()
}

// teardown closes a detached session, bounded by the per-teardown timeout.
// Close runs in its own goroutine and is abandoned when the timeout expires,
// so an engine that ignores cancellation still cannot stall the caller.
// Failures are logged, never surfaced: a slow or broken engine must not block
// pool operations for other tenants.
func (p *Pool) teardown(s *Session, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), p.teardownTimeout)
	defer cancel()
	ctx = logctx.WithPoolData(ctx, &logctx.PoolData{Key: s.key, SessionID: s.id})

	done := make(chan error, 1)
	go func() { done <- s.handle.Close(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			p.log.WarnContext(ctx, "session teardown failed",
				slog.String("reason", reason),
				slog.String("err", err.Error()))
			return
		}
		p.log.DebugContext(ctx, "session torn down", slog.String("reason", reason))
	case <-ctx.Done():
		p.log.WarnContext(ctx, "session teardown timed out; abandoning",
			slog.String("reason", reason))
	}
}

// Stats is a point-in-time snapshot of pool counters.
type Stats struct {
	// Hits counts acquires satisfied by a live session.
	Hits uint64
	// Misses counts acquires that built a session for an empty slot.
	Misses uint64
	// Rebuilds counts acquires that replaced a session whose tool set was
	// insufficient.
	Rebuilds uint64
	// Evictions counts sessions removed by the idle sweep.
	Evictions uint64
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Hits:      p.hits.Load(),
		Misses:    p.misses.Load(),
		Rebuilds:  p.rebuilds.Load(),
		Evictions: p.evictions.Load(),
	}
}
