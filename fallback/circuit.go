package fallback

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/agentstation/anchor"
)

// ErrCircuitOpen is returned while a circuit breaker rejects calls.
var ErrCircuitOpen = errors.New("fallback: circuit open")

// CircuitState is the position of a circuit breaker.
type CircuitState int

// Closed passes calls through, Open rejects them, HalfOpen lets a few probe
// calls through to decide which of the two comes next.
const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

var stateNames = [...]string{"closed", "open", "half-open"}

func (s CircuitState) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// CircuitBreaker stops calling a failing node for a while so that it can
// recover.
type CircuitBreaker struct {
	name string

	maxFailures      int
	resetTimeout     time.Duration
	halfOpenRequests int

	mu                sync.Mutex
	state             CircuitState
	failures          int
	openedAt          time.Time
	halfOpenInFlight  int
	halfOpenSuccesses int
	// generation changes on every state transition.
	generation uint64

	metrics CircuitMetrics

	onStateChange func(from, to CircuitState)
	now           func() time.Time
}

// CircuitOption configures a CircuitBreaker.
type CircuitOption func(*CircuitBreaker)

// WithMaxFailures opens the circuit after n consecutive failed calls.
// Default 5.
func WithMaxFailures(n int) CircuitOption {
	return func(cb *CircuitBreaker) { cb.maxFailures = n }
}

// WithResetTimeout is how long an open circuit waits before probing.
// Default 30s.
func WithResetTimeout(d time.Duration) CircuitOption {
	return func(cb *CircuitBreaker) { cb.resetTimeout = d }
}

// WithHalfOpenRequests is the number of probes that must succeed to close
// the circuit. Default 3.
func WithHalfOpenRequests(n int) CircuitOption {
	return func(cb *CircuitBreaker) { cb.halfOpenRequests = n }
}

// WithStateChangeCallback sets a callback for state transitions. It is
// called synchronously after the breaker lock is released.
func WithStateChangeCallback(fn func(from, to CircuitState)) CircuitOption {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = fn
	}
}

// NewCircuitBreaker returns a closed breaker. name appears in rejection
// errors and metrics.
func NewCircuitBreaker(name string, opts ...CircuitOption) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		maxFailures:      5,
		resetTimeout:     30 * time.Second,
		halfOpenRequests: 3,
		now:              time.Now,
		metrics:          CircuitMetrics{Name: name},
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

type transition struct {
	from, to CircuitState
	changed  bool
}

func (cb *CircuitBreaker) notify(t transition) {
	if t.changed && cb.onStateChange != nil {
		cb.onStateChange(t.from, t.to)
	}
}

// Execute runs fn through the circuit breaker. While the circuit is open fn
// is not called and ErrCircuitOpen is returned as KindModel.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	gen, t, err := cb.acquire()
	cb.notify(t)
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.notify(cb.release(gen, err == nil))
	return err
}

// acquire admits a call and returns the generation it was admitted under.
func (cb *CircuitBreaker) acquire() (uint64, transition, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.metrics.TotalRequests++
	var t transition

	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.resetTimeout {
		t = cb.transitionTo(StateHalfOpen)
	}

	switch cb.state {
	case StateOpen:
		cb.metrics.TotalRejected++
		return 0, t, anchor.Errorf(anchor.KindModel, "%s: %w", cb.name, ErrCircuitOpen)
	case StateHalfOpen:
		if cb.halfOpenInFlight+cb.halfOpenSuccesses >= cb.halfOpenRequests {
			cb.metrics.TotalRejected++
			return 0, t, anchor.Errorf(anchor.KindModel, "%s: %w", cb.name, ErrCircuitOpen)
		}
		cb.halfOpenInFlight++
	}
	return cb.generation, t, nil
}

// release records the outcome of a call. Outcomes of calls admitted before
// the last transition are counted in the metrics but do not move the state.
func (cb *CircuitBreaker) release(gen uint64, success bool) transition {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if success {
		cb.metrics.TotalSuccesses++
	} else {
		cb.metrics.TotalFailures++
	}
	if gen != cb.generation {
		return transition{}
	}

	switch cb.state {
	case StateClosed:
		if success {
			cb.failures = 0
			return transition{}
		}
		cb.failures++
		if cb.failures >= cb.maxFailures {
			return cb.transitionTo(StateOpen)
		}
	case StateHalfOpen:
		cb.halfOpenInFlight--
		if !success {
			return cb.transitionTo(StateOpen)
		}
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.halfOpenRequests {
			return cb.transitionTo(StateClosed)
		}
	}
	return transition{}
}

// transitionTo changes the state. The caller holds cb.mu.
func (cb *CircuitBreaker) transitionTo(newState CircuitState) transition {
	if cb.state == newState {
		return transition{}
	}
	old := cb.state
	cb.state = newState
	cb.generation++

	switch newState {
	case StateClosed:
		cb.failures = 0
	case StateOpen:
		cb.metrics.CircuitOpens++
		cb.openedAt = cb.now()
	}
	cb.halfOpenInFlight = 0
	cb.halfOpenSuccesses = 0

	return transition{from: old, to: newState, changed: true}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	t := cb.transitionTo(StateClosed)
	cb.failures = 0
	cb.mu.Unlock()
	cb.notify(t)
}

// Metrics returns a snapshot of the breaker's counters.
func (cb *CircuitBreaker) Metrics() CircuitMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	m := cb.metrics
	m.State = cb.state.String()
	m.CurrentFailures = cb.failures
	return m
}

// CircuitMetrics counts calls seen by a CircuitBreaker. Rejected calls are
// included in TotalRequests but never reach the node.
type CircuitMetrics struct {
	Name            string
	State           string
	TotalRequests   int64
	TotalSuccesses  int64
	TotalFailures   int64
	TotalRejected   int64
	CircuitOpens    int64
	CurrentFailures int
}

// Protect returns a node calling node through cb.
func Protect[In, Out any](cb *CircuitBreaker, node anchor.Node[In, Out]) anchor.Node[In, Out] {
	return &protected[In, Out]{cb: cb, node: node}
}

type protected[In, Out any] struct {
	cb   *CircuitBreaker
	node anchor.Node[In, Out]
}

func (p *protected[In, Out]) Name() string { return anchor.NameOf(p.node) }

func (p *protected[In, Out]) SetState(state *anchor.StateManager) {
	if s, ok := p.node.(anchor.Stateful); ok {
		s.SetState(state)
	}
}

func (p *protected[In, Out]) Process(ctx context.Context, input In) (Out, error) {
	var out Out
	err := p.cb.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = p.node.Process(ctx, input)
		return err
	})
	return out, err
}

// CircuitBreakerGroup hands out one breaker per name, typically one per
// model endpoint shared by several chains.
type CircuitBreakerGroup struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewCircuitBreakerGroup returns an empty group.
func NewCircuitBreakerGroup() *CircuitBreakerGroup {
	return &CircuitBreakerGroup{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker registered under name, creating it with opts on
// first use. Later calls ignore opts.
func (g *CircuitBreakerGroup) Get(name string, opts ...CircuitOption) *CircuitBreaker {
	g.mu.RLock()
	cb, exists := g.breakers[name]
	g.mu.RUnlock()
	if exists {
		return cb
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if cb, exists := g.breakers[name]; exists {
		return cb
	}
	cb = NewCircuitBreaker(name, opts...)
	g.breakers[name] = cb
	return cb
}

// Metrics returns the metrics of every breaker, sorted by name.
func (g *CircuitBreakerGroup) Metrics() []CircuitMetrics {
	breakers := g.snapshot()
	metrics := make([]CircuitMetrics, 0, len(breakers))
	for _, cb := range breakers {
		metrics = append(metrics, cb.Metrics())
	}
	return metrics
}

// Reset closes every breaker in the group.
func (g *CircuitBreakerGroup) Reset() {
	for _, cb := range g.snapshot() {
		cb.Reset()
	}
}

func (g *CircuitBreakerGroup) snapshot() []*CircuitBreaker {
	g.mu.RLock()
	breakers := make([]*CircuitBreaker, 0, len(g.breakers))
	for _, cb := range g.breakers {
		breakers = append(breakers, cb)
	}
	g.mu.RUnlock()

	slices.SortFunc(breakers, func(a, b *CircuitBreaker) int { return cmp.Compare(a.name, b.name) })
	return breakers
}
