// Package fallback provides nodes that survive the failure of a primary
// node: ordered alternatives, a first-success race and a circuit breaker.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/agentstation/anchor"
)

// Strategy decides how the alternatives of a Node are tried.
type Strategy int

const (
	// Sequential tries alternatives in order until one succeeds.
	Sequential Strategy = iota
	// Race runs all alternatives concurrently and returns the first
	// success, cancelling the rest.
	Race
)

// Node tries a primary node and then its alternatives.
type Node[In, Out any] struct {
	name     string
	nodes    []anchor.Node[In, Out]
	strategy Strategy
	state    *anchor.StateManager
	stats    *stats
}

// Option configures a Node.
type Option func(*config)

type config struct {
	name     string
	strategy Strategy
}

// WithName names the node.
func WithName(name string) Option {
	return func(c *config) {
		c.name = name
	}
}

// WithStrategy sets the strategy. The default is Sequential.
func WithStrategy(s Strategy) Option {
	return func(c *config) {
		c.strategy = s
	}
}

// New creates a fallback node trying primary first.
func New[In, Out any](primary anchor.Node[In, Out], alternates []anchor.Node[In, Out], opts ...Option) *Node[In, Out] {
	cfg := config{name: "fallback"}
	for _, opt := range opts {
		opt(&cfg)
	}
	nodes := append([]anchor.Node[In, Out]{primary}, alternates...)
	return &Node[In, Out]{
		name:     cfg.name,
		nodes:    nodes,
		strategy: cfg.strategy,
		stats:    newStats(),
	}
}

// Name implements anchor.Named.
func (n *Node[In, Out]) Name() string { return n.name }

// SetState records the name of the alternative that succeeded under
// fallback:<name>:succeeded_at and forwards state to the alternatives.
func (n *Node[In, Out]) SetState(state *anchor.StateManager) {
	n.state = state
	for _, node := range n.nodes {
		if s, ok := node.(anchor.Stateful); ok {
			s.SetState(state)
		}
	}
}

// Process runs the alternatives according to the strategy. Each
// alternative gets its own copy of an input implementing anchor.Cloner.
// When all of them fail the returned error joins every failure, each
// prefixed with the name of its alternative.
func (n *Node[In, Out]) Process(ctx context.Context, input In) (Out, error) {
	if n.strategy == Race {
		return n.race(ctx, input)
	}
	return n.sequential(ctx, input)
}

func (n *Node[In, Out]) sequential(ctx context.Context, input In) (Out, error) {
	var zero Out
	errs := make([]error, 0, len(n.nodes))
	for _, node := range n.nodes {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		out, err := n.run(ctx, node, anchor.Clone(input))
		if err == nil {
			return out, nil
		}
		errs = append(errs, err)
	}
	return zero, fmt.Errorf("all %d alternatives failed: %w", len(n.nodes), errors.Join(errs...))
}

func (n *Node[In, Out]) race(ctx context.Context, input In) (Out, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		out Out
		err error
	}
	results := make(chan result, len(n.nodes))
	for _, node := range n.nodes {
		in := anchor.Clone(input)
		go func() {
			out, err := n.run(ctx, node, in)
			results <- result{out, err}
		}()
	}

	var zero Out
	errs := make([]error, 0, len(n.nodes))
	for range n.nodes {
		r := <-results
		if r.err == nil {
			return r.out, nil
		}
		errs = append(errs, r.err)
	}
	return zero, fmt.Errorf("all %d alternatives failed: %w", len(n.nodes), errors.Join(errs...))
}

func (n *Node[In, Out]) run(ctx context.Context, node anchor.Node[In, Out], input In) (Out, error) {
	name := anchor.NameOf(node)
	start := time.Now()
	out, err := node.Process(ctx, input)
	n.stats.record(name, time.Since(start), err)
	if err != nil {
		return out, fmt.Errorf("%s: %w", name, err)
	}
	if n.state != nil {
		n.state.Set(ctx, fmt.Sprintf("fallback:%s:succeeded_at", n.name), name)
	}
	return out, nil
}

// Stats returns execution statistics per alternative.
func (n *Node[In, Out]) Stats() map[string]Stats {
	return n.stats.snapshot()
}

// Stats summarizes the executions of one alternative.
type Stats struct {
	Executions   int64
	Successes    int64
	Failures     int64
	TotalLatency time.Duration
}

// AvgLatency returns the mean latency.
func (s Stats) AvgLatency() time.Duration {
	if s.Executions == 0 {
		return 0
	}
	return s.TotalLatency / time.Duration(s.Executions)
}

type stats struct {
	mu    sync.Mutex
	nodes map[string]Stats
}

func newStats() *stats {
	return &stats{nodes: make(map[string]Stats)}
}

func (s *stats) record(name string, latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.nodes[name]
	st.Executions++
	st.TotalLatency += latency
	if err == nil {
		st.Successes++
	} else {
		st.Failures++
	}
	s.nodes[name] = st
}

func (s *stats) snapshot() map[string]Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]Stats, len(s.nodes))
	for k, v := range s.nodes {
		out[k] = v
	}
	return out
}
