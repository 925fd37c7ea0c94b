// Package potential provides admissible, consistent lower-bound providers
// for goal-directed search. All providers share one contract: Bind runs the
// per-query precomputation (cheap relative to the forward search), LowerBound
// is then callable repeatedly and independently.
package potential

import "github.com/azybler/coop_router/pkg/graph"

// Potential is a lower bound on the remaining cost to a bound target.
//
// Implementations guarantee admissibility (never exceeding the true
// remaining cost) and consistency (LowerBound(u) <= cost(u,v) +
// LowerBound(v) for every edge), the invariants A* optimality rests on.
// Violations are programming errors, caught by tests, not handled at
// runtime.
type Potential interface {
	// Bind fixes the query. Source and departure are ignored by providers
	// that do not need them.
	Bind(source, target graph.NodeID, departure graph.Timestamp)

	// LowerBound returns a non-negative lower bound on the cost from node
	// to the bound target. Unreached nodes yield zero.
	LowerBound(node graph.NodeID) graph.Weight
}

// Prepared is the output of customization: immutable per-graph data from
// which per-worker Potential instances are derived. Instances own their
// working buffers and must not be shared across goroutines; Prepared values
// may be.
type Prepared interface {
	NewPotential() Potential
}

// Zero is the no-information potential: plain Dijkstra behavior.
type Zero struct{}

func (Zero) Bind(source, target graph.NodeID, departure graph.Timestamp) {}

func (Zero) LowerBound(node graph.NodeID) graph.Weight { return 0 }

// PreparedZero yields Zero potentials.
type PreparedZero struct{}

func (PreparedZero) NewPotential() Potential { return Zero{} }
