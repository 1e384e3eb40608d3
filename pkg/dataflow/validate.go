package dataflow

import (
	"fmt"

	"github.com/quarrylabs/quarry/internal/dag"
)

// MalformedPlanError reports a structural violation in a dataflow plan:
// wrong predecessor count, missing referenced column, duplicate node ID, or
// cyclic structure. The compiler never retries these.
type MalformedPlanError struct {
	NodeID string
	Reason string
}

// Error implements error.
func (e *MalformedPlanError) Error() string {
	if e.NodeID == "" {
		return "malformed plan: " + e.Reason
	}
	return fmt.Sprintf("malformed plan: node %s: %s", e.NodeID, e.Reason)
}

// Validate checks a plan rooted at root for structural soundness:
// plan-unique node IDs, the predecessor count each variant requires, acyclic
// structure, and computable output schemas. Returns a *MalformedPlanError
// on the first violation found.
func Validate(root Node) error {
	if root == nil {
		return &MalformedPlanError{Reason: "plan root is nil"}
	}

	g := dag.NewGraph()
	seen := map[string]Node{}

	var walk func(n Node) error
	walk = func(n Node) error {
		if n.ID() == "" {
			return &MalformedPlanError{Reason: fmt.Sprintf("%T has empty node ID", n)}
		}
		if prev, ok := seen[n.ID()]; ok {
			if prev != n {
				return &MalformedPlanError{NodeID: n.ID(), Reason: "node ID used by two distinct nodes"}
			}
			return nil
		}
		seen[n.ID()] = n
		g.AddNode(n.ID(), n)

		inputs := n.Inputs()
		if want := requiredInputs(n); len(inputs) != want {
			return &MalformedPlanError{
				NodeID: n.ID(),
				Reason: fmt.Sprintf("%T requires %d input(s), has %d", n, want, len(inputs)),
			}
		}
		for _, in := range inputs {
			if in == nil {
				return &MalformedPlanError{NodeID: n.ID(), Reason: "input node is nil"}
			}
			if err := walk(in); err != nil {
				return err
			}
			if err := g.AddEdge(in.ID(), n.ID()); err != nil {
				return &MalformedPlanError{NodeID: n.ID(), Reason: err.Error()}
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return err
	}

	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return &MalformedPlanError{NodeID: root.ID(), Reason: fmt.Sprintf("plan contains a cycle: %v", cyclePath)}
	}

	// Schema computation exercises every per-variant prerequisite.
	if _, err := root.OutputSchema(); err != nil {
		if _, ok := err.(*MalformedPlanError); ok {
			return err
		}
		return &MalformedPlanError{NodeID: root.ID(), Reason: err.Error()}
	}
	return nil
}

func requiredInputs(n Node) int {
	switch n.(type) {
	case *SourceRead:
		return 0
	case *FilterElements, *ConstrainOutput, *AggregateMeasures, *ComputeMetrics:
		return 1
	case *JoinOnEntities:
		return 2
	}
	return -1
}
