package dag

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/pulse-analytics/pulse-go/internal/workflow"
)

// NodeType distinguishes the two graph vertices: raw data sources and
// declared analysis steps.
type NodeType int

const (
	SourceNode NodeType = iota
	StepNode
)

// NodeState tracks a node through execution.
type NodeState int32

const (
	Pending NodeState = iota
	Running
	Done
	Failed
)

// Node is a vertex in the execution graph. Deps and Dependents are keyed by
// node ID; edges mean "produces input for".
type Node struct {
	ID   string
	Type NodeType

	// Step holds the declaration for StepNode vertices. The graph builder
	// owns this copy; resolved wiring (such as a materialized themes_from
	// alias) is written here, never to the caller's workflow.
	Step *workflow.Step
	// Items holds the content of SourceNode vertices.
	Items []string

	Deps       map[string]*Node
	Dependents map[string]*Node

	// declOrder fixes the tie-break between nodes with no dependency
	// relation, making scheduling reproducible across runs.
	declOrder int

	// dependentsOrdered is Dependents sorted by declaration order, built
	// once the graph is sealed, so unlock order is deterministic.
	dependentsOrdered []*Node

	depCount atomic.Int32
	state    atomic.Int32
	skipOnce sync.Once
	Err      error
}

// State returns the node's current execution state.
func (n *Node) State() NodeState {
	return NodeState(n.state.Load())
}

func (n *Node) setState(s NodeState) {
	n.state.Store(int32(s))
}

// Graph is the derived execution DAG over sources and steps. It is built
// once, validated, and then read concurrently by the executor.
type Graph struct {
	Nodes map[string]*Node

	// order is a valid topological order over all nodes, ties broken by
	// declaration order.
	order []*Node
}

// Order returns the step identifiers in scheduled execution order. Sources
// carry no work and are omitted.
func (g *Graph) Order() []string {
	var ids []string
	for _, n := range g.order {
		if n.Type == StepNode {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// StepIDs returns every step identifier in the graph, in scheduled order.
func (g *Graph) StepIDs() []string { return g.Order() }

func (g *Graph) addNode(n *Node) {
	n.Deps = make(map[string]*Node)
	n.Dependents = make(map[string]*Node)
	g.Nodes[n.ID] = n
}

// addEdge records that toID consumes fromID's output.
func (g *Graph) addEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}
	from, ok := g.Nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}
	to, ok := g.Nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}
	to.Deps[fromID] = from
	from.Dependents[toID] = to
	return nil
}

// detectCycles checks for circular dependencies using DFS.
func (g *Graph) detectCycles() error {
	visiting := make(map[string]bool)
	visited := make(map[string]bool)

	var visit func(node *Node) error
	visit = func(node *Node) error {
		visiting[node.ID] = true
		for _, dep := range node.Deps {
			if visiting[dep.ID] {
				return fmt.Errorf("cycle detected involving '%s'", dep.ID)
			}
			if !visited[dep.ID] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		delete(visiting, node.ID)
		visited[node.ID] = true
		return nil
	}

	for _, node := range g.Nodes {
		if !visited[node.ID] {
			if err := visit(node); err != nil {
				return err
			}
		}
	}
	return nil
}

// seal finalizes the graph after validation: it computes the deterministic
// topological order, initializes dependency counters, and fixes the unlock
// order of each node's dependents.
func (g *Graph) seal() error {
	indegree := make(map[string]int, len(g.Nodes))
	var ready []*Node
	for _, n := range g.Nodes {
		indegree[n.ID] = len(n.Deps)
		if len(n.Deps) == 0 {
			ready = append(ready, n)
		}
	}

	byDecl := func(nodes []*Node) {
		sort.Slice(nodes, func(i, j int) bool { return nodes[i].declOrder < nodes[j].declOrder })
	}
	byDecl(ready)

	g.order = g.order[:0]
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		g.order = append(g.order, n)

		var unlocked []*Node
		for _, dep := range n.Dependents {
			indegree[dep.ID]--
			if indegree[dep.ID] == 0 {
				unlocked = append(unlocked, dep)
			}
		}
		byDecl(unlocked)
		ready = append(ready, unlocked...)
		byDecl(ready)
	}

	if len(g.order) != len(g.Nodes) {
		// Unreachable after detectCycles, kept as an invariant check.
		return fmt.Errorf("topological sort covered %d of %d nodes", len(g.order), len(g.Nodes))
	}

	for _, n := range g.Nodes {
		n.depCount.Store(int32(len(n.Deps)))
		n.dependentsOrdered = make([]*Node, 0, len(n.Dependents))
		for _, dep := range n.Dependents {
			n.dependentsOrdered = append(n.dependentsOrdered, dep)
		}
		byDecl(n.dependentsOrdered)
	}
	return nil
}
