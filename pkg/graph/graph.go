// Package graph exposes a validated structural view of a workflow to the engine.
package graph

import (
	"errors"
	"fmt"

	"github.com/edupulse/pulseflow/pkg/models"
)

// ErrNoEntryNode is returned when a workflow has zero or more than one
// trigger-type node without incoming edges. It is fatal: no execution of the
// workflow can be started.
var ErrNoEntryNode = errors.New("workflow has no unambiguous entry node")

// Graph is an immutable index over a workflow's nodes and edges. Cycles are
// permitted here; the engine's per-run visited set keeps traversal finite.
type Graph struct {
	workflow *models.Workflow
	nodes    map[string]*models.Node
	outgoing map[string][]*models.Edge
	entry    *models.Node
}

// New builds and structurally validates the graph.
func New(workflow *models.Workflow) (*Graph, error) {
	g := &Graph{
		workflow: workflow,
		nodes:    make(map[string]*models.Node, len(workflow.Nodes)),
		outgoing: make(map[string][]*models.Edge),
	}

	for _, node := range workflow.Nodes {
		g.nodes[node.ID] = node
	}

	incoming := make(map[string]int)
	for _, edge := range workflow.Edges {
		g.outgoing[edge.Source] = append(g.outgoing[edge.Source], edge)
		incoming[edge.Target]++
	}

	var entries []*models.Node

	for _, node := range workflow.Nodes {
		if node.Type == models.NodeTypeTrigger && incoming[node.ID] == 0 {
			entries = append(entries, node)
		}
	}

	if len(entries) != 1 {
		return nil, fmt.Errorf("workflow %s has %d candidate entry nodes: %w",
			workflow.ID, len(entries), ErrNoEntryNode)
	}

	g.entry = entries[0]

	return g, nil
}

// EntryNode returns the single trigger node traversal starts from.
func (g *Graph) EntryNode() *models.Node {
	return g.entry
}

// Node looks up a node by id. A nil return is not an error at this layer; the
// engine treats a missing node as "nothing to execute" and stops that branch.
func (g *Graph) Node(id string) *models.Node {
	return g.nodes[id]
}

// OutgoingEdges returns the edges leaving a node in declaration order.
func (g *Graph) OutgoingEdges(id string) []*models.Edge {
	return g.outgoing[id]
}

// NextNodes returns the nodes reachable through outgoing edges, in edge
// declaration order. Edges pointing at unknown nodes are skipped.
func (g *Graph) NextNodes(id string) []*models.Node {
	edges := g.outgoing[id]

	next := make([]*models.Node, 0, len(edges))

	for _, edge := range edges {
		if node := g.nodes[edge.Target]; node != nil {
			next = append(next, node)
		}
	}

	return next
}

// UnreachableNodes lists node ids not reachable from the entry node. They are
// a validation warning, not an error: the workflow still runs without them.
func (g *Graph) UnreachableNodes() []string {
	visited := make(map[string]bool, len(g.nodes))

	queue := []string{g.entry.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if visited[id] {
			continue
		}

		visited[id] = true

		for _, edge := range g.outgoing[id] {
			if _, known := g.nodes[edge.Target]; known {
				queue = append(queue, edge.Target)
			}
		}
	}

	var unreachable []string

	for _, node := range g.workflow.Nodes {
		if !visited[node.ID] {
			unreachable = append(unreachable, node.ID)
		}
	}

	return unreachable
}
