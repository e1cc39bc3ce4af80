// Package testutil provides test data builders shared across package tests.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/edupulse/pulseflow/pkg/models"
)

// CreateTestWorkflow builds an active workflow with a trigger node and no
// further structure; callers append nodes and edges as needed.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	now := time.Now().UTC()

	workflow := &models.Workflow{
		ID:     uuid.New().String(),
		OrgID:  "org-1",
		Name:   "Test workflow",
		Active: true,
		Nodes: []*models.Node{
			{ID: "trigger", Type: models.NodeTypeTrigger, Data: map[string]any{"trigger_type": "event"}},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithNodes replaces the workflow's nodes.
func WithNodes(nodes ...*models.Node) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
	}
}

// WithEdges replaces the workflow's edges.
func WithEdges(edges ...*models.Edge) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Edges = edges
	}
}

// TriggerNode builds a trigger node.
func TriggerNode(id string) *models.Node {
	return &models.Node{
		ID:   id,
		Type: models.NodeTypeTrigger,
		Data: map[string]any{"trigger_type": "event"},
	}
}

// ActionNode builds an action node for the given action type and config.
func ActionNode(id, actionType string, config map[string]any) *models.Node {
	return &models.Node{
		ID:   id,
		Type: models.NodeTypeAction,
		Data: map[string]any{"action_type": actionType, "config": config},
	}
}

// DelayNode builds a delay node.
func DelayNode(id string, duration float64, unit models.DelayUnit) *models.Node {
	return &models.Node{
		ID:   id,
		Type: models.NodeTypeDelay,
		Data: map[string]any{"duration": duration, "unit": string(unit)},
	}
}

// Edge builds an edge between two nodes.
func Edge(source, target string) *models.Edge {
	return &models.Edge{Source: source, Target: target}
}

// BranchEdge builds an edge leaving a branch node on the given handle.
func BranchEdge(source, target, handle string) *models.Edge {
	return &models.Edge{Source: source, Target: target, SourceHandle: handle}
}
