package models

import "time"

// ExecutionStatus is the lifecycle state of an execution. Valid transitions:
// running -> waiting | completed | failed, and waiting -> running on resume.
// Completed and failed are terminal.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusWaiting   ExecutionStatus = "waiting"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s ExecutionStatus) Terminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed
}

// NodeResultStatus is the outcome of a single node execution.
type NodeResultStatus string

const (
	NodeResultSuccess NodeResultStatus = "success"
	NodeResultFailed  NodeResultStatus = "failed"
)

// NodeResult is one entry of an execution's audit trail. The node_results log
// is append-only: entries are never mutated, removed, or reordered.
type NodeResult struct {
	NodeID    string           `json:"node_id"`
	Status    NodeResultStatus `json:"status"`
	Output    map[string]any   `json:"output,omitempty"`
	Error     string           `json:"error,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Execution is one durable run of a workflow against a triggering event.
// TriggerData is an immutable snapshot of the event; Context is the mutable
// key-value store seeded from it and enriched by action outputs.
type Execution struct {
	ID          string          `json:"id"`
	WorkflowID  string          `json:"workflow_id"`
	OrgID       string          `json:"org_id,omitempty"`
	Status      ExecutionStatus `json:"status"`
	TriggeredBy string          `json:"triggered_by,omitempty"`
	TriggerData map[string]any  `json:"trigger_data,omitempty"`
	Context     map[string]any  `json:"context,omitempty"`

	// CurrentNodeID and ResumeAt are meaningful only while Status is waiting.
	CurrentNodeID string     `json:"current_node_id,omitempty"`
	ResumeAt      *time.Time `json:"resume_at,omitempty"`

	NodeResults []NodeResult `json:"node_results"`
	Error       string       `json:"error,omitempty"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AppendNodeResult appends to the audit trail.
func (e *Execution) AppendNodeResult(result NodeResult) {
	e.NodeResults = append(e.NodeResults, result)
}

// ExecutionContext is the slice of an execution handed to actions: identity
// for traceability plus the mutable context map.
type ExecutionContext struct {
	ExecutionID string
	WorkflowID  string
	OrgID       string
	Data        map[string]any
}
