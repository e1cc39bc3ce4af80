// Package models defines the core domain models for node-based workflow automation.
package models

import (
	"strings"
	"time"
)

// NodeType is the closed set of node kinds the engine knows how to execute.
type NodeType string

const (
	NodeTypeTrigger     NodeType = "trigger"
	NodeTypeCondition   NodeType = "condition"
	NodeTypeAction      NodeType = "action"
	NodeTypeDelay       NodeType = "delay"
	NodeTypeBranch      NodeType = "branch"
	NodeTypeMerge       NodeType = "merge"
	NodeTypeSubworkflow NodeType = "subworkflow"
)

// DelayUnit is the time unit of a delay node's duration.
type DelayUnit string

const (
	DelayUnitSeconds DelayUnit = "seconds"
	DelayUnitMinutes DelayUnit = "minutes"
	DelayUnitHours   DelayUnit = "hours"
	DelayUnitDays    DelayUnit = "days"
)

// Node is a typed unit of work in a workflow graph. Nodes are stateless
// templates: the same node may execute across many executions, but never twice
// within a single traversal pass.
type Node struct {
	ID   string         `json:"id"   validate:"required"`
	Type NodeType       `json:"type" validate:"required"`
	Data map[string]any `json:"data,omitempty"`
}

// Edge connects two nodes. SourceHandle is set on edges leaving a branch node
// and names the branch (by id or positional index) the edge belongs to.
type Edge struct {
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
}

// TriggerNodeData is the payload of a trigger node.
type TriggerNodeData struct {
	TriggerType string
	Cron        string
}

// ConditionNodeData is the payload of a condition node.
type ConditionNodeData struct {
	Conditions []ConditionAtom
	Logic      ConditionLogic
}

// ActionNodeData is the payload of an action node.
type ActionNodeData struct {
	ActionType string
	Config     map[string]any
}

// DelayNodeData is the payload of a delay node.
type DelayNodeData struct {
	Duration float64
	Unit     DelayUnit
}

// BranchSpec is one predicate of a branch node, evaluated in order. A branch
// with IsDefault set fires only when no other branch matched.
type BranchSpec struct {
	ID         string
	Conditions []ConditionAtom
	Logic      ConditionLogic
	IsDefault  bool
}

// BranchNodeData is the payload of a branch node.
type BranchNodeData struct {
	Branches []BranchSpec
}

// SubworkflowNodeData is the payload of a subworkflow node. Async children are
// enqueued fire-and-forget; sync children block the parent until terminal.
type SubworkflowNodeData struct {
	WorkflowID string
	Async      bool
}

// TriggerData decodes the node's payload as trigger node data.
func (n *Node) TriggerData() TriggerNodeData {
	triggerType, _ := n.Data["trigger_type"].(string)
	cronExpr, _ := n.Data["cron"].(string)

	return TriggerNodeData{TriggerType: triggerType, Cron: cronExpr}
}

// ConditionData decodes the node's payload as condition node data.
func (n *Node) ConditionData() ConditionNodeData {
	return ConditionNodeData{
		Conditions: decodeConditionAtoms(n.Data["conditions"]),
		Logic:      decodeLogic(n.Data["logic"]),
	}
}

// ActionData decodes the node's payload as action node data.
func (n *Node) ActionData() ActionNodeData {
	actionType, _ := n.Data["action_type"].(string)

	config := make(map[string]any)
	if raw, ok := n.Data["config"].(map[string]any); ok {
		for k, v := range raw {
			config[k] = v
		}
	}

	return ActionNodeData{ActionType: actionType, Config: config}
}

// DelayData decodes the node's payload as delay node data.
func (n *Node) DelayData() DelayNodeData {
	duration := toFloat(n.Data["duration"])

	unit := DelayUnitSeconds
	if raw, ok := n.Data["unit"].(string); ok && raw != "" {
		unit = DelayUnit(raw)
	}

	return DelayNodeData{Duration: duration, Unit: unit}
}

// BranchData decodes the node's payload as branch node data.
func (n *Node) BranchData() BranchNodeData {
	raw, ok := n.Data["branches"].([]any)
	if !ok {
		return BranchNodeData{}
	}

	branches := make([]BranchSpec, 0, len(raw))

	for _, item := range raw {
		branchMap, ok := item.(map[string]any)
		if !ok {
			continue
		}

		id, _ := branchMap["id"].(string)
		isDefault, _ := branchMap["is_default"].(bool)

		branches = append(branches, BranchSpec{
			ID:         id,
			Conditions: decodeConditionAtoms(branchMap["conditions"]),
			Logic:      decodeLogic(branchMap["logic"]),
			IsDefault:  isDefault,
		})
	}

	return BranchNodeData{Branches: branches}
}

// SubworkflowData decodes the node's payload as subworkflow node data.
func (n *Node) SubworkflowData() SubworkflowNodeData {
	workflowID, _ := n.Data["workflow_id"].(string)
	async, _ := n.Data["async"].(bool)

	return SubworkflowNodeData{WorkflowID: workflowID, Async: async}
}

// ResumeDuration converts the delay payload into a concrete duration.
func (d DelayNodeData) ResumeDuration() time.Duration {
	switch d.Unit {
	case DelayUnitMinutes:
		return time.Duration(d.Duration * float64(time.Minute))
	case DelayUnitHours:
		return time.Duration(d.Duration * float64(time.Hour))
	case DelayUnitDays:
		return time.Duration(d.Duration * 24 * float64(time.Hour))
	case DelayUnitSeconds:
		return time.Duration(d.Duration * float64(time.Second))
	default:
		return time.Duration(d.Duration * float64(time.Second))
	}
}

func decodeConditionAtoms(raw any) []ConditionAtom {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}

	atoms := make([]ConditionAtom, 0, len(items))

	for _, item := range items {
		atomMap, ok := item.(map[string]any)
		if !ok {
			continue
		}

		field, _ := atomMap["field"].(string)
		operator, _ := atomMap["operator"].(string)

		atoms = append(atoms, ConditionAtom{
			Field:    field,
			Operator: Operator(operator),
			Value:    atomMap["value"],
		})
	}

	return atoms
}

func decodeLogic(raw any) ConditionLogic {
	logic, _ := raw.(string)
	if ConditionLogic(strings.ToLower(logic)) == LogicOr {
		return LogicOr
	}

	return LogicAnd
}

func toFloat(value any) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
