package graph

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"github.com/edupulse/pulseflow/pkg/models"
)

var validate = validator.New()

// Validate runs full authoring-time validation: struct constraints, entry-node
// structure and schedule trigger cron expressions. The returned warnings list
// names unreachable nodes; warnings alone never fail validation.
func Validate(workflow *models.Workflow) ([]string, error) {
	if err := validate.Struct(workflow); err != nil {
		return nil, fmt.Errorf("workflow %s failed validation: %w", workflow.ID, err)
	}

	g, err := New(workflow)
	if err != nil {
		return nil, err
	}

	for _, node := range workflow.Nodes {
		if node.Type != models.NodeTypeTrigger {
			continue
		}

		data := node.TriggerData()
		if data.Cron == "" {
			continue
		}

		if _, err := cron.ParseStandard(data.Cron); err != nil {
			return nil, fmt.Errorf("node %s has invalid cron expression %q: %w", node.ID, data.Cron, err)
		}
	}

	var warnings []string

	for _, id := range g.UnreachableNodes() {
		warnings = append(warnings, fmt.Sprintf("node %s is unreachable from the entry node", id))
	}

	return warnings, nil
}
