package generatecourse

import (
	"github.com/edupulse/pulseflow/pkg/protocol"
)

// ActionFactory creates generate-course action instances.
type ActionFactory struct {
	generator protocol.CourseGenerator
}

func NewActionFactory(generator protocol.CourseGenerator) *ActionFactory {
	return &ActionFactory{generator: generator}
}

func (*ActionFactory) ID() string {
	return "generate_course"
}

func (*ActionFactory) Name() string {
	return "Generate Course"
}

func (*ActionFactory) Description() string {
	return "Requests AI generation of a personalized course for a student."
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewAction(config, f.generator)
}

func (f *ActionFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"student_id": map[string]any{
				"type":        "string",
				"description": "Student the course is generated for. Supports templating.",
			},
			"topic": map[string]any{
				"type":        "string",
				"description": "Course topic. Supports templating.",
			},
			"level": map[string]any{
				"type":        "string",
				"description": "Difficulty level",
			},
		},
		"required": []string{"student_id", "topic"},
	}
}
