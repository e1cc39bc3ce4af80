// Package generatecourse provides the AI course generation action.
package generatecourse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edupulse/pulseflow/pkg/models"
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/template"
)

var (
	// ErrStudentIDMissing is returned when student_id is absent.
	ErrStudentIDMissing = errors.New("student_id is required")
	// ErrTopicMissing is returned when topic is absent.
	ErrTopicMissing = errors.New("topic is required")
)

// Action requests generation of a personalized course for a student.
type Action struct {
	StudentID string
	Topic     string
	Level     string

	generator protocol.CourseGenerator
}

func NewAction(config map[string]any, generator protocol.CourseGenerator) (*Action, error) {
	studentID, _ := config["student_id"].(string)
	if studentID == "" {
		return nil, ErrStudentIDMissing
	}

	topic, _ := config["topic"].(string)
	if topic == "" {
		return nil, ErrTopicMissing
	}

	level, _ := config["level"].(string)

	return &Action{
		StudentID: studentID,
		Topic:     topic,
		Level:     level,
		generator: generator,
	}, nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (map[string]any, error) {
	logger = logger.With("module", "generatecourse_action")

	req := protocol.CourseRequest{
		StudentID: template.RenderString(a.StudentID, executionCtx.Data),
		Topic:     template.RenderString(a.Topic, executionCtx.Data),
		Level:     template.RenderString(a.Level, executionCtx.Data),
	}

	courseID, err := a.generator.GenerateCourse(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to generate course for student %s: %w", req.StudentID, err)
	}

	logger.InfoContext(ctx, "Course generation requested", "course_id", courseID)

	return map[string]any{
		"course_id":  courseID,
		"student_id": req.StudentID,
		"topic":      req.Topic,
	}, nil
}
