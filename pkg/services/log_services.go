// Package services provides local implementations of the delivery-side
// protocol interfaces. They log what a production integration would send,
// which keeps the engine runnable without external providers.
package services

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/edupulse/pulseflow/pkg/protocol"
)

type LogMessenger struct {
	logger *slog.Logger
}

func NewLogMessenger(logger *slog.Logger) *LogMessenger {
	return &LogMessenger{logger: logger.With("module", "messenger")}
}

func (m *LogMessenger) SendMessage(ctx context.Context, channel string, contact protocol.Contact, subject, body string) error {
	m.logger.InfoContext(ctx, "Message sent",
		"channel", channel,
		"to", contact.Name,
		"email", contact.Email,
		"phone", contact.Phone,
		"subject", subject,
		"body_length", len(body))

	return nil
}

type LogDialer struct {
	logger *slog.Logger
}

func NewLogDialer(logger *slog.Logger) *LogDialer {
	return &LogDialer{logger: logger.With("module", "dialer")}
}

func (d *LogDialer) PlaceCall(ctx context.Context, contact protocol.Contact, script string) (string, error) {
	callID := uuid.New().String()

	d.logger.InfoContext(ctx, "Call placed",
		"call_id", callID,
		"to", contact.Phone,
		"script_length", len(script))

	return callID, nil
}

type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With("module", "notifier")}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, title, body string) error {
	n.logger.InfoContext(ctx, "Notification posted",
		"user_id", userID,
		"title", title,
		"body_length", len(body))

	return nil
}

type LogTaskService struct {
	logger *slog.Logger
}

func NewLogTaskService(logger *slog.Logger) *LogTaskService {
	return &LogTaskService{logger: logger.With("module", "tasks")}
}

func (t *LogTaskService) CreateTask(ctx context.Context, task protocol.Task) (string, error) {
	taskID := uuid.New().String()

	t.logger.InfoContext(ctx, "Task created",
		"task_id", taskID,
		"org_id", task.OrgID,
		"title", task.Title,
		"assignee_id", task.AssigneeID,
		"due_in_hours", task.DueInHours)

	return taskID, nil
}

func (t *LogTaskService) AssignResource(ctx context.Context, orgID, resourceType, resourceID, assigneeID string) error {
	t.logger.InfoContext(ctx, "Resource assigned",
		"org_id", orgID,
		"resource_type", resourceType,
		"resource_id", resourceID,
		"assignee_id", assigneeID)

	return nil
}

type LogCourseGenerator struct {
	logger *slog.Logger
}

func NewLogCourseGenerator(logger *slog.Logger) *LogCourseGenerator {
	return &LogCourseGenerator{logger: logger.With("module", "courses")}
}

func (g *LogCourseGenerator) GenerateCourse(ctx context.Context, req protocol.CourseRequest) (string, error) {
	courseID := uuid.New().String()

	g.logger.InfoContext(ctx, "Course generation requested",
		"course_id", courseID,
		"student_id", req.StudentID,
		"topic", req.Topic,
		"level", req.Level)

	return courseID, nil
}

type LogFieldWriter struct {
	logger *slog.Logger
}

func NewLogFieldWriter(logger *slog.Logger) *LogFieldWriter {
	return &LogFieldWriter{logger: logger.With("module", "fields")}
}

func (w *LogFieldWriter) UpdateField(ctx context.Context, entityType, entityID, field string, value any) error {
	w.logger.InfoContext(ctx, "Field updated",
		"entity_type", entityType,
		"entity_id", entityID,
		"field", field,
		"value", value)

	return nil
}
