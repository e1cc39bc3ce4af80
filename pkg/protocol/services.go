package protocol

import "context"

// Contact is a resolved recipient endpoint.
type Contact struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Directory looks up contact endpoints for logical recipient descriptors.
// Implementations must be safe for concurrent use.
type Directory interface {
	FindUserByID(ctx context.Context, id string) (*Contact, error)
	FindUsersByRole(ctx context.Context, orgID, role string) ([]*Contact, error)
	FindContactChannels(ctx context.Context, entityType, entityID string) ([]*Contact, error)
}

// Messenger delivers a message over a named channel (email, sms, whatsapp).
type Messenger interface {
	SendMessage(ctx context.Context, channel string, contact Contact, subject, body string) error
}

// Dialer places outbound voice calls.
type Dialer interface {
	PlaceCall(ctx context.Context, contact Contact, script string) (callID string, err error)
}

// Task is a work item created by a createtask action.
type Task struct {
	OrgID       string
	Title       string
	Description string
	AssigneeID  string
	DueInHours  int
}

// TaskService creates tasks and resource assignments in the surrounding system.
type TaskService interface {
	CreateTask(ctx context.Context, task Task) (taskID string, err error)
	AssignResource(ctx context.Context, orgID, resourceType, resourceID, assigneeID string) error
}

// Notifier posts in-app notifications.
type Notifier interface {
	Notify(ctx context.Context, userID, title, body string) error
}

// CourseRequest describes an AI course-generation job.
type CourseRequest struct {
	StudentID string
	Topic     string
	Level     string
}

// CourseGenerator kicks off course generation and returns the new course id.
type CourseGenerator interface {
	GenerateCourse(ctx context.Context, req CourseRequest) (courseID string, err error)
}

// FieldWriter updates a single field of a domain record.
type FieldWriter interface {
	UpdateField(ctx context.Context, entityType, entityID, field string, value any) error
}

// WorkflowEnqueuer requests an independent workflow run; used by the
// triggerworkflow action and by async subworkflow nodes. The run happens on
// its own queue entry with its own audit trail.
type WorkflowEnqueuer interface {
	EnqueueWorkflow(ctx context.Context, workflowID, triggeredBy string, payload map[string]any) error
}
