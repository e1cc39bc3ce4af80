package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edupulse/pulseflow/pkg/protocol"
)

// MockMessenger is a mock implementation of protocol.Messenger.
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) SendMessage(ctx context.Context, channel string, contact protocol.Contact, subject, body string) error {
	args := m.Called(ctx, channel, contact, subject, body)

	return args.Error(0)
}

// MockDialer is a mock implementation of protocol.Dialer.
type MockDialer struct {
	mock.Mock
}

func (m *MockDialer) PlaceCall(ctx context.Context, contact protocol.Contact, script string) (string, error) {
	args := m.Called(ctx, contact, script)

	return args.String(0), args.Error(1)
}

// MockTaskService is a mock implementation of protocol.TaskService.
type MockTaskService struct {
	mock.Mock
}

func (m *MockTaskService) CreateTask(ctx context.Context, task protocol.Task) (string, error) {
	args := m.Called(ctx, task)

	return args.String(0), args.Error(1)
}

func (m *MockTaskService) AssignResource(ctx context.Context, orgID, resourceType, resourceID, assigneeID string) error {
	args := m.Called(ctx, orgID, resourceType, resourceID, assigneeID)

	return args.Error(0)
}

// MockNotifier is a mock implementation of protocol.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userID, title, body string) error {
	args := m.Called(ctx, userID, title, body)

	return args.Error(0)
}

// MockEnqueuer is a mock implementation of protocol.WorkflowEnqueuer.
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) EnqueueWorkflow(ctx context.Context, workflowID, triggeredBy string, payload map[string]any) error {
	args := m.Called(ctx, workflowID, triggeredBy, payload)

	return args.Error(0)
}
