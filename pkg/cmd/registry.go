// Package cmd provides common initialization for the command-line binaries.
package cmd

import (
	"log/slog"

	"github.com/edupulse/pulseflow/pkg/actions/assignresource"
	"github.com/edupulse/pulseflow/pkg/actions/createtask"
	"github.com/edupulse/pulseflow/pkg/actions/generatecourse"
	"github.com/edupulse/pulseflow/pkg/actions/makecall"
	"github.com/edupulse/pulseflow/pkg/actions/notify"
	"github.com/edupulse/pulseflow/pkg/actions/sendmessage"
	"github.com/edupulse/pulseflow/pkg/actions/triggerworkflow"
	"github.com/edupulse/pulseflow/pkg/actions/updatefield"
	"github.com/edupulse/pulseflow/pkg/actions/webhook"
	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/recipients"
	"github.com/edupulse/pulseflow/pkg/registry"
)

// Services are the delivery-side collaborators the action catalog depends on.
type Services struct {
	Directory       protocol.Directory
	Messenger       protocol.Messenger
	Dialer          protocol.Dialer
	Notifier        protocol.Notifier
	Tasks           protocol.TaskService
	CourseGenerator protocol.CourseGenerator
	FieldWriter     protocol.FieldWriter
	Enqueuer        protocol.WorkflowEnqueuer
}

// NewRegistry builds the action registry with the full native catalog.
func NewRegistry(logger *slog.Logger, svcs Services) *registry.Registry {
	reg := registry.NewRegistry(logger)

	RegisterNativeActions(reg, svcs)

	return reg
}

// RegisterNativeActions wires the built-in action catalog into an existing
// registry. Split out so callers can create the registry before the
// collaborators that depend on it (the engine doubles as the enqueuer).
func RegisterNativeActions(reg *registry.Registry, svcs Services) {
	resolver := recipients.NewResolver(svcs.Directory)

	reg.RegisterAction(sendmessage.NewActionFactory(resolver, svcs.Messenger))
	reg.RegisterAction(makecall.NewActionFactory(resolver, svcs.Dialer))
	reg.RegisterAction(notify.NewActionFactory(resolver, svcs.Notifier))
	reg.RegisterAction(webhook.NewActionFactory())
	reg.RegisterAction(createtask.NewActionFactory(svcs.Tasks))
	reg.RegisterAction(assignresource.NewActionFactory(svcs.Tasks))
	reg.RegisterAction(updatefield.NewActionFactory(svcs.FieldWriter))
	reg.RegisterAction(generatecourse.NewActionFactory(svcs.CourseGenerator))
	reg.RegisterAction(triggerworkflow.NewActionFactory(svcs.Enqueuer))
}
