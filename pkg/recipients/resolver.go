// Package recipients resolves heterogeneous recipient specifications into
// concrete contact records.
package recipients

import (
	"context"
	"fmt"
	"strings"

	"github.com/edupulse/pulseflow/pkg/protocol"
	"github.com/edupulse/pulseflow/pkg/template"
)

// Resolver turns recipient specs into contacts. A spec may be:
//   - a literal endpoint ("+15551234567", "dean@school.edu")
//   - a context reference ("{{student.phone}}")
//   - a typed descriptor ({"type": "user", "id": "..."},
//     {"type": "role", "role": "advisor", "org_id": "..."},
//     {"type": "entity", "entity_type": "student", "entity_id": "..."})
//   - a list of any of the above
type Resolver struct {
	directory protocol.Directory
}

func NewResolver(directory protocol.Directory) *Resolver {
	return &Resolver{directory: directory}
}

// Resolve expands spec against the execution context. Specs that resolve to
// nothing contribute no contacts; only directory failures surface as errors.
func (r *Resolver) Resolve(ctx context.Context, spec any, data map[string]any) ([]protocol.Contact, error) {
	switch v := spec.(type) {
	case nil:
		return nil, nil
	case string:
		return r.resolveString(ctx, v, data)
	case []any:
		var contacts []protocol.Contact

		for _, item := range v {
			resolved, err := r.Resolve(ctx, item, data)
			if err != nil {
				return nil, err
			}

			contacts = append(contacts, resolved...)
		}

		return contacts, nil
	case map[string]any:
		return r.resolveDescriptor(ctx, v, data)
	default:
		return nil, fmt.Errorf("unsupported recipient specification type %T", spec)
	}
}

func (r *Resolver) resolveString(ctx context.Context, spec string, data map[string]any) ([]protocol.Contact, error) {
	resolved := template.Resolve(spec, data)

	// A context reference may itself hold a descriptor or a list.
	if _, isString := resolved.(string); !isString {
		return r.Resolve(ctx, resolved, data)
	}

	value := strings.TrimSpace(resolved.(string))
	if value == "" {
		return nil, nil
	}

	if strings.Contains(value, "@") {
		return []protocol.Contact{{Email: value}}, nil
	}

	return []protocol.Contact{{Phone: value}}, nil
}

func (r *Resolver) resolveDescriptor(ctx context.Context, descriptor map[string]any, data map[string]any) ([]protocol.Contact, error) {
	rendered := template.RenderConfig(descriptor, data)

	kind, _ := rendered["type"].(string)

	switch kind {
	case "user":
		id, _ := rendered["id"].(string)
		if id == "" {
			return nil, fmt.Errorf("user recipient descriptor missing id")
		}

		contact, err := r.directory.FindUserByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("directory lookup for user %s: %w", id, err)
		}

		if contact == nil {
			return nil, nil
		}

		return []protocol.Contact{*contact}, nil

	case "role":
		role, _ := rendered["role"].(string)
		orgID, _ := rendered["org_id"].(string)

		if role == "" {
			return nil, fmt.Errorf("role recipient descriptor missing role")
		}

		contacts, err := r.directory.FindUsersByRole(ctx, orgID, role)
		if err != nil {
			return nil, fmt.Errorf("directory lookup for role %s: %w", role, err)
		}

		return dereference(contacts), nil

	case "entity":
		entityType, _ := rendered["entity_type"].(string)
		entityID, _ := rendered["entity_id"].(string)

		if entityType == "" || entityID == "" {
			return nil, fmt.Errorf("entity recipient descriptor missing entity_type or entity_id")
		}

		contacts, err := r.directory.FindContactChannels(ctx, entityType, entityID)
		if err != nil {
			return nil, fmt.Errorf("directory lookup for %s %s: %w", entityType, entityID, err)
		}

		return dereference(contacts), nil

	default:
		return nil, fmt.Errorf("unknown recipient descriptor type %q", kind)
	}
}

func dereference(contacts []*protocol.Contact) []protocol.Contact {
	out := make([]protocol.Contact, 0, len(contacts))

	for _, contact := range contacts {
		if contact != nil {
			out = append(out, *contact)
		}
	}

	return out
}
