package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/edupulse/pulseflow/pkg/protocol"
)

// StaticDirectory is an in-memory contact directory. Entries are registered
// at startup; lookups are read-only afterwards, but the mutex keeps Add safe
// during tests that mutate mid-flight.
type StaticDirectory struct {
	mu       sync.RWMutex
	users    map[string]*protocol.Contact
	roles    map[string][]*protocol.Contact // key: orgID + "/" + role
	entities map[string][]*protocol.Contact // key: entityType + "/" + entityID
}

func NewStaticDirectory() *StaticDirectory {
	return &StaticDirectory{
		users:    make(map[string]*protocol.Contact),
		roles:    make(map[string][]*protocol.Contact),
		entities: make(map[string][]*protocol.Contact),
	}
}

func (d *StaticDirectory) AddUser(contact *protocol.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[contact.ID] = contact
}

func (d *StaticDirectory) AddRoleMember(orgID, role string, contact *protocol.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := roleKey(orgID, role)
	d.roles[key] = append(d.roles[key], contact)
}

func (d *StaticDirectory) AddEntityChannel(entityType, entityID string, contact *protocol.Contact) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := entityKey(entityType, entityID)
	d.entities[key] = append(d.entities[key], contact)
}

func (d *StaticDirectory) FindUserByID(_ context.Context, id string) (*protocol.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	contact, ok := d.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}

	return contact, nil
}

func (d *StaticDirectory) FindUsersByRole(_ context.Context, orgID, role string) ([]*protocol.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.roles[roleKey(orgID, role)], nil
}

func (d *StaticDirectory) FindContactChannels(_ context.Context, entityType, entityID string) ([]*protocol.Contact, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.entities[entityKey(entityType, entityID)], nil
}

func roleKey(orgID, role string) string {
	return strings.ToLower(orgID + "/" + role)
}

func entityKey(entityType, entityID string) string {
	return strings.ToLower(entityType) + "/" + entityID
}
