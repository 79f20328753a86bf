package grantkit

import "sync"

// UserFlags are the mutable attributes of a user the engine reads.
type UserFlags struct {
	Active bool
}

// GroupFlags are the mutable attributes of a group the engine reads.
type GroupFlags struct {
	Active       bool
	Public       bool
	Discoverable bool
	Shareable    bool
}

// ResourceFlags are the mutable attributes of a resource the engine reads.
type ResourceFlags struct {
	Immutable    bool
	Public       bool
	Discoverable bool
	Published    bool
	Shareable    bool
}

// CommunityFlags are the mutable attributes of a community the engine reads.
type CommunityFlags struct {
	Active bool
}

// EntityRegistry provides read-only identity and flag lookups for the four
// entity kinds. Entities are owned by the embedding application; the engine
// only reads these flags, polled synchronously per call, and never mutates
// them. The boolean result reports whether the entity exists.
type EntityRegistry interface {
	User(id string) (UserFlags, bool)
	Group(id string) (GroupFlags, bool)
	Resource(id string) (ResourceFlags, bool)
	Community(id string) (CommunityFlags, bool)
}

// MemoryRegistry is a mutex-guarded in-memory EntityRegistry. It is suitable
// for tests and for applications that keep entity flags in process; anything
// database-backed should implement EntityRegistry over its own models.
type MemoryRegistry struct {
	mu          sync.RWMutex
	users       map[string]UserFlags
	groups      map[string]GroupFlags
	resources   map[string]ResourceFlags
	communities map[string]CommunityFlags
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		users:       make(map[string]UserFlags),
		groups:      make(map[string]GroupFlags),
		resources:   make(map[string]ResourceFlags),
		communities: make(map[string]CommunityFlags),
	}
}

// PutUser adds or replaces a user and its flags.
func (r *MemoryRegistry) PutUser(id string, flags UserFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = flags
}

// PutGroup adds or replaces a group and its flags.
func (r *MemoryRegistry) PutGroup(id string, flags GroupFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups[id] = flags
}

// PutResource adds or replaces a resource and its flags.
func (r *MemoryRegistry) PutResource(id string, flags ResourceFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resources[id] = flags
}

// PutCommunity adds or replaces a community and its flags.
func (r *MemoryRegistry) PutCommunity(id string, flags CommunityFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.communities[id] = flags
}

// RemoveUser deletes a user from the registry.
func (r *MemoryRegistry) RemoveUser(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// RemoveGroup deletes a group from the registry.
func (r *MemoryRegistry) RemoveGroup(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups, id)
}

// RemoveResource deletes a resource from the registry.
func (r *MemoryRegistry) RemoveResource(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resources, id)
}

// RemoveCommunity deletes a community from the registry.
func (r *MemoryRegistry) RemoveCommunity(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.communities, id)
}

// User implements EntityRegistry.
func (r *MemoryRegistry) User(id string) (UserFlags, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flags, ok := r.users[id]
	return flags, ok
}

// Group implements EntityRegistry.
func (r *MemoryRegistry) Group(id string) (GroupFlags, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flags, ok := r.groups[id]
	return flags, ok
}

// Resource implements EntityRegistry.
func (r *MemoryRegistry) Resource(id string) (ResourceFlags, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flags, ok := r.resources[id]
	return flags, ok
}

// Community implements EntityRegistry.
func (r *MemoryRegistry) Community(id string) (CommunityFlags, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	flags, ok := r.communities[id]
	return flags, ok
}
