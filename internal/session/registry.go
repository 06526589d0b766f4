// Package session provides the shared state that timed game sessions
// coordinate through: membership registries and single-owner timers.
package session

import "sync"

// Registry is a set of players currently holding a session slot, such as
// "fishing" or "in a match". Each engine gets its own instance at startup.
type Registry struct {
	name     string
	mu       sync.Mutex
	members  map[int64]struct{}
	onChange func(name string, n int)
}

// NewRegistry creates an empty registry.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, members: make(map[int64]struct{})}
}

// Name returns the registry's label.
func (r *Registry) Name() string {
	return r.name
}

// OnChange registers a hook called with the new size after every mutation.
// It must be set before the registry is shared.
func (r *Registry) OnChange(fn func(name string, n int)) {
	r.onChange = fn
}

// TryAdd reserves id. It returns false if id is already present.
func (r *Registry) TryAdd(id int64) bool {
	return r.TryAddAll(id)
}

// TryAddAll reserves every id or none of them.
func (r *Registry) TryAddAll(ids ...int64) bool {
	r.mu.Lock()
	for _, id := range ids {
		if _, ok := r.members[id]; ok {
			r.mu.Unlock()
			return false
		}
	}
	for _, id := range ids {
		r.members[id] = struct{}{}
	}
	n := len(r.members)
	r.mu.Unlock()

	r.changed(n)
	return true
}

// Remove releases ids. Absent ids are ignored.
func (r *Registry) Remove(ids ...int64) {
	r.mu.Lock()
	for _, id := range ids {
		delete(r.members, id)
	}
	n := len(r.members)
	r.mu.Unlock()

	r.changed(n)
}

// Contains reports whether id holds a slot.
func (r *Registry) Contains(id int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.members[id]
	return ok
}

// Len returns the number of members.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *Registry) changed(n int) {
	if r.onChange != nil {
		r.onChange(r.name, n)
	}
}
