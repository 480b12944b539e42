package main

import (
	mrand "math/rand"
	"sync"
)

const maxSpaces = 100

// SpaceRegistry creates and looks up spaces by id. Spaces live for the
// rest of the process; there is no deletion path.
type SpaceRegistry struct {
	mu        sync.RWMutex
	spaces    map[string]*Space
	analytics *Analytics
}

// NewSpaceRegistry creates an empty registry
func NewSpaceRegistry(analytics *Analytics) *SpaceRegistry {
	return &SpaceRegistry{
		spaces:    make(map[string]*Space),
		analytics: analytics,
	}
}

// Create registers a new space. Fails if the id is taken or the
// process-wide cap is reached.
func (r *SpaceRegistry) Create(id, name string) (*Space, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.spaces[id]; ok {
		return nil, ErrSpaceExists
	}
	if len(r.spaces) >= maxSpaces {
		return nil, ErrTooManySpaces
	}
	s := NewSpace(id, name, r.analytics)
	r.spaces[id] = s
	return s, nil
}

// Get returns a space by id, or nil
func (r *SpaceRegistry) Get(id string) *Space {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.spaces[id]
}

// Random returns a uniformly random existing space id
func (r *SpaceRegistry) Random() (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.spaces) == 0 {
		return "", false
	}
	n := mrand.Intn(len(r.spaces))
	for id := range r.spaces {
		if n == 0 {
			return id, true
		}
		n--
	}
	return "", false
}

// Count returns the number of spaces
func (r *SpaceRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.spaces)
}

// GroupCount sums live proximity groups across all spaces
func (r *SpaceRegistry) GroupCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, s := range r.spaces {
		total += s.Engine().GroupCount()
	}
	return total
}
