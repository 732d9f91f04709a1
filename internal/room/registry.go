package room

import (
	"log"
	"sync"
)

// Registry is the process-wide room table. A code is present iff its room
// currently has at least one participant: rooms are created lazily on
// first join and deleted synchronously on last leave, never persisted
// empty. The registry is an injected service object with an explicit
// lifecycle, not a package-level singleton, so it can be swapped for a
// partitioned implementation later.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]*Room
	settings Settings
	expire   func(code string, generation uint64)
}

// NewRegistry creates an empty registry with shared scoring settings.
func NewRegistry(settings Settings) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		settings: settings,
	}
}

// SetTimerExpireFunc installs the callback invoked when a room's
// scheduled countdown elapses. Wired once during assembly, before any
// traffic, to break the construction cycle with the event loop.
func (r *Registry) SetTimerExpireFunc(fn func(code string, generation uint64)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expire = fn
}

// GetOrCreate returns the room for code, creating it on first join.
func (r *Registry) GetOrCreate(code string) *Room {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm, exists := r.rooms[code]; exists {
		return rm
	}

	rm := newRoom(code, r.settings, r.expire)
	r.rooms[code] = rm
	log.Printf("Room created: code=%s", code)
	return rm
}

// Get returns the room for code. A miss is a normal condition, not an
// error; callers no-op on stale references.
func (r *Registry) Get(code string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, exists := r.rooms[code]
	return rm, exists
}

// Delete removes a room and cancels any outstanding timer completion so
// nothing fires for a destroyed room. Safe to call on an absent code.
func (r *Registry) Delete(code string) {
	r.mu.Lock()
	rm, exists := r.rooms[code]
	if exists {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	if exists {
		rm.shutdown()
		log.Printf("Room deleted: code=%s", code)
	}
}

// Rooms returns a point-in-time slice of all rooms for iteration outside
// the registry lock.
func (r *Registry) Rooms() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rooms := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		rooms = append(rooms, rm)
	}
	return rooms
}

// Count returns the number of occupied rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
