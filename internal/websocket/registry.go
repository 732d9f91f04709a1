package websocket

import (
	"encoding/json"
	"log"
	"sync"

	"focushub/pkg/types"
)

// Registry tracks live connections and their room membership, and is the
// delivery side of the transport: emit-to-one and emit-to-room multicast.
// Pure connection bookkeeping, no session semantics.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]*Connection            // connID -> Connection
	rooms       map[string]map[string]*Connection // roomCode -> connID -> Connection
	memberships map[string]string                 // connID -> roomCode
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{
		connections: make(map[string]*Connection),
		rooms:       make(map[string]map[string]*Connection),
		memberships: make(map[string]string),
	}
}

// Register adds a connection to the global map.
func (r *Registry) Register(conn *Connection) error {
	if conn == nil {
		return ErrNilConnection
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[conn.ID()] = conn
	return nil
}

// Unregister removes a connection from the global map and from any room
// it joined. Idempotent, and only removes the exact instance registered
// so a stale cleanup cannot evict a replacement.
func (r *Registry) Unregister(conn *Connection) {
	if conn == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	connID := conn.ID()
	registered, exists := r.connections[connID]
	if !exists || registered != conn {
		return
	}

	delete(r.connections, connID)
	r.leaveRoomLocked(connID)
}

// Get returns the connection for an id.
func (r *Registry) Get(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, exists := r.connections[connID]
	return conn, exists
}

// JoinRoom adds a connection to a room's multicast group. A connection
// belongs to at most one room; joining another leaves the previous one.
func (r *Registry) JoinRoom(connID, roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, exists := r.connections[connID]
	if !exists {
		return
	}

	r.leaveRoomLocked(connID)

	if r.rooms[roomCode] == nil {
		r.rooms[roomCode] = make(map[string]*Connection)
	}
	r.rooms[roomCode][connID] = conn
	r.memberships[connID] = roomCode
}

// LeaveRoom removes a connection from a room's multicast group. Safe to
// call when the connection is not a member.
func (r *Registry) LeaveRoom(connID, roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.memberships[connID] != roomCode {
		return
	}
	r.leaveRoomLocked(connID)
}

// leaveRoomLocked removes a connection from its current room and cleans
// up empty room maps. Caller holds the write lock.
func (r *Registry) leaveRoomLocked(connID string) {
	roomCode, member := r.memberships[connID]
	if !member {
		return
	}
	delete(r.memberships, connID)
	if members, exists := r.rooms[roomCode]; exists {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.rooms, roomCode)
		}
	}
}

// RoomConnections returns all connections in a room's multicast group.
func (r *Registry) RoomConnections(roomCode string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var conns []*Connection
	for _, conn := range r.rooms[roomCode] {
		conns = append(conns, conn)
	}
	return conns
}

// EmitTo delivers one event to one connection. Best effort: a missing or
// unreachable connection is logged and ignored.
func (r *Registry) EmitTo(connID, eventType string, payload interface{}) {
	conn, exists := r.Get(connID)
	if !exists {
		return
	}
	if err := conn.WriteEvent(eventType, payload); err != nil {
		log.Printf("Delivery failed: event=%s conn=%s err=%v", eventType, connID, err)
	}
}

// EmitToRoom multicasts one event to a room, optionally excluding one
// connection (typically the sender). The envelope is marshaled once; a
// failed delivery to one connection is logged and never blocks or aborts
// delivery to the others.
func (r *Registry) EmitToRoom(roomCode, eventType string, payload interface{}, excludeID string) {
	evt, err := types.NewEvent(eventType, payload)
	if err != nil {
		log.Printf("Broadcast marshal failed: event=%s room=%s err=%v", eventType, roomCode, err)
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("Broadcast marshal failed: event=%s room=%s err=%v", eventType, roomCode, err)
		return
	}

	failed := 0
	for _, conn := range r.RoomConnections(roomCode) {
		if conn.ID() == excludeID {
			continue
		}
		if err := conn.send(data); err != nil {
			failed++
			log.Printf("Delivery failed: event=%s room=%s conn=%s err=%v", eventType, roomCode, conn.ID(), err)
		}
	}
	if failed > 0 {
		log.Printf("Broadcast partial: event=%s room=%s failed=%d", eventType, roomCode, failed)
	}
}

// Stats returns connection counts for the health endpoint.
func (r *Registry) Stats() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return map[string]int{
		"total_connections": len(r.connections),
		"active_rooms":      len(r.rooms),
	}
}
