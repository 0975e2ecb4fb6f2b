package coordinator

import (
	"sort"
	"time"

	"github.com/danmuck/readyctl/internal/protocol"
)

// ConnID is the transport-assigned identifier of one live connection.
type ConnID string

// Connection is the registry's view of one live connection.
type Connection struct {
	ID          ConnID
	Peer        Peer
	Role        protocol.Role
	ConnectedAt time.Time
}

// Registry tracks live connections and the currently registered host.
// It is owned by the coordinator loop and is not safe for concurrent use.
type Registry struct {
	conns map[ConnID]*Connection
	host  ConnID
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[ConnID]*Connection)}
}

// Add tracks a new connection with unknown role.
func (r *Registry) Add(id ConnID, peer Peer) {
	r.conns[id] = &Connection{
		ID:          id,
		Peer:        peer,
		Role:        protocol.RoleUnknown,
		ConnectedAt: time.Now(),
	}
}

// Remove forgets a connection and reports whether it was the registered host.
func (r *Registry) Remove(id ConnID) bool {
	delete(r.conns, id)
	if r.host != "" && r.host == id {
		r.host = ""
		return true
	}
	return false
}

func (r *Registry) Lookup(id ConnID) (*Connection, bool) {
	conn, ok := r.conns[id]
	return conn, ok
}

// SetHost replaces the registered host unconditionally. Unknown ids are rejected.
// The previous host connection stays open; it is just no longer addressable.
func (r *Registry) SetHost(id ConnID) (previous ConnID, ok bool) {
	conn, known := r.conns[id]
	if !known {
		return "", false
	}
	previous = r.host
	r.host = id
	conn.Role = protocol.RoleHost
	return previous, true
}

// Host returns the registered host connection, if any.
func (r *Registry) Host() (*Connection, bool) {
	if r.host == "" {
		return nil, false
	}
	conn, ok := r.conns[r.host]
	return conn, ok
}

func (r *Registry) HostID() (ConnID, bool) {
	return r.host, r.host != ""
}

// ObserveRole records the role a connection declared through a ready event.
// A registered host keeps its host role.
func (r *Registry) ObserveRole(id ConnID, role protocol.Role) {
	conn, ok := r.conns[id]
	if !ok || !role.Valid() {
		return
	}
	if id == r.host {
		return
	}
	conn.Role = role
}

func (r *Registry) Len() int {
	return len(r.conns)
}

// Peers returns every live peer ordered by connect time, then id.
func (r *Registry) Peers() []Peer {
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	sort.Slice(conns, func(i, j int) bool {
		if !conns[i].ConnectedAt.Equal(conns[j].ConnectedAt) {
			return conns[i].ConnectedAt.Before(conns[j].ConnectedAt)
		}
		return conns[i].ID < conns[j].ID
	})
	out := make([]Peer, 0, len(conns))
	for _, conn := range conns {
		out = append(out, conn.Peer)
	}
	return out
}
