// internal/lobby/registry.go
package lobby

import "sync"

// Registry is the process-local index of live connections for one lobby,
// keyed by participant id. It only knows about sockets opened against this
// process: participants connected to another process (or currently
// disconnected) simply have no entry, and sends to them are silent no-ops.
// That makes the registry the system's scale-out boundary; cross-process
// fan-out needs lobby-affine routing or a message bus on top.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Conn
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Put registers the connection for a participant, replacing any previous one.
func (r *Registry) Put(participantID string, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[participantID] = conn
}

// Remove drops the participant's connection entry, if any.
func (r *Registry) Remove(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, participantID)
}

// Get returns the participant's live connection, if registered here.
func (r *Registry) Get(participantID string) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[participantID]
	return conn, ok
}

// Send delivers to one participant. No-op when they have no connection on
// this process.
func (r *Registry) Send(participantID string, m Message) {
	if conn, ok := r.Get(participantID); ok {
		conn.Send(m)
	}
}

// Broadcast delivers to every connection registered here.
func (r *Registry) Broadcast(m Message) {
	for _, conn := range r.snapshot() {
		conn.Send(m)
	}
}

// DisconnectAll force-closes every registered connection.
func (r *Registry) DisconnectAll() {
	for _, conn := range r.snapshot() {
		conn.Disconnect()
	}
}

// Len reports the number of registered connections.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// snapshot copies the connection list so callbacks triggered by Send or
// Disconnect can re-enter the registry without deadlocking.
func (r *Registry) snapshot() []Conn {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := make([]Conn, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	return conns
}
