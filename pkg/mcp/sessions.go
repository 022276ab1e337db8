package mcp

import (
	"maps"
	"slices"
	"sync"
)

// SessionRegistry tracks which MCP session each client_id last called a tool
// from. A session may carry several clients; a client has one session, the
// most recent.
type SessionRegistry struct {
	mu        sync.RWMutex
	byClient  map[string]string
	bySession map[string]map[string]struct{}
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byClient:  make(map[string]string),
		bySession: make(map[string]map[string]struct{}),
	}
}

// Register binds clientID to sessionID, moving it off any earlier session.
func (r *SessionRegistry) Register(clientID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.byClient[clientID]; ok {
		r.unlink(clientID, old)
	}
	r.byClient[clientID] = sessionID
	if r.bySession[sessionID] == nil {
		r.bySession[sessionID] = make(map[string]struct{})
	}
	r.bySession[sessionID][clientID] = struct{}{}
}

func (r *SessionRegistry) SessionFor(clientID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.byClient[clientID]
	return sid, ok
}

// Clients returns every registered client ID, sorted.
func (r *SessionRegistry) Clients() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.byClient))
}

// Forget drops a closed session and returns the clients it carried, sorted.
func (r *SessionRegistry) Forget(sessionID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	clients := slices.Sorted(maps.Keys(r.bySession[sessionID]))
	for _, cid := range clients {
		delete(r.byClient, cid)
	}
	delete(r.bySession, sessionID)
	return clients
}

func (r *SessionRegistry) unlink(clientID, sessionID string) {
	set := r.bySession[sessionID]
	delete(set, clientID)
	if len(set) == 0 {
		delete(r.bySession, sessionID)
	}
}
