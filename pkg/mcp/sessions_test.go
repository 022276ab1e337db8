package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionRegistryLookup(t *testing.T) {
	r := NewSessionRegistry()
	assert.Empty(t, r.Clients())

	r.Register("agent-b", "session-1")
	r.Register("agent-a", "session-2")

	sid, ok := r.SessionFor("agent-a")
	assert.True(t, ok)
	assert.Equal(t, "session-2", sid)

	_, ok = r.SessionFor("agent-z")
	assert.False(t, ok)
	assert.Equal(t, []string{"agent-a", "agent-b"}, r.Clients())
}

func TestSessionRegistryReconnect(t *testing.T) {
	r := NewSessionRegistry()
	r.Register("agent", "session-old")
	r.Register("agent", "session-new")

	sid, _ := r.SessionFor("agent")
	assert.Equal(t, "session-new", sid)

	// The old session no longer owns the client.
	assert.Empty(t, r.Forget("session-old"))
	_, ok := r.SessionFor("agent")
	assert.True(t, ok)
}

func TestSessionRegistryForget(t *testing.T) {
	r := NewSessionRegistry()
	r.Register("agent-2", "session-shared")
	r.Register("agent-1", "session-shared")
	r.Register("agent-3", "session-own")

	assert.Equal(t, []string{"agent-1", "agent-2"}, r.Forget("session-shared"))
	assert.Equal(t, []string{"agent-3"}, r.Clients())
	assert.Empty(t, r.Forget("session-shared"))
}
