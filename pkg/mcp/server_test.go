package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerDefaults(t *testing.T) {
	s := NewFlowcanvasServer(ServerDeps{})
	require.NotNil(t, s.MCPServer())
	assert.NotNil(t, s.logger)
	assert.NotNil(t, s.source)
	assert.NotNil(t, s.Sessions())
}

func TestToolCatalog(t *testing.T) {
	s := NewFlowcanvasServer(ServerDeps{})
	require.Len(t, s.MCPServer().ListTools(), 7)

	// Required arguments per tool; client_id is always optional.
	want := map[string][]string{
		"flowcanvas.get_integration": nil,
		"flowcanvas.add_step":        {"step"},
		"flowcanvas.replace_step":    {"uuid", "step"},
		"flowcanvas.delete_step":     {"uuid"},
		"flowcanvas.get_graph":       nil,
		"flowcanvas.search_steps":    {"query"},
		"flowcanvas.get_source":      nil,
	}
	for name, required := range want {
		t.Run(name, func(t *testing.T) {
			tool := s.MCPServer().GetTool(name)
			require.NotNil(t, tool)
			assert.NotEmpty(t, tool.Tool.Description)
			assert.ElementsMatch(t, required, tool.Tool.InputSchema.Required)
			assert.NotContains(t, tool.Tool.InputSchema.Required, "client_id")
		})
	}
}
