package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/internal/editor"
	"github.com/rendis/flowcanvas/internal/layout"
	"github.com/rendis/flowcanvas/internal/state"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// --- Helper ---

func newTestServer(t *testing.T) *FlowcanvasServer {
	t.Helper()
	ed, err := editor.New(editor.Deps{
		Integrations: state.NewIntegrationStore(),
		Graph:        state.NewGraphStore(diagram.DirectionRight),
		Engine:       layout.NewLayeredEngine(),
	})
	require.NoError(t, err)
	ed.Start(context.Background())
	t.Cleanup(ed.Close)
	return NewFlowcanvasServer(ServerDeps{Editor: ed})
}

func buildRequest(toolName string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	}
}

func addStep(t *testing.T, s *FlowcanvasServer, step map[string]any) stepMatch {
	t.Helper()
	result, err := s.handleAddStep(context.Background(), buildRequest("flowcanvas.add_step", map[string]any{"step": step}))
	require.NoError(t, err)
	require.False(t, result.IsError, extractText(t, result))
	var m stepMatch
	unmarshalResult(t, result, &m)
	return m
}

func seedFlow(t *testing.T, s *FlowcanvasServer) {
	t.Helper()
	addStep(t, s, map[string]any{"name": "timer-source", "type": "START", "kind": "Kamelet"})
	addStep(t, s, map[string]any{
		"name": "choice", "type": "MIDDLE", "kind": "EIP",
		"minBranches": float64(1), "maxBranches": float64(-1),
		"branches": []any{},
	})
	addStep(t, s, map[string]any{"name": "kafka-sink", "type": "END", "kind": "Kamelet"})
}

// --- Tests ---

func TestAddStepTool(t *testing.T) {
	s := newTestServer(t)

	m := addStep(t, s, map[string]any{
		"name": "kafka-sink",
		"type": "END",
		"parameters": []any{
			map[string]any{"id": "topic", "type": "string", "value": "orders"},
		},
	})
	assert.Equal(t, "steps[0]", m.Address)
	assert.Equal(t, "kafka-sink0", m.Step.UUID)
	require.Len(t, m.Step.Parameters, 1)
	assert.Equal(t, "orders", m.Step.Parameters[0].Value)
}

func TestAddStepToolPadsBranches(t *testing.T) {
	s := newTestServer(t)
	seedFlow(t, s)

	choice := s.editor.Integrations().Steps()[1]
	require.Len(t, choice.Branches, 1)
	assert.Equal(t, -1, choice.MaxBranches)
}

func TestAddStepToolAtAddress(t *testing.T) {
	s := newTestServer(t)
	seedFlow(t, s)

	result, err := s.handleAddStep(context.Background(), buildRequest("flowcanvas.add_step", map[string]any{
		"step":    map[string]any{"name": "log", "type": "MIDDLE"},
		"address": "steps[1].branches[0].steps[0]",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var m stepMatch
	unmarshalResult(t, result, &m)
	assert.Equal(t, "choice1|0|log0", m.Step.UUID)
}

func TestAddStepToolErrors(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing step", map[string]any{}},
		{"step not an object", map[string]any{"step": "log"}},
		{"missing name", map[string]any{"step": map[string]any{"type": "MIDDLE"}}},
		{"unknown field", map[string]any{"step": map[string]any{"name": "log", "colour": "red"}}},
		{"bad address", map[string]any{"step": map[string]any{"name": "log"}, "address": "somewhere"}},
		{"address out of range", map[string]any{"step": map[string]any{"name": "log"}, "address": "steps[4].branches[0].steps[0]"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := s.handleAddStep(context.Background(), buildRequest("flowcanvas.add_step", tc.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
	assert.Empty(t, s.editor.Integrations().Steps())
}

func TestReplaceStepTool(t *testing.T) {
	s := newTestServer(t)
	seedFlow(t, s)

	result, err := s.handleReplaceStep(context.Background(), buildRequest("flowcanvas.replace_step", map[string]any{
		"uuid": "kafka-sink2",
		"step": map[string]any{"name": "log-sink", "type": "END"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var m stepMatch
	unmarshalResult(t, result, &m)
	assert.Equal(t, "steps[2]", m.Address)
	assert.Equal(t, "log-sink2", m.Step.UUID)

	result, err = s.handleReplaceStep(context.Background(), buildRequest("flowcanvas.replace_step", map[string]any{
		"uuid": "missing",
		"step": map[string]any{"name": "log"},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestReplaceNestedStepTool(t *testing.T) {
	s := newTestServer(t)
	seedFlow(t, s)
	_, err := s.handleAddStep(context.Background(), buildRequest("flowcanvas.add_step", map[string]any{
		"step":    map[string]any{"name": "log", "type": "MIDDLE"},
		"address": "steps[1].branches[0].steps[0]",
	}))
	require.NoError(t, err)

	result, err := s.handleReplaceStep(context.Background(), buildRequest("flowcanvas.replace_step", map[string]any{
		"uuid": "choice1|0|log0",
		"step": map[string]any{"name": "set-body", "type": "MIDDLE"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	nested := s.editor.Integrations().Steps()[1].Branches[0].Steps
	require.Len(t, nested, 1)
	assert.Equal(t, "choice1|0|set-body0", nested[0].UUID)
}

func TestDeleteStepTool(t *testing.T) {
	s := newTestServer(t)
	seedFlow(t, s)

	result, err := s.handleDeleteStep(context.Background(), buildRequest("flowcanvas.delete_step", map[string]any{"uuid": "timer-source0"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var body map[string]any
	unmarshalResult(t, result, &body)
	assert.Equal(t, float64(2), body["steps"])

	result, err = s.handleDeleteStep(context.Background(), buildRequest("flowcanvas.delete_step", map[string]any{"uuid": "timer-source0"}))
	require.NoError(t, err)
	assert.True(t, result.IsError, "stale uuid")

	result, err = s.handleDeleteStep(context.Background(), buildRequest("flowcanvas.delete_step", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGetIntegrationTool(t *testing.T) {
	s := newTestServer(t)
	seedFlow(t, s)

	result, err := s.handleGetIntegration(context.Background(), buildRequest("flowcanvas.get_integration", nil))
	require.NoError(t, err)

	var in schema.Integration
	unmarshalResult(t, result, &in)
	assert.Equal(t, schema.DefaultIntegrationName, in.Metadata.Name)
	assert.Len(t, in.Steps, 3)
}

func TestGetGraphTool(t *testing.T) {
	s := newTestServer(t)
	seedFlow(t, s)

	result, err := s.handleGetGraph(context.Background(), buildRequest("flowcanvas.get_graph", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var g graphResult
	unmarshalResult(t, result, &g)
	assert.Equal(t, diagram.DirectionRight, g.Direction)
	// 3 steps, the choice group and one branch placeholder.
	assert.Len(t, g.Nodes, 5)
	assert.Len(t, g.Affordances, 3)

	result, err = s.handleGetGraph(context.Background(), buildRequest("flowcanvas.get_graph", map[string]any{"format": "mermaid"}))
	require.NoError(t, err)
	text := extractText(t, result)
	assert.True(t, strings.HasPrefix(text, "graph LR"))
	assert.Contains(t, text, "subgraph")

	result, err = s.handleGetGraph(context.Background(), buildRequest("flowcanvas.get_graph", map[string]any{"format": "png"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestSearchStepsTool(t *testing.T) {
	s := newTestServer(t)
	seedFlow(t, s)

	result, err := s.handleSearchSteps(context.Background(), buildRequest("flowcanvas.search_steps", map[string]any{
		"query": `.kind == "Kamelet"`,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var matches []stepMatch
	unmarshalResult(t, result, &matches)
	require.Len(t, matches, 2)
	assert.Equal(t, "steps[0]", matches[0].Address)
	assert.Equal(t, "steps[2]", matches[1].Address)

	result, err = s.handleSearchSteps(context.Background(), buildRequest("flowcanvas.search_steps", map[string]any{"query": ".name |||"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGetSourceTool(t *testing.T) {
	s := newTestServer(t)
	seedFlow(t, s)

	result, err := s.handleGetSource(context.Background(), buildRequest("flowcanvas.get_source", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := extractText(t, result)
	assert.Contains(t, text, "name: timer-source")
	assert.Contains(t, text, "dsl: KameletBinding")
}

// --- Test helpers ---

func extractText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	return mcp.GetTextFromContent(result.Content[0])
}

func unmarshalResult(t *testing.T, result *mcp.CallToolResult, target any) {
	t.Helper()
	text := extractText(t, result)
	require.NoError(t, json.Unmarshal([]byte(text), target))
}
