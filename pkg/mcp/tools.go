package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/internal/logging"
	"github.com/rendis/flowcanvas/internal/steps"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// graphResult is the JSON form of flowcanvas.get_graph.
type graphResult struct {
	Direction   diagram.Direction    `json:"direction"`
	Nodes       []diagram.Node       `json:"nodes"`
	Edges       []diagram.Edge       `json:"edges"`
	Affordances []diagram.Affordance `json:"affordances"`
}

type stepMatch struct {
	Address string      `json:"address"`
	Step    schema.Step `json:"step"`
}

// handleGetIntegration returns the current integration.
func (s *FlowcanvasServer) handleGetIntegration(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return marshalResult(s.editor.Integrations().Integration())
}

// handleAddStep appends a step, or inserts it before address.
func (s *FlowcanvasServer) handleAddStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	step, err := decodeStep(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.captureClient(ctx, req)

	store := s.editor.Integrations()
	if raw := req.GetString("address", ""); raw != "" {
		addr, addrErr := schema.ParseAddress(raw)
		if addrErr != nil {
			return mcp.NewToolResultError(addrErr.Error()), nil
		}
		if err := store.InsertStepAt(step, addr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("add step failed: %v", err)), nil
		}
		added, _ := steps.StepAt(store.Steps(), addr)
		return marshalResult(stepMatch{Address: addr.String(), Step: added})
	}

	if err := store.AddStep(step); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("add step failed: %v", err)), nil
	}
	list := store.Steps()
	addr := schema.StepAddress{Index: len(list) - 1}
	return marshalResult(stepMatch{Address: addr.String(), Step: list[addr.Index]})
}

// handleReplaceStep overwrites the step with uuid at any depth.
func (s *FlowcanvasServer) handleReplaceStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, err := req.RequireString("uuid")
	if err != nil {
		return mcp.NewToolResultError("uuid is required"), nil
	}
	step, err := decodeStep(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	s.captureClient(ctx, req)

	store := s.editor.Integrations()
	addr, ok := steps.Locate(uuid, store.Steps())
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("step %q not found", uuid)), nil
	}
	if addr.IsRoot() {
		err = store.ReplaceStep(step, &addr.Index)
	} else {
		err = store.ReplaceStepAt(step, addr)
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("replace step failed: %v", err)), nil
	}
	replaced, _ := steps.StepAt(store.Steps(), addr)
	return marshalResult(stepMatch{Address: addr.String(), Step: replaced})
}

// handleDeleteStep removes the step with uuid. Unknown UUIDs are reported
// as errors so that a client notices a stale id.
func (s *FlowcanvasServer) handleDeleteStep(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	uuid, err := req.RequireString("uuid")
	if err != nil {
		return mcp.NewToolResultError("uuid is required"), nil
	}
	s.captureClient(ctx, req)

	if _, ok := steps.Locate(uuid, s.editor.Integrations().Steps()); !ok {
		return mcp.NewToolResultError(fmt.Sprintf("step %q not found", uuid)), nil
	}
	if err := s.editor.DeleteStep(uuid); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("delete step failed: %v", err)), nil
	}
	return marshalResult(map[string]any{
		"ok":    true,
		"uuid":  uuid,
		"steps": len(s.editor.Integrations().Steps()),
	})
}

// handleGetGraph returns the committed graph. Pending layouts are awaited
// first so that the result reflects the latest mutation.
func (s *FlowcanvasServer) handleGetGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := req.GetString("format", "json")
	if format != "json" && format != "mermaid" {
		return mcp.NewToolResultError("format must be json or mermaid"), nil
	}

	s.editor.Wait()
	gs := s.editor.GraphStore()
	g := gs.Snapshot()

	if format == "mermaid" {
		return mcp.NewToolResultText(diagram.RenderMermaid(g, gs.Direction())), nil
	}
	return marshalResult(graphResult{
		Direction:   gs.Direction(),
		Nodes:       g.Nodes,
		Edges:       g.Edges,
		Affordances: diagram.GraphAffordances(g),
	})
}

// handleSearchSteps runs a jq filter against every step.
func (s *FlowcanvasServer) handleSearchSteps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("query is required"), nil
	}
	matches, err := steps.Search(ctx, s.jq, s.editor.Integrations().Steps(), query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}
	out := make([]stepMatch, len(matches))
	for i, m := range matches {
		out[i] = stepMatch{Address: m.Address.String(), Step: m.Step}
	}
	return marshalResult(out)
}

func (s *FlowcanvasServer) handleGetSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	src, err := s.source.FetchIntegrationSourceCode(ctx, s.editor.Integrations().Integration())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("render source failed: %v", err)), nil
	}
	return mcp.NewToolResultText(src), nil
}

// decodeStep converts the "step" argument into a schema.Step. Keys follow
// the JSON field names; unknown keys are rejected.
func decodeStep(req mcp.CallToolRequest) (schema.Step, error) {
	raw, ok := req.GetArguments()["step"].(map[string]any)
	if !ok {
		return schema.Step{}, fmt.Errorf("step must be an object")
	}

	var step schema.Step
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		ErrorUnused: true,
		Result:      &step,
	})
	if err != nil {
		return schema.Step{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return schema.Step{}, fmt.Errorf("invalid step: %v", err)
	}
	if step.Name == "" {
		return schema.Step{}, fmt.Errorf("step name is required")
	}
	return step, nil
}

// captureClient maps the client_id argument to the current MCP session for
// notifications.
func (s *FlowcanvasServer) captureClient(ctx context.Context, req mcp.CallToolRequest) {
	clientID := req.GetString("client_id", "")
	if clientID == "" {
		return
	}
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.sessions.Register(clientID, session.SessionID())
		logging.LogWith(logging.WithClient(ctx, clientID), s.logger).Debug("client session registered",
			"session", session.SessionID())
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
