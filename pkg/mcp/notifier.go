package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/rendis/flowcanvas/internal/streaming"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// ClientNotifier pushes notifications to connected clients.
type ClientNotifier interface {
	Notify(ctx context.Context, clientID string, payload map[string]any) error
}

// sender is the part of server.MCPServer the notifier uses.
type sender interface {
	SendNotificationToSpecificClient(sessionID, method string, params map[string]any) error
}

// MCPNotifier implements ClientNotifier using MCP session push.
type MCPNotifier struct {
	sender   sender
	sessions *SessionRegistry
}

// NewMCPNotifier creates a notifier that pushes via MCP.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry) *MCPNotifier {
	return &MCPNotifier{sender: mcpServer, sessions: sessions}
}

// Notify sends a notification to the client's session.
// Best-effort: returns nil if the client is not connected.
func (n *MCPNotifier) Notify(_ context.Context, clientID string, payload map[string]any) error {
	sessionID, ok := n.sessions.SessionFor(clientID)
	if !ok {
		return nil // client not connected, best-effort
	}
	err := n.sender.SendNotificationToSpecificClient(sessionID, "notifications/message", payload)
	if errors.Is(err, server.ErrSessionNotFound) {
		// Session expired between lookup and send; not an error.
		n.sessions.Forget(sessionID)
		return nil
	}
	return err
}

// Forward relays integration and graph events from hub to every registered
// client until ctx is cancelled.
func (n *MCPNotifier) Forward(ctx context.Context, hub streaming.EventHub, logger *slog.Logger) error {
	ch, cancel, err := hub.Subscribe(ctx, streaming.EventFilter{
		EventTypes: []string{
			schema.EventIntegrationChanged,
			schema.EventIntegrationDeleted,
			schema.EventGraphCommitted,
		},
	})
	if err != nil {
		return err
	}
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			payload := map[string]any{
				"level":  "info",
				"logger": "flowcanvas",
				"data": map[string]any{
					"event":       ev.EventType,
					"integration": ev.Integration,
					"payload":     ev.Payload,
				},
			}
			for _, id := range n.sessions.Clients() {
				if err := n.Notify(ctx, id, payload); err != nil {
					logger.Debug("notify client failed", "client_id", id, "error", err)
				}
			}
		}
	}
}
