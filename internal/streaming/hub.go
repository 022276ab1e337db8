package streaming

import (
	"context"
	"strings"
	"time"
)

// StreamEvent is a real-time editor event: an integration change, a graph
// commit, a discarded layout. Seq and At are stamped by the hub.
type StreamEvent struct {
	Seq         uint64    `json:"seq"`
	At          time.Time `json:"at"`
	Integration string    `json:"integration"`
	StepUUID    string    `json:"step_uuid,omitempty"`
	EventType   string    `json:"event_type"`
	Payload     any       `json:"payload,omitempty"`
}

// EventFilter narrows a subscription. An empty field matches everything.
// EventTypes entries ending in ".*" match a whole family, e.g. "layout.*".
type EventFilter struct {
	Integration string   `json:"integration,omitempty"`
	EventTypes  []string `json:"event_types,omitempty"`
}

// Matches reports whether e passes the filter.
func (f EventFilter) Matches(e StreamEvent) bool {
	if f.Integration != "" && f.Integration != e.Integration {
		return false
	}
	if len(f.EventTypes) == 0 {
		return true
	}
	for _, t := range f.EventTypes {
		if family, ok := strings.CutSuffix(t, ".*"); ok {
			if strings.HasPrefix(e.EventType, family+".") {
				return true
			}
			continue
		}
		if t == e.EventType {
			return true
		}
	}
	return false
}

// EventHub fans editor events out to subscribers. A subscription ends, and
// its channel closes, when ctx is done or cancel is called. cancel may be
// called more than once.
type EventHub interface {
	Publish(ctx context.Context, event StreamEvent) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan StreamEvent, func(), error)
}
