package steps

import (
	"context"
	"encoding/json"

	"github.com/rendis/flowcanvas/internal/expressions"
	"github.com/rendis/flowcanvas/pkg/schema"
)

// Match is a search hit with its address in the tree.
type Match struct {
	Address schema.StepAddress `json:"address"`
	Step    schema.Step        `json:"step"`
}

// Search runs a jq filter against the JSON form of every step in Flatten
// order. A step matches when the filter produces at least one output that
// is neither null nor false, so both `.kind == "EIP"` and
// `select(.name | startswith("log"))` work.
func Search(ctx context.Context, jq *expressions.GoJQEngine, list []schema.Step, filter string) ([]Match, error) {
	if err := jq.Check(filter); err != nil {
		return nil, err
	}

	var matches []Match
	for addr, s := range FlattenWithAddress(list) {
		doc, err := Document(s)
		if err != nil {
			return nil, err
		}
		hit, err := jq.Any(ctx, filter, doc)
		if err != nil {
			return nil, err
		}
		if hit {
			matches = append(matches, Match{Address: addr, Step: s})
		}
	}
	return matches, nil
}

// Document converts a step to the map form expression engines expect. Branch contents
// are dropped so that a filter only sees the step it is applied to.
func Document(s schema.Step) (map[string]any, error) {
	shallow := s
	if shallow.Branches != nil {
		shallow.Branches = make([]schema.Branch, len(s.Branches))
		for i, b := range s.Branches {
			shallow.Branches[i] = schema.Branch{Identifier: b.Identifier, Condition: b.Condition, Steps: []schema.Step{}}
		}
	}
	data, err := json.Marshal(shallow)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
