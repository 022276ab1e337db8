package schema

import "gopkg.in/yaml.v3"

// StepType is the position a step may take in a flow.
type StepType string

const (
	StepTypeStart  StepType = "START"
	StepTypeMiddle StepType = "MIDDLE"
	StepTypeEnd    StepType = "END"
)

// Default values of the empty integration template.
const (
	DefaultIntegrationName = "integration"
	DefaultDSL             = "KameletBinding"
	DefaultNamespace       = "default"
)

// Integration is the root owner of the step tree.
type Integration struct {
	Metadata Metadata    `json:"metadata" yaml:"metadata"`
	Steps    []Step      `json:"steps" yaml:"steps"`
	Params   []Parameter `json:"params" yaml:"params"`
}

// Metadata identifies an integration and the DSL it is rendered to.
type Metadata struct {
	Name      string `json:"name" yaml:"name"`
	DSL       string `json:"dsl" yaml:"dsl"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// Step is one unit of integration logic. A step with a non-nil Branches
// slice is branch-capable; MaxBranches < 0 means unbounded.
type Step struct {
	UUID        string      `json:"UUID" yaml:"uuid,omitempty"`
	Name        string      `json:"name" yaml:"name"`
	Type        StepType    `json:"type" yaml:"type"`
	Kind        string      `json:"kind,omitempty" yaml:"kind,omitempty"`
	Icon        string      `json:"icon,omitempty" yaml:"icon,omitempty"`
	Title       string      `json:"title,omitempty" yaml:"title,omitempty"`
	Description string      `json:"description,omitempty" yaml:"description,omitempty"`
	MinBranches int         `json:"minBranches" yaml:"minBranches,omitempty"`
	MaxBranches int         `json:"maxBranches" yaml:"maxBranches,omitempty"`
	Branches    []Branch    `json:"branches,omitzero" yaml:"branches,omitempty"`
	Parameters  []Parameter `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Branch is an ordered sub-sequence of steps nested inside a branch-capable step.
type Branch struct {
	Identifier string `json:"identifier" yaml:"identifier"`
	Condition  string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Steps      []Step `json:"steps" yaml:"steps"`
}

// Parameter is a configurable value of a step or an integration.
type Parameter struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	Type         string `json:"type,omitempty" yaml:"type,omitempty"`
	Path         bool   `json:"path,omitempty" yaml:"path,omitempty"`
	Value        any    `json:"value,omitempty" yaml:"value,omitempty"`
	DefaultValue any    `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
}

// View is a UI extension attached to a step (or to every step when generic).
type View struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	Step       string `json:"step,omitempty" yaml:"step,omitempty"`
	URL        string `json:"url,omitempty" yaml:"url,omitempty"`
	Module     string `json:"module,omitempty" yaml:"module,omitempty"`
	Scope      string `json:"scope,omitempty" yaml:"scope,omitempty"`
	Constraint string `json:"constraint,omitempty" yaml:"constraint,omitempty"`
}

// View types.
const (
	ViewTypeGeneric = "generic"
	ViewTypeStep    = "step"
)

// NewIntegration returns the fixed empty template every editing session starts from.
func NewIntegration() *Integration {
	return &Integration{
		Metadata: Metadata{
			Name:      DefaultIntegrationName,
			DSL:       DefaultDSL,
			Namespace: DefaultNamespace,
		},
		Steps:  []Step{},
		Params: []Parameter{},
	}
}

// Role is the tagged capability of a step.
type Role int

const (
	RoleAction Role = iota
	RoleSource
	RoleSink
	RoleBranching
)

func (r Role) String() string {
	switch r {
	case RoleSource:
		return "source"
	case RoleSink:
		return "sink"
	case RoleBranching:
		return "branching"
	default:
		return "action"
	}
}

// Role classifies the step. Branching wins over the positional type so that
// a branch-capable END step still exposes its branch slots.
func (s *Step) Role() Role {
	if s.SupportsBranching() {
		return RoleBranching
	}
	switch s.Type {
	case StepTypeStart:
		return RoleSource
	case StepTypeEnd:
		return RoleSink
	default:
		return RoleAction
	}
}

// IsBranchCapable reports whether the step carries a branches array at all.
func (s *Step) IsBranchCapable() bool {
	return s.Branches != nil
}

// SupportsBranching reports whether branch UI is shown: a branches array is
// present and MaxBranches is not zero.
func (s *Step) SupportsBranching() bool {
	return s.Branches != nil && s.MaxBranches != 0
}

// CanAddBranch reports whether one more branch fits within MaxBranches.
func (s *Step) CanAddBranch() bool {
	if !s.SupportsBranching() {
		return false
	}
	return s.MaxBranches < 0 || len(s.Branches) < s.MaxBranches
}

// MarshalYAML writes an empty, non-nil Branches as "branches: []" so the
// step is still branch-capable when read back. A nil Branches is omitted.
func (s Step) MarshalYAML() (any, error) {
	type plain Step
	var node yaml.Node
	if err := node.Encode(plain(s)); err != nil {
		return nil, err
	}
	if s.Branches != nil && len(s.Branches) == 0 {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "branches"},
			&yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: yaml.FlowStyle},
		)
	}
	return &node, nil
}

// HasBranchSteps reports whether at least one branch contains a step.
func (s *Step) HasBranchSteps() bool {
	for _, b := range s.Branches {
		if len(b.Steps) > 0 {
			return true
		}
	}
	return false
}

// IsEnd reports whether the step terminates a flow.
func (s *Step) IsEnd() bool {
	return s.Type == StepTypeEnd
}

// ParamIndex returns the index of the parameter with the given id, or -1.
func (s *Step) ParamIndex(id string) int {
	for i, p := range s.Parameters {
		if p.ID == id {
			return i
		}
	}
	return -1
}
