package diagram

import "github.com/rendis/flowcanvas/pkg/schema"

// Direction is the main axis the canvas lays steps out along.
type Direction string

const (
	DirectionRight Direction = "RIGHT"
	DirectionDown  Direction = "DOWN"
	DirectionLeft  Direction = "LEFT"
	DirectionUp    Direction = "UP"
)

// Valid reports whether d is one of the four known directions.
func (d Direction) Valid() bool {
	switch d {
	case DirectionRight, DirectionDown, DirectionLeft, DirectionUp:
		return true
	}
	return false
}

// Horizontal reports whether steps advance along the x axis.
func (d Direction) Horizontal() bool {
	return d == DirectionRight || d == DirectionLeft
}

// HandlePosition is the side of a node an edge attaches to.
type HandlePosition string

const (
	HandleTop    HandlePosition = "top"
	HandleRight  HandlePosition = "right"
	HandleBottom HandlePosition = "bottom"
	HandleLeft   HandlePosition = "left"
)

const (
	NodeTypeStep  = "step"
	NodeTypeGroup = "group"

	EdgeTypeDefault = "default"
	ArrowClosed     = "arrowclosed"
	MarkerArrow     = "arrow"

	PlaceholderLabel = "ADD A STEP"
	LabelMaxLen      = 14
	DefaultNodeSize  = 80.0

	// GroupPadding surrounds the members of a branch group container.
	GroupPadding = 20.0
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BranchInfo ties a node to the branch-capable step that owns it.
type BranchInfo struct {
	ParentUUID       string `json:"parentUuid"`
	ParentID         string `json:"parentId"`
	BranchIdentifier string `json:"branchIdentifier,omitempty"`
	BranchIndex      int    `json:"branchIndex"`
	// BranchStep marks nodes that are part of branch structure: group
	// containers and every node inside a branch. Root adjacency skips them.
	BranchStep bool `json:"branchStep"`
}

// NodeData is the payload a canvas needs to draw a node. It holds no
// callbacks; interactions are dispatched back by node id.
type NodeData struct {
	Kind          string             `json:"kind,omitempty"`
	Label         string             `json:"label"`
	Icon          string             `json:"icon,omitempty"`
	Step          schema.Step        `json:"step"`
	IsPlaceholder bool               `json:"isPlaceholder"`
	IsFirstStep   bool               `json:"isFirstStep,omitempty"`
	IsLastStep    bool               `json:"isLastStep,omitempty"`
	NextStepUUID  string             `json:"nextStepUuid,omitempty"`
	BranchInfo    *BranchInfo        `json:"branchInfo,omitempty"`
	Address       schema.StepAddress `json:"-"`
	Path          string             `json:"address"`
}

type Node struct {
	ID             string         `json:"id"`
	Type           string         `json:"type"`
	Position       Position       `json:"position"`
	Width          float64        `json:"width"`
	Height         float64        `json:"height"`
	Draggable      bool           `json:"draggable"`
	Selected       bool           `json:"selected,omitempty"`
	SourcePosition HandlePosition `json:"sourcePosition,omitempty"`
	TargetPosition HandlePosition `json:"targetPosition,omitempty"`
	Data           NodeData       `json:"data"`
}

// IsGroup reports whether n is a branch group container.
func (n Node) IsGroup() bool {
	return n.Type == NodeTypeGroup
}

// InBranch reports whether n belongs to branch structure.
func (n Node) InBranch() bool {
	return n.Data.BranchInfo != nil && n.Data.BranchInfo.BranchStep
}

type MarkerEnd struct {
	Type string `json:"type"`
}

type Edge struct {
	ID            string    `json:"id"`
	Source        string    `json:"source"`
	Target        string    `json:"target"`
	Type          string    `json:"type"`
	ArrowHeadType string    `json:"arrowHeadType"`
	MarkerEnd     MarkerEnd `json:"markerEnd"`
	Selected      bool      `json:"selected,omitempty"`
}

// Graph is the on-screen representation of an integration.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Clone returns a copy of g whose slices can be modified freely.
func (g Graph) Clone() Graph {
	out := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	copy(out.Nodes, g.Nodes)
	copy(out.Edges, g.Edges)
	for i := range out.Nodes {
		if bi := out.Nodes[i].Data.BranchInfo; bi != nil {
			cp := *bi
			out.Nodes[i].Data.BranchInfo = &cp
		}
	}
	return out
}

// NodeByID returns the index of the node with id, or -1.
func (g Graph) NodeByID(id string) int {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}
