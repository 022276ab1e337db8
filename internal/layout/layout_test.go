package layout

import (
	"context"
	"testing"

	"github.com/rendis/flowcanvas/internal/diagram"
	"github.com/rendis/flowcanvas/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Test graph builders ---

func linearGraph() diagram.Graph {
	return diagram.Build([]schema.Step{
		{UUID: "timer-source0", Name: "timer-source", Type: schema.StepTypeStart},
		{UUID: "log1", Name: "log", Type: schema.StepTypeMiddle},
		{UUID: "kafka-sink2", Name: "kafka-sink", Type: schema.StepTypeEnd},
	}, diagram.DirectionRight)
}

func branchGraph() diagram.Graph {
	return diagram.Build([]schema.Step{
		{UUID: "timer-source0", Name: "timer-source", Type: schema.StepTypeStart},
		{
			UUID: "choice1", Name: "choice", Type: schema.StepTypeMiddle, MaxBranches: -1,
			Branches: []schema.Branch{
				{Identifier: "when", Steps: []schema.Step{
					{UUID: "choice1|0|log0", Name: "log", Type: schema.StepTypeMiddle},
					{UUID: "choice1|0|set-body1", Name: "set-body", Type: schema.StepTypeMiddle},
				}},
				{Identifier: "otherwise", Steps: []schema.Step{}},
			},
		},
		{UUID: "kafka-sink2", Name: "kafka-sink", Type: schema.StepTypeEnd},
	}, diagram.DirectionRight)
}

func nodeAt(t *testing.T, g diagram.Graph, id string) diagram.Node {
	t.Helper()
	i := g.NodeByID(id)
	require.NotEqual(t, -1, i, id)
	return g.Nodes[i]
}

func overlaps(a, b diagram.Node) bool {
	return a.Position.X < b.Position.X+b.Width && b.Position.X < a.Position.X+a.Width &&
		a.Position.Y < b.Position.Y+b.Height && b.Position.Y < a.Position.Y+a.Height
}

func assertNoOverlap(t *testing.T, g diagram.Graph) {
	t.Helper()
	for i := range g.Nodes {
		for j := i + 1; j < len(g.Nodes); j++ {
			a, b := g.Nodes[i], g.Nodes[j]
			if a.IsGroup() || b.IsGroup() {
				continue
			}
			assert.False(t, overlaps(a, b), "%s overlaps %s", a.ID, b.ID)
		}
	}
}

func TestLayeredLinearRight(t *testing.T) {
	in := linearGraph()
	out, err := NewLayeredEngine().Layout(context.Background(), in, diagram.DirectionRight)
	require.NoError(t, err)

	a, b, c := out.Nodes[0], out.Nodes[1], out.Nodes[2]
	assert.Less(t, a.Position.X, b.Position.X)
	assert.Less(t, b.Position.X, c.Position.X)
	assert.Equal(t, a.Position.Y, b.Position.Y)

	// Input untouched.
	for _, n := range in.Nodes {
		assert.Equal(t, diagram.Position{}, n.Position)
	}
}

func TestLayeredDirections(t *testing.T) {
	tests := []struct {
		dir   diagram.Direction
		check func(a, b diagram.Position) bool
	}{
		{diagram.DirectionRight, func(a, b diagram.Position) bool { return a.X < b.X && a.Y == b.Y }},
		{diagram.DirectionLeft, func(a, b diagram.Position) bool { return a.X > b.X && a.Y == b.Y }},
		{diagram.DirectionDown, func(a, b diagram.Position) bool { return a.Y < b.Y && a.X == b.X }},
		{diagram.DirectionUp, func(a, b diagram.Position) bool { return a.Y > b.Y && a.X == b.X }},
	}
	for _, tt := range tests {
		t.Run(string(tt.dir), func(t *testing.T) {
			out, err := NewLayeredEngine().Layout(context.Background(), linearGraph(), tt.dir)
			require.NoError(t, err)
			assert.True(t, tt.check(out.Nodes[0].Position, out.Nodes[1].Position))
		})
	}
}

func TestLayeredBranchesDoNotOverlap(t *testing.T) {
	out, err := NewLayeredEngine().Layout(context.Background(), branchGraph(), diagram.DirectionRight)
	require.NoError(t, err)
	assertNoOverlap(t, out)

	choice := nodeAt(t, out, "node_1-choice1")
	log := nodeAt(t, out, "node_1_0_0-choice1|0|log0")
	ph := nodeAt(t, out, "node_1_1_0-placeholder")
	sink := nodeAt(t, out, "node_2-kafka-sink2")

	// log and the placeholder share the rank after choice.
	assert.Equal(t, log.Position.X, ph.Position.X)
	assert.Greater(t, log.Position.X, choice.Position.X)
	// The sink follows the longest branch.
	setBody := nodeAt(t, out, "node_1_0_1-choice1|0|set-body1")
	assert.Greater(t, sink.Position.X, setBody.Position.X)
}

func TestLayeredCycle(t *testing.T) {
	g := linearGraph()
	g.Edges = append(g.Edges, diagram.BuildEdgeParams(g.Nodes[2], g.Nodes[0]))

	_, err := NewLayeredEngine().Layout(context.Background(), g, diagram.DirectionRight)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeLayout, schema.ErrorCode(err))
}

func TestLayeredCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLayeredEngine().Layout(ctx, linearGraph(), diagram.DirectionRight)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngine(t *testing.T) {
	e, err := New("")
	require.NoError(t, err)
	assert.Equal(t, EngineLayered, e.Name())

	e, err = New(EngineGraphviz)
	require.NoError(t, err)
	assert.Equal(t, EngineGraphviz, e.Name())

	_, err = New("force")
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))
}

func TestFitGroupsEnclosesMembers(t *testing.T) {
	out, err := Apply(context.Background(), NewLayeredEngine(), branchGraph(), diagram.DirectionRight, Size{})
	require.NoError(t, err)

	group := nodeAt(t, out, "group_node_1-choice1")
	for _, id := range []string{"node_1_0_0-choice1|0|log0", "node_1_0_1-choice1|0|set-body1", "node_1_1_0-placeholder"} {
		n := nodeAt(t, out, id)
		assert.GreaterOrEqual(t, n.Position.X, group.Position.X+diagram.GroupPadding, id)
		assert.GreaterOrEqual(t, n.Position.Y, group.Position.Y+diagram.GroupPadding, id)
		assert.LessOrEqual(t, n.Position.X+n.Width, group.Position.X+group.Width-diagram.GroupPadding, id)
		assert.LessOrEqual(t, n.Position.Y+n.Height, group.Position.Y+group.Height-diagram.GroupPadding, id)
	}

	// The owner is outside its own container.
	assert.False(t, overlaps(nodeAt(t, out, "node_1-choice1"), group))
}

func TestFitGroupsNested(t *testing.T) {
	g := diagram.Build([]schema.Step{
		{
			UUID: "choice0", Name: "choice", MaxBranches: -1,
			Branches: []schema.Branch{{Identifier: "when", Steps: []schema.Step{
				{
					UUID: "choice0|0|choice0", Name: "choice", MaxBranches: -1,
					Branches: []schema.Branch{{Identifier: "when", Steps: []schema.Step{
						{UUID: "choice0|0|choice0|0|log0", Name: "log"},
					}}},
				},
			}}},
		},
	}, diagram.DirectionDown)

	out, err := Apply(context.Background(), NewLayeredEngine(), g, diagram.DirectionDown, Size{})
	require.NoError(t, err)

	outer := nodeAt(t, out, "group_node_0-choice0")
	inner := nodeAt(t, out, "group_node_0_0_0-choice0|0|choice0")
	assert.LessOrEqual(t, outer.Position.X, inner.Position.X-diagram.GroupPadding)
	assert.GreaterOrEqual(t, outer.Position.Y+outer.Height, inner.Position.Y+inner.Height+diagram.GroupPadding)
}

func TestCenterPlaceholder(t *testing.T) {
	nodes := diagram.BuildNodesFromSteps(nil, diagram.DirectionRight)
	out := CenterPlaceholder(nodes, Size{Width: 1000, Height: 600})

	require.Len(t, out, 1)
	assert.InDelta(t, 368.0, out[0].Position.X, 1e-9)
	assert.InDelta(t, 208.0, out[0].Position.Y, 1e-9)
	assert.Equal(t, diagram.Position{}, nodes[0].Position)

	// Not applied when there is real content.
	linear := linearGraph().Nodes
	assert.Equal(t, linear, CenterPlaceholder(linear, Size{Width: 1000, Height: 600}))
}

func TestParsePlain(t *testing.T) {
	plain := "graph 1 3.5 1.25\n" +
		"node n0 0.55 0.62 1.1 1.1 \"timer-source\" solid ellipse black lightgrey\n" +
		"node n1 2.25 0.62 1.1 1.1 log solid box black lightgrey\n" +
		"edge n0 n1 4 1.1 0.62 1.4 0.62 1.7 0.62 2.0 0.62 solid black\n" +
		"stop\n"

	centres, height, err := parsePlain([]byte(plain))
	require.NoError(t, err)
	assert.Equal(t, 1.25, height)
	assert.Equal(t, diagram.Position{X: 0.55, Y: 0.62}, centres["n0"])
	assert.Equal(t, diagram.Position{X: 2.25, Y: 0.62}, centres["n1"])

	_, _, err = parsePlain([]byte("node n0 x 1 1 1\nstop\n"))
	assert.Error(t, err)
	_, _, err = parsePlain([]byte("stop\n"))
	assert.Error(t, err)
}

func TestGraphvizLinear(t *testing.T) {
	out, err := NewGraphvizEngine().Layout(context.Background(), linearGraph(), diagram.DirectionRight)
	require.NoError(t, err)

	assert.Less(t, out.Nodes[0].Position.X, out.Nodes[1].Position.X)
	assert.Less(t, out.Nodes[1].Position.X, out.Nodes[2].Position.X)
	assertNoOverlap(t, out)
}

func TestGraphvizBranchesDown(t *testing.T) {
	out, err := NewGraphvizEngine().Layout(context.Background(), branchGraph(), diagram.DirectionDown)
	require.NoError(t, err)

	choice := nodeAt(t, out, "node_1-choice1")
	sink := nodeAt(t, out, "node_2-kafka-sink2")
	assert.Less(t, choice.Position.Y, sink.Position.Y)
	assertNoOverlap(t, out)
}
