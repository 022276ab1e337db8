package steps

import (
	"testing"

	"github.com/rendis/flowcanvas/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegenerateIdentitiesTopLevel(t *testing.T) {
	list := []schema.Step{
		step("timer-source", schema.StepTypeStart),
		step("log", schema.StepTypeMiddle),
		step("log", schema.StepTypeEnd),
	}

	out := RegenerateIdentities(list)
	require.Len(t, out, 3)
	assert.Equal(t, "timer-source0", out[0].UUID)
	assert.Equal(t, "log1", out[1].UUID)
	assert.Equal(t, "log2", out[2].UUID)

	// Input untouched.
	assert.Empty(t, list[0].UUID)
}

func TestRegenerateIdentitiesIdempotent(t *testing.T) {
	once := RegenerateIdentities(branchTree())
	twice := RegenerateIdentities(once)
	assert.Equal(t, once, twice)
}

func TestRegenerateIdentitiesNested(t *testing.T) {
	tree := branchTree()

	choice := tree[1]
	assert.Equal(t, "choice1", choice.UUID)
	assert.Equal(t, "choice1|0|log0", choice.Branches[0].Steps[0].UUID)
	assert.Equal(t, "choice1|0|set-body1", choice.Branches[0].Steps[1].UUID)
}

func TestRegenerateIdentitiesMissingName(t *testing.T) {
	out := RegenerateIdentities([]schema.Step{{}, {}})
	assert.Equal(t, "0", out[0].UUID)
	assert.Equal(t, "1", out[1].UUID)
}

func TestUUIDFor(t *testing.T) {
	assert.Equal(t, "kafka-sink2", UUIDFor("kafka-sink", 2))
}

func TestCloneIsDeep(t *testing.T) {
	tree := branchTree()
	cp := CloneSteps(tree)

	cp[1].Branches[0].Steps[0].Name = "changed"
	cp[1].Branches = append(cp[1].Branches, schema.Branch{Identifier: "extra"})

	assert.Equal(t, "log", tree[1].Branches[0].Steps[0].Name)
	assert.Len(t, tree[1].Branches, 2)
	assert.Nil(t, CloneSteps(nil))
}

func TestCloneIntegration(t *testing.T) {
	in := schema.NewIntegration()
	in.Steps = branchTree()
	in.Params = []schema.Parameter{{ID: "p", Value: "v"}}

	cp := CloneIntegration(in)
	cp.Params[0].Value = "other"
	cp.Steps[0].Name = "other"

	assert.Equal(t, "v", in.Params[0].Value)
	assert.Equal(t, "timer-source", in.Steps[0].Name)
	assert.Nil(t, CloneIntegration(nil))
}
