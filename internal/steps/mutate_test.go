package steps

import (
	"testing"

	"github.com/rendis/flowcanvas/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var whenBranch = schema.Path{{StepIndex: 1, BranchIndex: 0}}

func TestReplaceAtNested(t *testing.T) {
	tree := branchTree()

	out, err := ReplaceAt(tree, schema.StepAddress{Path: whenBranch, Index: 1}, step("transform", schema.StepTypeMiddle))
	require.NoError(t, err)

	assert.Equal(t, []string{"log", "transform"}, names(out[1].Branches[0].Steps))
	// Original untouched.
	assert.Equal(t, []string{"log", "set-body"}, names(tree[1].Branches[0].Steps))
}

func TestReplaceAtSharesSiblings(t *testing.T) {
	tree := branchTree()
	tree[1].Branches[1].Steps = []schema.Step{step("other", schema.StepTypeMiddle)}

	out, err := ReplaceAt(tree, schema.StepAddress{Path: whenBranch, Index: 0}, step("x", schema.StepTypeMiddle))
	require.NoError(t, err)

	// The untouched sibling branch keeps its backing array.
	assert.Same(t, &tree[1].Branches[1].Steps[0], &out[1].Branches[1].Steps[0])
	// The edited ancestor was copied.
	assert.NotSame(t, &tree[1], &out[1])
}

func TestInsertAt(t *testing.T) {
	tree := branchTree()
	otherwise := schema.Path{{StepIndex: 1, BranchIndex: 1}}

	out, err := InsertAt(tree, schema.StepAddress{Path: otherwise, Index: 0}, step("log", schema.StepTypeMiddle))
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, names(out[1].Branches[1].Steps))

	out, err = InsertAt(out, schema.StepAddress{Index: 3}, step("tail", schema.StepTypeEnd))
	require.NoError(t, err)
	assert.Equal(t, []string{"timer-source", "choice", "kafka-sink", "tail"}, names(out))

	_, err = InsertAt(tree, schema.StepAddress{Index: 9}, step("x", ""))
	assert.True(t, schema.IsNotFound(err))
}

func TestDeleteAt(t *testing.T) {
	tree := branchTree()

	out, err := DeleteAt(tree, schema.StepAddress{Path: whenBranch, Index: 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"set-body"}, names(out[1].Branches[0].Steps))
	assert.Len(t, tree[1].Branches[0].Steps, 2)

	_, err = DeleteAt(tree, schema.StepAddress{Path: schema.Path{{StepIndex: 1, BranchIndex: 7}}, Index: 0})
	assert.True(t, schema.IsNotFound(err))
}

func TestUpdateAt(t *testing.T) {
	tree := branchTree()

	out, err := UpdateAt(tree, schema.StepAddress{Index: 1}, func(s schema.Step) (schema.Step, error) {
		s.Branches = append(s.Branches, schema.Branch{Identifier: "extra", Steps: []schema.Step{}})
		return s, nil
	})
	require.NoError(t, err)
	assert.Len(t, out[1].Branches, 3)
	assert.Len(t, tree[1].Branches, 2)
}
