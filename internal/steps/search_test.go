package steps

import (
	"context"
	"testing"

	"github.com/rendis/flowcanvas/internal/expressions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchByKind(t *testing.T) {
	jq := expressions.NewGoJQEngine()

	matches, err := Search(context.Background(), jq, branchTree(), `.kind == "EIP"`)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "choice", matches[0].Step.Name)
	assert.Equal(t, "steps[1]", matches[0].Address.String())
}

func TestSearchSelectNested(t *testing.T) {
	jq := expressions.NewGoJQEngine()

	matches, err := Search(context.Background(), jq, branchTree(), `select(.name | startswith("set"))`)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "steps[1].branches[0].steps[1]", matches[0].Address.String())
}

func TestSearchSeesOnlyOwnStep(t *testing.T) {
	jq := expressions.NewGoJQEngine()

	// The choice step's branches are emptied in its document, so only
	// the log step itself matches a name filter.
	matches, err := Search(context.Background(), jq, branchTree(), `[.. | .name? // empty] | any(. == "log")`)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "log", matches[0].Step.Name)
}

func TestSearchInvalidFilter(t *testing.T) {
	jq := expressions.NewGoJQEngine()
	_, err := Search(context.Background(), jq, branchTree(), `.[`)
	assert.Error(t, err)
}
