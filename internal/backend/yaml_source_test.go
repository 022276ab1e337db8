package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/pkg/schema"
)

const ordersSource = `metadata:
  name: orders
  dsl: KameletBinding
steps:
  - name: timer-source
    type: START
  - name: choice
    type: MIDDLE
    kind: EIP
    maxBranches: -1
    branches:
      - identifier: when
        condition: body.size() > 0
        steps:
          - name: log
            type: MIDDLE
  - name: kafka-sink
    type: END
`

func TestYAMLSourceParse(t *testing.T) {
	src := NewYAMLSource()
	in, err := src.FetchIntegrationJSON(context.Background(), ordersSource, "", "prod")
	require.NoError(t, err)

	assert.Equal(t, "orders", in.Metadata.Name)
	assert.Equal(t, "prod", in.Metadata.Namespace)
	require.Len(t, in.Steps, 3)
	assert.Equal(t, "timer-source0", in.Steps[0].UUID)
	assert.Equal(t, "choice1", in.Steps[1].UUID)
	assert.Equal(t, "choice1|0|log0", in.Steps[1].Branches[0].Steps[0].UUID)
	assert.Equal(t, "body.size() > 0", in.Steps[1].Branches[0].Condition)
	assert.NotNil(t, in.Params)
}

func TestYAMLSourceEmpty(t *testing.T) {
	in, err := NewYAMLSource().FetchIntegrationJSON(context.Background(), "  \n", "", "")
	require.NoError(t, err)
	assert.Equal(t, schema.NewIntegration(), in)
}

func TestYAMLSourceStrict(t *testing.T) {
	_, err := NewYAMLSource().FetchIntegrationJSON(context.Background(), "metadata:\n  name: x\nroute: []\n", "", "")
	assert.Equal(t, schema.ErrCodeValidation, schema.ErrorCode(err))

	lax := &YAMLSource{}
	in, err := lax.FetchIntegrationJSON(context.Background(), "metadata:\n  name: x\nroute: []\n", "", "")
	require.NoError(t, err)
	assert.Equal(t, "x", in.Metadata.Name)
}

func TestYAMLSourceRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := NewYAMLSource()

	in, err := src.FetchIntegrationJSON(ctx, ordersSource, "", "")
	require.NoError(t, err)

	text, err := src.FetchIntegrationSourceCode(ctx, in)
	require.NoError(t, err)
	assert.Contains(t, text, "name: orders")

	again, err := src.FetchIntegrationJSON(ctx, text, "", "")
	require.NoError(t, err)
	assert.Equal(t, in, again)
}

func TestYAMLSourceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewYAMLSource().FetchIntegrationSourceCode(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}
