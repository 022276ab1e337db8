package expressions

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rendis/flowcanvas/pkg/schema"
)

func newCEL(t *testing.T) *CELEngine {
	t.Helper()
	e, err := NewCELEngine()
	require.NoError(t, err)
	return e
}

func TestCELBranchConditions(t *testing.T) {
	e := newCEL(t)
	assert.Equal(t, "cel", e.Name())
	ctx := context.Background()

	msg := map[string]any{
		"body":       "order-42",
		"headers":    map[string]any{"priority": "high"},
		"properties": map[string]any{"retries": int64(2)},
	}
	tests := []struct {
		condition string
		data      map[string]any
		want      bool
	}{
		{`headers.priority == "high"`, msg, true},
		{`headers.priority == "low"`, msg, false},
		{`body.startsWith("order-")`, msg, true},
		{`properties.retries < 3`, msg, true},
		// Unbound variables fall back to empty values.
		{`size(body) == 0`, nil, true},
		{`!has(headers.priority)`, nil, true},
	}
	for _, tt := range tests {
		got, err := EvaluateBool(ctx, e, tt.condition, tt.data)
		require.NoError(t, err, tt.condition)
		assert.Equal(t, tt.want, got, tt.condition)
	}
}

func TestCELCheck(t *testing.T) {
	e := newCEL(t)

	err := e.Check(`payload.amount > 10`)
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeExpression, schema.ErrorCode(err))
	assert.Contains(t, err.Error(), "cel compile error")

	assert.NoError(t, e.Check(`has(headers.type) && headers.type == "order"`))
	assert.Error(t, e.Check(""))
}

func TestCELNonBoolResult(t *testing.T) {
	_, err := EvaluateBool(context.Background(), newCEL(t), `1 + 2`, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want bool")
}

func TestCELSharesPrograms(t *testing.T) {
	e := newCEL(t)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := e.Evaluate(context.Background(), `headers.n % 2 == 0`, map[string]any{
				"headers": map[string]any{"n": int64(i)},
			})
			assert.NoError(t, err)
			assert.Equal(t, i%2 == 0, out)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, e.programs.size())
}
