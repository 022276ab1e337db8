package diagram

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderImagePNG(t *testing.T) {
	png, err := RenderImage(context.Background(), Build(linearSteps(), DirectionRight), DirectionRight, FormatPNG)
	require.NoError(t, err)

	// PNG magic bytes: 0x89 P N G.
	require.True(t, len(png) > 8, "PNG should be larger than header")
	assert.Equal(t, byte(0x89), png[0])
	assert.Equal(t, byte('P'), png[1])
	assert.Equal(t, byte('N'), png[2])
	assert.Equal(t, byte('G'), png[3])
}

func TestRenderImageSVGWithBranches(t *testing.T) {
	svg, err := RenderImage(context.Background(), Build(branchSteps(), DirectionDown), DirectionDown, FormatSVG)
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
	assert.Contains(t, string(svg), "cluster_n2")
}

func TestRenderImageUnknownFormat(t *testing.T) {
	_, err := RenderImage(context.Background(), Build(nil, DirectionRight), DirectionRight, "gif")
	assert.Error(t, err)
}
