package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderMermaidLinear(t *testing.T) {
	output := RenderMermaid(Build(linearSteps(), DirectionRight), DirectionRight)

	assert.True(t, strings.HasPrefix(output, "graph LR\n"))

	// Source is a stadium, sink a cylinder, actions a box.
	assert.Contains(t, output, `node_0_timer_source0(["timer-source"])`)
	assert.Contains(t, output, `node_1_avro_deserialize_action1["avro-deseriali..."]`)
	assert.Contains(t, output, `node_2_kafka_sink2[("kafka-sink")]`)

	assert.Contains(t, output, "node_0_timer_source0 --> node_1_avro_deserialize_action1")
	assert.NotContains(t, output, "subgraph")
}

func TestRenderMermaidBranches(t *testing.T) {
	output := RenderMermaid(Build(branchSteps(), DirectionDown), DirectionDown)

	assert.True(t, strings.HasPrefix(output, "graph TD\n"))
	assert.Contains(t, output, `subgraph group_node_1_choice1["choice"]`)
	assert.Contains(t, output, `node_1_choice1{"choice"}`)
	assert.Contains(t, output, `        node_1_0_0_choice1_0_log0["log"]`)
	assert.Contains(t, output, "node_1_0_1_choice1_0_set_body1 --> node_2_kafka_sink2")

	assert.Contains(t, output, "classDef placeholder")
	assert.Contains(t, output, "class node_1_1_0_placeholder placeholder")
}

func TestRenderMermaidEmpty(t *testing.T) {
	output := RenderMermaid(Build(nil, DirectionUp), DirectionUp)

	assert.True(t, strings.HasPrefix(output, "graph BT\n"))
	assert.Contains(t, output, `node_0_placeholder["ADD A STEP"]`)
}
