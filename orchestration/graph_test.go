package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hupe1980/agentweave/core"
)

func TestHandoffGraph(t *testing.T) {
	g := supportGraph()

	assert.True(t, g.Allowed("triage", "order"))
	assert.True(t, g.Allowed("return", "refund"))
	assert.False(t, g.Allowed("triage", "refund"))
	assert.False(t, g.Allowed("billing", "triage"))

	assert.Equal(t, []string{"order", "return"}, g.Targets("triage"))
	assert.Empty(t, g.Targets("unknown"))

	assert.NoError(t, g.Validate([]string{"triage", "order", "return", "refund"}))

	err := g.Validate([]string{"triage", "order", "return"})
	assert.ErrorIs(t, err, core.ErrUnknownParticipant)

	var nilGraph *HandoffGraph
	assert.False(t, nilGraph.Allowed("a", "b"))
	assert.NoError(t, nilGraph.Validate(nil))
	assert.NotNil(t, nilGraph.clone())
}
