package testbed

import (
	"testing"

	"github.com/spaghettifunk/vortex/engine"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/spaghettifunk/vortex/engine/scene"
	"github.com/stretchr/testify/assert"
)

func TestNewTestGameWiresCallbacks(t *testing.T) {
	g := NewTestGame(engine.NewApplicationConfig(core.DefaultConfig()))
	assert.NotNil(t, g.FnInitialize)
	assert.NotNil(t, g.FnUpdate)
	assert.NotNil(t, g.FnOnResize)
	assert.NotNil(t, g.FnShutdown)

	assert.NoError(t, g.OnResize(640, 480))
	state := g.State.(*gameState)
	assert.Equal(t, uint32(640), state.width)
	assert.Equal(t, uint32(480), state.height)
}

func TestMouseDeltaIsLastMinusCurrent(t *testing.T) {
	dx, dy := mouseDelta(100, 50, 90, 70)
	assert.Equal(t, float32(10), dx)
	assert.Equal(t, float32(-20), dy)
}

func TestMovementKeys(t *testing.T) {
	assert.Len(t, movementKeys, 6)
	assert.Equal(t, scene.MoveUp, movementKeys[core.KEY_SPACE])
	assert.Equal(t, scene.MoveDown, movementKeys[core.KEY_LSHIFT])
	assert.Len(t, cubePositions, 2)
}
