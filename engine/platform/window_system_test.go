package platform

import (
	"errors"
	"testing"

	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCountingWindowSystem(initErr error) (*WindowSystem, *int, *int) {
	inits, terms := 0, 0
	ws := &WindowSystem{
		init: func() error {
			inits++
			return initErr
		},
		terminate: func() { terms++ },
	}
	return ws, &inits, &terms
}

func TestWindowSystemRefCount(t *testing.T) {
	ws, inits, terms := newCountingWindowSystem(nil)

	require.NoError(t, ws.Acquire())
	require.NoError(t, ws.Acquire())
	assert.Equal(t, 1, *inits)
	assert.Equal(t, 2, ws.Refs())

	require.NoError(t, ws.Release())
	assert.Equal(t, 0, *terms)
	require.NoError(t, ws.Release())
	assert.Equal(t, 1, *terms)

	// a new cycle initializes again
	require.NoError(t, ws.Acquire())
	assert.Equal(t, 2, *inits)
}

func TestWindowSystemOverRelease(t *testing.T) {
	ws, _, terms := newCountingWindowSystem(nil)
	assert.ErrorIs(t, ws.Release(), core.ErrWindowSystemReleased)
	assert.Equal(t, 0, *terms)
}

func TestWindowSystemInitFailure(t *testing.T) {
	boom := errors.New("no display")
	ws, _, _ := newCountingWindowSystem(boom)

	assert.ErrorIs(t, ws.Acquire(), boom)
	assert.Equal(t, 0, ws.Refs())
}
