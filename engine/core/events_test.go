package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testListener struct {
	received []EventContext
	handle   bool
}

func (l *testListener) onEvent(context EventContext, listener interface{}) bool {
	l.received = append(l.received, context)
	return l.handle
}

func withEventSystem(t *testing.T) {
	t.Helper()
	require.True(t, EventSystemInitialize())
	t.Cleanup(func() { _ = EventSystemShutdown() })
}

func TestEventRegisterRejectsDuplicates(t *testing.T) {
	withEventSystem(t)
	l := &testListener{}

	assert.True(t, EventRegister(EVENT_CODE_RESIZED, l, l.onEvent))
	assert.False(t, EventRegister(EVENT_CODE_RESIZED, l, l.onEvent))
	assert.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, l, l.onEvent))
}

func TestEventFireStopsAtHandler(t *testing.T) {
	withEventSystem(t)
	first := &testListener{handle: true}
	second := &testListener{}
	require.True(t, EventRegister(EVENT_CODE_RESIZED, first, first.onEvent))
	require.True(t, EventRegister(EVENT_CODE_RESIZED, second, second.onEvent))

	handled := EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 800, WindowHeight: 600}})
	assert.True(t, handled)
	require.Len(t, first.received, 1)
	assert.Empty(t, second.received)
	assert.Equal(t, uint32(800), first.received[0].Data.(*SystemEvent).WindowWidth)
}

func TestEventUnregister(t *testing.T) {
	withEventSystem(t)
	a := &testListener{}
	b := &testListener{}
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, a, a.onEvent))
	require.True(t, EventRegister(EVENT_CODE_KEY_PRESSED, b, b.onEvent))

	assert.True(t, EventUnregister(EVENT_CODE_KEY_PRESSED, a))
	assert.False(t, EventUnregister(EVENT_CODE_KEY_PRESSED, a))

	EventFire(EventContext{Type: EVENT_CODE_KEY_PRESSED})
	assert.Empty(t, a.received)
	assert.Len(t, b.received, 1)
}

func TestEventQueueDispatchesInOrder(t *testing.T) {
	withEventSystem(t)
	l := &testListener{}
	require.True(t, EventRegister(EVENT_CODE_ASSET_CHANGED, l, l.onEvent))

	require.NoError(t, EventEnqueue(EventContext{Type: EVENT_CODE_ASSET_CHANGED, Data: &AssetEvent{Path: "a.spv"}}))
	require.NoError(t, EventEnqueue(EventContext{Type: EVENT_CODE_ASSET_CHANGED, Data: &AssetEvent{Path: "b.spv"}}))
	assert.Empty(t, l.received)

	assert.Equal(t, 2, EventDispatchQueued())
	require.Len(t, l.received, 2)
	assert.Equal(t, "a.spv", l.received[0].Data.(*AssetEvent).Path)
	assert.Equal(t, "b.spv", l.received[1].Data.(*AssetEvent).Path)
	assert.Equal(t, 0, EventDispatchQueued())
}

func TestEventFireWithoutSystem(t *testing.T) {
	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_APPLICATION_QUIT}))
	assert.False(t, EventRegister(EVENT_CODE_APPLICATION_QUIT, nil, func(EventContext, interface{}) bool { return true }))
}
