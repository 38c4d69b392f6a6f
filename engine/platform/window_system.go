package platform

import (
	"fmt"
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/vortex/engine/core"
)

// WindowSystem reference-counts the process-wide GLFW library. The first Acquire
// initializes it and the last Release terminates it.
type WindowSystem struct {
	mu        sync.Mutex
	refs      int
	init      func() error
	terminate func()
}

func NewWindowSystem() *WindowSystem {
	return &WindowSystem{
		init:      glfw.Init,
		terminate: glfw.Terminate,
	}
}

var defaultWindowSystem = NewWindowSystem()

// DefaultWindowSystem is shared by every window of the process.
func DefaultWindowSystem() *WindowSystem {
	return defaultWindowSystem
}

func (ws *WindowSystem) Acquire() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.refs == 0 {
		if err := ws.init(); err != nil {
			err = fmt.Errorf("failed to initialize glfw: %w", err)
			core.LogError(err.Error())
			return err
		}
		core.LogDebug("window system initialized")
	}
	ws.refs++
	return nil
}

func (ws *WindowSystem) Release() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.refs == 0 {
		core.LogError(core.ErrWindowSystemReleased.Error())
		return core.ErrWindowSystemReleased
	}
	ws.refs--
	if ws.refs == 0 {
		ws.terminate()
		core.LogDebug("window system terminated")
	}
	return nil
}

func (ws *WindowSystem) Refs() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return ws.refs
}
