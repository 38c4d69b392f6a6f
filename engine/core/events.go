package core

import (
	"sync"

	"github.com/spaghettifunk/vortex/engine/containers"
)

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01

	// Keyboard key pressed. Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02

	// Keyboard key released. Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03

	// Mouse button pressed. Data is *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04

	// Mouse button released. Data is *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05

	// Mouse moved. Data is *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06

	// Mouse wheel. Data is *MouseEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07

	// Framebuffer resized by the OS. Data is *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08

	// A watched asset changed on disk. Data is *AssetEvent.
	EVENT_CODE_ASSET_CHANGED EventCode = 0x09

	MAX_EVENT_CODE EventCode = 0xFF
)

// This should be more than enough codes...
const MAX_MESSAGE_CODES = 16384

// Capacity of the cross-thread event queue drained once per frame.
const MAX_QUEUED_EVENTS = 256

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   float64
	PosY   float64
	Scroll float64
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type AssetEvent struct {
	Path string
}

// Should return true if handled.
type FnOnEvent func(context EventContext, listener interface{}) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

type eventSystemState struct {
	mu         sync.Mutex
	registered map[EventCode][]registeredEvent
	queue      *containers.RingQueue[EventContext]
}

var eventState *eventSystemState

func EventSystemInitialize() bool {
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{
		registered: make(map[EventCode][]registeredEvent),
		queue:      containers.NewRingQueue[EventContext](MAX_QUEUED_EVENTS),
	}
	LogInfo("Event subsystem initialized.")
	return true
}

// Free the registrations. Listeners should be destroyed on their own.
func EventSystemShutdown() error {
	eventState = nil
	return nil
}

/**
 * Register to listen for when events are sent with the provided code. A listener
 * may only be registered once per code; a duplicate registration returns false.
 * @param code The event code to listen for.
 * @param listener A comparable listener instance (usually a pointer). Can be nil.
 * @param onEvent The callback invoked when the event code is fired.
 * @returns true if the event is successfully registered; otherwise false.
 */
func EventRegister(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	if eventState == nil || onEvent == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	for _, e := range eventState.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eventState.registered[code] = append(eventState.registered[code], registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code.
 * @returns true if a registration for the listener was found and removed.
 */
func EventUnregister(code EventCode, listener interface{}) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	events := eventState.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eventState.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of its code. If a handler returns true, the event
 * is considered handled and is not passed on to any more listeners.
 * Must be called from the main thread.
 * @returns true if handled, otherwise false.
 */
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	// callbacks may register or unregister, so dispatch over a snapshot
	events := append([]registeredEvent(nil), eventState.registered[context.Type]...)
	eventState.mu.Unlock()

	for _, e := range events {
		if e.callback(context, e.listener) {
			return true
		}
	}
	return false
}

// EventEnqueue stores an event fired from another goroutine. It is delivered
// by the next EventDispatchQueued call on the main thread.
func EventEnqueue(context EventContext) error {
	if eventState == nil {
		return ErrUnknown
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()
	return eventState.queue.Enqueue(context)
}

// EventDispatchQueued fires every queued event in arrival order and returns how many were fired.
func EventDispatchQueued() int {
	if eventState == nil {
		return 0
	}
	fired := 0
	for {
		eventState.mu.Lock()
		context, err := eventState.queue.Dequeue()
		eventState.mu.Unlock()
		if err != nil {
			return fired
		}
		EventFire(context)
		fired++
	}
}
