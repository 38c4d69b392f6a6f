package engine

import (
	"fmt"
	"path"
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/vortex/engine/assets"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/spaghettifunk/vortex/engine/platform"
	"github.com/spaghettifunk/vortex/engine/renderer"
	"github.com/spaghettifunk/vortex/engine/scene"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Engine released everything
	EngineStageShutdown
)

// Seconds between two frame metric reports.
const metricsInterval = 1.0

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig

	isRunning   atomic.Bool
	isSuspended bool

	platform     *platform.Platform
	assetManager *assets.AssetManager
	renderer     renderer.Backend
	scene        *scene.Scene

	width  uint32
	height uint32

	clock          *core.Clock
	metrics        *core.FrameMetrics
	lastTime       float64
	lastMetricsLog float64

	// Assets uploaded to the renderer, by asset name.
	meshes    map[string]bool
	textures  map[string]bool
	materials map[string]*scene.Material
}

func New(g *Game) (*Engine, error) {
	if g == nil || g.ApplicationConfig == nil {
		return nil, fmt.Errorf("%w: game without application config", core.ErrInvalidConfig)
	}
	cfg := g.ApplicationConfig

	p, err := platform.New(nil)
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	s, err := scene.NewScene(cfg.Renderer.ObjectCapacity)
	if err != nil {
		return nil, err
	}

	e := newEngine(g)
	e.platform = p
	e.assetManager = am
	e.scene = s
	return e, nil
}

func newEngine(g *Game) *Engine {
	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       g.ApplicationConfig,
		clock:        core.NewClock(),
		metrics:      core.NewFrameMetrics(),
		width:        g.ApplicationConfig.StartWidth,
		height:       g.ApplicationConfig.StartHeight,
		meshes:       make(map[string]bool),
		textures:     make(map[string]bool),
		materials:    make(map[string]*scene.Material),
	}
	e.isRunning.Store(true)
	return e
}

func (e *Engine) Stage() Stage {
	return e.currentStage
}

func (e *Engine) Scene() *scene.Scene {
	return e.scene
}

func (e *Engine) Platform() *platform.Platform {
	return e.platform
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	if e.config.LogLevel != "" {
		if err := core.SetLogLevel(e.config.LogLevel); err != nil {
			core.LogWarn("invalid log level %q: %s", e.config.LogLevel, err)
		}
	}

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return fmt.Errorf("failed to initialize the event system")
	}
	e.registerEvents()

	if err := e.platform.Startup(e.config.Name,
		e.config.StartPosX,
		e.config.StartPosY,
		e.config.StartWidth,
		e.config.StartHeight); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.AssetsDir); err != nil {
		return err
	}

	r, err := renderer.New(e.platform, renderer.Config{
		ApplicationName:  e.config.Name,
		EnableValidation: e.config.Renderer.EnableValidation,
		FramesInFlight:   e.config.Renderer.FramesInFlight,
		ObjectCapacity:   e.config.Renderer.ObjectCapacity,
		DynamicViewport:  e.config.Renderer.DynamicViewport,
		VertexShader:     e.assetManager.Path(e.config.Renderer.VertexShader),
		FragmentShader:   e.assetManager.Path(e.config.Renderer.FragmentShader),
	})
	if err != nil {
		return err
	}
	e.renderer = r

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(e.width, e.height); err != nil {
			return err
		}
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) registerEvents() {
	core.EventRegister(core.EVENT_CODE_APPLICATION_QUIT, e, onQuit)
	core.EventRegister(core.EVENT_CODE_KEY_PRESSED, e, onKey)
	core.EventRegister(core.EVENT_CODE_RESIZED, e, onResized)
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, e, onAssetChanged)
}

// Stop makes Run return after the current frame. Safe to call from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	for e.isRunning.Load() {
		e.platform.PumpMessages()
		// events raised by the asset watcher
		core.EventDispatchQueued()

		if e.platform.ShouldClose() {
			e.Stop()
			break
		}
		if e.isSuspended {
			e.platform.WaitMessages()
			continue
		}

		frameStart := time.Now()

		// Update clock and get delta time.
		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(e, delta); err != nil {
				core.LogError("Game update failed, shutting down: %s", err)
				e.Stop()
				return err
			}
		}
		e.scene.UpdateAutoRotation(float32(delta), e.config.Scene.RotationSpeed)

		if err := e.renderer.Render(e.scene); err != nil {
			core.LogError("Render failed, shutting down: %s", err)
			e.Stop()
			return err
		}

		// Give the rest of the frame back to the OS.
		if remaining := frameSleep(e.config.Scene.TargetFPS, time.Since(frameStart)); remaining > 0 {
			time.Sleep(remaining)
		}
		e.recordFrame(time.Since(frameStart).Seconds(), currentTime)

		// NOTE: Input update/state copying should always be handled
		// after any input should be recorded; I.E. before this line.
		// As a safety, input is the last thing to be updated before
		// this frame ends.
		_ = core.InputUpdate(delta)

		// Update last time
		e.lastTime = currentTime
	}
	return nil
}

// frameSleep is how long to wait so that a frame lasts 1/targetFPS seconds. Zero disables the cap.
func frameSleep(targetFPS uint32, elapsed time.Duration) time.Duration {
	if targetFPS == 0 {
		return 0
	}
	target := time.Second / time.Duration(targetFPS)
	if elapsed >= target {
		return 0
	}
	return target - elapsed
}

func (e *Engine) recordFrame(frameSeconds, now float64) {
	e.metrics.Update(frameSeconds)
	if now-e.lastMetricsLog >= metricsInterval {
		fps, frameTime := e.metrics.Frame()
		core.LogDebug("FPS: %5.1f (%4.2fms)", fps, frameTime)
		e.lastMetricsLog = now
	}
}

func (e *Engine) Shutdown() error {
	if e.currentStage == EngineStageShutdown {
		return nil
	}
	e.currentStage = EngineStageShuttingDown

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError("game shutdown: %s", err)
		}
	}
	if e.assetManager != nil {
		if err := e.assetManager.Shutdown(); err != nil {
			core.LogError("asset manager shutdown: %s", err)
		}
	}
	if e.renderer != nil {
		e.renderer.Destroy()
	}
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	if e.platform != nil {
		if err := e.platform.Shutdown(); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageShutdown
	return nil
}

// GetFramebufferSize returns the width and height (in this order)
// of the application Framebuffer
func (e *Engine) GetFramebufferSize() (uint32, uint32) {
	return e.width, e.height
}

/**
 * @brief Loads an OBJ asset and uploads it under its asset name, which is what
 * Renderable.Mesh refers to.
 */
func (e *Engine) LoadMesh(name string) error {
	mesh, err := e.assetManager.LoadMesh(name)
	if err != nil {
		return err
	}
	if err := e.renderer.UploadMesh(name, mesh.Vertices, mesh.Indices); err != nil {
		return err
	}
	e.meshes[name] = true
	return nil
}

func (e *Engine) LoadTexture(name string) error {
	img, err := e.assetManager.LoadImage(name)
	if err != nil {
		return err
	}
	if err := e.renderer.UploadTexture(name, img.Width, img.Height, img.Pixels); err != nil {
		return err
	}
	e.textures[name] = true
	return nil
}

/**
 * @brief Loads a material definition, uploads the textures it refers to and
 * registers it with the renderer. Loading the same asset again returns the
 * material already loaded.
 */
func (e *Engine) LoadMaterial(name string) (*scene.Material, error) {
	if m, ok := e.materials[name]; ok {
		return m, nil
	}
	m, err := e.assetManager.LoadMaterial(name)
	if err != nil {
		return nil, err
	}
	e.loadMaterialTextures(m)
	e.renderer.RegisterMaterial(m)
	e.materials[name] = m
	return m, nil
}

func (e *Engine) loadMaterialTextures(m *scene.Material) {
	for _, texture := range m.Textures {
		if texture == "" || e.textures[texture] {
			continue
		}
		if err := e.LoadTexture(texture); err != nil {
			core.LogWarn("material %s: %s", m.Name, err)
		}
	}
}

func (e *Engine) isShader(name string) bool {
	return name == path.Clean(e.config.Renderer.VertexShader) || name == path.Clean(e.config.Renderer.FragmentShader)
}

// reloadAsset pushes a changed asset to the renderer if it is in use.
func (e *Engine) reloadAsset(name string) {
	switch {
	case e.isShader(name):
		core.LogInfo("Shader %s changed, rebuilding pipelines", name)
		e.renderer.ReloadShaders()
	case e.meshes[name]:
		if err := e.LoadMesh(name); err != nil {
			core.LogError("reloading mesh %s: %s", name, err)
		}
	case e.textures[name]:
		if err := e.LoadTexture(name); err != nil {
			core.LogError("reloading texture %s: %s", name, err)
		}
	case e.materials[name] != nil:
		e.reloadMaterial(name)
	}
}

// reloadMaterial updates the loaded material in place so renderables keep pointing at it.
func (e *Engine) reloadMaterial(name string) {
	fresh, err := e.assetManager.LoadMaterial(name)
	if err != nil {
		core.LogError("reloading material %s: %s", name, err)
		return
	}
	m := e.materials[name]
	id := m.ID
	*m = *fresh
	m.ID = id
	e.loadMaterialTextures(m)
	e.renderer.RegisterMaterial(m)
}

func onQuit(context core.EventContext, listener interface{}) bool {
	e := listener.(*Engine)
	core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
	e.Stop()
	return true
}

func onKey(context core.EventContext, listener interface{}) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		// Block anything else from processing this.
		return true
	}
	return false
}

func onResized(context core.EventContext, listener interface{}) bool {
	e := listener.(*Engine)
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}

	width := se.WindowWidth
	height := se.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width = width
	e.height = height
	core.LogDebug("Window resize: %d, %d", width, height)

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if e.gameInstance.FnOnResize != nil {
		if err := e.gameInstance.FnOnResize(width, height); err != nil {
			core.LogError(err.Error())
		}
	}
	e.renderer.OnResize(width, height)
	return false
}

func onAssetChanged(context core.EventContext, listener interface{}) bool {
	e := listener.(*Engine)
	ae, ok := context.Data.(*core.AssetEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	e.reloadAsset(ae.Path)
	return false
}
