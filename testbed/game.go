package testbed

import (
	"github.com/spaghettifunk/vortex/engine"
	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
	"github.com/spaghettifunk/vortex/engine/scene"
)

// Roughness of the demo material, unless the material file sets its own.
const demoRoughness = 0.1

type TestGame struct {
	*engine.Game
}

type gameState struct {
	width  uint32
	height uint32

	material *scene.Material
	cubes    []*scene.Renderable

	// Cursor position of the previous frame while the camera is being dragged.
	dragging bool
	lastX    float64
	lastY    float64
}

// cubePositions are where the demo places its two cubes.
var cubePositions = []vmath.Vec3{
	vmath.NewVec3(2, 0, -5),
	vmath.NewVec3(-2, 0, -5),
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			State:             &gameState{},
		},
	}
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown
	return tg
}

func (g *TestGame) Initialize(e *engine.Engine) error {
	core.LogDebug("TestGame Initialize fn....")
	state := g.State.(*gameState)

	meshName := g.ApplicationConfig.Scene.Mesh
	if err := e.LoadMesh(meshName); err != nil {
		return err
	}

	material, err := e.LoadMaterial(g.ApplicationConfig.Scene.Material)
	if err != nil {
		core.LogWarn("using the default material: %s", err)
		material = scene.NewMaterial("default")
		material.Roughness = demoRoughness
	}
	state.material = material

	state.cubes = state.cubes[:0]
	for _, position := range cubePositions {
		cube := scene.NewRenderable(meshName, material, vmath.TransformFromPosition(position).Matrix())
		if err := e.Scene().AddRenderable(cube); err != nil {
			return err
		}
		state.cubes = append(state.cubes, cube)
	}
	return nil
}

// movementKeys maps held keys to camera movement.
var movementKeys = map[core.KeyCode]scene.CameraMovement{
	core.KEY_W:      scene.MoveForward,
	core.KEY_S:      scene.MoveBackward,
	core.KEY_A:      scene.MoveLeft,
	core.KEY_D:      scene.MoveRight,
	core.KEY_SPACE:  scene.MoveUp,
	core.KEY_LSHIFT: scene.MoveDown,
}

func (g *TestGame) Update(e *engine.Engine, deltaTime float64) error {
	state := g.State.(*gameState)
	camera := e.Scene().Camera

	for key, movement := range movementKeys {
		if core.InputIsKeyDown(key) {
			camera.Move(movement, float32(deltaTime))
		}
	}

	// Holding the left button captures the cursor and turns the camera.
	mouseX, mouseY := core.InputGetMousePosition()
	if core.InputIsButtonDown(core.BUTTON_LEFT) {
		if !state.dragging {
			state.dragging = true
			e.Platform().CaptureCursor(true)
		} else {
			dx, dy := mouseDelta(state.lastX, state.lastY, mouseX, mouseY)
			camera.Rotate(dx, dy)
		}
		state.lastX, state.lastY = mouseX, mouseY
	} else if state.dragging {
		state.dragging = false
		e.Platform().CaptureCursor(false)
	}
	return nil
}

// mouseDelta is the camera rotation input: the previous position minus the current one.
func mouseDelta(lastX, lastY, x, y float64) (float32, float32) {
	return float32(lastX - x), float32(lastY - y)
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	state := g.State.(*gameState)
	state.width = width
	state.height = height
	return nil
}

func (g *TestGame) Shutdown() error {
	state := g.State.(*gameState)
	state.cubes = nil
	return nil
}
