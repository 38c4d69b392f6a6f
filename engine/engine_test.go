package engine

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spaghettifunk/vortex/engine/assets"
	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
	"github.com/spaghettifunk/vortex/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	rendered  int
	resized   [][2]uint32
	reloads   int
	meshes    map[string]int
	textures  map[string]int
	materials []*scene.Material
	destroyed bool
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{meshes: map[string]int{}, textures: map[string]int{}}
}

func (f *fakeBackend) Render(s *scene.Scene) error { f.rendered++; return nil }
func (f *fakeBackend) OnResize(w, h uint32)        { f.resized = append(f.resized, [2]uint32{w, h}) }
func (f *fakeBackend) ReloadShaders()              { f.reloads++ }
func (f *fakeBackend) Destroy()                    { f.destroyed = true }
func (f *fakeBackend) RegisterMaterial(m *scene.Material) {
	f.materials = append(f.materials, m)
}

func (f *fakeBackend) UploadMesh(name string, vertices []vmath.Vertex3D, indices []uint32) error {
	f.meshes[name] = len(indices)
	return nil
}

func (f *fakeBackend) UploadTexture(name string, width, height uint32, pixels []byte) error {
	f.textures[name] = len(pixels)
	return nil
}

func writeAsset(t *testing.T, root, name string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func testEngine(t *testing.T) (*Engine, *fakeBackend, string) {
	t.Helper()
	root := t.TempDir()
	writeAsset(t, root, "Cube.obj", []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"))
	writeAsset(t, root, "materials/cube.toml", []byte("roughness = 0.1\n[textures]\nalbedo = \"textures/white.png\"\n"))

	f, err := os.Create(filepath.Join(root, "white.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	require.NoError(t, f.Close())
	require.NoError(t, os.MkdirAll(filepath.Join(root, "textures"), 0o755))
	require.NoError(t, os.Rename(filepath.Join(root, "white.png"), filepath.Join(root, "textures", "white.png")))

	cfg := NewApplicationConfig(core.DefaultConfig())
	cfg.AssetsDir = root
	e := newEngine(&Game{ApplicationConfig: cfg})

	am, err := assets.NewAssetManager(assets.WithNotify(func(core.AssetEvent) {}))
	require.NoError(t, err)
	require.NoError(t, am.Initialize(root))
	t.Cleanup(func() { _ = am.Shutdown() })
	e.assetManager = am

	backend := newFakeBackend()
	e.renderer = backend
	e.scene, err = scene.NewScene(cfg.Renderer.ObjectCapacity)
	require.NoError(t, err)
	return e, backend, root
}

func TestApplicationConfigFromEngineConfig(t *testing.T) {
	cfg := NewApplicationConfig(core.DefaultConfig())
	assert.Equal(t, "Vortex", cfg.Name)
	assert.Equal(t, uint32(1280), cfg.StartWidth)
	assert.Equal(t, uint32(960), cfg.StartHeight)
	assert.Equal(t, "assets", cfg.AssetsDir)
	assert.Equal(t, uint32(10), cfg.Renderer.ObjectCapacity)

	_, err := New(&Game{})
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestLoadAssetsIntoRenderer(t *testing.T) {
	e, backend, _ := testEngine(t)

	require.NoError(t, e.LoadMesh("Cube.obj"))
	assert.Equal(t, 3, backend.meshes["Cube.obj"])

	m, err := e.LoadMaterial("materials/cube.toml")
	require.NoError(t, err)
	assert.Equal(t, float32(0.1), m.Roughness)
	assert.Equal(t, 16, backend.textures["textures/white.png"])
	require.Len(t, backend.materials, 1)

	again, err := e.LoadMaterial("materials/cube.toml")
	require.NoError(t, err)
	assert.Same(t, m, again)
	assert.Len(t, backend.materials, 1)

	assert.Error(t, e.LoadMesh("missing.obj"))
}

func TestReloadAssetRoutesByKind(t *testing.T) {
	e, backend, root := testEngine(t)
	require.NoError(t, e.LoadMesh("Cube.obj"))
	m, err := e.LoadMaterial("materials/cube.toml")
	require.NoError(t, err)
	id := m.ID

	e.reloadAsset("shaders/pbr.frag.spv")
	assert.Equal(t, 1, backend.reloads)

	writeAsset(t, root, "materials/cube.toml", []byte("roughness = 0.7\nkind = \"transparent\"\n"))
	e.reloadAsset("materials/cube.toml")
	assert.Equal(t, float32(0.7), m.Roughness)
	assert.Equal(t, scene.MaterialTransparent, m.Kind)
	assert.Equal(t, id, m.ID)
	assert.Len(t, backend.materials, 2)

	writeAsset(t, root, "Cube.obj", []byte("v 0 0 0\nv 1 0 0\nv 0 1 0\nv 1 1 0\nf 1 2 4 3\n"))
	e.reloadAsset("Cube.obj")
	assert.Equal(t, 6, backend.meshes["Cube.obj"])

	// unknown assets are ignored
	e.reloadAsset("other.obj")
	assert.Equal(t, 1, backend.reloads)
}

func TestResizeSuspendsWhenMinimized(t *testing.T) {
	e, backend, _ := testEngine(t)

	onResized(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 0, WindowHeight: 0}}, e)
	assert.True(t, e.isSuspended)
	assert.Empty(t, backend.resized)

	onResized(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 800, WindowHeight: 600}}, e)
	assert.False(t, e.isSuspended)
	assert.Equal(t, [][2]uint32{{800, 600}}, backend.resized)
	w, h := e.GetFramebufferSize()
	assert.Equal(t, uint32(800), w)
	assert.Equal(t, uint32(600), h)

	// same size again is not a resize
	onResized(core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 800, WindowHeight: 600}}, e)
	assert.Len(t, backend.resized, 1)
}

func TestEscapeStopsEngine(t *testing.T) {
	e, _, _ := testEngine(t)
	require.True(t, core.EventSystemInitialize())
	defer core.EventSystemShutdown()
	e.registerEvents()

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_W}})
	assert.True(t, e.isRunning.Load())

	core.EventFire(core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_ESCAPE}})
	assert.False(t, e.isRunning.Load())
}

func TestAssetEventTriggersShaderReload(t *testing.T) {
	e, backend, _ := testEngine(t)
	require.True(t, core.EventSystemInitialize())
	defer core.EventSystemShutdown()
	e.registerEvents()

	require.NoError(t, core.EventEnqueue(core.EventContext{
		Type: core.EVENT_CODE_ASSET_CHANGED,
		Data: &core.AssetEvent{Path: "shaders/pbr.vert.spv"},
	}))
	assert.Equal(t, 0, backend.reloads)
	assert.Equal(t, 1, core.EventDispatchQueued())
	assert.Equal(t, 1, backend.reloads)
}

func TestFrameSleep(t *testing.T) {
	assert.Equal(t, time.Duration(0), frameSleep(0, time.Millisecond))
	assert.Equal(t, time.Duration(0), frameSleep(60, 20*time.Millisecond))
	assert.Equal(t, time.Second/60-5*time.Millisecond, frameSleep(60, 5*time.Millisecond))
}

func TestShutdownReleasesBackendOnce(t *testing.T) {
	e, backend, _ := testEngine(t)
	require.True(t, core.EventSystemInitialize())
	require.NoError(t, e.Shutdown())
	assert.True(t, backend.destroyed)
	assert.Equal(t, EngineStageShutdown, e.Stage())
	assert.NoError(t, e.Shutdown())
}
