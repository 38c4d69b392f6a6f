package assets

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spaghettifunk/vortex/engine/assets/loaders"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var spirvHeader = []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

const triangleOBJ = "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) notify(e core.AssetEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e.Path)
}

func (r *recorder) paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func write(t *testing.T, root, name string, data []byte) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func newTestManager(t *testing.T, debounce time.Duration) (*AssetManager, *recorder, string) {
	t.Helper()
	root := t.TempDir()
	write(t, root, "shaders/pbr.vert.spv", spirvHeader)
	write(t, root, "Cube.obj", []byte(triangleOBJ))
	write(t, root, "materials/cube.toml", []byte("roughness = 0.1\n"))
	write(t, root, "README.md", []byte("ignored"))

	rec := &recorder{}
	am, err := NewAssetManager(WithNotify(rec.notify), WithDebounce(debounce))
	require.NoError(t, err)
	require.NoError(t, am.Initialize(root))
	t.Cleanup(func() { _ = am.Shutdown() })
	return am, rec, root
}

func TestInitializeIndexesKnownAssets(t *testing.T) {
	am, _, _ := newTestManager(t, 10*time.Millisecond)
	assert.Equal(t, 3, am.Count())

	info, ok := am.Info("shaders/pbr.vert.spv")
	require.True(t, ok)
	assert.Equal(t, loaders.ResourceTypeShader, info.Type)
	_, ok = am.Info("README.md")
	assert.False(t, ok)

	mesh, err := am.LoadMesh("Cube.obj")
	require.NoError(t, err)
	assert.Len(t, mesh.Indices, 3)

	material, err := am.LoadMaterial("materials/cube.toml")
	require.NoError(t, err)
	assert.Equal(t, "cube", material.Name)
	assert.Equal(t, float32(0.1), material.Roughness)

	info, _ = am.Info("materials/cube.toml")
	assert.False(t, info.LastLoaded.IsZero())

	_, err = am.LoadMesh("materials/cube.toml")
	assert.Error(t, err)
	_, err = am.LoadAsset("missing.obj")
	assert.Error(t, err)
}

func TestInitializeRejectsBadRoot(t *testing.T) {
	am, err := NewAssetManager()
	require.NoError(t, err)
	defer am.Shutdown()

	assert.Error(t, am.Initialize(filepath.Join(t.TempDir(), "nope")))

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, am.Initialize(file))
}

func TestWatcherNotifiesValidShaderChanges(t *testing.T) {
	am, rec, root := newTestManager(t, 20*time.Millisecond)

	write(t, root, "shaders/pbr.frag.spv", spirvHeader)
	require.Eventually(t, func() bool {
		return len(rec.paths()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"shaders/pbr.frag.spv"}, rec.paths())
	_, ok := am.Info("shaders/pbr.frag.spv")
	assert.True(t, ok)

	// truncated binary is indexed but not announced
	write(t, root, "shaders/broken.spv", spirvHeader[:3])
	require.Eventually(t, func() bool {
		_, ok := am.Info("shaders/broken.spv")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, rec.paths(), 1)
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	am, rec, root := newTestManager(t, 20*time.Millisecond)

	require.NoError(t, os.Mkdir(filepath.Join(root, "textures"), 0o755))
	// wait for the new directory to be watched
	time.Sleep(100 * time.Millisecond)
	write(t, root, "textures/cube.png", []byte("png"))

	require.Eventually(t, func() bool {
		for _, p := range rec.paths() {
			if p == "textures/cube.png" {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "textures", "cube.png")))
	require.Eventually(t, func() bool {
		_, ok := am.Info("textures/cube.png")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcherDebouncesBurstOfWrites(t *testing.T) {
	_, rec, root := newTestManager(t, 250*time.Millisecond)

	for i := 0; i < 5; i++ {
		write(t, root, "Cube.obj", []byte(triangleOBJ))
	}
	require.Eventually(t, func() bool {
		return len(rec.paths()) > 0
	}, 2*time.Second, 10*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, []string{"Cube.obj"}, rec.paths())
}

func TestShutdownIsIdempotent(t *testing.T) {
	am, _, _ := newTestManager(t, 10*time.Millisecond)
	require.NoError(t, am.Shutdown())
	assert.NoError(t, am.Shutdown())
	assert.ErrorIs(t, am.addRecursive(am.Root()), ErrAssetManagerClosed)
}

func TestDefaultNotifyQueuesEvent(t *testing.T) {
	require.True(t, core.EventSystemInitialize())
	defer core.EventSystemShutdown()

	var got string
	core.EventRegister(core.EVENT_CODE_ASSET_CHANGED, nil, func(ctx core.EventContext, _ interface{}) bool {
		got = ctx.Data.(*core.AssetEvent).Path
		return true
	})
	enqueueAssetEvent(core.AssetEvent{Path: "shaders/pbr.vert.spv"})
	assert.Equal(t, 1, core.EventDispatchQueued())
	assert.Equal(t, "shaders/pbr.vert.spv", got)
}

func TestDetermineAssetType(t *testing.T) {
	cases := map[string]loaders.ResourceType{
		"a/b.spv":     loaders.ResourceTypeShader,
		"x.PNG":       loaders.ResourceTypeNone,
		"x.webp":      loaders.ResourceTypeImage,
		"m.toml":      loaders.ResourceTypeMaterial,
		"Cube.obj":    loaders.ResourceTypeModel,
		"shader.vert": loaders.ResourceTypeNone,
	}
	for path, want := range cases {
		assert.Equal(t, want, determineAssetType(path), path)
	}
}
