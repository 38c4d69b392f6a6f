package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
	"github.com/spaghettifunk/vortex/engine/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestShaderLoader(t *testing.T) {
	path := writeFile(t, "pbr.vert.spv", []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	res, err := (&ShaderLoader{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pbr.vert", res.Name)
	assert.Equal(t, ResourceTypeShader, res.Type)
	assert.Equal(t, []uint32{0x07230203, 0x00010000}, res.Data)

	truncated := writeFile(t, "half.spv", []byte{0x03, 0x02, 0x23})
	_, err = (&ShaderLoader{}).Load(truncated)
	assert.ErrorIs(t, err, core.ErrInvalidShaderBinary)

	_, err = (&ShaderLoader{}).Load(filepath.Join(t.TempDir(), "missing.spv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func twoByTwo() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{G: 255, A: 255})
	img.Set(0, 1, color.NRGBA{B: 255, A: 255})
	img.Set(1, 1, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return img
}

func TestImageLoaderFlipsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, twoByTwo()))
	require.NoError(t, f.Close())

	res, err := (&ImageLoader{FlipY: true}).Load(path)
	require.NoError(t, err)
	data := res.Data.(*ImageData)
	assert.Equal(t, uint32(2), data.Width)
	assert.Equal(t, uint32(2), data.Height)
	require.Len(t, data.Pixels, 16)
	// bottom-left (blue) first
	assert.Equal(t, []byte{0, 0, 255, 255}, data.Pixels[0:4])
	assert.Equal(t, []byte{255, 0, 0, 255}, data.Pixels[8:12])

	res, err = (&ImageLoader{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 0, 0, 255}, res.Data.(*ImageData).Pixels[0:4])
}

func TestImageLoaderDecodesBMP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checker.bmp")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, bmp.Encode(f, twoByTwo()))
	require.NoError(t, f.Close())

	res, err := (&ImageLoader{}).Load(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 255, 0, 255}, res.Data.(*ImageData).Pixels[4:8])

	garbage := writeFile(t, "garbage.png", []byte("not an image"))
	_, err = (&ImageLoader{}).Load(garbage)
	assert.Error(t, err)
}

const quadOBJ = `# quad
v -1 -1 0
v  1 -1 0
v  1  1 0
v -1  1 0
vt 0 0
vt 1 0
vt 1 1
vt 0 1
vn 0 0 1
f 1/1/1 2/2/1 3/3/1 4/4/1
f -4/-4/-1 -2/-2/-1 -1/-1/-1
`

func TestDecodeOBJTriangulatesAndDedups(t *testing.T) {
	mesh, err := DecodeOBJ(strings.NewReader(quadOBJ))
	require.NoError(t, err)
	assert.Len(t, mesh.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 0, 2, 3}, mesh.Indices)
	assert.Equal(t, vmath.NewVec2(1, 1), mesh.Vertices[2].Texcoord)
	assert.Equal(t, vmath.NewVec3(-1, 1, 0), mesh.Vertices[3].Position)
}

func TestDecodeOBJDefaults(t *testing.T) {
	mesh, err := DecodeOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 1 0\ng tri\ns off\nf 1 2 3\n"))
	require.NoError(t, err)
	require.Len(t, mesh.Vertices, 3)
	for _, v := range mesh.Vertices {
		assert.Equal(t, vmath.NewVec3(0, 0, 1), v.Normal)
		assert.Equal(t, vmath.Vec2{}, v.Texcoord)
	}

	// position only, normal without uv
	mesh, err = DecodeOBJ(strings.NewReader("v 0 0 0\nv 1 0 0\nv 0 1 0\nvn 0 1 0\nf 1//1 2//1 3//1\n"))
	require.NoError(t, err)
	assert.Equal(t, vmath.NewVec3(0, 1, 0), mesh.Vertices[1].Normal)
}

func TestDecodeOBJErrors(t *testing.T) {
	cases := map[string]string{
		"no faces":     "v 0 0 0\n",
		"zero index":   "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2\n",
		"out of range": "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4\n",
		"short face":   "v 0 0 0\nv 1 0 0\nf 1 2\n",
		"bad float":    "v 0 zero 0\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeOBJ(strings.NewReader(src))
			assert.Error(t, err)
		})
	}
}

func TestMaterialLoader(t *testing.T) {
	path := writeFile(t, "cube.toml", []byte(`
name = "polished"
albedo = [0.8, 0.1, 0.1]
roughness = 0.1
metallic = 2.0

[textures]
albedo = "textures/cube_albedo.png"
`))
	res, err := (&MaterialLoader{}).Load(path)
	require.NoError(t, err)
	m := res.Data.(*scene.Material)
	assert.Equal(t, "polished", m.Name)
	assert.Equal(t, scene.MaterialOpaque, m.Kind)
	assert.Equal(t, vmath.NewVec3(0.8, 0.1, 0.1), m.Albedo)
	assert.Equal(t, float32(0.1), m.Roughness)
	assert.Equal(t, float32(1), m.Metallic)
	assert.Equal(t, float32(1), m.AO)
	assert.Equal(t, "textures/cube_albedo.png", m.Textures[scene.TextureAlbedo])
	assert.Empty(t, m.Textures[scene.TextureNormal])
}

func TestParseMaterialValidation(t *testing.T) {
	m, err := ParseMaterial("glass", []byte(`kind = "Transparent"`))
	require.NoError(t, err)
	assert.Equal(t, "glass", m.Name)
	assert.Equal(t, scene.MaterialTransparent, m.Kind)

	_, err = ParseMaterial("x", []byte(`kind = "emissive"`))
	assert.Error(t, err)
	_, err = ParseMaterial("x", []byte(`albedo = [1, 1]`))
	assert.Error(t, err)
	_, err = ParseMaterial("x", []byte(`albedo = `))
	assert.Error(t, err)
}
