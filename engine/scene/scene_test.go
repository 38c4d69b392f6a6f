package scene

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tolerance = 1e-4

func cube(x, y, z float32, material *Material) *Renderable {
	return NewRenderable("cube", material, vmath.NewMat4Translation(vmath.NewVec3(x, y, z)))
}

func TestAddRenderableAssignsSlots(t *testing.T) {
	s, err := NewScene(2)
	require.NoError(t, err)
	material := NewMaterial("default")

	a, b := cube(2, 0, -5, material), cube(-2, 0, -5, material)
	require.NoError(t, s.AddRenderable(a))
	require.NoError(t, s.AddRenderable(b))
	assert.Equal(t, uint32(0), a.Slot)
	assert.Equal(t, uint32(1), b.Slot)
	assert.Equal(t, vmath.NewVec3(-2, 0, -5), b.InitialPosition)

	err = s.AddRenderable(cube(0, 0, 0, material))
	assert.ErrorIs(t, err, core.ErrSceneCapacityExceeded)
	assert.Error(t, s.AddRenderable(a))
	assert.Error(t, s.AddRenderable(nil))
	assert.Len(t, s.Renderables(), 2)

	// A freed slot is handed to the next renderable; the others keep theirs.
	require.True(t, s.RemoveRenderable(a.ID))
	c := cube(1, 1, 1, material)
	require.NoError(t, s.AddRenderable(c))
	assert.Equal(t, uint32(0), c.Slot)
	assert.Equal(t, uint32(1), b.Slot)

	_, err = NewScene(0)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
}

func TestAutoRotationRoundTrip(t *testing.T) {
	s, err := NewScene(4)
	require.NoError(t, err)
	r := cube(2, 0, -5, NewMaterial("m"))
	require.NoError(t, s.AddRenderable(r))
	start := r.Model

	// 30 degrees per second over 12 seconds is a full turn.
	for i := 0; i < 120; i++ {
		s.UpdateAutoRotation(0.1, 30)
		assert.True(t, r.Model.Position().Compare(r.InitialPosition, tolerance), "position drifted at step %d", i)
	}
	assert.InDelta(t, 360, s.RotationAngle(), 1e-2)
	assert.True(t, r.Model.Compare(start, 1e-3))

	s.UpdateAutoRotation(3, 30)
	corner := vmath.NewVec3(1, 0, 0).Transform(r.Model)
	assert.True(t, corner.Compare(vmath.NewVec3(2, 0, -6), 1e-3), "got %v", corner)
}

func TestAutoRotationKeepsTranslationExactly(t *testing.T) {
	s, err := NewScene(4)
	require.NoError(t, err)
	material := NewMaterial("shared")
	a, b := cube(2, 0, -5, material), cube(-2, 0, -5, material)
	require.NoError(t, s.AddRenderable(a))
	require.NoError(t, s.AddRenderable(b))
	require.Equal(t, uint32(0), a.Slot)
	require.Equal(t, uint32(1), b.Slot)
	require.Equal(t, a.Mesh, b.Mesh)
	require.Same(t, a.Material, b.Material)

	s.UpdateAutoRotation(1.0, 30)

	for _, r := range []*Renderable{a, b} {
		assert.Equal(t, r.InitialPosition, r.Model.Position())
		// only the rotation changed
		assert.False(t, r.Model.Compare(vmath.NewMat4Translation(r.InitialPosition), tolerance))
		assert.InDelta(t, math.Cos(math.Pi/6), r.Model.Data[0], tolerance)
	}
	assert.Equal(t, vmath.NewVec3(2, 0, -5), a.Model.Position())
	assert.Equal(t, vmath.NewVec3(-2, 0, -5), b.Model.Position())
}

func TestCameraDefaults(t *testing.T) {
	c := NewCamera()
	assert.True(t, c.Front.Compare(vmath.NewVec3(0, 0, -1), tolerance), "got %v", c.Front)
	assert.True(t, c.Right.Compare(vmath.NewVec3(1, 0, 0), tolerance), "got %v", c.Right)

	view := c.ViewMatrix()
	assert.True(t, view.Position().Compare(vmath.NewVec3(0, 0, -3), tolerance), "got %v", view.Position())
	origin := vmath.NewVec3(0, 0, 3).Transform(view)
	assert.True(t, origin.Compare(vmath.NewVec3Zero(), tolerance))
}

func TestCameraMoveAndRotate(t *testing.T) {
	c := NewCamera()
	c.Move(MoveForward, 1)
	assert.InDelta(t, 0.5, c.Position.Z, tolerance)
	c.Move(MoveRight, 2)
	assert.InDelta(t, 5, c.Position.X, tolerance)
	c.Move(MoveUp, 0.4)
	assert.InDelta(t, 1, c.Position.Y, tolerance)

	c.Rotate(0, 10000)
	assert.Equal(t, float32(89), c.Pitch)
	c.Rotate(0, -20000)
	assert.Equal(t, float32(-89), c.Pitch)

	c.Rotate(900, 0)
	assert.InDelta(t, 0, c.Yaw, tolerance)
}

func TestCameraProjectionFollowsViewport(t *testing.T) {
	c := NewCamera()
	c.SetViewportSize(1000, 500)
	assert.Equal(t, float32(2), c.AspectRatio())

	p := c.ProjectionMatrix()
	assert.InDelta(t, p.Data[5]/2, p.Data[0], tolerance)

	c.SetViewportSize(0, 0)
	assert.Equal(t, float32(1), c.AspectRatio())
}

func floatAt(buf []byte, offset int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
}

func TestUniformLayouts(t *testing.T) {
	c := NewCamera()
	camera := c.UBO().Bytes()
	require.Len(t, camera, CameraUBOSize)
	assert.Equal(t, float32(3), floatAt(camera, 136))
	assert.Equal(t, float32(0), floatAt(camera, 140))

	model := vmath.NewMat4Scale(vmath.NewVec3(2, 2, 2)).Mul(vmath.NewMat4Translation(vmath.NewVec3(1, 2, 3)))
	transform := NewTransformUBO(model).Bytes()
	require.Len(t, transform, TransformUBOSize)
	assert.Equal(t, float32(2), floatAt(transform, 0))
	assert.Equal(t, float32(3), floatAt(transform, 56))
	// normal matrix of a uniform scale of 2
	assert.InDelta(t, 0.5, floatAt(transform, 64), tolerance)

	light := DefaultLight().UBO().Bytes()
	require.Len(t, light, LightUBOSize)
	assert.Equal(t, float32(1), floatAt(light, 12))
	assert.Equal(t, float32(1), floatAt(light, 16))
	assert.Equal(t, uint32(LightPoint), binary.LittleEndian.Uint32(light[28:]))

	m := NewMaterial("m")
	m.Roughness = 0.1
	material := m.UBO().Bytes()
	require.Len(t, material, MaterialUBOSize)
	assert.Equal(t, float32(0.1), floatAt(material, 16))
	assert.Equal(t, float32(1), floatAt(material, 20))
	assert.Equal(t, float32(0), floatAt(material, 24))
}

func TestMaterialSetTexture(t *testing.T) {
	m := NewMaterial("brick")
	m.SetTexture(TextureNormal, "textures/brick_n.png")
	m.SetTexture(TextureMapCount, "ignored.png")
	assert.Equal(t, "textures/brick_n.png", m.Textures[TextureNormal])
	assert.Empty(t, m.Textures[TextureAlbedo])
}
