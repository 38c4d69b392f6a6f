package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-5

func TestMat4MulKeepsTranslation(t *testing.T) {
	p := NewVec3(2, 0, -5)
	model := NewMat4Scale(NewVec3One()).Mul(NewMat4EulerY(DegToRad(73))).Mul(NewMat4Translation(p))
	assert.True(t, model.Position().Compare(p, tolerance), "got %v", model.Position())
}

func TestMat4EulerY(t *testing.T) {
	r := NewMat4EulerY(K_PI / 2)
	v := NewVec3(1, 0, 0).Transform(r)
	assert.True(t, v.Compare(NewVec3(0, 0, -1), tolerance), "got %v", v)
}

func TestMat4InverseRoundTrip(t *testing.T) {
	tr := Transform{
		Position: NewVec3(1, -2, 3),
		Rotation: NewVec3(0.3, 1.1, -0.4),
		Scale:    NewVec3(2, 2, 2),
	}
	m := tr.Matrix()
	assert.True(t, m.Mul(m.Inverse()).Compare(NewMat4Identity(), 1e-4))

	inv := NewMat4Translation(NewVec3(4, 5, 6)).Inverse()
	assert.True(t, inv.Position().Compare(NewVec3(-4, -5, -6), tolerance))
}

func TestMat4InverseSingular(t *testing.T) {
	assert.Equal(t, NewMat4Identity(), Mat4{}.Inverse())
}

func TestMat4Transposed(t *testing.T) {
	m := NewMat4Translation(NewVec3(7, 8, 9)).Transposed()
	assert.Equal(t, float32(7), m.Data[3])
	assert.Equal(t, float32(8), m.Data[7])
	assert.Equal(t, float32(9), m.Data[11])
	assert.Equal(t, float32(0), m.Data[12])
}

func TestMat4LookAt(t *testing.T) {
	eye := NewVec3(0, 0, 3)
	view := NewMat4LookAt(eye, eye.Add(NewVec3Forward()), NewVec3Up())

	origin := NewVec3Zero().Transform(view)
	assert.True(t, origin.Compare(NewVec3(0, 0, -3), tolerance), "got %v", origin)
	assert.True(t, eye.Transform(view).Compare(NewVec3Zero(), tolerance))
}

func TestMat4Perspective(t *testing.T) {
	p := NewMat4Perspective(DegToRad(90), 2, 0.1, 100)
	assert.InDelta(t, 0.5, p.Data[0], tolerance)
	assert.InDelta(t, 1.0, p.Data[5], tolerance)
	assert.Equal(t, float32(-1), p.Data[11])
	assert.Equal(t, float32(0), p.Data[15])
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 89.0, Clamp(120.0, -89.0, 89.0))
	assert.Equal(t, -89.0, Clamp(-120.0, -89.0, 89.0))
	assert.Equal(t, uint32(3), Clamp(uint32(3), 2, 8))
	assert.Equal(t, uint32(2), Clamp(uint32(1), 2, 8))
}

func TestVec3(t *testing.T) {
	assert.Equal(t, NewVec3(0, 0, 1), NewVec3(1, 0, 0).Cross(NewVec3(0, 1, 0)))
	assert.InDelta(t, 5.0, NewVec3(3, 4, 0).Length(), tolerance)
	assert.Equal(t, NewVec3Zero(), NewVec3Zero().Normalized())
	assert.InDelta(t, 1.0, NewVec3(3, 4, 12).Normalized().Length(), tolerance)
}
