package scene

import (
	"github.com/chewxy/math32"
	vmath "github.com/spaghettifunk/vortex/engine/math"
)

type CameraMovement int

const (
	MoveForward CameraMovement = iota
	MoveBackward
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
)

// Pitch is kept inside this range, in degrees, so the view never flips.
const maxPitch float32 = 89.0

/**
 * @brief A free-fly perspective camera driven by yaw and pitch.
 * Angles are in degrees.
 */
type Camera struct {
	Position vmath.Vec3
	Front    vmath.Vec3
	Up       vmath.Vec3
	Right    vmath.Vec3

	Yaw   float32
	Pitch float32

	/** @brief Units per second. */
	MovementSpeed float32
	/** @brief Degrees per pixel of mouse movement. */
	MouseSensitivity float32

	FOV  float32
	Near float32
	Far  float32

	Width  int
	Height int
}

func NewCamera() *Camera {
	c := &Camera{
		Position:         vmath.NewVec3(0, 0, 3),
		Front:            vmath.NewVec3(0, 0, -1),
		Up:               vmath.NewVec3(0, 1, 0),
		Right:            vmath.NewVec3(1, 0, 0),
		Yaw:              -90,
		Pitch:            0,
		MovementSpeed:    2.5,
		MouseSensitivity: 0.1,
		FOV:              45,
		Near:             0.1,
		Far:              100,
		Width:            1280,
		Height:           720,
	}
	c.updateVectors()
	return c
}

func (c *Camera) updateVectors() {
	yaw := vmath.DegToRad(c.Yaw)
	pitch := vmath.DegToRad(c.Pitch)
	front := vmath.NewVec3(
		math32.Cos(yaw)*math32.Cos(pitch),
		math32.Sin(pitch),
		math32.Sin(yaw)*math32.Cos(pitch),
	)
	c.Front = front.Normalized()
	c.Right = c.Front.Cross(vmath.NewVec3Up()).Normalized()
	c.Up = c.Right.Cross(c.Front).Normalized()
}

func (c *Camera) SetPosition(position vmath.Vec3) {
	c.Position = position
}

func (c *Camera) SetViewportSize(width, height int) {
	c.Width = width
	c.Height = height
}

func (c *Camera) Move(direction CameraMovement, deltaTime float32) {
	velocity := c.MovementSpeed * deltaTime
	switch direction {
	case MoveForward:
		c.Position = c.Position.Add(c.Front.MulScalar(velocity))
	case MoveBackward:
		c.Position = c.Position.Sub(c.Front.MulScalar(velocity))
	case MoveLeft:
		c.Position = c.Position.Sub(c.Right.MulScalar(velocity))
	case MoveRight:
		c.Position = c.Position.Add(c.Right.MulScalar(velocity))
	case MoveUp:
		c.Position = c.Position.Add(c.Up.MulScalar(velocity))
	case MoveDown:
		c.Position = c.Position.Sub(c.Up.MulScalar(velocity))
	}
}

// Rotate turns the camera by a mouse delta in pixels.
func (c *Camera) Rotate(deltaX, deltaY float32) {
	c.Yaw += deltaX * c.MouseSensitivity
	c.Pitch = vmath.Clamp(c.Pitch+deltaY*c.MouseSensitivity, -maxPitch, maxPitch)
	c.updateVectors()
}

func (c *Camera) ViewMatrix() vmath.Mat4 {
	return vmath.NewMat4LookAt(c.Position, c.Position.Add(c.Front), c.Up)
}

func (c *Camera) AspectRatio() float32 {
	if c.Height <= 0 {
		return 1
	}
	return float32(c.Width) / float32(c.Height)
}

func (c *Camera) ProjectionMatrix() vmath.Mat4 {
	return vmath.NewMat4Perspective(vmath.DegToRad(c.FOV), c.AspectRatio(), c.Near, c.Far)
}

func (c *Camera) UBO() CameraUBO {
	return CameraUBO{
		View:       c.ViewMatrix(),
		Projection: c.ProjectionMatrix(),
		Position:   c.Position,
	}
}
