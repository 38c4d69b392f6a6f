package scene

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
)

/**
 * @brief A camera, one light and at most Capacity renderables.
 */
type Scene struct {
	Camera *Camera
	Light  Light

	capacity    uint32
	slots       *core.IdentifierPool
	renderables []*Renderable
	// Degrees.
	rotationAngle float32
}

func NewScene(capacity uint32) (*Scene, error) {
	if capacity == 0 {
		err := fmt.Errorf("%w: scene capacity must be at least 1", core.ErrInvalidConfig)
		core.LogError(err.Error())
		return nil, err
	}
	return &Scene{
		Camera:   NewCamera(),
		Light:    DefaultLight(),
		capacity: capacity,
		slots:    core.NewIdentifierPool(capacity),
	}, nil
}

func (s *Scene) Capacity() uint32 {
	return s.capacity
}

func (s *Scene) Renderables() []*Renderable {
	return s.renderables
}

/**
 * @brief Adds r to the scene and assigns its object slot. The translation of its
 * current model matrix becomes the anchor used by auto rotation.
 */
func (s *Scene) AddRenderable(r *Renderable) error {
	if r == nil {
		return errors.New("scene: renderable cannot be nil")
	}
	if r.inScene {
		return fmt.Errorf("scene: renderable %s already added", r.ID)
	}
	slot, err := s.slots.Acquire(r)
	if err != nil {
		err = fmt.Errorf("scene: cannot add renderable %s (capacity %d): %w", r.ID, s.capacity, err)
		core.LogError(err.Error())
		return err
	}
	r.Slot = slot
	r.InitialPosition = r.Model.Position()
	r.inScene = true
	s.renderables = append(s.renderables, r)
	return nil
}

// RemoveRenderable frees the object slot of the renderable with id.
func (s *Scene) RemoveRenderable(id uuid.UUID) bool {
	for i, r := range s.renderables {
		if r.ID != id {
			continue
		}
		if err := s.slots.Release(r.Slot); err != nil {
			core.LogWarn(err.Error())
		}
		r.inScene = false
		s.renderables = append(s.renderables[:i], s.renderables[i+1:]...)
		return true
	}
	return false
}

func (s *Scene) CameraUBO() CameraUBO {
	return s.Camera.UBO()
}

// UpdateAutoRotation spins every renderable about the Y axis through its initial position.
func (s *Scene) UpdateAutoRotation(deltaTime, degreesPerSecond float32) {
	s.rotationAngle += degreesPerSecond * deltaTime
	rotation := vmath.NewMat4EulerY(vmath.DegToRad(s.rotationAngle))
	scale := vmath.NewMat4Scale(vmath.NewVec3One())
	for _, r := range s.renderables {
		model := scale.Mul(rotation).Mul(vmath.NewMat4Translation(r.InitialPosition))
		r.UpdateTransform(model)
	}
}

func (s *Scene) RotationAngle() float32 {
	return s.rotationAngle
}
