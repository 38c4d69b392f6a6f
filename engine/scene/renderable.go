package scene

import (
	"github.com/google/uuid"
	vmath "github.com/spaghettifunk/vortex/engine/math"
)

/**
 * @brief A mesh drawn with a material. Slot is the object slot handed out by the
 * scene; it selects the renderable's uniform buffers and descriptor sets and does
 * not change while the renderable is in the scene.
 */
type Renderable struct {
	ID uuid.UUID
	// Name of the uploaded mesh, resolved by the renderer.
	Mesh     string
	Material *Material
	Model    vmath.Mat4

	Slot            uint32
	InitialPosition vmath.Vec3
	inScene         bool
}

func NewRenderable(mesh string, material *Material, model vmath.Mat4) *Renderable {
	return &Renderable{
		ID:       uuid.New(),
		Mesh:     mesh,
		Material: material,
		Model:    model,
	}
}

func (r *Renderable) UpdateTransform(model vmath.Mat4) {
	r.Model = model
}

func (r *Renderable) TransformUBO() TransformUBO {
	return NewTransformUBO(r.Model)
}
