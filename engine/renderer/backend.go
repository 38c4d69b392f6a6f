package renderer

import (
	vmath "github.com/spaghettifunk/vortex/engine/math"
	"github.com/spaghettifunk/vortex/engine/scene"
)

// Backend is what the engine drives. Renderer is the Vulkan implementation.
type Backend interface {
	Render(s *scene.Scene) error
	OnResize(width, height uint32)
	ReloadShaders()
	UploadMesh(name string, vertices []vmath.Vertex3D, indices []uint32) error
	UploadTexture(name string, width, height uint32, pixels []byte) error
	RegisterMaterial(material *scene.Material)
	Destroy()
}

var _ Backend = (*Renderer)(nil)
