package renderer

import (
	vk "github.com/goki/vulkan"
	vmath "github.com/spaghettifunk/vortex/engine/math"
	"github.com/spaghettifunk/vortex/engine/renderer/vulkan"
)

// renderDevice is the GPU work the Renderer drives each frame and on
// recreation. vulkanDevice is the implementation.
type renderDevice interface {
	FramebufferSize() (int, int)
	Extent() vk.Extent2D
	WaitIdle()

	ReleaseSwapchainResources()
	RecreateSwapchain() error
	CreateSwapchainResources() error
	CreatePipelines() error

	// BeginFrame returns the frame slot and the acquired image index.
	BeginFrame() (uint32, uint32, error)
	WriteCamera(frame uint32, data []byte) error
	BeginPass(frame, imageIndex uint32) error
	WriteObject(instance uint32, transform, light, material []byte) error
	BindTextures(instance uint32, paths []string) error
	Draw(mesh string, pipeline vulkan.PipelineType, instance uint32) error
	EndPass() error
	EndFrame(imageIndex uint32) error

	HasMesh(name string) bool
	HasTexture(name string) bool
	UploadMesh(name string, vertices []vmath.Vertex3D, indices []uint32) error
	// UploadTexture reports whether a texture of the same name was replaced.
	UploadTexture(name string, width, height uint32, pixels []byte) (bool, error)

	Destroy()
}

var _ renderDevice = (*vulkanDevice)(nil)
