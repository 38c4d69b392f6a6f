package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestChooseSurfaceFormat(t *testing.T) {
	preferred := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Srgb, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, preferred, chooseSurfaceFormat([]vk.SurfaceFormat{other, preferred}))
	assert.Equal(t, other, chooseSurfaceFormat([]vk.SurfaceFormat{other}))
}

func TestChoosePresentMode(t *testing.T) {
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo, vk.PresentModeMailbox}))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeFifo}))
}

func TestChooseSwapExtent(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: 800, Height: 600},
		MinImageExtent: vk.Extent2D{Width: 1, Height: 1},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
	}
	assert.Equal(t, vk.Extent2D{Width: 800, Height: 600}, chooseSwapExtent(caps, 1920, 1080))

	caps.CurrentExtent = vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32}
	assert.Equal(t, vk.Extent2D{Width: 1920, Height: 1080}, chooseSwapExtent(caps, 1920, 1080))
	assert.Equal(t, vk.Extent2D{Width: 4096, Height: 1}, chooseSwapExtent(caps, 10000, 0))
}

func TestChooseImageCount(t *testing.T) {
	caps := vk.SurfaceCapabilities{MinImageCount: 2, MaxImageCount: 0}
	assert.Equal(t, uint32(3), chooseImageCount(vk.PresentModeMailbox, caps))
	assert.Equal(t, uint32(2), chooseImageCount(vk.PresentModeFifo, caps))

	caps.MaxImageCount = 2
	assert.Equal(t, uint32(2), chooseImageCount(vk.PresentModeMailbox, caps))

	caps = vk.SurfaceCapabilities{MinImageCount: 4, MaxImageCount: 8}
	assert.Equal(t, uint32(4), chooseImageCount(vk.PresentModeFifo, caps))
}

func TestChooseCompositeAlpha(t *testing.T) {
	assert.Equal(t, vk.CompositeAlphaOpaqueBit, chooseCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaOpaqueBit|vk.CompositeAlphaInheritBit)))
	assert.Equal(t, vk.CompositeAlphaInheritBit, chooseCompositeAlpha(vk.CompositeAlphaFlags(vk.CompositeAlphaInheritBit)))
}

func TestSwapchainCleanupIsIdempotent(t *testing.T) {
	swapchain := &VulkanSwapchain{valid: true, ImageCount: 3}
	swapchain.Cleanup()
	assert.False(t, swapchain.IsValid())
	assert.Equal(t, uint32(0), swapchain.ImageCount)

	// second call must not touch the (absent) device
	assert.NotPanics(t, swapchain.Cleanup)
}
