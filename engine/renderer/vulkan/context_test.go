package vulkan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMissingLayers(t *testing.T) {
	available := []string{"VK_LAYER_LUNARG_api_dump", validationLayerName}
	assert.Empty(t, missingLayers([]string{validationLayerName}, available))
	assert.Equal(t, []string{validationLayerName}, missingLayers([]string{validationLayerName}, nil))
}

func TestVulkanNames(t *testing.T) {
	raw := make([]byte, 16)
	copy(raw, "VK_KHR_surface")
	assert.Equal(t, "VK_KHR_surface", vulkanName(raw))
	assert.Equal(t, "abc", vulkanName([]byte("abc")))

	assert.Equal(t, "x\x00", VulkanSafeString("x"))
	assert.Equal(t, "\x00", VulkanSafeString(""))

	in := []string{"a", "b\x00"}
	out := VulkanSafeStrings(in)
	assert.Equal(t, []string{"a\x00", "b\x00"}, out)
	assert.Equal(t, "a", in[0], "input slice is left untouched")
}

func TestContextDestroyWithoutHandles(t *testing.T) {
	context := &VulkanContext{}
	context.Destroy()
	context.Destroy()
	assert.Nil(t, context.Device)
	assert.Nil(t, context.Allocator)
}
