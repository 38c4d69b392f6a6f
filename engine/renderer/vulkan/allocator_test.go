package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindMemoryType(t *testing.T) {
	deviceLocal := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	hostCoherent := hostVisibleFlags()
	types := []vk.MemoryPropertyFlags{
		deviceLocal,
		hostCoherent,
		deviceLocal | hostCoherent,
	}

	idx, ok := FindMemoryType(types, 0b111, hostCoherent)
	require.True(t, ok)
	assert.Equal(t, uint32(1), idx)

	// type 1 is excluded by the filter
	idx, ok = FindMemoryType(types, 0b101, hostCoherent)
	require.True(t, ok)
	assert.Equal(t, uint32(2), idx)

	_, ok = FindMemoryType(types, 0b001, hostCoherent)
	assert.False(t, ok)
}

func TestAllocatorLiveCount(t *testing.T) {
	a := &VulkanAllocator{}
	a.track()
	a.track()
	a.release()
	assert.Equal(t, int64(1), a.Live())
	a.Destroy()
}

func TestResourceDestroyWithoutHandles(t *testing.T) {
	var buffer VulkanBuffer
	buffer.Destroy()
	buffer.Destroy()

	var image VulkanImage
	image.Destroy()
	image.Destroy()

	var texture VulkanTexture
	texture.Destroy()

	var nilBuffer *VulkanBuffer
	assert.NotPanics(t, func() { nilBuffer.Destroy() })
}

func TestBufferUploadOverflow(t *testing.T) {
	buffer := &VulkanBuffer{Size: 16}
	assert.Error(t, buffer.Upload(make([]byte, 8), 12))
	assert.NoError(t, buffer.Upload(nil, 0))
}

func TestMipLevelsFor(t *testing.T) {
	assert.Equal(t, uint32(1), MipLevelsFor(1, 1))
	assert.Equal(t, uint32(11), MipLevelsFor(1024, 512))
	assert.Equal(t, uint32(10), MipLevelsFor(600, 1000))
	assert.Equal(t, uint32(1), MipLevelsFor(0, 0))
}

func TestTransitionMasks(t *testing.T) {
	masks, err := transitionMasks(vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.AccessFlags(0), masks.srcAccess)
	assert.Equal(t, vk.PipelineStageFlags(vk.PipelineStageTransferBit), masks.dstStage)

	masks, err = transitionMasks(vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal)
	require.NoError(t, err)
	assert.Equal(t, vk.AccessFlags(vk.AccessShaderReadBit), masks.dstAccess)

	_, err = transitionMasks(vk.ImageLayoutPresentSrc, vk.ImageLayoutUndefined)
	assert.Error(t, err)
}
