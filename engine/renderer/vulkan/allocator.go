package vulkan

import (
	"fmt"
	"sync/atomic"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

// VulkanAllocator backs every buffer and image with a dedicated device memory
// allocation and keeps count of the ones still alive.
type VulkanAllocator struct {
	context *VulkanContext
	live    atomic.Int64
}

func NewVulkanAllocator(context *VulkanContext) *VulkanAllocator {
	return &VulkanAllocator{context: context}
}

func memoryTypeFlags(memory vk.PhysicalDeviceMemoryProperties) []vk.MemoryPropertyFlags {
	flags := make([]vk.MemoryPropertyFlags, memory.MemoryTypeCount)
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memory.MemoryTypes[i].Deref()
		flags[i] = memory.MemoryTypes[i].PropertyFlags
	}
	return flags
}

/**
 * @brief Finds the first memory type whose bit is set in typeBits and that has every
 * required property flag.
 */
func FindMemoryType(types []vk.MemoryPropertyFlags, typeBits uint32, required vk.MemoryPropertyFlags) (uint32, bool) {
	for i, flags := range types {
		if typeBits&(1<<uint32(i)) == 0 {
			continue
		}
		if flags&required == required {
			return uint32(i), true
		}
	}
	return 0, false
}

func (a *VulkanAllocator) allocate(requirements vk.MemoryRequirements, properties vk.MemoryPropertyFlags) (vk.DeviceMemory, error) {
	index := a.context.FindMemoryIndex(requirements.MemoryTypeBits, properties)
	if index < 0 {
		err := fmt.Errorf("no memory type matches bits %#x with properties %#x", requirements.MemoryTypeBits, properties)
		core.LogError(err.Error())
		return vk.NullDeviceMemory, err
	}

	allocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	if err := lockPool.SafeCall(MemoryManagement, func() error {
		if res := vk.AllocateMemory(a.context.Device.LogicalDevice, &allocateInfo, nil, &memory); res != vk.Success {
			return fmt.Errorf("vkAllocateMemory failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return vk.NullDeviceMemory, err
	}
	a.track()
	return memory, nil
}

func (a *VulkanAllocator) free(memory vk.DeviceMemory) {
	if memory == vk.NullDeviceMemory {
		return
	}
	_ = lockPool.SafeCall(MemoryManagement, func() error {
		vk.FreeMemory(a.context.Device.LogicalDevice, memory, nil)
		return nil
	})
	a.release()
}

func (a *VulkanAllocator) track()   { a.live.Add(1) }
func (a *VulkanAllocator) release() { a.live.Add(-1) }

// Live returns the number of allocations not yet freed.
func (a *VulkanAllocator) Live() int64 {
	return a.live.Load()
}

/**
 * @brief Creates a buffer with its own memory allocation, bound at offset 0.
 */
func (a *VulkanAllocator) CreateBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags, properties vk.MemoryPropertyFlags) (*VulkanBuffer, error) {
	device := a.context.Device.LogicalDevice
	buffer := &VulkanBuffer{
		Size:      size,
		Usage:     usage,
		allocator: a,
	}

	bufferInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        size,
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}
	if err := lockPool.SafeCall(BufferManagement, func() error {
		if res := vk.CreateBuffer(device, &bufferInfo, nil, &buffer.Handle); res != vk.Success {
			return fmt.Errorf("vkCreateBuffer failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, buffer.Handle, &requirements)
	requirements.Deref()

	memory, err := a.allocate(requirements, properties)
	if err != nil {
		buffer.Destroy()
		return nil, err
	}
	buffer.Memory = memory

	if res := vk.BindBufferMemory(device, buffer.Handle, buffer.Memory, 0); res != vk.Success {
		err := fmt.Errorf("vkBindBufferMemory failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		buffer.Destroy()
		return nil, err
	}
	return buffer, nil
}

/**
 * @brief Creates a 2D image with its own memory allocation and, when aspect is
 * not zero, a view covering every mip level.
 */
func (a *VulkanAllocator) CreateImage(params ImageCreateParams) (*VulkanImage, error) {
	device := a.context.Device.LogicalDevice
	if params.MipLevels == 0 {
		params.MipLevels = 1
	}
	image := &VulkanImage{
		Width:     params.Width,
		Height:    params.Height,
		MipLevels: params.MipLevels,
		Format:    params.Format,
		allocator: a,
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Extent: vk.Extent3D{
			Width:  params.Width,
			Height: params.Height,
			Depth:  1,
		},
		MipLevels:     params.MipLevels,
		ArrayLayers:   1,
		Format:        params.Format,
		Tiling:        params.Tiling,
		InitialLayout: vk.ImageLayoutUndefined,
		Usage:         params.Usage,
		Samples:       vk.SampleCount1Bit,
		SharingMode:   vk.SharingModeExclusive,
	}
	if err := lockPool.SafeCall(ImageManagement, func() error {
		if res := vk.CreateImage(device, &imageCreateInfo, nil, &image.Handle); res != vk.Success {
			return fmt.Errorf("vkCreateImage failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, image.Handle, &requirements)
	requirements.Deref()

	memory, err := a.allocate(requirements, params.Properties)
	if err != nil {
		image.Destroy()
		return nil, err
	}
	image.Memory = memory

	if res := vk.BindImageMemory(device, image.Handle, image.Memory, 0); res != vk.Success {
		err := fmt.Errorf("vkBindImageMemory failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		image.Destroy()
		return nil, err
	}

	if params.Aspect != 0 {
		if err := image.createView(params.Aspect); err != nil {
			image.Destroy()
			return nil, err
		}
	}
	return image, nil
}

// Destroy reports allocations that were never freed.
func (a *VulkanAllocator) Destroy() {
	if live := a.Live(); live > 0 {
		core.LogWarn("GPU allocator destroyed with %d live allocation(s)", live)
	}
}
