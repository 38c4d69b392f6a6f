package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

// VulkanBuffer is a buffer handle together with the memory that backs it.
type VulkanBuffer struct {
	Handle vk.Buffer
	Memory vk.DeviceMemory
	Size   vk.DeviceSize
	Usage  vk.BufferUsageFlags

	allocator *VulkanAllocator
}

func hostVisibleFlags() vk.MemoryPropertyFlags {
	return vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
}

/**
 * @brief Maps the memory, copies data at offset and unmaps it again. The memory
 * must be host visible and coherent.
 */
func (b *VulkanBuffer) Upload(data []byte, offset vk.DeviceSize) error {
	if len(data) == 0 {
		return nil
	}
	if offset+vk.DeviceSize(len(data)) > b.Size {
		err := fmt.Errorf("upload of %d bytes at offset %d overflows buffer of %d bytes", len(data), offset, b.Size)
		core.LogError(err.Error())
		return err
	}

	device := b.allocator.context.Device.LogicalDevice
	var mapped unsafe.Pointer
	if res := vk.MapMemory(device, b.Memory, offset, vk.DeviceSize(len(data)), 0, &mapped); res != vk.Success {
		err := fmt.Errorf("vkMapMemory failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	vk.Memcopy(mapped, data)
	vk.UnmapMemory(device, b.Memory)
	return nil
}

/**
 * @brief Records and submits a copy of size bytes from src into this buffer and
 * waits for it to finish.
 */
func (b *VulkanBuffer) CopyFrom(src *VulkanBuffer, size vk.DeviceSize) error {
	context := b.allocator.context
	commandBuffer, err := context.BeginSingleTimeCommands()
	if err != nil {
		return err
	}
	vk.CmdCopyBuffer(commandBuffer.Handle, src.Handle, b.Handle, 1, []vk.BufferCopy{{
		SrcOffset: 0,
		DstOffset: 0,
		Size:      size,
	}})
	return context.EndSingleTimeCommands(commandBuffer)
}

// Destroy frees the handle and its memory. Safe to call more than once.
func (b *VulkanBuffer) Destroy() {
	if b == nil || b.allocator == nil {
		return
	}
	device := b.allocator.context.Device.LogicalDevice
	if b.Handle != vk.NullBuffer {
		_ = lockPool.SafeCall(BufferManagement, func() error {
			vk.DestroyBuffer(device, b.Handle, nil)
			return nil
		})
		b.Handle = vk.NullBuffer
	}
	if b.Memory != vk.NullDeviceMemory {
		b.allocator.free(b.Memory)
		b.Memory = vk.NullDeviceMemory
	}
}

// CreateHostBuffer creates a host visible buffer, used for uniforms and staging.
func (a *VulkanAllocator) CreateHostBuffer(size vk.DeviceSize, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	return a.CreateBuffer(size, usage, hostVisibleFlags())
}

/**
 * @brief Uploads data into a new device local buffer through a temporary staging buffer.
 */
func (a *VulkanAllocator) CreateDeviceLocalBuffer(data []byte, usage vk.BufferUsageFlags) (*VulkanBuffer, error) {
	size := vk.DeviceSize(len(data))
	staging, err := a.CreateHostBuffer(size, vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()

	if err := staging.Upload(data, 0); err != nil {
		return nil, err
	}

	buffer, err := a.CreateBuffer(
		size,
		usage|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		return nil, err
	}
	if err := buffer.CopyFrom(staging, size); err != nil {
		buffer.Destroy()
		return nil, err
	}
	return buffer, nil
}
