package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

type vulkanFrameDevice struct {
	context *VulkanContext
}

func (d *vulkanFrameDevice) CreateFence(signaled bool) (*VulkanFence, error) {
	return NewFence(d.context, signaled)
}

func (d *vulkanFrameDevice) WaitFence(fence *VulkanFence, timeoutNs uint64) vk.Result {
	return fence.Wait(d.context, timeoutNs)
}

func (d *vulkanFrameDevice) ResetFence(fence *VulkanFence) error {
	return fence.Reset(d.context)
}

func (d *vulkanFrameDevice) DestroyFence(fence *VulkanFence) {
	fence.Destroy(d.context)
}

func (d *vulkanFrameDevice) CreateSemaphore() (*VulkanSemaphore, error) {
	return NewSemaphore(d.context)
}

func (d *vulkanFrameDevice) DestroySemaphore(semaphore *VulkanSemaphore) {
	semaphore.Destroy(d.context)
}

// Frame pools live on the graphics family and let each buffer be reset on its own.
func (d *vulkanFrameDevice) CreateCommandPool() (vk.CommandPool, error) {
	return d.context.createCommandPool(uint32(d.context.Device.GraphicsQueueIndex),
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit))
}

func (d *vulkanFrameDevice) AllocateCommandBuffer(pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	return NewVulkanCommandBuffer(d.context, pool, true)
}

func (d *vulkanFrameDevice) FreeCommandBuffer(pool vk.CommandPool, commandBuffer *VulkanCommandBuffer) {
	commandBuffer.Free(d.context, pool)
}

func (d *vulkanFrameDevice) DestroyCommandPool(pool vk.CommandPool) {
	if pool == vk.NullCommandPool {
		return
	}
	vk.DestroyCommandPool(d.context.Device.LogicalDevice, pool, nil)
}

func (d *vulkanFrameDevice) AcquireNextImage(swapchain *VulkanSwapchain, timeoutNs uint64, signal *VulkanSemaphore) (uint32, vk.Result) {
	var imageIndex uint32
	result := vk.AcquireNextImage(d.context.Device.LogicalDevice, swapchain.Handle, timeoutNs, signal.Handle, vk.NullFence, &imageIndex)
	return imageIndex, result
}

func (d *vulkanFrameDevice) QueueSubmit(commandBuffer *VulkanCommandBuffer, wait, signal *VulkanSemaphore, fence *VulkanFence) vk.Result {
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{wait.Handle},
		PWaitDstStageMask:    []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)},
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{commandBuffer.Handle},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signal.Handle},
	}

	result := vk.Success
	_ = lockPool.SafeQueueCall(uint32(d.context.Device.GraphicsQueueIndex), func() error {
		result = vk.QueueSubmit(d.context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, fence.Handle)
		return nil
	})
	if result == vk.Success {
		// Unsignaled until the GPU finishes this submission.
		fence.IsSignaled = false
	}
	return result
}

func (d *vulkanFrameDevice) QueuePresent(swapchain *VulkanSwapchain, imageIndex uint32, wait *VulkanSemaphore) vk.Result {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait.Handle},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{swapchain.Handle},
		PImageIndices:      []uint32{imageIndex},
	}

	result := vk.Success
	_ = lockPool.SafeQueueCall(uint32(d.context.Device.PresentQueueIndex), func() error {
		result = vk.QueuePresent(d.context.Device.PresentQueue, &presentInfo)
		return nil
	})
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal {
		core.LogDebug("Swapchain needs recreation after present: %s", VulkanResultString(result, false))
	}
	return result
}

func (d *vulkanFrameDevice) WaitIdle() vk.Result {
	return d.context.Device.WaitIdle()
}
