package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

// frameDevice is the slice of the device the orchestrator drives. vulkanFrameDevice
// forwards to the driver.
type frameDevice interface {
	CreateFence(signaled bool) (*VulkanFence, error)
	WaitFence(fence *VulkanFence, timeoutNs uint64) vk.Result
	ResetFence(fence *VulkanFence) error
	DestroyFence(fence *VulkanFence)

	CreateSemaphore() (*VulkanSemaphore, error)
	DestroySemaphore(semaphore *VulkanSemaphore)

	CreateCommandPool() (vk.CommandPool, error)
	AllocateCommandBuffer(pool vk.CommandPool) (*VulkanCommandBuffer, error)
	FreeCommandBuffer(pool vk.CommandPool, commandBuffer *VulkanCommandBuffer)
	DestroyCommandPool(pool vk.CommandPool)

	AcquireNextImage(swapchain *VulkanSwapchain, timeoutNs uint64, signal *VulkanSemaphore) (uint32, vk.Result)
	QueueSubmit(commandBuffer *VulkanCommandBuffer, wait, signal *VulkanSemaphore, fence *VulkanFence) vk.Result
	QueuePresent(swapchain *VulkanSwapchain, imageIndex uint32, wait *VulkanSemaphore) vk.Result
	WaitIdle() vk.Result
}

type slotState int

const (
	slotIdle slotState = iota
	slotRecording
	slotSubmitted
)

type frameSlot struct {
	inFlight       *VulkanFence
	pool           vk.CommandPool
	commandBuffer  *VulkanCommandBuffer
	imageAvailable *VulkanSemaphore
	state          slotState
}

/**
 * @brief Paces the CPU against the GPU: F frame slots, each with a fence, a
 * command buffer and an image-available semaphore, plus one render-finished
 * semaphore per swapchain image.
 */
type FrameOrchestrator struct {
	device         frameDevice
	slots          []frameSlot
	renderFinished []*VulkanSemaphore
	current        uint32
	destroyed      bool
}

func NewVulkanFrameOrchestrator(context *VulkanContext, framesInFlight, imageCount uint32) (*FrameOrchestrator, error) {
	return NewFrameOrchestrator(&vulkanFrameDevice{context: context}, framesInFlight, imageCount)
}

func NewFrameOrchestrator(device frameDevice, framesInFlight, imageCount uint32) (*FrameOrchestrator, error) {
	if framesInFlight == 0 || imageCount == 0 {
		err := fmt.Errorf("%w: %d frames in flight over %d images", core.ErrInvalidConfig, framesInFlight, imageCount)
		core.LogError(err.Error())
		return nil, err
	}

	o := &FrameOrchestrator{
		device:         device,
		slots:          make([]frameSlot, framesInFlight),
		renderFinished: make([]*VulkanSemaphore, imageCount),
	}

	for i := range o.slots {
		if err := o.createSlot(&o.slots[i]); err != nil {
			o.Destroy()
			return nil, err
		}
	}
	for i := range o.renderFinished {
		semaphore, err := device.CreateSemaphore()
		if err != nil {
			o.Destroy()
			return nil, err
		}
		o.renderFinished[i] = semaphore
	}

	core.LogDebug("Frame orchestrator created: %d frames in flight, %d images.", framesInFlight, imageCount)
	return o, nil
}

func (o *FrameOrchestrator) createSlot(slot *frameSlot) error {
	var err error
	// Signaled so the first wait on every slot returns at once.
	if slot.inFlight, err = o.device.CreateFence(true); err != nil {
		return err
	}
	if slot.pool, err = o.device.CreateCommandPool(); err != nil {
		return err
	}
	if slot.commandBuffer, err = o.device.AllocateCommandBuffer(slot.pool); err != nil {
		return err
	}
	if slot.imageAvailable, err = o.device.CreateSemaphore(); err != nil {
		return err
	}
	slot.state = slotIdle
	return nil
}

func (o *FrameOrchestrator) CurrentFrame() uint32 {
	return o.current
}

func (o *FrameOrchestrator) FramesInFlight() uint32 {
	return uint32(len(o.slots))
}

func (o *FrameOrchestrator) ImageCount() uint32 {
	return uint32(len(o.renderFinished))
}

func (o *FrameOrchestrator) CurrentCommandBuffer() *VulkanCommandBuffer {
	return o.slots[o.current].commandBuffer
}

/**
 * @brief Waits for the current slot, acquires a swapchain image and re-arms the
 * slot fence. Returns core.ErrFrameNotReady when the fence wait times out and an
 * AcquireFailedError when no image could be acquired; in both cases the fence is
 * left signaled.
 */
func (o *FrameOrchestrator) BeginFrame(swapchain *VulkanSwapchain) (uint32, error) {
	if o.destroyed {
		return 0, fmt.Errorf("%w: orchestrator destroyed", core.ErrFrameNotReady)
	}
	slot := &o.slots[o.current]

	switch res := o.device.WaitFence(slot.inFlight, FenceTimeoutNs); res {
	case vk.Success:
		slot.state = slotIdle
	case vk.Timeout:
		return 0, fmt.Errorf("%w: frame %d", core.ErrFrameNotReady, o.current)
	case vk.ErrorDeviceLost:
		err := fmt.Errorf("%w: waiting on frame %d", core.ErrDeviceLost, o.current)
		core.LogError(err.Error())
		return 0, err
	default:
		err := fmt.Errorf("waiting on frame %d failed with %s", o.current, VulkanResultString(res, true))
		core.LogError(err.Error())
		return 0, err
	}

	imageIndex, res := o.device.AcquireNextImage(swapchain, AcquireTimeoutNs, slot.imageAvailable)
	if res != vk.Success && res != vk.Suboptimal {
		return 0, &AcquireFailedError{Result: res}
	}
	if imageIndex >= uint32(len(o.renderFinished)) {
		err := fmt.Errorf("%w: image index %d of %d", core.ErrAcquireFailed, imageIndex, len(o.renderFinished))
		core.LogError(err.Error())
		return 0, err
	}

	if err := o.device.ResetFence(slot.inFlight); err != nil {
		return 0, err
	}
	slot.state = slotRecording
	return imageIndex, nil
}

/**
 * @brief Submits the recorded buffer and presents imageIndex. The frame index
 * advances whether or not either step succeeds.
 *
 * A failed submit leaves the slot's fence reset and never signaled, so every
 * later BeginFrame on that slot reports ErrFrameNotReady. The orchestrator has
 * to be rebuilt after a submit failure.
 */
func (o *FrameOrchestrator) EndFrame(commandBuffer *VulkanCommandBuffer, swapchain *VulkanSwapchain, imageIndex uint32) error {
	defer o.advance()

	slot := &o.slots[o.current]
	if imageIndex >= uint32(len(o.renderFinished)) {
		slot.state = slotIdle
		return fmt.Errorf("%w: image index %d of %d", core.ErrSubmitFailed, imageIndex, len(o.renderFinished))
	}
	renderFinished := o.renderFinished[imageIndex]

	if res := o.device.QueueSubmit(commandBuffer, slot.imageAvailable, renderFinished, slot.inFlight); res != vk.Success {
		slot.state = slotIdle
		cause := core.ErrSubmitFailed
		if res == vk.ErrorDeviceLost {
			cause = core.ErrDeviceLost
		}
		err := fmt.Errorf("%w: vkQueueSubmit returned %s", cause, VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	commandBuffer.UpdateSubmitted()
	slot.state = slotSubmitted

	if res := o.device.QueuePresent(swapchain, imageIndex, renderFinished); res != vk.Success {
		return fmt.Errorf("%w: vkQueuePresentKHR returned %s", core.ErrPresentFailed, VulkanResultString(res, false))
	}
	return nil
}

func (o *FrameOrchestrator) advance() {
	o.current = (o.current + 1) % uint32(len(o.slots))
}

// Destroy waits for the device to go idle and releases every slot. Runs once.
func (o *FrameOrchestrator) Destroy() {
	if o == nil || o.destroyed {
		return
	}
	o.destroyed = true

	if res := o.device.WaitIdle(); res != vk.Success {
		core.LogWarn("vkDeviceWaitIdle returned %s", VulkanResultString(res, false))
	}

	for i := range o.slots {
		if o.slots[i].inFlight != nil {
			o.device.DestroyFence(o.slots[i].inFlight)
			o.slots[i].inFlight = nil
		}
	}
	for i := range o.slots {
		slot := &o.slots[i]
		if slot.commandBuffer != nil {
			o.device.FreeCommandBuffer(slot.pool, slot.commandBuffer)
			slot.commandBuffer = nil
		}
		o.device.DestroyCommandPool(slot.pool)
		slot.pool = vk.NullCommandPool
	}
	for i := range o.slots {
		if o.slots[i].imageAvailable != nil {
			o.device.DestroySemaphore(o.slots[i].imageAvailable)
			o.slots[i].imageAvailable = nil
		}
		o.slots[i].state = slotIdle
	}
	for i, semaphore := range o.renderFinished {
		if semaphore != nil {
			o.device.DestroySemaphore(semaphore)
			o.renderFinished[i] = nil
		}
	}
	o.current = 0
}
