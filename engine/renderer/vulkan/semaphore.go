package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

type VulkanSemaphore struct {
	Handle vk.Semaphore
}

func NewSemaphore(context *VulkanContext) (*VulkanSemaphore, error) {
	semaphoreCreateInfo := vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}
	var handle vk.Semaphore
	if res := vk.CreateSemaphore(context.Device.LogicalDevice, &semaphoreCreateInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("vkCreateSemaphore failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	return &VulkanSemaphore{Handle: handle}, nil
}

func (s *VulkanSemaphore) Destroy(context *VulkanContext) {
	if s.Handle != vk.NullSemaphore {
		vk.DestroySemaphore(context.Device.LogicalDevice, s.Handle, nil)
		s.Handle = vk.NullSemaphore
	}
}
