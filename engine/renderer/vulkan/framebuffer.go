package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []vk.ImageView
	RenderPass  *VulkanRenderPass

	context *VulkanContext
}

func NewVulkanFramebuffer(context *VulkanContext, renderPass *VulkanRenderPass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	framebuffer := &VulkanFramebuffer{
		// Take a copy of the attachments
		Attachments: append([]vk.ImageView{}, attachments...),
		RenderPass:  renderPass,
		context:     context,
	}

	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderPass.Handle,
		AttachmentCount: uint32(len(framebuffer.Attachments)),
		PAttachments:    framebuffer.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	var handle vk.Framebuffer
	if res := vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, nil, &handle); res != vk.Success {
		err := fmt.Errorf("vkCreateFramebuffer failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	framebuffer.Handle = handle
	return framebuffer, nil
}

/**
 * @brief Creates one framebuffer per swapchain view, each sharing the depth view.
 */
func NewSwapchainFramebuffers(context *VulkanContext, renderPass *VulkanRenderPass, swapchain *VulkanSwapchain, depth *VulkanImage) ([]*VulkanFramebuffer, error) {
	framebuffers := make([]*VulkanFramebuffer, 0, len(swapchain.Views))
	for _, view := range swapchain.Views {
		fb, err := NewVulkanFramebuffer(context, renderPass, swapchain.Extent.Width, swapchain.Extent.Height,
			[]vk.ImageView{view, depth.View})
		if err != nil {
			for _, created := range framebuffers {
				created.Destroy()
			}
			return nil, err
		}
		framebuffers = append(framebuffers, fb)
	}
	return framebuffers, nil
}

func (vfb *VulkanFramebuffer) Destroy() {
	if vfb == nil || vfb.Handle == vk.NullFramebuffer {
		return
	}
	vk.DestroyFramebuffer(vfb.context.Device.LogicalDevice, vfb.Handle, nil)
	vfb.Attachments = nil
	vfb.Handle = vk.NullFramebuffer
	vfb.RenderPass = nil
}
