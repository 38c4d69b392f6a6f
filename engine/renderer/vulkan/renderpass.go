package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

type AttachmentType int

const (
	AttachmentColor AttachmentType = iota
	AttachmentDepth
	// Multisample resolve target.
	AttachmentResolve
	// Contents kept for a later subpass.
	AttachmentPreserve
)

type AttachmentConfig struct {
	Type          AttachmentType
	Format        vk.Format
	Samples       vk.SampleCountFlagBits
	LoadOp        vk.AttachmentLoadOp
	StoreOp       vk.AttachmentStoreOp
	InitialLayout vk.ImageLayout
	FinalLayout   vk.ImageLayout
}

type AttachmentReference struct {
	// Index in RenderPassConfig.Attachments.
	Index  uint32
	Layout vk.ImageLayout
}

type SubpassConfig struct {
	ColorAttachments    []AttachmentReference
	InputAttachments    []AttachmentReference
	DepthAttachment     *AttachmentReference
	ResolveAttachments  []AttachmentReference
	PreserveAttachments []uint32
}

type RenderPassConfig struct {
	Attachments  []AttachmentConfig
	Subpasses    []SubpassConfig
	Dependencies []vk.SubpassDependency
}

func isDepthStencilFormat(format vk.Format) bool {
	switch format {
	case vk.FormatD16UnormS8Uint, vk.FormatD24UnormS8Uint, vk.FormatD32SfloatS8Uint,
		vk.FormatD16Unorm, vk.FormatD32Sfloat, vk.FormatX8D24UnormPack32:
		return true
	}
	return false
}

func (c RenderPassConfig) Validate() error {
	if len(c.Subpasses) == 0 {
		return fmt.Errorf("%w: render pass needs at least one subpass", core.ErrInvalidConfig)
	}
	count := uint32(len(c.Attachments))
	for i, subpass := range c.Subpasses {
		if len(subpass.ResolveAttachments) > 0 && len(subpass.ResolveAttachments) != len(subpass.ColorAttachments) {
			return fmt.Errorf("%w: subpass %d has %d resolve attachments for %d color attachments",
				core.ErrInvalidConfig, i, len(subpass.ResolveAttachments), len(subpass.ColorAttachments))
		}
		refs := append(append(append([]AttachmentReference{}, subpass.ColorAttachments...), subpass.InputAttachments...), subpass.ResolveAttachments...)
		if subpass.DepthAttachment != nil {
			refs = append(refs, *subpass.DepthAttachment)
		}
		for _, ref := range refs {
			if ref.Index >= count {
				return fmt.Errorf("%w: subpass %d references attachment %d of %d", core.ErrInvalidConfig, i, ref.Index, count)
			}
		}
		for _, idx := range subpass.PreserveAttachments {
			if idx >= count {
				return fmt.Errorf("%w: subpass %d preserves attachment %d of %d", core.ErrInvalidConfig, i, idx, count)
			}
		}
	}
	return nil
}

// attachmentDescriptions derives the stencil ops from the format: depth formats reuse
// the load and store ops, color formats do not care.
func (c RenderPassConfig) attachmentDescriptions() []vk.AttachmentDescription {
	descriptions := make([]vk.AttachmentDescription, len(c.Attachments))
	for i, att := range c.Attachments {
		descriptions[i] = vk.AttachmentDescription{
			Format:         att.Format,
			Samples:        att.Samples,
			LoadOp:         att.LoadOp,
			StoreOp:        att.StoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  att.InitialLayout,
			FinalLayout:    att.FinalLayout,
		}
		if isDepthStencilFormat(att.Format) {
			descriptions[i].StencilLoadOp = att.LoadOp
			descriptions[i].StencilStoreOp = att.StoreOp
		}
	}
	return descriptions
}

func toVulkanReferences(refs []AttachmentReference) []vk.AttachmentReference {
	if len(refs) == 0 {
		return nil
	}
	out := make([]vk.AttachmentReference, len(refs))
	for i, ref := range refs {
		out[i] = vk.AttachmentReference{Attachment: ref.Index, Layout: ref.Layout}
	}
	return out
}

func (c RenderPassConfig) subpassDescriptions() []vk.SubpassDescription {
	subpasses := make([]vk.SubpassDescription, len(c.Subpasses))
	for i, sub := range c.Subpasses {
		subpasses[i] = vk.SubpassDescription{
			PipelineBindPoint:       vk.PipelineBindPointGraphics,
			ColorAttachmentCount:    uint32(len(sub.ColorAttachments)),
			PColorAttachments:       toVulkanReferences(sub.ColorAttachments),
			InputAttachmentCount:    uint32(len(sub.InputAttachments)),
			PInputAttachments:       toVulkanReferences(sub.InputAttachments),
			PResolveAttachments:     toVulkanReferences(sub.ResolveAttachments),
			PreserveAttachmentCount: uint32(len(sub.PreserveAttachments)),
			PPreserveAttachments:    sub.PreserveAttachments,
		}
		if sub.DepthAttachment != nil {
			subpasses[i].PDepthStencilAttachment = &vk.AttachmentReference{
				Attachment: sub.DepthAttachment.Index,
				Layout:     sub.DepthAttachment.Layout,
			}
		}
	}
	return subpasses
}

/**
 * @brief Single subpass pass with a presentable color attachment and a depth attachment.
 */
func MainRenderPassConfig(colorFormat, depthFormat vk.Format) RenderPassConfig {
	return RenderPassConfig{
		Attachments: []AttachmentConfig{
			{
				Type:          AttachmentColor,
				Format:        colorFormat,
				Samples:       vk.SampleCount1Bit,
				LoadOp:        vk.AttachmentLoadOpClear,
				StoreOp:       vk.AttachmentStoreOpStore,
				InitialLayout: vk.ImageLayoutUndefined,
				FinalLayout:   vk.ImageLayoutPresentSrc,
			},
			{
				Type:          AttachmentDepth,
				Format:        depthFormat,
				Samples:       vk.SampleCount1Bit,
				LoadOp:        vk.AttachmentLoadOpClear,
				StoreOp:       vk.AttachmentStoreOpDontCare,
				InitialLayout: vk.ImageLayoutUndefined,
				FinalLayout:   vk.ImageLayoutDepthStencilAttachmentOptimal,
			},
		},
		Subpasses: []SubpassConfig{{
			ColorAttachments: []AttachmentReference{{Index: 0, Layout: vk.ImageLayoutColorAttachmentOptimal}},
			DepthAttachment:  &AttachmentReference{Index: 1, Layout: vk.ImageLayoutDepthStencilAttachmentOptimal},
		}},
		Dependencies: []vk.SubpassDependency{{
			SrcSubpass:    vk.SubpassExternal,
			DstSubpass:    0,
			SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			SrcAccessMask: 0,
			DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
			DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
		}},
	}
}

type VulkanRenderPass struct {
	Handle vk.RenderPass

	context *VulkanContext
}

func NewVulkanRenderPass(context *VulkanContext, config RenderPassConfig) (*VulkanRenderPass, error) {
	if err := config.Validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	attachments := config.attachmentDescriptions()
	subpasses := config.subpassDescriptions()
	renderPassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    uint32(len(subpasses)),
		PSubpasses:      subpasses,
		DependencyCount: uint32(len(config.Dependencies)),
		PDependencies:   config.Dependencies,
	}

	var handle vk.RenderPass
	if res := vk.CreateRenderPass(context.Device.LogicalDevice, &renderPassCreateInfo, nil, &handle); res != vk.Success {
		err := &PassCompilationError{Result: res}
		core.LogError(err.Error())
		return nil, err
	}
	core.LogDebug("RenderPass created with %d attachments and %d subpasses", len(attachments), len(subpasses))
	return &VulkanRenderPass{Handle: handle, context: context}, nil
}

func (rp *VulkanRenderPass) Begin(commandBuffer *VulkanCommandBuffer, framebuffer *VulkanFramebuffer, extent vk.Extent2D, clearColor [4]float32, depth float32) {
	clearValues := make([]vk.ClearValue, 2)
	clearValues[0].SetColor(clearColor[:])
	clearValues[1].SetDepthStencil(depth, 0)

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: framebuffer.Handle,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: extent,
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}

	vk.CmdBeginRenderPass(commandBuffer.Handle, &beginInfo, vk.SubpassContentsInline)
	commandBuffer.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (rp *VulkanRenderPass) End(commandBuffer *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(commandBuffer.Handle)
	commandBuffer.State = COMMAND_BUFFER_STATE_RECORDING
}

func (rp *VulkanRenderPass) Destroy() {
	if rp == nil || rp.Handle == vk.NullRenderPass {
		return
	}
	vk.DestroyRenderPass(rp.context.Device.LogicalDevice, rp.Handle, nil)
	rp.Handle = vk.NullRenderPass
}
