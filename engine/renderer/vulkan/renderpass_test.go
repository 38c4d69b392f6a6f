package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMainRenderPassConfig(t *testing.T) {
	config := MainRenderPassConfig(vk.FormatB8g8r8a8Srgb, vk.FormatD32Sfloat)
	require.NoError(t, config.Validate())
	require.Len(t, config.Attachments, 2)
	require.Len(t, config.Subpasses, 1)
	require.Len(t, config.Dependencies, 1)

	assert.Equal(t, vk.ImageLayoutPresentSrc, config.Attachments[0].FinalLayout)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, config.Attachments[1].StoreOp)
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, config.Attachments[1].FinalLayout)
	assert.Equal(t, vk.SubpassExternal, config.Dependencies[0].SrcSubpass)

	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit)
	assert.Equal(t, stages, config.Dependencies[0].DstStageMask)
}

func TestStencilOpsDerivedFromFormat(t *testing.T) {
	config := MainRenderPassConfig(vk.FormatB8g8r8a8Srgb, vk.FormatD24UnormS8Uint)
	descriptions := config.attachmentDescriptions()

	assert.Equal(t, vk.AttachmentLoadOpDontCare, descriptions[0].StencilLoadOp)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, descriptions[0].StencilStoreOp)

	assert.Equal(t, vk.AttachmentLoadOpClear, descriptions[1].StencilLoadOp)
	assert.Equal(t, vk.AttachmentStoreOpDontCare, descriptions[1].StencilStoreOp)
}

func TestSubpassDescriptions(t *testing.T) {
	config := MainRenderPassConfig(vk.FormatB8g8r8a8Srgb, vk.FormatD32Sfloat)
	subpasses := config.subpassDescriptions()
	require.Len(t, subpasses, 1)
	assert.Equal(t, uint32(1), subpasses[0].ColorAttachmentCount)
	require.NotNil(t, subpasses[0].PDepthStencilAttachment)
	assert.Equal(t, uint32(1), subpasses[0].PDepthStencilAttachment.Attachment)
	assert.Nil(t, subpasses[0].PResolveAttachments)
}

func TestRenderPassConfigValidate(t *testing.T) {
	color := AttachmentConfig{Type: AttachmentColor, Format: vk.FormatB8g8r8a8Srgb, Samples: vk.SampleCount4Bit}
	resolve := AttachmentConfig{Type: AttachmentResolve, Format: vk.FormatB8g8r8a8Srgb, Samples: vk.SampleCount1Bit}

	mismatched := RenderPassConfig{
		Attachments: []AttachmentConfig{color, color, resolve},
		Subpasses: []SubpassConfig{{
			ColorAttachments:   []AttachmentReference{{Index: 0}, {Index: 1}},
			ResolveAttachments: []AttachmentReference{{Index: 2}},
		}},
	}
	assert.ErrorIs(t, mismatched.Validate(), core.ErrInvalidConfig)

	matched := RenderPassConfig{
		Attachments: []AttachmentConfig{color, resolve},
		Subpasses: []SubpassConfig{{
			ColorAttachments:   []AttachmentReference{{Index: 0}},
			ResolveAttachments: []AttachmentReference{{Index: 1}},
		}},
	}
	assert.NoError(t, matched.Validate())

	outOfRange := RenderPassConfig{
		Attachments: []AttachmentConfig{color},
		Subpasses:   []SubpassConfig{{PreserveAttachments: []uint32{3}}},
	}
	assert.Error(t, outOfRange.Validate())

	assert.Error(t, RenderPassConfig{}.Validate())
}

func TestRenderPassDestroyWithoutHandle(t *testing.T) {
	var rp *VulkanRenderPass
	assert.NotPanics(t, rp.Destroy)
	assert.NotPanics(t, (&VulkanRenderPass{}).Destroy)
}
