package vulkan

import (
	"fmt"
	"math/bits"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

type ImageCreateParams struct {
	Width      uint32
	Height     uint32
	MipLevels  uint32
	Format     vk.Format
	Tiling     vk.ImageTiling
	Usage      vk.ImageUsageFlags
	Properties vk.MemoryPropertyFlags
	// Aspect of the view to create. Zero skips the view.
	Aspect vk.ImageAspectFlags
}

// VulkanImage is an image, its memory and its view, owned together.
type VulkanImage struct {
	Handle    vk.Image
	Memory    vk.DeviceMemory
	View      vk.ImageView
	Width     uint32
	Height    uint32
	MipLevels uint32
	Format    vk.Format

	allocator *VulkanAllocator
}

// MipLevelsFor returns floor(log2(max(width, height))) + 1.
func MipLevelsFor(width, height uint32) uint32 {
	largest := width
	if height > largest {
		largest = height
	}
	if largest == 0 {
		return 1
	}
	return uint32(bits.Len32(largest))
}

func (i *VulkanImage) createView(aspect vk.ImageAspectFlags) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    i.Handle,
		ViewType: vk.ImageViewType2d,
		Format:   i.Format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   0,
			LevelCount:     i.MipLevels,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
	}
	var view vk.ImageView
	if res := vk.CreateImageView(i.allocator.context.Device.LogicalDevice, &viewCreateInfo, nil, &view); res != vk.Success {
		err := fmt.Errorf("vkCreateImageView failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	i.View = view
	return nil
}

type layoutTransition struct {
	srcAccess vk.AccessFlags
	dstAccess vk.AccessFlags
	srcStage  vk.PipelineStageFlags
	dstStage  vk.PipelineStageFlags
}

// transitionMasks returns the access and stage masks of the supported layout transitions.
func transitionMasks(oldLayout, newLayout vk.ImageLayout) (layoutTransition, error) {
	switch {
	case oldLayout == vk.ImageLayoutUndefined && newLayout == vk.ImageLayoutTransferDstOptimal:
		return layoutTransition{
			srcAccess: 0,
			dstAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferDstOptimal && newLayout == vk.ImageLayoutTransferSrcOptimal:
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferWriteBit),
			dstAccess: vk.AccessFlags(vk.AccessTransferReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		}, nil
	case oldLayout == vk.ImageLayoutTransferSrcOptimal && newLayout == vk.ImageLayoutShaderReadOnlyOptimal:
		return layoutTransition{
			srcAccess: vk.AccessFlags(vk.AccessTransferReadBit),
			dstAccess: vk.AccessFlags(vk.AccessShaderReadBit),
			srcStage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
			dstStage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		}, nil
	}
	return layoutTransition{}, fmt.Errorf("unsupported layout transition %d -> %d", oldLayout, newLayout)
}

func colorSubresource(baseMip, levels uint32) vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
		BaseMipLevel:   baseMip,
		LevelCount:     levels,
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
}

func (i *VulkanImage) barrier(commandBuffer *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout, baseMip, levels uint32) error {
	masks, err := transitionMasks(oldLayout, newLayout)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	vk.CmdPipelineBarrier(commandBuffer.Handle, masks.srcStage, masks.dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       masks.srcAccess,
		DstAccessMask:       masks.dstAccess,
		OldLayout:           oldLayout,
		NewLayout:           newLayout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               i.Handle,
		SubresourceRange:    colorSubresource(baseMip, levels),
	}})
	return nil
}

// TransitionLayout moves every mip level of the image from oldLayout to newLayout.
func (i *VulkanImage) TransitionLayout(commandBuffer *VulkanCommandBuffer, oldLayout, newLayout vk.ImageLayout) error {
	return i.barrier(commandBuffer, oldLayout, newLayout, 0, i.MipLevels)
}

// CopyFromBuffer copies tightly packed pixels into mip level 0, which must be in TransferDstOptimal.
func (i *VulkanImage) CopyFromBuffer(commandBuffer *VulkanCommandBuffer, buffer *VulkanBuffer) {
	region := vk.BufferImageCopy{
		BufferOffset:      0,
		BufferRowLength:   0,
		BufferImageHeight: 0,
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
			MipLevel:       0,
			BaseArrayLayer: 0,
			LayerCount:     1,
		},
		ImageOffset: vk.Offset3D{X: 0, Y: 0, Z: 0},
		ImageExtent: vk.Extent3D{Width: i.Width, Height: i.Height, Depth: 1},
	}
	vk.CmdCopyBufferToImage(commandBuffer.Handle, buffer.Handle, i.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})
}

func mipExtent(size uint32) int32 {
	if size > 1 {
		return int32(size / 2)
	}
	return 1
}

/**
 * @brief Fills mip levels 1..n by successive linear blits. Expects every level in
 * TransferDstOptimal and leaves every level in ShaderReadOnlyOptimal.
 */
func (i *VulkanImage) GenerateMipmaps(commandBuffer *VulkanCommandBuffer) error {
	width, height := i.Width, i.Height
	for level := uint32(1); level < i.MipLevels; level++ {
		if err := i.barrier(commandBuffer, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutTransferSrcOptimal, level-1, 1); err != nil {
			return err
		}

		blit := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       level - 1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			SrcOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: int32(width), Y: int32(height), Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				MipLevel:       level,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
			DstOffsets: [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: mipExtent(width), Y: mipExtent(height), Z: 1}},
		}
		vk.CmdBlitImage(commandBuffer.Handle,
			i.Handle, vk.ImageLayoutTransferSrcOptimal,
			i.Handle, vk.ImageLayoutTransferDstOptimal,
			1, []vk.ImageBlit{blit}, vk.FilterLinear)

		if err := i.barrier(commandBuffer, vk.ImageLayoutTransferSrcOptimal, vk.ImageLayoutShaderReadOnlyOptimal, level-1, 1); err != nil {
			return err
		}
		width, height = uint32(mipExtent(width)), uint32(mipExtent(height))
	}
	// the last level was only ever written to
	return i.barrier(commandBuffer, vk.ImageLayoutTransferDstOptimal, vk.ImageLayoutShaderReadOnlyOptimal, i.MipLevels-1, 1)
}

// NewDepthImage creates the depth attachment matching the swapchain extent.
func NewDepthImage(context *VulkanContext, width, height uint32) (*VulkanImage, error) {
	if context.Device.DepthFormat == vk.FormatUndefined {
		err := fmt.Errorf("device has no supported depth format")
		core.LogError(err.Error())
		return nil, err
	}
	return context.Allocator.CreateImage(ImageCreateParams{
		Width:      width,
		Height:     height,
		MipLevels:  1,
		Format:     context.Device.DepthFormat,
		Tiling:     vk.ImageTilingOptimal,
		Usage:      vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit),
		Properties: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Aspect:     vk.ImageAspectFlags(vk.ImageAspectDepthBit),
	})
}

// Destroy releases the view, the image and its memory. Safe to call more than once.
func (i *VulkanImage) Destroy() {
	if i == nil || i.allocator == nil {
		return
	}
	device := i.allocator.context.Device.LogicalDevice
	if i.View != vk.NullImageView {
		vk.DestroyImageView(device, i.View, nil)
		i.View = vk.NullImageView
	}
	if i.Handle != vk.NullImage {
		_ = lockPool.SafeCall(ImageManagement, func() error {
			vk.DestroyImage(device, i.Handle, nil)
			return nil
		})
		i.Handle = vk.NullImage
	}
	if i.Memory != vk.NullDeviceMemory {
		i.allocator.free(i.Memory)
		i.Memory = vk.NullDeviceMemory
	}
}
