package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

const textureFormat = vk.FormatR8g8b8a8Srgb

/**
 * @brief A sampled texture: a mip-mapped image plus its sampler.
 */
type VulkanTexture struct {
	Image   *VulkanImage
	Sampler vk.Sampler

	context *VulkanContext
}

func (vc *VulkanContext) supportsLinearBlit(format vk.Format) bool {
	var properties vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(vc.Device.PhysicalDevice, format, &properties)
	properties.Deref()
	flag := vk.FormatFeatureFlags(vk.FormatFeatureSampledImageFilterLinearBit)
	return properties.OptimalTilingFeatures&flag == flag
}

/**
 * @brief Uploads tightly packed RGBA8 pixels (already flipped) through a staging
 * buffer and generates the full mip chain.
 */
func NewVulkanTexture(context *VulkanContext, width, height uint32, pixels []byte) (*VulkanTexture, error) {
	if uint32(len(pixels)) != width*height*4 {
		err := fmt.Errorf("texture of %dx%d expects %d bytes, got %d", width, height, width*height*4, len(pixels))
		core.LogError(err.Error())
		return nil, err
	}

	mipLevels := MipLevelsFor(width, height)
	if !context.supportsLinearBlit(textureFormat) {
		core.LogWarn("Texture format does not support linear blitting, mip maps disabled.")
		mipLevels = 1
	}

	staging, err := context.Allocator.CreateHostBuffer(vk.DeviceSize(len(pixels)), vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit))
	if err != nil {
		return nil, err
	}
	defer staging.Destroy()
	if err := staging.Upload(pixels, 0); err != nil {
		return nil, err
	}

	image, err := context.Allocator.CreateImage(ImageCreateParams{
		Width:     width,
		Height:    height,
		MipLevels: mipLevels,
		Format:    textureFormat,
		Tiling:    vk.ImageTilingOptimal,
		Usage: vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) |
			vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) |
			vk.ImageUsageFlags(vk.ImageUsageSampledBit),
		Properties: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Aspect:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
	})
	if err != nil {
		return nil, err
	}

	texture := &VulkanTexture{Image: image, context: context}

	commandBuffer, err := context.BeginSingleTimeCommands()
	if err != nil {
		texture.Destroy()
		return nil, err
	}
	if err := image.TransitionLayout(commandBuffer, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal); err != nil {
		texture.Destroy()
		return nil, err
	}
	image.CopyFromBuffer(commandBuffer, staging)
	if err := image.GenerateMipmaps(commandBuffer); err != nil {
		texture.Destroy()
		return nil, err
	}
	if err := context.EndSingleTimeCommands(commandBuffer); err != nil {
		texture.Destroy()
		return nil, err
	}

	if err := texture.createSampler(); err != nil {
		texture.Destroy()
		return nil, err
	}
	return texture, nil
}

func (t *VulkanTexture) createSampler() error {
	device := t.context.Device
	samplerInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               vk.FilterLinear,
		MinFilter:               vk.FilterLinear,
		AddressModeU:            vk.SamplerAddressModeRepeat,
		AddressModeV:            vk.SamplerAddressModeRepeat,
		AddressModeW:            vk.SamplerAddressModeRepeat,
		AnisotropyEnable:        vk.False,
		MaxAnisotropy:           1.0,
		BorderColor:             vk.BorderColorIntOpaqueBlack,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		CompareOp:               vk.CompareOpAlways,
		MipmapMode:              vk.SamplerMipmapModeLinear,
		MipLodBias:              0.0,
		MinLod:                  0.0,
		MaxLod:                  float32(t.Image.MipLevels),
	}
	if device.SamplerAnisotropy {
		samplerInfo.AnisotropyEnable = vk.True
		samplerInfo.MaxAnisotropy = device.MaxAnisotropy
	}

	var sampler vk.Sampler
	if err := lockPool.SafeCall(SamplerManagement, func() error {
		if res := vk.CreateSampler(device.LogicalDevice, &samplerInfo, nil, &sampler); res != vk.Success {
			return fmt.Errorf("vkCreateSampler failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}
	t.Sampler = sampler
	return nil
}

func (t *VulkanTexture) Destroy() {
	if t == nil || t.context == nil {
		return
	}
	if t.Sampler != vk.NullSampler {
		_ = lockPool.SafeCall(SamplerManagement, func() error {
			vk.DestroySampler(t.context.Device.LogicalDevice, t.Sampler, nil)
			return nil
		})
		t.Sampler = vk.NullSampler
	}
	t.Image.Destroy()
}
