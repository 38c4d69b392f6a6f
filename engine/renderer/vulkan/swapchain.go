package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

/**
 * @brief Presentation surface: the chain, its images and views. The surface
 * itself belongs to the context.
 */
type VulkanSwapchain struct {
	Handle      vk.Swapchain
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Extent      vk.Extent2D
	ImageCount  uint32
	Images      []vk.Image
	Views       []vk.ImageView

	context  *VulkanContext
	provider SurfaceProvider
	valid    bool
}

func querySwapchainSupport(physicalDevice vk.PhysicalDevice, surface vk.Surface) (VulkanSwapchainSupportInfo, error) {
	support := VulkanSwapchainSupportInfo{}

	if res := vk.GetPhysicalDeviceSurfaceCapabilities(physicalDevice, surface, &support.Capabilities); res != vk.Success {
		return support, &SurfaceLostError{Result: res}
	}
	support.Capabilities.Deref()
	support.Capabilities.CurrentExtent.Deref()
	support.Capabilities.MinImageExtent.Deref()
	support.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, nil); res != vk.Success {
		return support, fmt.Errorf("vkGetPhysicalDeviceSurfaceFormatsKHR failed with %s", VulkanResultString(res, true))
	}
	if formatCount != 0 {
		support.Formats = make([]vk.SurfaceFormat, formatCount)
		if res := vk.GetPhysicalDeviceSurfaceFormats(physicalDevice, surface, &formatCount, support.Formats); res != vk.Success {
			return support, fmt.Errorf("vkGetPhysicalDeviceSurfaceFormatsKHR failed with %s", VulkanResultString(res, true))
		}
		for i := range support.Formats {
			support.Formats[i].Deref()
		}
	}

	var presentModeCount uint32
	if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, nil); res != vk.Success {
		return support, fmt.Errorf("vkGetPhysicalDeviceSurfacePresentModesKHR failed with %s", VulkanResultString(res, true))
	}
	if presentModeCount != 0 {
		support.PresentModes = make([]vk.PresentMode, presentModeCount)
		if res := vk.GetPhysicalDeviceSurfacePresentModes(physicalDevice, surface, &presentModeCount, support.PresentModes); res != vk.Success {
			return support, fmt.Errorf("vkGetPhysicalDeviceSurfacePresentModesKHR failed with %s", VulkanResultString(res, true))
		}
	}
	return support, nil
}

// chooseSurfaceFormat prefers B8G8R8A8 sRGB with a non-linear sRGB color space.
func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Srgb && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

// choosePresentMode prefers mailbox. FIFO is always available.
func choosePresentMode(modes []vk.PresentMode) vk.PresentMode {
	for _, mode := range modes {
		if mode == vk.PresentModeMailbox {
			return mode
		}
	}
	return vk.PresentModeFifo
}

/**
 * @brief Uses the surface's current extent unless the surface lets the swapchain
 * decide, in which case the framebuffer size is clamped into the allowed range.
 */
func chooseSwapExtent(capabilities vk.SurfaceCapabilities, framebufferWidth, framebufferHeight int) vk.Extent2D {
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		return capabilities.CurrentExtent
	}
	minExtent := capabilities.MinImageExtent
	maxExtent := capabilities.MaxImageExtent
	return vk.Extent2D{
		Width:  vmath.Clamp(uint32(max(framebufferWidth, 0)), minExtent.Width, maxExtent.Width),
		Height: vmath.Clamp(uint32(max(framebufferHeight, 0)), minExtent.Height, maxExtent.Height),
	}
}

// chooseImageCount asks for triple buffering with mailbox, double otherwise.
// A max image count of 0 means there is no upper bound.
func chooseImageCount(mode vk.PresentMode, capabilities vk.SurfaceCapabilities) uint32 {
	desired := uint32(2)
	if mode == vk.PresentModeMailbox {
		desired = 3
	}
	if desired < capabilities.MinImageCount {
		desired = capabilities.MinImageCount
	}
	if capabilities.MaxImageCount > 0 && desired > capabilities.MaxImageCount {
		desired = capabilities.MaxImageCount
	}
	return desired
}

func chooseCompositeAlpha(supported vk.CompositeAlphaFlags) vk.CompositeAlphaFlagBits {
	candidates := []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	}
	for _, candidate := range candidates {
		if supported&vk.CompositeAlphaFlags(candidate) != 0 {
			return candidate
		}
	}
	return vk.CompositeAlphaOpaqueBit
}

func NewVulkanSwapchain(context *VulkanContext, provider SurfaceProvider) (*VulkanSwapchain, error) {
	swapchain := &VulkanSwapchain{
		context:  context,
		provider: provider,
	}
	if err := swapchain.create(vk.NullSwapchain); err != nil {
		return nil, err
	}
	core.LogInfo("Swapchain created successfully.")
	return swapchain, nil
}

/**
 * @brief Builds a new chain with the current one as OldSwapchain. The old views
 * and chain are destroyed only once the new chain exists.
 */
func (vs *VulkanSwapchain) Recreate() error {
	oldHandle := vs.Handle
	oldViews := vs.Views
	wasValid := vs.valid

	err := vs.create(oldHandle)

	// the old chain is retired by the create call even when it fails
	if wasValid {
		vs.destroyViews(oldViews)
		vs.destroyChain(oldHandle)
	}
	if err != nil {
		vs.Handle = vk.NullSwapchain
		vs.Views = nil
		vs.Images = nil
		vs.valid = false
		return err
	}
	core.LogInfo("Swapchain recreated (%dx%d, %d images).", vs.Extent.Width, vs.Extent.Height, vs.ImageCount)
	return nil
}

func (vs *VulkanSwapchain) create(oldSwapchain vk.Swapchain) error {
	device := vs.context.Device

	support, err := querySwapchainSupport(device.PhysicalDevice, vs.context.Surface)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		err := fmt.Errorf("surface reports no formats or present modes")
		core.LogError(err.Error())
		return err
	}

	format := chooseSurfaceFormat(support.Formats)
	presentMode := choosePresentMode(support.PresentModes)
	width, height := vs.provider.FramebufferSize()
	extent := chooseSwapExtent(support.Capabilities, width, height)
	if extent.Width == 0 || extent.Height == 0 {
		err := fmt.Errorf("cannot create a swapchain with a %dx%d extent", extent.Width, extent.Height)
		core.LogWarn(err.Error())
		return err
	}
	imageCount := chooseImageCount(presentMode, support.Capabilities)

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          vs.context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   chooseCompositeAlpha(support.Capabilities.SupportedCompositeAlpha),
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     oldSwapchain,
	}

	if device.GraphicsQueueIndex != device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(device.GraphicsQueueIndex),
			uint32(device.PresentQueueIndex),
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	var handle vk.Swapchain
	if err := lockPool.SafeCall(SwapchainManagement, func() error {
		if res := vk.CreateSwapchain(device.LogicalDevice, &swapchainCreateInfo, nil, &handle); res != vk.Success {
			return fmt.Errorf("vkCreateSwapchainKHR failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}

	var count uint32
	if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &count, nil); res != vk.Success {
		vs.destroyChain(handle)
		err := fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	images := make([]vk.Image, count)
	if res := vk.GetSwapchainImages(device.LogicalDevice, handle, &count, images); res != vk.Success {
		vs.destroyChain(handle)
		err := fmt.Errorf("vkGetSwapchainImagesKHR failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}

	views := make([]vk.ImageView, count)
	for i := range images {
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    images[i],
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
				BaseMipLevel:   0,
				LevelCount:     1,
				BaseArrayLayer: 0,
				LayerCount:     1,
			},
		}
		if res := vk.CreateImageView(device.LogicalDevice, &viewInfo, nil, &views[i]); res != vk.Success {
			vs.destroyViews(views[:i])
			vs.destroyChain(handle)
			err := fmt.Errorf("vkCreateImageView failed with %s", VulkanResultString(res, true))
			core.LogError(err.Error())
			return err
		}
	}

	vs.Handle = handle
	vs.ImageFormat = format
	vs.PresentMode = presentMode
	vs.Extent = extent
	vs.ImageCount = count
	vs.Images = images
	vs.Views = views
	vs.valid = true
	return nil
}

func (vs *VulkanSwapchain) destroyViews(views []vk.ImageView) {
	for _, view := range views {
		if view != vk.NullImageView {
			vk.DestroyImageView(vs.context.Device.LogicalDevice, view, nil)
		}
	}
}

func (vs *VulkanSwapchain) destroyChain(handle vk.Swapchain) {
	if handle == vk.NullSwapchain {
		return
	}
	_ = lockPool.SafeCall(SwapchainManagement, func() error {
		vk.DestroySwapchain(vs.context.Device.LogicalDevice, handle, nil)
		return nil
	})
}

func (vs *VulkanSwapchain) IsValid() bool {
	return vs.valid
}

// Cleanup destroys the views and the chain. Only the images are owned by the chain.
func (vs *VulkanSwapchain) Cleanup() {
	if !vs.valid {
		return
	}
	vs.valid = false

	vs.destroyViews(vs.Views)
	vs.destroyChain(vs.Handle)
	vs.Views = nil
	vs.Images = nil
	vs.Handle = vk.NullSwapchain
	vs.ImageCount = 0
}
