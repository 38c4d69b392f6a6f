package vulkan

import (
	"fmt"
	"runtime"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// SurfaceProvider is implemented by the window the context presents into.
type SurfaceProvider interface {
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	FramebufferSize() (int, int)
	RequiredInstanceExtensions() []string
}

type ContextConfig struct {
	ApplicationName  string
	EnableValidation bool
}

/**
 * @brief Owns the instance, the surface, the selected device and the two
 * context-wide command pools. Nothing is mutated after construction.
 */
type VulkanContext struct {
	Instance  vk.Instance
	Surface   vk.Surface
	Device    *VulkanDevice
	Allocator *VulkanAllocator

	// Pool with the reset-command-buffer flag, on the graphics family.
	GraphicsCommandPool vk.CommandPool
	// Pool for short lived upload commands, on the graphics family.
	TransientCommandPool vk.CommandPool

	debugCallback vk.DebugReportCallback
	validation    bool
}

func NewVulkanContext(provider SurfaceProvider, config ContextConfig) (*VulkanContext, error) {
	context := &VulkanContext{validation: config.EnableValidation}

	if err := context.createInstance(config.ApplicationName, provider.RequiredInstanceExtensions()); err != nil {
		context.Destroy()
		return nil, err
	}

	if context.validation {
		if err := context.createDebugCallback(); err != nil {
			context.Destroy()
			return nil, err
		}
	}

	core.LogDebug("Creating Vulkan surface...")
	surface, err := provider.CreateSurface(context.Instance)
	if err != nil {
		context.Destroy()
		return nil, err
	}
	context.Surface = surface
	core.LogDebug("Vulkan surface created.")

	device, err := SelectPhysicalDevice(context.Instance, context.Surface)
	if err != nil {
		context.Destroy()
		return nil, err
	}
	context.Device = device

	if err := context.Device.CreateLogicalDevice(); err != nil {
		context.Destroy()
		return nil, err
	}
	if !context.Device.DetectDepthFormat() {
		core.LogWarn("No supported depth format found.")
	}

	context.Allocator = NewVulkanAllocator(context)

	context.GraphicsCommandPool, err = context.createCommandPool(
		uint32(context.Device.GraphicsQueueIndex),
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit))
	if err != nil {
		context.Destroy()
		return nil, err
	}
	core.LogInfo("Graphics command pool created.")

	context.TransientCommandPool, err = context.createCommandPool(
		uint32(context.Device.GraphicsQueueIndex),
		vk.CommandPoolCreateFlags(vk.CommandPoolCreateTransientBit))
	if err != nil {
		context.Destroy()
		return nil, err
	}
	core.LogInfo("Transient command pool created.")

	return context, nil
}

func (vc *VulkanContext) createInstance(applicationName string, platformExtensions []string) error {
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(applicationName),
		PEngineName:        VulkanSafeString("Vortex Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := append([]string{}, platformExtensions...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if vc.validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
	}
	core.LogDebug("Required extensions: %v", requiredExtensions)

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	requiredLayers := []string{}
	if vc.validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredLayers = append(requiredLayers, validationLayerName)

		available, err := availableInstanceLayers()
		if err != nil {
			return err
		}
		if missing := missingLayers(requiredLayers, available); len(missing) > 0 {
			err := fmt.Errorf("%w: %v", core.ErrValidationLayerUnavailable, missing)
			core.LogError(err.Error())
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		err := fmt.Errorf("failed in creating the Vulkan Instance with error `%s`", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	vc.Instance = instance
	if err := vk.InitInstance(vc.Instance); err != nil {
		core.LogError(err.Error())
		return err
	}
	core.LogInfo("Vulkan Instance created.")
	return nil
}

func availableInstanceLayers() ([]string, error) {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		err := fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		err := fmt.Errorf("vkEnumerateInstanceLayerProperties failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	names := make([]string, 0, count)
	for i := range layers {
		layers[i].Deref()
		names = append(names, vulkanName(layers[i].LayerName[:]))
	}
	return names, nil
}

func missingLayers(required, available []string) []string {
	have := make(map[string]bool, len(available))
	for _, name := range available {
		have[name] = true
	}
	missing := []string{}
	for _, name := range required {
		core.LogDebug("Searching for layer: %s...", name)
		if !have[name] {
			missing = append(missing, name)
		}
	}
	return missing
}

func (vc *VulkanContext) createDebugCallback() error {
	core.LogDebug("Creating Vulkan debugger...")
	debugCreateInfo := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}

	var dbg vk.DebugReportCallback
	if err := vk.Error(vk.CreateDebugReportCallback(vc.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
		core.LogError("vk.CreateDebugReportCallback failed with %s", err)
		return err
	}
	vc.debugCallback = dbg
	core.LogDebug("Vulkan debugger created.")
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

func (vc *VulkanContext) createCommandPool(family uint32, flags vk.CommandPoolCreateFlags) (vk.CommandPool, error) {
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: family,
		Flags:            flags,
	}
	var pool vk.CommandPool
	if res := vk.CreateCommandPool(vc.Device.LogicalDevice, &poolCreateInfo, nil, &pool); res != vk.Success {
		err := fmt.Errorf("vkCreateCommandPool failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return vk.NullCommandPool, err
	}
	return pool, nil
}

/**
 * @brief Returns the index of a memory type allowed by typeFilter that has all of
 * propertyFlags, or -1.
 */
func (vc *VulkanContext) FindMemoryIndex(typeFilter uint32, propertyFlags vk.MemoryPropertyFlags) int32 {
	index, ok := FindMemoryType(memoryTypeFlags(vc.Device.Memory), typeFilter, propertyFlags)
	if !ok {
		core.LogWarn("Unable to find suitable memory type!")
		return -1
	}
	return int32(index)
}

/**
 * @brief Allocates a one-time command buffer from the transient pool and begins it.
 */
func (vc *VulkanContext) BeginSingleTimeCommands() (*VulkanCommandBuffer, error) {
	return AllocateAndBeginSingleUse(vc, vc.TransientCommandPool)
}

/**
 * @brief Submits the buffer to the graphics queue, waits for it and frees it.
 */
func (vc *VulkanContext) EndSingleTimeCommands(commandBuffer *VulkanCommandBuffer) error {
	return commandBuffer.EndSingleUse(vc, vc.TransientCommandPool, vc.Device.GraphicsQueue, uint32(vc.Device.GraphicsQueueIndex))
}

func (vc *VulkanContext) WaitIdle() {
	if res := vc.Device.WaitIdle(); res != vk.Success {
		core.LogWarn("vkDeviceWaitIdle returned %s", VulkanResultString(res, false))
	}
}

// Destroy releases everything in reverse creation order. Calling it again is a no-op.
func (vc *VulkanContext) Destroy() {
	if vc.Allocator != nil {
		vc.Allocator.Destroy()
		vc.Allocator = nil
	}

	if vc.Device != nil && vc.Device.LogicalDevice != nil {
		if vc.TransientCommandPool != vk.NullCommandPool {
			vk.DestroyCommandPool(vc.Device.LogicalDevice, vc.TransientCommandPool, nil)
			vc.TransientCommandPool = vk.NullCommandPool
		}
		if vc.GraphicsCommandPool != vk.NullCommandPool {
			core.LogInfo("Destroying command pools...")
			vk.DestroyCommandPool(vc.Device.LogicalDevice, vc.GraphicsCommandPool, nil)
			vc.GraphicsCommandPool = vk.NullCommandPool
		}
	}
	if vc.Device != nil {
		vc.Device.Destroy()
		vc.Device = nil
	}

	if vc.debugCallback != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(vc.Instance, vc.debugCallback, nil)
		vc.debugCallback = vk.NullDebugReportCallback
	}

	if vc.Surface != vk.NullSurface {
		core.LogDebug("Destroying Vulkan surface...")
		vk.DestroySurface(vc.Instance, vc.Surface, nil)
		vc.Surface = vk.NullSurface
	}

	if vc.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(vc.Instance, nil)
		vc.Instance = nil
	}
}
