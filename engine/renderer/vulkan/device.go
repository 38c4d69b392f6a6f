package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

const portabilitySubsetExtensionName = "VK_KHR_portability_subset"

type VulkanDevice struct {
	PhysicalDevice vk.PhysicalDevice
	LogicalDevice  vk.Device
	Name           string

	GraphicsQueueIndex int32
	PresentQueueIndex  int32
	ComputeQueueIndex  int32
	TransferQueueIndex int32

	GraphicsQueue vk.Queue
	PresentQueue  vk.Queue
	ComputeQueue  vk.Queue
	TransferQueue vk.Queue

	Properties vk.PhysicalDeviceProperties
	Features   vk.PhysicalDeviceFeatures
	Memory     vk.PhysicalDeviceMemoryProperties

	DepthFormat        vk.Format
	SamplerAnisotropy  bool
	MaxAnisotropy      float32
	portabilityEnabled bool
}

type queueFamilyInfo struct {
	Flags   vk.QueueFlags
	Present bool
}

func (q queueFamilyInfo) has(bit vk.QueueFlagBits) bool {
	return q.Flags&vk.QueueFlags(bit) != 0
}

// queueFamilyIndices holds -1 for a role no family can serve.
type queueFamilyIndices struct {
	Graphics int32
	Present  int32
	Compute  int32
	Transfer int32
}

func (q queueFamilyIndices) complete() bool {
	return q.Graphics >= 0 && q.Present >= 0
}

// unique returns the distinct family indices in role order, one queue is created per entry.
func (q queueFamilyIndices) unique() []uint32 {
	seen := map[int32]bool{}
	out := []uint32{}
	for _, idx := range []int32{q.Graphics, q.Present, q.Compute, q.Transfer} {
		if idx < 0 || seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, uint32(idx))
	}
	return out
}

/**
 * @brief Picks the first graphics, present and compute families. Transfer prefers
 * a family without graphics support and falls back to the graphics family.
 */
func selectQueueFamilies(families []queueFamilyInfo) queueFamilyIndices {
	out := queueFamilyIndices{Graphics: -1, Present: -1, Compute: -1, Transfer: -1}
	for i, family := range families {
		idx := int32(i)
		if out.Graphics < 0 && family.has(vk.QueueGraphicsBit) {
			out.Graphics = idx
		}
		if out.Present < 0 && family.Present {
			out.Present = idx
		}
		if out.Compute < 0 && family.has(vk.QueueComputeBit) {
			out.Compute = idx
		}
		if out.Transfer < 0 && family.has(vk.QueueTransferBit) && !family.has(vk.QueueGraphicsBit) {
			out.Transfer = idx
		}
	}
	if out.Transfer < 0 {
		out.Transfer = out.Graphics
	}
	return out
}

type deviceCandidate struct {
	Name               string
	Type               vk.PhysicalDeviceType
	Families           []queueFamilyInfo
	SwapchainSupported bool
}

/**
 * @brief Scores a physical device. The second return value is false when the
 * device cannot render to the surface at all.
 */
func scoreDevice(candidate deviceCandidate) (int, bool) {
	indices := selectQueueFamilies(candidate.Families)
	if !indices.complete() || !candidate.SwapchainSupported {
		return 0, false
	}

	score := 0
	for _, family := range candidate.Families {
		if family.has(vk.QueueGraphicsBit) && family.Present {
			score += 10000
			break
		}
	}

	switch candidate.Type {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		score += 1000
	case vk.PhysicalDeviceTypeIntegratedGpu:
		score += 500
	case vk.PhysicalDeviceTypeVirtualGpu:
		score += 100
	}
	return score, true
}

// pickDevice returns the index of the best candidate. Ties keep the first enumerated device.
func pickDevice(candidates []deviceCandidate) (int, error) {
	best, bestScore := -1, -1
	for i, candidate := range candidates {
		score, ok := scoreDevice(candidate)
		if !ok {
			core.LogInfo("Device '%s' cannot present to the surface, skipping.", candidate.Name)
			continue
		}
		core.LogDebug("Device '%s' scored %d.", candidate.Name, score)
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	if best < 0 {
		return -1, &NoSuitableDeviceError{Candidates: len(candidates)}
	}
	return best, nil
}

func describePhysicalDevice(physicalDevice vk.PhysicalDevice, surface vk.Surface) deviceCandidate {
	var properties vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(physicalDevice, &properties)
	properties.Deref()

	candidate := deviceCandidate{
		Name: vulkanName(properties.DeviceName[:]),
		Type: properties.DeviceType,
	}

	var queueFamilyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, nil)
	queueFamilies := make([]vk.QueueFamilyProperties, queueFamilyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(physicalDevice, &queueFamilyCount, queueFamilies)

	core.LogDebug("Graphics | Present | Compute | Transfer | Family")
	for i := range queueFamilies {
		queueFamilies[i].Deref()
		var supportsPresent vk.Bool32 = vk.False
		if res := vk.GetPhysicalDeviceSurfaceSupport(physicalDevice, uint32(i), surface, &supportsPresent); res != vk.Success {
			supportsPresent = vk.False
		}
		family := queueFamilyInfo{
			Flags:   queueFamilies[i].QueueFlags,
			Present: supportsPresent == vk.True,
		}
		core.LogDebug("   %5t |   %5t |   %5t |    %5t | %d",
			family.has(vk.QueueGraphicsBit), family.Present,
			family.has(vk.QueueComputeBit), family.has(vk.QueueTransferBit), i)
		candidate.Families = append(candidate.Families, family)
	}

	if hasDeviceExtension(physicalDevice, vk.KhrSwapchainExtensionName) {
		support, err := querySwapchainSupport(physicalDevice, surface)
		candidate.SwapchainSupported = err == nil && len(support.Formats) > 0 && len(support.PresentModes) > 0
	}
	return candidate
}

func deviceExtensions(physicalDevice vk.PhysicalDevice) []string {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, nil); res != vk.Success || count == 0 {
		return nil
	}
	available := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(physicalDevice, "", &count, available); res != vk.Success {
		return nil
	}
	names := make([]string, 0, count)
	for i := range available {
		available[i].Deref()
		names = append(names, vulkanName(available[i].ExtensionName[:]))
	}
	return names
}

func hasDeviceExtension(physicalDevice vk.PhysicalDevice, name string) bool {
	for _, ext := range deviceExtensions(physicalDevice) {
		if ext == name {
			return true
		}
	}
	return false
}

/**
 * @brief Enumerates the physical devices and selects the highest scoring one.
 */
func SelectPhysicalDevice(instance vk.Instance, surface vk.Surface) (*VulkanDevice, error) {
	var physicalDeviceCount uint32
	if res := vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, nil); res != vk.Success {
		err := fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}
	if physicalDeviceCount == 0 {
		err := &NoSuitableDeviceError{}
		core.LogError("No devices which support Vulkan were found.")
		return nil, err
	}
	physicalDevices := make([]vk.PhysicalDevice, physicalDeviceCount)
	if res := vk.EnumeratePhysicalDevices(instance, &physicalDeviceCount, physicalDevices); res != vk.Success {
		err := fmt.Errorf("vkEnumeratePhysicalDevices failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return nil, err
	}

	candidates := make([]deviceCandidate, len(physicalDevices))
	for i, pd := range physicalDevices {
		candidates[i] = describePhysicalDevice(pd, surface)
	}

	selected, err := pickDevice(candidates)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	device := &VulkanDevice{
		PhysicalDevice: physicalDevices[selected],
		Name:           candidates[selected].Name,
	}
	indices := selectQueueFamilies(candidates[selected].Families)
	device.GraphicsQueueIndex = indices.Graphics
	device.PresentQueueIndex = indices.Present
	device.ComputeQueueIndex = indices.Compute
	device.TransferQueueIndex = indices.Transfer

	vk.GetPhysicalDeviceProperties(device.PhysicalDevice, &device.Properties)
	device.Properties.Deref()
	device.Properties.Limits.Deref()
	vk.GetPhysicalDeviceFeatures(device.PhysicalDevice, &device.Features)
	device.Features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(device.PhysicalDevice, &device.Memory)
	device.Memory.Deref()

	device.logSelection()
	return device, nil
}

func (d *VulkanDevice) logSelection() {
	core.LogInfo("Selected device: '%s'.", d.Name)
	switch d.Properties.DeviceType {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		core.LogInfo("GPU type is Integrated.")
	case vk.PhysicalDeviceTypeDiscreteGpu:
		core.LogInfo("GPU type is Discrete.")
	case vk.PhysicalDeviceTypeVirtualGpu:
		core.LogInfo("GPU type is Virtual.")
	case vk.PhysicalDeviceTypeCpu:
		core.LogInfo("GPU type is CPU.")
	default:
		core.LogInfo("GPU type is Unknown.")
	}

	driver := vk.Version(d.Properties.DriverVersion)
	api := vk.Version(d.Properties.ApiVersion)
	core.LogInfo("GPU Driver version: %d.%d.%d", driver.Major(), driver.Minor(), driver.Patch())
	core.LogInfo("Vulkan API version: %d.%d.%d", api.Major(), api.Minor(), api.Patch())

	for j := 0; j < int(d.Memory.MemoryHeapCount); j++ {
		d.Memory.MemoryHeaps[j].Deref()
		memorySizeGib := float64(d.Memory.MemoryHeaps[j].Size) / 1024.0 / 1024.0 / 1024.0
		if vk.MemoryHeapFlagBits(d.Memory.MemoryHeaps[j].Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			core.LogInfo("Local GPU memory: %.2f GiB", memorySizeGib)
		} else {
			core.LogInfo("Shared System memory: %.2f GiB", memorySizeGib)
		}
	}

	core.LogDebug("Graphics Family Index: %d", d.GraphicsQueueIndex)
	core.LogDebug("Present Family Index:  %d", d.PresentQueueIndex)
	core.LogDebug("Compute Family Index:  %d", d.ComputeQueueIndex)
	core.LogDebug("Transfer Family Index: %d", d.TransferQueueIndex)
}

func (d *VulkanDevice) queueIndices() queueFamilyIndices {
	return queueFamilyIndices{
		Graphics: d.GraphicsQueueIndex,
		Present:  d.PresentQueueIndex,
		Compute:  d.ComputeQueueIndex,
		Transfer: d.TransferQueueIndex,
	}
}

/**
 * @brief Creates the logical device with one queue per unique family and fetches the queues.
 */
func (d *VulkanDevice) CreateLogicalDevice() error {
	core.LogInfo("Creating logical device...")

	families := d.queueIndices().unique()
	queueCreateInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueCreateInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
		lockPool.SetQueueFamily(family)
	}

	deviceFeatures := vk.PhysicalDeviceFeatures{}
	if d.Features.SamplerAnisotropy == vk.True {
		deviceFeatures.SamplerAnisotropy = vk.True
		d.SamplerAnisotropy = true
		d.MaxAnisotropy = d.Properties.Limits.MaxSamplerAnisotropy
	} else {
		d.MaxAnisotropy = 1.0
	}

	extensionNames := []string{vk.KhrSwapchainExtensionName}
	if hasDeviceExtension(d.PhysicalDevice, portabilitySubsetExtensionName) {
		core.LogInfo("Adding required extension '%s'.", portabilitySubsetExtensionName)
		extensionNames = append(extensionNames, portabilitySubsetExtensionName)
		d.portabilityEnabled = true
	}

	deviceCreateInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueCreateInfos)),
		PQueueCreateInfos:       queueCreateInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{deviceFeatures},
		EnabledExtensionCount:   uint32(len(extensionNames)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensionNames),
	}

	var logicalDevice vk.Device
	if res := vk.CreateDevice(d.PhysicalDevice, &deviceCreateInfo, nil, &logicalDevice); res != vk.Success {
		err := fmt.Errorf("vkCreateDevice failed with %s", VulkanResultString(res, true))
		core.LogError(err.Error())
		return err
	}
	d.LogicalDevice = logicalDevice
	core.LogInfo("Logical device created.")

	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.GraphicsQueueIndex), 0, &d.GraphicsQueue)
	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.PresentQueueIndex), 0, &d.PresentQueue)
	vk.GetDeviceQueue(d.LogicalDevice, uint32(d.TransferQueueIndex), 0, &d.TransferQueue)
	if d.ComputeQueueIndex >= 0 {
		vk.GetDeviceQueue(d.LogicalDevice, uint32(d.ComputeQueueIndex), 0, &d.ComputeQueue)
	}
	core.LogInfo("Queues obtained.")
	return nil
}

/**
 * @brief Picks the first depth format usable as an optimal or linear depth attachment.
 */
func (d *VulkanDevice) DetectDepthFormat() bool {
	candidates := []vk.Format{
		vk.FormatD32Sfloat,
		vk.FormatD32SfloatS8Uint,
		vk.FormatD24UnormS8Uint,
	}
	flags := vk.FormatFeatureFlags(vk.FormatFeatureDepthStencilAttachmentBit)
	for _, candidate := range candidates {
		var properties vk.FormatProperties
		vk.GetPhysicalDeviceFormatProperties(d.PhysicalDevice, candidate, &properties)
		properties.Deref()
		if properties.OptimalTilingFeatures&flags == flags || properties.LinearTilingFeatures&flags == flags {
			d.DepthFormat = candidate
			return true
		}
	}
	d.DepthFormat = vk.FormatUndefined
	return false
}

func (d *VulkanDevice) WaitIdle() vk.Result {
	if d == nil || d.LogicalDevice == nil {
		return vk.Success
	}
	return vk.DeviceWaitIdle(d.LogicalDevice)
}

func (d *VulkanDevice) Destroy() {
	d.GraphicsQueue = nil
	d.PresentQueue = nil
	d.ComputeQueue = nil
	d.TransferQueue = nil

	if d.LogicalDevice != nil {
		core.LogInfo("Destroying logical device...")
		vk.DestroyDevice(d.LogicalDevice, nil)
		d.LogicalDevice = nil
	}
	// Physical devices are not destroyed.
	d.PhysicalDevice = nil
}
