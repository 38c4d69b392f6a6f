package vulkan

import (
	"fmt"
	"sort"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

type BindingKind int

const (
	BindingCameraUBO BindingKind = iota
	BindingTransformUBO
	BindingLightUBO
	BindingMaterialUBO
	BindingTextureSampler
)

func (k BindingKind) descriptor() (vk.DescriptorType, vk.ShaderStageFlags) {
	vertex := vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	fragment := vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	switch k {
	case BindingCameraUBO:
		return vk.DescriptorTypeUniformBuffer, vertex | fragment
	case BindingTransformUBO:
		return vk.DescriptorTypeUniformBuffer, vertex
	case BindingLightUBO, BindingMaterialUBO:
		return vk.DescriptorTypeUniformBuffer, fragment
	default:
		return vk.DescriptorTypeCombinedImageSampler, fragment
	}
}

type layoutBinding struct {
	Binding uint32
	Type    vk.DescriptorType
	Stages  vk.ShaderStageFlags
}

// descriptorRegistry is the bookkeeping half of the manager: which set has which
// bindings. It never touches the device.
type descriptorRegistry struct {
	layouts map[uint32][]layoutBinding
}

func newDescriptorRegistry() descriptorRegistry {
	return descriptorRegistry{layouts: map[uint32][]layoutBinding{}}
}

func (r *descriptorRegistry) declare(set uint32, kinds []BindingKind, bindStart uint32) ([]layoutBinding, error) {
	if _, exists := r.layouts[set]; exists {
		return nil, &DuplicateLayoutError{Set: set}
	}
	bindings := make([]layoutBinding, len(kinds))
	for i, kind := range kinds {
		descriptorType, stages := kind.descriptor()
		bindings[i] = layoutBinding{
			Binding: bindStart + uint32(i),
			Type:    descriptorType,
			Stages:  stages,
		}
	}
	r.layouts[set] = bindings
	return bindings, nil
}

func (r *descriptorRegistry) binding(set, binding uint32) (layoutBinding, bool) {
	for _, b := range r.layouts[set] {
		if b.Binding == binding {
			return b, true
		}
	}
	return layoutBinding{}, false
}

/**
 * @brief Sums descriptor counts per type over capacity copies of each set.
 * maxSets is the sum of the capacities.
 */
func (r *descriptorRegistry) poolSizes(capacities map[uint32]uint32) (map[vk.DescriptorType]uint32, uint32) {
	totals := map[vk.DescriptorType]uint32{}
	var maxSets uint32
	for set, capacity := range capacities {
		bindings, ok := r.layouts[set]
		if !ok || capacity == 0 {
			continue
		}
		for _, b := range bindings {
			totals[b.Type] += capacity
		}
		maxSets += capacity
	}
	return totals, maxSets
}

// denseSets returns 0..n-1, or the first missing index.
func (r *descriptorRegistry) denseSets() ([]uint32, error) {
	sets := make([]uint32, 0, len(r.layouts))
	for set := range r.layouts {
		sets = append(sets, set)
	}
	sort.Slice(sets, func(i, j int) bool { return sets[i] < sets[j] })
	for i, set := range sets {
		if set != uint32(i) {
			return nil, &SparseLayoutError{Missing: uint32(i)}
		}
	}
	return sets, nil
}

/**
 * @brief Owns descriptor set layouts, one pool and every set allocated from it.
 * Sets are addressed by (set index, instance).
 */
type DescriptorManager struct {
	context  *VulkanContext
	registry descriptorRegistry
	layouts  map[uint32]vk.DescriptorSetLayout
	sets     map[uint32][]vk.DescriptorSet
	pool     vk.DescriptorPool
}

func NewDescriptorManager(context *VulkanContext) *DescriptorManager {
	return &DescriptorManager{
		context:  context,
		registry: newDescriptorRegistry(),
		layouts:  map[uint32]vk.DescriptorSetLayout{},
		sets:     map[uint32][]vk.DescriptorSet{},
	}
}

// DeclareLayout creates the layout of set with consecutive bindings starting at bindStart.
func (m *DescriptorManager) DeclareLayout(set uint32, kinds []BindingKind, bindStart uint32) error {
	bindings, err := m.registry.declare(set, kinds, bindStart)
	if err != nil {
		core.LogError(err.Error())
		return err
	}

	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  b.Type,
			DescriptorCount: 1,
			StageFlags:      b.Stages,
		}
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}

	var layout vk.DescriptorSetLayout
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorSetLayout(m.context.Device.LogicalDevice, &layoutInfo, nil, &layout); res != vk.Success {
			return fmt.Errorf("vkCreateDescriptorSetLayout failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		delete(m.registry.layouts, set)
		core.LogError(err.Error())
		return err
	}
	m.layouts[set] = layout
	return nil
}

func (m *DescriptorManager) CreatePool(capacities map[uint32]uint32) error {
	totals, maxSets := m.registry.poolSizes(capacities)
	if maxSets == 0 || len(totals) == 0 {
		core.LogDebug("No descriptors requested, skipping pool creation.")
		return nil
	}

	types := make([]vk.DescriptorType, 0, len(totals))
	for t := range totals {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	poolSizes := make([]vk.DescriptorPoolSize, len(types))
	for i, t := range types {
		poolSizes[i] = vk.DescriptorPoolSize{Type: t, DescriptorCount: totals[t]}
	}

	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       maxSets,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	var pool vk.DescriptorPool
	if err := lockPool.SafeCall(DescriptorManagement, func() error {
		if res := vk.CreateDescriptorPool(m.context.Device.LogicalDevice, &poolInfo, nil, &pool); res != vk.Success {
			return fmt.Errorf("vkCreateDescriptorPool failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return err
	}
	m.pool = pool
	core.LogDebug("Descriptor pool created for %d sets.", maxSets)
	return nil
}

// AllocateAll allocates capacity sets of every listed set index, one batch per index.
// Without a pool (CreatePool found nothing to size) nothing is allocated and Get
// reports every set as out of range.
func (m *DescriptorManager) AllocateAll(capacities map[uint32]uint32) error {
	if m.pool == nil {
		core.LogDebug("No descriptor pool, skipping set allocation.")
		return nil
	}
	for set, capacity := range capacities {
		layout, ok := m.layouts[set]
		if !ok {
			err := fmt.Errorf("%w: set %d has no layout", core.ErrDescriptorOutOfRange, set)
			core.LogError(err.Error())
			return err
		}
		if capacity == 0 {
			continue
		}
		layouts := make([]vk.DescriptorSetLayout, capacity)
		for i := range layouts {
			layouts[i] = layout
		}
		allocInfo := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     m.pool,
			DescriptorSetCount: capacity,
			PSetLayouts:        layouts,
		}
		sets := make([]vk.DescriptorSet, capacity)
		if err := lockPool.SafeCall(DescriptorManagement, func() error {
			if res := vk.AllocateDescriptorSets(m.context.Device.LogicalDevice, &allocInfo, &sets[0]); res != vk.Success {
				return fmt.Errorf("vkAllocateDescriptorSets failed with %s", VulkanResultString(res, true))
			}
			return nil
		}); err != nil {
			core.LogError(err.Error())
			return err
		}
		m.sets[set] = sets
	}
	return nil
}

func (m *DescriptorManager) lookup(set, instance, binding uint32) (vk.DescriptorSet, layoutBinding, error) {
	sets, ok := m.sets[set]
	if !ok || instance >= uint32(len(sets)) {
		return nil, layoutBinding{}, fmt.Errorf("%w: set %d instance %d", core.ErrDescriptorOutOfRange, set, instance)
	}
	b, ok := m.registry.binding(set, binding)
	if !ok {
		return nil, layoutBinding{}, fmt.Errorf("%w: set %d has no binding %d", core.ErrDescriptorOutOfRange, set, binding)
	}
	return sets[instance], b, nil
}

func (m *DescriptorManager) Get(set, instance uint32) (vk.DescriptorSet, error) {
	sets, ok := m.sets[set]
	if !ok || instance >= uint32(len(sets)) {
		return nil, fmt.Errorf("%w: set %d instance %d", core.ErrDescriptorOutOfRange, set, instance)
	}
	return sets[instance], nil
}

func (m *DescriptorManager) BindBuffer(set, instance, binding uint32, buffer *VulkanBuffer, size vk.DeviceSize) error {
	dst, b, err := m.lookup(set, instance, binding)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          dst,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  b.Type,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: buffer.Handle,
			Offset: 0,
			Range:  size,
		}},
	}
	vk.UpdateDescriptorSets(m.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

func (m *DescriptorManager) BindImage(set, instance, binding uint32, view vk.ImageView, sampler vk.Sampler) error {
	dst, b, err := m.lookup(set, instance, binding)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          dst,
		DstBinding:      binding,
		DstArrayElement: 0,
		DescriptorCount: 1,
		DescriptorType:  b.Type,
		PImageInfo: []vk.DescriptorImageInfo{{
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
			ImageView:   view,
			Sampler:     sampler,
		}},
	}
	vk.UpdateDescriptorSets(m.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
	return nil
}

// GetAllLayoutsDense returns the layouts ordered by set index, for pipeline layouts.
func (m *DescriptorManager) GetAllLayoutsDense() ([]vk.DescriptorSetLayout, error) {
	sets, err := m.registry.denseSets()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	out := make([]vk.DescriptorSetLayout, len(sets))
	for i, set := range sets {
		out[i] = m.layouts[set]
	}
	return out, nil
}

// Destroy frees the pool, which releases every set, then the layouts. Safe to call more than once.
func (m *DescriptorManager) Destroy() {
	if m.pool != nil {
		vk.DestroyDescriptorPool(m.context.Device.LogicalDevice, m.pool, nil)
		m.pool = nil
	}
	for set, layout := range m.layouts {
		if layout != nil {
			vk.DestroyDescriptorSetLayout(m.context.Device.LogicalDevice, layout, nil)
		}
		delete(m.layouts, set)
	}
	m.sets = map[uint32][]vk.DescriptorSet{}
	m.registry = newDescriptorRegistry()
}
