package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
)

type PipelineType int

const (
	PipelineMain PipelineType = iota
	PipelineOpaqueGeometry
	PipelineTransparentGeometry
	PipelineUI
	PipelineShadowCast
	// Number of pipeline types, not a type itself.
	PipelineTypeMax
)

func (t PipelineType) String() string {
	switch t {
	case PipelineMain:
		return "main"
	case PipelineOpaqueGeometry:
		return "opaque_geometry"
	case PipelineTransparentGeometry:
		return "transparent_geometry"
	case PipelineUI:
		return "ui"
	case PipelineShadowCast:
		return "shadow_cast"
	}
	return fmt.Sprintf("pipeline_type(%d)", int(t))
}

func (t PipelineType) valid() bool {
	return t >= 0 && t < PipelineTypeMax
}

func checkPipelineType(t PipelineType) error {
	if !t.valid() {
		return fmt.Errorf("%w: pipeline type %d out of range", core.ErrInvalidConfig, int(t))
	}
	return nil
}

type PipelineConfig struct {
	/** @brief Path to the SPIR-V vertex shader. */
	VertexShader string
	/** @brief Path to the SPIR-V fragment shader. */
	FragmentShader string
	Extent         vk.Extent2D
	ColorFormat    vk.Format
	RenderPass     *VulkanRenderPass
	SetLayouts     []vk.DescriptorSetLayout
	// Viewport and scissor are set while recording instead of baked from Extent.
	DynamicViewport bool
}

/**
 * @brief Holds a Vulkan pipeline and its layout.
 */
type VulkanPipeline struct {
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	/** @brief The pipeline layout. */
	PipelineLayout vk.PipelineLayout
	Dynamic        bool
}

// vertexAttributes matches math.Vertex3D: position, normal, texcoord.
func vertexAttributes() []vk.VertexInputAttributeDescription {
	return []vk.VertexInputAttributeDescription{
		{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
		{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
		{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
	}
}

func vertexBinding() vk.VertexInputBindingDescription {
	return vk.VertexInputBindingDescription{
		Binding:   0,
		Stride:    vmath.Vertex3DStride,
		InputRate: vk.VertexInputRateVertex,
	}
}

func dynamicStates(dynamicViewport bool) []vk.DynamicState {
	if !dynamicViewport {
		return nil
	}
	return []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
}

// ViewportFor covers the whole extent with depth range [0, 1].
func ViewportFor(extent vk.Extent2D) (vk.Viewport, vk.Rect2D) {
	viewport := vk.Viewport{
		X:        0,
		Y:        0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0.0,
		MaxDepth: 1.0,
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: 0, Y: 0},
		Extent: extent,
	}
	return viewport, scissor
}

func newGraphicsPipeline(context *VulkanContext, config PipelineConfig, stages []vk.PipelineShaderStageCreateInfo) (*VulkanPipeline, error) {
	outPipeline := &VulkanPipeline{Dynamic: config.DynamicViewport}

	// Viewport state
	viewport, scissor := ViewportFor(config.Extent)
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		PViewports:    []vk.Viewport{viewport},
		ScissorCount:  1,
		PScissors:     []vk.Rect2D{scissor},
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                vk.CullModeFlags(vk.CullModeNone),
		FrontFace:               vk.FrontFaceCounterClockwise,
		DepthBiasEnable:         vk.False,
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:   vk.False,
		RasterizationSamples:  vk.SampleCount1Bit,
		MinSampleShading:      1.0,
		AlphaToCoverageEnable: vk.False,
		AlphaToOneEnable:      vk.False,
	}

	// Depth and stencil testing.
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:                 vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:       vk.True,
		DepthWriteEnable:      vk.True,
		DepthCompareOp:        vk.CompareOpLess,
		DepthBoundsTestEnable: vk.False,
		StencilTestEnable:     vk.False,
	}

	colorBlendAttachmentState := vk.PipelineColorBlendAttachmentState{
		BlendEnable: vk.False,
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
			vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{colorBlendAttachmentState},
	}

	var dynamicStateCreateInfo *vk.PipelineDynamicStateCreateInfo
	if states := dynamicStates(config.DynamicViewport); len(states) > 0 {
		dynamicStateCreateInfo = &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: uint32(len(states)),
			PDynamicStates:    states,
		}
	}

	attributes := vertexAttributes()
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   1,
		PVertexBindingDescriptions:      []vk.VertexInputBindingDescription{vertexBinding()},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	// Input assembly
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               vk.PrimitiveTopologyTriangleList,
		PrimitiveRestartEnable: vk.False,
	}

	// Pipeline layout
	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(config.SetLayouts)),
		PSetLayouts:    config.SetLayouts,
	}

	var pipelineLayout vk.PipelineLayout
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, nil, &pipelineLayout)
		if !VulkanResultIsSuccess(result) {
			return fmt.Errorf("%w: vkCreatePipelineLayout failed with %s", core.ErrPipelineCompilation, VulkanResultString(result, true))
		}
		outPipeline.PipelineLayout = pipelineLayout
		return nil
	}); err != nil {
		return nil, err
	}

	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       dynamicStateCreateInfo,
		Layout:              outPipeline.PipelineLayout,
		RenderPass:          config.RenderPass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := lockPool.SafeCall(PipelineManagement, func() error {
		result := vk.CreateGraphicsPipelines(context.Device.LogicalDevice, vk.NullPipelineCache, 1,
			[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo}, nil, pipelines)
		if !VulkanResultIsSuccess(result) {
			return fmt.Errorf("%w: vkCreateGraphicsPipelines failed with %s", core.ErrPipelineCompilation, VulkanResultString(result, true))
		}
		return nil
	}); err != nil {
		outPipeline.Destroy(context)
		return nil, err
	}
	outPipeline.Handle = pipelines[0]
	return outPipeline, nil
}

func (pipeline *VulkanPipeline) Destroy(context *VulkanContext) {
	if pipeline == nil {
		return
	}
	if pipeline.Handle != vk.NullPipeline {
		_ = lockPool.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipeline(context.Device.LogicalDevice, pipeline.Handle, nil)
			return nil
		})
		pipeline.Handle = vk.NullPipeline
	}
	if pipeline.PipelineLayout != nil {
		_ = lockPool.SafeCall(PipelineManagement, func() error {
			vk.DestroyPipelineLayout(context.Device.LogicalDevice, pipeline.PipelineLayout, nil)
			return nil
		})
		pipeline.PipelineLayout = nil
	}
}

/**
 * @brief Fixed table of graphics pipelines, one per PipelineType.
 */
type PipelineManager struct {
	context   *VulkanContext
	pipelines [PipelineTypeMax]*VulkanPipeline
}

func NewPipelineManager(context *VulkanContext) *PipelineManager {
	return &PipelineManager{context: context}
}

// CreatePipeline builds the pipeline for t, replacing any pipeline already stored there.
// The shader modules only live for the duration of the call.
func (m *PipelineManager) CreatePipeline(t PipelineType, config PipelineConfig) error {
	if err := checkPipelineType(t); err != nil {
		core.LogError(err.Error())
		return err
	}
	if config.RenderPass == nil {
		err := fmt.Errorf("%w: pipeline %s has no render pass", core.ErrInvalidConfig, t)
		core.LogError(err.Error())
		return err
	}

	vertex, err := LoadShaderStage(m.context, config.VertexShader, vk.ShaderStageVertexBit)
	if err != nil {
		return err
	}
	defer vertex.Destroy(m.context)

	fragment, err := LoadShaderStage(m.context, config.FragmentShader, vk.ShaderStageFragmentBit)
	if err != nil {
		return err
	}
	defer fragment.Destroy(m.context)

	if existing := m.pipelines[t]; existing != nil {
		existing.Destroy(m.context)
		m.pipelines[t] = nil
	}

	pipeline, err := newGraphicsPipeline(m.context, config, []vk.PipelineShaderStageCreateInfo{
		vertex.ShaderStageCreateInfo,
		fragment.ShaderStageCreateInfo,
	})
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	m.pipelines[t] = pipeline
	core.LogDebug("Graphics pipeline %s created (dynamic viewport: %t)", t, config.DynamicViewport)
	return nil
}

func (m *PipelineManager) Get(t PipelineType) (*VulkanPipeline, error) {
	if err := checkPipelineType(t); err != nil {
		return nil, err
	}
	if m.pipelines[t] == nil {
		return nil, fmt.Errorf("%w: pipeline %s was not created", core.ErrInvalidConfig, t)
	}
	return m.pipelines[t], nil
}

func (m *PipelineManager) IsDynamic(t PipelineType) bool {
	p, err := m.Get(t)
	return err == nil && p.Dynamic
}

func (m *PipelineManager) Bind(commandBuffer *VulkanCommandBuffer, t PipelineType) error {
	pipeline, err := m.Get(t)
	if err != nil {
		core.LogError(err.Error())
		return err
	}
	vk.CmdBindPipeline(commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
	return nil
}

// Destroy releases every stored pipeline. Safe to call more than once.
func (m *PipelineManager) Destroy() {
	for i, pipeline := range m.pipelines {
		if pipeline == nil {
			continue
		}
		pipeline.Destroy(m.context)
		m.pipelines[i] = nil
	}
}
