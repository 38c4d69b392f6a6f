package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexLayout(t *testing.T) {
	attributes := vertexAttributes()
	require.Len(t, attributes, 3)

	assert.Equal(t, uint32(0), attributes[0].Offset)
	assert.Equal(t, uint32(12), attributes[1].Offset)
	assert.Equal(t, uint32(24), attributes[2].Offset)
	assert.Equal(t, vk.FormatR32g32Sfloat, attributes[2].Format)
	for i, a := range attributes {
		assert.Equal(t, uint32(i), a.Location)
	}
	assert.Equal(t, uint32(32), vertexBinding().Stride)
}

func TestDynamicStates(t *testing.T) {
	assert.Empty(t, dynamicStates(false))
	assert.Equal(t, []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}, dynamicStates(true))
}

func TestViewportFor(t *testing.T) {
	viewport, scissor := ViewportFor(vk.Extent2D{Width: 800, Height: 600})
	assert.Equal(t, float32(800), viewport.Width)
	assert.Equal(t, float32(600), viewport.Height)
	assert.Equal(t, float32(1), viewport.MaxDepth)
	assert.Equal(t, uint32(800), scissor.Extent.Width)
}

func TestPipelineTypeRange(t *testing.T) {
	m := NewPipelineManager(nil)

	_, err := m.Get(PipelineTypeMax)
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	_, err = m.Get(PipelineType(-1))
	assert.ErrorIs(t, err, core.ErrInvalidConfig)
	assert.ErrorIs(t, m.CreatePipeline(PipelineTypeMax, PipelineConfig{}), core.ErrInvalidConfig)

	// Valid but never created.
	_, err = m.Get(PipelineMain)
	assert.Error(t, err)
	assert.False(t, m.IsDynamic(PipelineMain))
	assert.Error(t, m.Bind(&VulkanCommandBuffer{}, PipelineUI))

	assert.Equal(t, "shadow_cast", PipelineShadowCast.String())
}

func TestCreatePipelineRejectsBadShaderBeforeTouchingDevice(t *testing.T) {
	m := NewPipelineManager(nil)
	assert.ErrorIs(t, m.CreatePipeline(PipelineMain, PipelineConfig{}), core.ErrInvalidConfig)

	err := m.CreatePipeline(PipelineMain, PipelineConfig{
		VertexShader:   t.TempDir() + "/missing.vert.spv",
		FragmentShader: t.TempDir() + "/missing.frag.spv",
		RenderPass:     &VulkanRenderPass{},
	})
	assert.Error(t, err)
}

func TestPipelineManagerDestroyIsIdempotent(t *testing.T) {
	m := NewPipelineManager(nil)
	m.pipelines[PipelineMain] = &VulkanPipeline{Dynamic: true}

	assert.True(t, m.IsDynamic(PipelineMain))
	m.Destroy()
	assert.NotPanics(t, m.Destroy)
	assert.False(t, m.IsDynamic(PipelineMain))
}
