package renderer

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
	"github.com/spaghettifunk/vortex/engine/renderer/vulkan"
	"github.com/spaghettifunk/vortex/engine/scene"
)

// objectUniforms is the uniform triplet of one (object slot, frame slot) pair.
type objectUniforms struct {
	transform *vulkan.VulkanBuffer
	light     *vulkan.VulkanBuffer
	material  *vulkan.VulkanBuffer
}

func (o *objectUniforms) destroy() {
	o.transform.Destroy()
	o.light.Destroy()
	o.material.Destroy()
}

/**
 * @brief The Vulkan side of the renderer. It owns every GPU resource and is
 * built in the order context, swapchain, render pass, depth and framebuffers,
 * descriptors, uniform buffers bound into them, pipelines, orchestrator.
 */
type vulkanDevice struct {
	config   Config
	provider vulkan.SurfaceProvider

	context      *vulkan.VulkanContext
	swapchain    *vulkan.VulkanSwapchain
	renderPass   *vulkan.VulkanRenderPass
	depth        *vulkan.VulkanImage
	framebuffers []*vulkan.VulkanFramebuffer
	descriptors  *vulkan.DescriptorManager
	pipelines    *vulkan.PipelineManager
	frames       *vulkan.FrameOrchestrator

	cameraUniforms []*vulkan.VulkanBuffer
	objectUniforms []objectUniforms

	meshes   map[string]*vulkan.VulkanMesh
	textures map[string]*vulkan.VulkanTexture
	white    *vulkan.VulkanTexture

	// Set between BeginPass and EndPass.
	commandBuffer *vulkan.VulkanCommandBuffer
	cameraSet     vk.DescriptorSet
}

func newVulkanDevice(provider vulkan.SurfaceProvider, config Config) (*vulkanDevice, error) {
	d := &vulkanDevice{
		config:   config,
		provider: provider,
		meshes:   make(map[string]*vulkan.VulkanMesh),
		textures: make(map[string]*vulkan.VulkanTexture),
	}
	if err := d.initialize(); err != nil {
		d.Destroy()
		return nil, err
	}
	return d, nil
}

func (d *vulkanDevice) initialize() error {
	context, err := vulkan.NewVulkanContext(d.provider, vulkan.ContextConfig{
		ApplicationName:  d.config.ApplicationName,
		EnableValidation: d.config.EnableValidation,
	})
	if err != nil {
		return err
	}
	d.context = context

	if d.swapchain, err = vulkan.NewVulkanSwapchain(d.context, d.provider); err != nil {
		return err
	}
	passConfig := vulkan.MainRenderPassConfig(d.swapchain.ImageFormat.Format, d.context.Device.DepthFormat)
	if d.renderPass, err = vulkan.NewVulkanRenderPass(d.context, passConfig); err != nil {
		return err
	}
	if err := d.createTargets(); err != nil {
		return err
	}
	if err := d.createDescriptors(); err != nil {
		return err
	}
	if err := d.createUniforms(); err != nil {
		return err
	}
	d.pipelines = vulkan.NewPipelineManager(d.context)
	if err := d.CreatePipelines(); err != nil {
		return err
	}
	d.frames, err = vulkan.NewVulkanFrameOrchestrator(d.context, d.config.FramesInFlight, d.swapchain.ImageCount)
	return err
}

// createTargets builds the depth image and one framebuffer per swapchain image.
func (d *vulkanDevice) createTargets() error {
	extent := d.swapchain.Extent
	depth, err := vulkan.NewDepthImage(d.context, extent.Width, extent.Height)
	if err != nil {
		return err
	}
	d.depth = depth
	d.framebuffers, err = vulkan.NewSwapchainFramebuffers(d.context, d.renderPass, d.swapchain, d.depth)
	return err
}

func (d *vulkanDevice) destroyTargets() {
	for _, fb := range d.framebuffers {
		fb.Destroy()
	}
	d.framebuffers = nil
	d.depth.Destroy()
	d.depth = nil
}

func (d *vulkanDevice) createDescriptors() error {
	d.descriptors = vulkan.NewDescriptorManager(d.context)
	if err := d.descriptors.DeclareLayout(cameraSet, []vulkan.BindingKind{vulkan.BindingCameraUBO}, 0); err != nil {
		return err
	}
	if err := d.descriptors.DeclareLayout(objectSet, objectSetBindings(), 0); err != nil {
		return err
	}
	capacities := descriptorCapacities(d.config.FramesInFlight, d.config.ObjectCapacity)
	if err := d.descriptors.CreatePool(capacities); err != nil {
		return err
	}
	return d.descriptors.AllocateAll(capacities)
}

func (d *vulkanDevice) uniformBuffer(size int) (*vulkan.VulkanBuffer, error) {
	return d.context.Allocator.CreateHostBuffer(vk.DeviceSize(size), vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit))
}

// createUniforms creates the camera and object uniform buffers and binds them,
// together with the white fallback texture, into their descriptor sets.
func (d *vulkanDevice) createUniforms() error {
	for f := uint32(0); f < d.config.FramesInFlight; f++ {
		buffer, err := d.uniformBuffer(scene.CameraUBOSize)
		if err != nil {
			return err
		}
		d.cameraUniforms = append(d.cameraUniforms, buffer)
		if err := d.descriptors.BindBuffer(cameraSet, f, 0, buffer, buffer.Size); err != nil {
			return err
		}
	}

	// Any unset texture map samples plain white.
	white, err := vulkan.NewVulkanTexture(d.context, 1, 1, []byte{255, 255, 255, 255})
	if err != nil {
		return err
	}
	d.white = white

	count := d.config.ObjectCapacity * d.config.FramesInFlight
	d.objectUniforms = make([]objectUniforms, count)
	for i := range d.objectUniforms {
		instance := uint32(i)
		o := &d.objectUniforms[i]
		if o.transform, err = d.uniformBuffer(scene.TransformUBOSize); err != nil {
			return err
		}
		if o.light, err = d.uniformBuffer(scene.LightUBOSize); err != nil {
			return err
		}
		if o.material, err = d.uniformBuffer(scene.MaterialUBOSize); err != nil {
			return err
		}
		if err := d.descriptors.BindBuffer(objectSet, instance, bindingTransform, o.transform, o.transform.Size); err != nil {
			return err
		}
		if err := d.descriptors.BindBuffer(objectSet, instance, bindingLight, o.light, o.light.Size); err != nil {
			return err
		}
		if err := d.descriptors.BindBuffer(objectSet, instance, bindingMaterial, o.material, o.material.Size); err != nil {
			return err
		}
		if err := d.BindTextures(instance, nil); err != nil {
			return err
		}
	}
	core.LogDebug("Uniform buffers created: %d camera, %d object triplets", len(d.cameraUniforms), count)
	return nil
}

func (d *vulkanDevice) destroyUniforms() {
	for _, buffer := range d.cameraUniforms {
		buffer.Destroy()
	}
	d.cameraUniforms = nil
	for i := range d.objectUniforms {
		d.objectUniforms[i].destroy()
	}
	d.objectUniforms = nil
}

// CreatePipelines builds one pipeline per material kind, both with the same fixed state.
func (d *vulkanDevice) CreatePipelines() error {
	layouts, err := d.descriptors.GetAllLayoutsDense()
	if err != nil {
		return err
	}
	config := vulkan.PipelineConfig{
		VertexShader:    d.config.VertexShader,
		FragmentShader:  d.config.FragmentShader,
		Extent:          d.swapchain.Extent,
		ColorFormat:     d.swapchain.ImageFormat.Format,
		RenderPass:      d.renderPass,
		SetLayouts:      layouts,
		DynamicViewport: d.config.DynamicViewport,
	}
	for _, kind := range []scene.MaterialKind{scene.MaterialOpaque, scene.MaterialTransparent} {
		if err := d.pipelines.CreatePipeline(pipelineFor(kind), config); err != nil {
			return err
		}
	}
	return nil
}

func (d *vulkanDevice) FramebufferSize() (int, int) {
	return d.provider.FramebufferSize()
}

func (d *vulkanDevice) Extent() vk.Extent2D {
	return d.swapchain.Extent
}

func (d *vulkanDevice) WaitIdle() {
	d.context.WaitIdle()
}

// ReleaseSwapchainResources destroys the framebuffers, the depth image, the
// orchestrator and the pipelines. Anything already gone is skipped.
func (d *vulkanDevice) ReleaseSwapchainResources() {
	d.destroyTargets()
	d.frames.Destroy()
	d.frames = nil
	if d.pipelines != nil {
		d.pipelines.Destroy()
	}
}

func (d *vulkanDevice) RecreateSwapchain() error {
	return d.swapchain.Recreate()
}

// CreateSwapchainResources rebuilds what ReleaseSwapchainResources destroyed at
// the current swapchain extent.
func (d *vulkanDevice) CreateSwapchainResources() error {
	if err := d.createTargets(); err != nil {
		return err
	}
	if err := d.CreatePipelines(); err != nil {
		return err
	}
	frames, err := vulkan.NewVulkanFrameOrchestrator(d.context, d.config.FramesInFlight, d.swapchain.ImageCount)
	if err != nil {
		return err
	}
	d.frames = frames
	return nil
}

func (d *vulkanDevice) BeginFrame() (uint32, uint32, error) {
	if d.frames == nil {
		return 0, 0, fmt.Errorf("%w: no frame orchestrator", core.ErrFrameNotReady)
	}
	imageIndex, err := d.frames.BeginFrame(d.swapchain)
	if err != nil {
		return 0, 0, err
	}
	return d.frames.CurrentFrame(), imageIndex, nil
}

func (d *vulkanDevice) WriteCamera(frame uint32, data []byte) error {
	return d.cameraUniforms[frame].Upload(data, 0)
}

func (d *vulkanDevice) BeginPass(frame, imageIndex uint32) error {
	cameraDescriptor, err := d.descriptors.Get(cameraSet, frame)
	if err != nil {
		return err
	}
	commandBuffer := d.frames.CurrentCommandBuffer()
	if err := commandBuffer.Reset(); err != nil {
		return err
	}
	if err := commandBuffer.Begin(false, false, false); err != nil {
		return err
	}
	d.renderPass.Begin(commandBuffer, d.framebuffers[imageIndex], d.swapchain.Extent, clearColor, 1.0)
	d.commandBuffer = commandBuffer
	d.cameraSet = cameraDescriptor
	return nil
}

func (d *vulkanDevice) WriteObject(instance uint32, transform, light, material []byte) error {
	uniforms := &d.objectUniforms[instance]
	if err := uniforms.transform.Upload(transform, 0); err != nil {
		return err
	}
	if err := uniforms.light.Upload(light, 0); err != nil {
		return err
	}
	return uniforms.material.Upload(material, 0)
}

func (d *vulkanDevice) textureFor(path string) *vulkan.VulkanTexture {
	if texture, ok := d.textures[path]; ok && path != "" {
		return texture
	}
	return d.white
}

// BindTextures writes the texture maps at paths into one object set instance.
// Missing entries bind the white texture.
func (d *vulkanDevice) BindTextures(instance uint32, paths []string) error {
	for i := 0; i < vulkan.MaterialTextureCount; i++ {
		texture := d.white
		if i < len(paths) {
			texture = d.textureFor(paths[i])
		}
		if err := d.descriptors.BindImage(objectSet, instance, bindingTextures+uint32(i), texture.Image.View, texture.Sampler); err != nil {
			return err
		}
	}
	return nil
}

func (d *vulkanDevice) Draw(mesh string, pipelineType vulkan.PipelineType, instance uint32) error {
	uploaded, ok := d.meshes[mesh]
	if !ok {
		return fmt.Errorf("mesh %q is not uploaded", mesh)
	}
	if err := d.pipelines.Bind(d.commandBuffer, pipelineType); err != nil {
		return err
	}
	pipeline, err := d.pipelines.Get(pipelineType)
	if err != nil {
		return err
	}
	if pipeline.Dynamic {
		viewport, scissor := vulkan.ViewportFor(d.swapchain.Extent)
		vk.CmdSetViewport(d.commandBuffer.Handle, 0, 1, []vk.Viewport{viewport})
		vk.CmdSetScissor(d.commandBuffer.Handle, 0, 1, []vk.Rect2D{scissor})
	}

	objectDescriptor, err := d.descriptors.Get(objectSet, instance)
	if err != nil {
		return err
	}
	vk.CmdBindDescriptorSets(d.commandBuffer.Handle, vk.PipelineBindPointGraphics, pipeline.PipelineLayout,
		0, 2, []vk.DescriptorSet{d.cameraSet, objectDescriptor}, 0, nil)

	uploaded.Bind(d.commandBuffer)
	uploaded.Draw(d.commandBuffer)
	return nil
}

func (d *vulkanDevice) EndPass() error {
	commandBuffer := d.commandBuffer
	d.commandBuffer = nil
	d.renderPass.End(commandBuffer)
	return commandBuffer.End()
}

func (d *vulkanDevice) EndFrame(imageIndex uint32) error {
	return d.frames.EndFrame(d.frames.CurrentCommandBuffer(), d.swapchain, imageIndex)
}

func (d *vulkanDevice) HasMesh(name string) bool {
	_, ok := d.meshes[name]
	return ok
}

func (d *vulkanDevice) HasTexture(name string) bool {
	_, ok := d.textures[name]
	return ok
}

func (d *vulkanDevice) UploadMesh(name string, vertices []vmath.Vertex3D, indices []uint32) error {
	uploaded, err := vulkan.NewVulkanMesh(d.context, vertices, indices)
	if err != nil {
		return err
	}
	if existing, ok := d.meshes[name]; ok {
		d.context.WaitIdle()
		existing.Destroy()
	}
	d.meshes[name] = uploaded
	core.LogDebug("Mesh %s uploaded (%d vertices, %d indices)", name, uploaded.VertexCount, uploaded.IndexCount)
	return nil
}

func (d *vulkanDevice) UploadTexture(name string, width, height uint32, pixels []byte) (bool, error) {
	texture, err := vulkan.NewVulkanTexture(d.context, width, height, pixels)
	if err != nil {
		return false, err
	}
	existing, replaced := d.textures[name]
	if replaced {
		d.context.WaitIdle()
		existing.Destroy()
	}
	d.textures[name] = texture
	return replaced, nil
}

// Destroy tears down in the reverse of the construction order. Safe to call more than once.
func (d *vulkanDevice) Destroy() {
	if d.context == nil {
		return
	}
	if d.context.Device != nil && d.context.Device.LogicalDevice != nil {
		d.context.WaitIdle()
	}

	d.frames.Destroy()
	d.frames = nil
	if d.pipelines != nil {
		d.pipelines.Destroy()
		d.pipelines = nil
	}

	d.destroyUniforms()
	d.white.Destroy()
	d.white = nil
	for name, mesh := range d.meshes {
		mesh.Destroy()
		delete(d.meshes, name)
	}
	for name, texture := range d.textures {
		texture.Destroy()
		delete(d.textures, name)
	}

	if d.descriptors != nil {
		d.descriptors.Destroy()
		d.descriptors = nil
	}
	d.destroyTargets()
	d.renderPass.Destroy()
	d.renderPass = nil
	if d.swapchain != nil {
		d.swapchain.Cleanup()
		d.swapchain = nil
	}

	d.context.Destroy()
	d.context = nil
}
