package renderer

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
	"github.com/spaghettifunk/vortex/engine/renderer/vulkan"
	"github.com/spaghettifunk/vortex/engine/scene"
)

const (
	cameraSet uint32 = 0
	objectSet uint32 = 1
)

// Bindings of the object set: transform, light, material, then the texture maps.
const (
	bindingTransform uint32 = iota
	bindingLight
	bindingMaterial
	bindingTextures
)

var clearColor = [4]float32{0.02, 0.02, 0.02, 1.0}

type Config struct {
	ApplicationName  string
	EnableValidation bool
	FramesInFlight   uint32
	ObjectCapacity   uint32
	DynamicViewport  bool
	VertexShader     string
	FragmentShader   string
}

/**
 * @brief Draws a scene into the window surface. All methods must be called from
 * the render thread, except OnResize and ReloadShaders which only raise flags.
 */
type Renderer struct {
	config Config
	device renderDevice
	// False while the swapchain dependent resources are missing.
	ready bool

	// Material whose textures are bound in each object set instance.
	boundMaterials []uuid.UUID
	materials      map[uuid.UUID]*scene.Material

	resizeRequested atomic.Bool
	reloadRequested atomic.Bool
}

// objectInstance is the object set instance of slot while recording frame.
func objectInstance(slot, frame, framesInFlight uint32) uint32 {
	return slot*framesInFlight + frame
}

func descriptorCapacities(framesInFlight, objectCapacity uint32) map[uint32]uint32 {
	return map[uint32]uint32{
		cameraSet: framesInFlight,
		objectSet: objectCapacity * framesInFlight,
	}
}

func objectSetBindings() []vulkan.BindingKind {
	kinds := []vulkan.BindingKind{
		vulkan.BindingTransformUBO,
		vulkan.BindingLightUBO,
		vulkan.BindingMaterialUBO,
	}
	for i := 0; i < vulkan.MaterialTextureCount; i++ {
		kinds = append(kinds, vulkan.BindingTextureSampler)
	}
	return kinds
}

func pipelineFor(kind scene.MaterialKind) vulkan.PipelineType {
	if kind == scene.MaterialTransparent {
		return vulkan.PipelineTransparentGeometry
	}
	return vulkan.PipelineMain
}

// isFatal reports errors that recreating the swapchain cannot recover from.
func isFatal(err error) bool {
	return errors.Is(err, core.ErrSurfaceLost) || errors.Is(err, core.ErrDeviceLost)
}

func (c Config) validate() error {
	if c.FramesInFlight < 1 || c.FramesInFlight > 3 {
		return fmt.Errorf("%w: frames in flight must be in [1,3], got %d", core.ErrInvalidConfig, c.FramesInFlight)
	}
	if c.ObjectCapacity < 1 {
		return fmt.Errorf("%w: object capacity must be at least 1", core.ErrInvalidConfig)
	}
	if c.VertexShader == "" || c.FragmentShader == "" {
		return fmt.Errorf("%w: both shader paths are required", core.ErrInvalidConfig)
	}
	return nil
}

/**
 * @brief Creates the context and every resource needed to draw. On failure
 * whatever was created is destroyed again.
 */
func New(provider vulkan.SurfaceProvider, config Config) (*Renderer, error) {
	if err := config.validate(); err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	device, err := newVulkanDevice(provider, config)
	if err != nil {
		return nil, err
	}
	core.LogInfo("Vulkan renderer initialized successfully.")
	return newRenderer(device, config), nil
}

func newRenderer(device renderDevice, config Config) *Renderer {
	return &Renderer{
		config:         config,
		device:         device,
		ready:          true,
		materials:      make(map[uuid.UUID]*scene.Material),
		boundMaterials: make([]uuid.UUID, config.ObjectCapacity*config.FramesInFlight),
	}
}

/**
 * @brief Uploads a mesh under name, replacing any mesh already registered with it.
 */
func (r *Renderer) UploadMesh(name string, vertices []vmath.Vertex3D, indices []uint32) error {
	return r.device.UploadMesh(name, vertices, indices)
}

// UploadTexture uploads RGBA8 pixels under name, the asset path materials refer to.
func (r *Renderer) UploadTexture(name string, width, height uint32, pixels []byte) error {
	replaced, err := r.device.UploadTexture(name, width, height, pixels)
	if err != nil {
		return err
	}
	if replaced {
		r.invalidateTextureBindings()
	}
	return nil
}

func (r *Renderer) invalidateTextureBindings() {
	for i := range r.boundMaterials {
		r.boundMaterials[i] = uuid.Nil
	}
}

/**
 * @brief Makes the material known to the renderer. Its textures are bound into
 * the object sets of the renderables using it the next time they are drawn;
 * maps that are unset or not uploaded fall back to white.
 */
func (r *Renderer) RegisterMaterial(material *scene.Material) {
	if material == nil {
		return
	}
	for slot, path := range material.Textures {
		if path == "" {
			continue
		}
		if !r.device.HasTexture(path) {
			core.LogWarn("material %s: texture %s (map %d) not uploaded, using white", material.Name, path, slot)
		}
	}
	r.materials[material.ID] = material
	for i, id := range r.boundMaterials {
		if id == material.ID {
			r.boundMaterials[i] = uuid.Nil
		}
	}
}

// OnResize only records the request; the swapchain is rebuilt by the next Render.
func (r *Renderer) OnResize(width, height uint32) {
	core.LogDebug("Renderer resize requested: %dx%d", width, height)
	r.resizeRequested.Store(true)
}

// ReloadShaders asks the next Render to rebuild the pipelines from the shader files.
func (r *Renderer) ReloadShaders() {
	r.reloadRequested.Store(true)
}

// checkSlots rejects renderables whose slot has no object set instance.
func (r *Renderer) checkSlots(s *scene.Scene) error {
	for _, renderable := range s.Renderables() {
		if renderable.Slot >= r.config.ObjectCapacity {
			err := fmt.Errorf("%w: renderable %s has slot %d, object capacity is %d",
				core.ErrDescriptorOutOfRange, renderable.ID, renderable.Slot, r.config.ObjectCapacity)
			core.LogError(err.Error())
			return err
		}
	}
	return nil
}

/**
 * @brief Records and presents one frame of s. Failures of the frame itself lead
 * to recreation of the swapchain dependent resources and are not returned.
 * The errors returned are a lost surface or device, and renderables outside the
 * object capacity.
 */
func (r *Renderer) Render(s *scene.Scene) error {
	if err := r.checkSlots(s); err != nil {
		return err
	}
	if r.resizeRequested.Load() || !r.ready {
		return r.Recreate()
	}
	if r.reloadRequested.Swap(false) {
		r.reloadPipelines()
	}

	frame, imageIndex, err := r.device.BeginFrame()
	if err != nil {
		return r.recoverFrame("BeginFrame", err)
	}
	if err := r.record(s, frame, imageIndex); err != nil {
		return r.recoverFrame("recording", err)
	}
	if err := r.device.EndFrame(imageIndex); err != nil {
		return r.recoverFrame("EndFrame", err)
	}
	return nil
}

func (r *Renderer) recoverFrame(stage string, err error) error {
	if isFatal(err) {
		return err
	}
	core.LogDebug("%s: %s, recreating", stage, err)
	return r.Recreate()
}

func (r *Renderer) record(s *scene.Scene, frame, imageIndex uint32) error {
	extent := r.device.Extent()
	s.Camera.SetViewportSize(int(extent.Width), int(extent.Height))
	if err := r.device.WriteCamera(frame, s.CameraUBO().Bytes()); err != nil {
		return err
	}
	if err := r.device.BeginPass(frame, imageIndex); err != nil {
		return err
	}

	lightBytes := s.Light.UBO().Bytes()
	for _, renderable := range s.Renderables() {
		if err := r.drawRenderable(renderable, frame, lightBytes); err != nil {
			return err
		}
	}
	return r.device.EndPass()
}

func (r *Renderer) drawRenderable(renderable *scene.Renderable, frame uint32, lightBytes []byte) error {
	material := renderable.Material
	if material == nil || !r.device.HasMesh(renderable.Mesh) {
		// Not drawable until its mesh is uploaded and a material assigned.
		core.LogDebug("skipping renderable %s (mesh %q)", renderable.ID, renderable.Mesh)
		return nil
	}

	instance := objectInstance(renderable.Slot, frame, r.config.FramesInFlight)
	if err := r.device.WriteObject(instance, renderable.TransformUBO().Bytes(), lightBytes, material.UBO().Bytes()); err != nil {
		return err
	}
	if r.boundMaterials[instance] != material.ID {
		if _, known := r.materials[material.ID]; !known {
			r.RegisterMaterial(material)
		}
		if err := r.device.BindTextures(instance, material.Textures[:]); err != nil {
			return err
		}
		r.boundMaterials[instance] = material.ID
	}
	return r.device.Draw(renderable.Mesh, pipelineFor(material.Kind), instance)
}

func (r *Renderer) reloadPipelines() {
	r.device.WaitIdle()
	if err := r.device.CreatePipelines(); err != nil {
		core.LogError("shader reload failed, keeping previous pipelines where possible: %s", err)
		return
	}
	core.LogInfo("Pipelines rebuilt from %s and %s", r.config.VertexShader, r.config.FragmentShader)
}

/**
 * @brief Rebuilds everything that depends on the swapchain. A minimized window
 * defers the rebuild: the request stays pending until the window has an area
 * again. A rebuild that fails for any reason but a lost surface or device also
 * stays pending and is retried by the next Render.
 */
func (r *Renderer) Recreate() error {
	width, height := r.device.FramebufferSize()
	if width == 0 || height == 0 {
		r.resizeRequested.Store(true)
		return nil
	}

	r.device.WaitIdle()
	r.device.ReleaseSwapchainResources()
	r.ready = false

	err := r.device.RecreateSwapchain()
	if err == nil {
		err = r.device.CreateSwapchainResources()
	}
	if err != nil {
		r.resizeRequested.Store(true)
		if isFatal(err) {
			core.LogError("renderer recreation failed: %s", err)
			return err
		}
		core.LogWarn("renderer recreation failed, retrying next frame: %s", err)
		return nil
	}

	r.ready = true
	r.resizeRequested.Store(false)
	extent := r.device.Extent()
	core.LogDebug("Renderer recreated at %dx%d", extent.Width, extent.Height)
	return nil
}

// Destroy releases everything in reverse creation order. Safe to call more than once.
func (r *Renderer) Destroy() {
	if r.device == nil {
		return
	}
	r.device.Destroy()
	r.device = nil
	core.LogInfo("Vulkan renderer destroyed.")
}
