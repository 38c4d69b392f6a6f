package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type WindowConfig struct {
	Title  string `toml:"title"`
	PosX   uint32 `toml:"pos_x"`
	PosY   uint32 `toml:"pos_y"`
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererConfig struct {
	// Number of frame slots recorded ahead of the GPU.
	FramesInFlight uint32 `toml:"frames_in_flight"`
	// Upper bound of renderables. Sizes the object uniform buffers and descriptor sets.
	ObjectCapacity   uint32 `toml:"object_capacity"`
	EnableValidation bool   `toml:"enable_validation"`
	// Viewport and scissor as dynamic pipeline state instead of baked in.
	DynamicViewport bool   `toml:"dynamic_viewport"`
	VertexShader    string `toml:"vertex_shader"`
	FragmentShader  string `toml:"fragment_shader"`
}

type SceneConfig struct {
	// Degrees per second.
	RotationSpeed float32 `toml:"rotation_speed"`
	TargetFPS     uint32  `toml:"target_fps"`
	AssetsDir     string  `toml:"assets_dir"`
	Material      string  `toml:"material"`
	Mesh          string  `toml:"mesh"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type EngineConfig struct {
	Window   WindowConfig   `toml:"window"`
	Renderer RendererConfig `toml:"renderer"`
	Scene    SceneConfig    `toml:"scene"`
	Log      LogConfig      `toml:"log"`
}

func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Window: WindowConfig{
			Title:  "Vortex",
			PosX:   100,
			PosY:   100,
			Width:  1280,
			Height: 960,
		},
		Renderer: RendererConfig{
			FramesInFlight:   2,
			ObjectCapacity:   10,
			EnableValidation: true,
			DynamicViewport:  false,
			VertexShader:     "shaders/pbr.vert.spv",
			FragmentShader:   "shaders/pbr.frag.spv",
		},
		Scene: SceneConfig{
			RotationSpeed: 30,
			TargetFPS:     60,
			AssetsDir:     "assets",
			Material:      "materials/cube.toml",
			Mesh:          "Cube.obj",
		},
		Log: LogConfig{
			Level: "debug",
		},
	}
}

// LoadConfig reads a TOML file on top of the defaults. A missing file is not an
// error: the defaults are returned as they are.
func LoadConfig(path string) (*EngineConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			LogWarn("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		err = fmt.Errorf("failed to parse config %s: %w", path, err)
		LogError(err.Error())
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EngineConfig) Validate() error {
	if c.Renderer.FramesInFlight < 1 || c.Renderer.FramesInFlight > 3 {
		return fmt.Errorf("%w: frames_in_flight must be in [1,3], got %d", ErrInvalidConfig, c.Renderer.FramesInFlight)
	}
	if c.Renderer.ObjectCapacity < 1 {
		return fmt.Errorf("%w: object_capacity must be at least 1", ErrInvalidConfig)
	}
	if c.Window.Width == 0 || c.Window.Height == 0 {
		return fmt.Errorf("%w: window size must be non-zero, got %dx%d", ErrInvalidConfig, c.Window.Width, c.Window.Height)
	}
	if c.Renderer.VertexShader == "" || c.Renderer.FragmentShader == "" {
		return fmt.Errorf("%w: both shader paths are required", ErrInvalidConfig)
	}
	return nil
}
