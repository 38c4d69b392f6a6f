package engine

import (
	"github.com/spaghettifunk/vortex/engine/core"
)

type ApplicationConfig struct {
	// Window starting position x axis, if applicable.
	StartPosX uint32
	// Window starting position y axis, if applicable.
	StartPosY uint32
	// Window starting width, if applicable.
	StartWidth uint32
	// Window starting height, if applicable.
	StartHeight uint32
	// The application name used in windowing, if applicable.
	Name     string
	LogLevel string
	// Directory every asset name is resolved against.
	AssetsDir string

	Renderer core.RendererConfig
	Scene    core.SceneConfig
}

// NewApplicationConfig maps the engine configuration file onto the application.
func NewApplicationConfig(cfg *core.EngineConfig) *ApplicationConfig {
	return &ApplicationConfig{
		StartPosX:   cfg.Window.PosX,
		StartPosY:   cfg.Window.PosY,
		StartWidth:  cfg.Window.Width,
		StartHeight: cfg.Window.Height,
		Name:        cfg.Window.Title,
		LogLevel:    cfg.Log.Level,
		AssetsDir:   cfg.Scene.AssetsDir,
		Renderer:    cfg.Renderer,
		Scene:       cfg.Scene,
	}
}
