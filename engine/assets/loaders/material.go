package loaders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	vmath "github.com/spaghettifunk/vortex/engine/math"
	"github.com/spaghettifunk/vortex/engine/scene"
)

type MaterialLoader struct{}

type materialTextures struct {
	Albedo    string `toml:"albedo"`
	Normal    string `toml:"normal"`
	Metallic  string `toml:"metallic"`
	Roughness string `toml:"roughness"`
}

// Unset keys keep the material defaults, hence the pointers.
type materialFile struct {
	Name      string           `toml:"name"`
	Kind      string           `toml:"kind"`
	Albedo    []float32        `toml:"albedo"`
	Metallic  *float32         `toml:"metallic"`
	Roughness *float32         `toml:"roughness"`
	AO        *float32         `toml:"ao"`
	Textures  materialTextures `toml:"textures"`
}

func (ml *MaterialLoader) Load(path string) (*Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	material, err := ParseMaterial(name, data)
	if err != nil {
		return nil, fmt.Errorf("material %s: %w", path, err)
	}
	return &Resource{
		Name:     material.Name,
		FullPath: path,
		Type:     ResourceTypeMaterial,
		DataSize: uint64(len(data)),
		Data:     material,
	}, nil
}

/**
 * @brief Builds a material from a TOML definition. fallbackName is used when the
 * file has no name key.
 */
func ParseMaterial(fallbackName string, data []byte) (*scene.Material, error) {
	var mf materialFile
	if err := toml.Unmarshal(data, &mf); err != nil {
		return nil, err
	}

	name := mf.Name
	if name == "" {
		name = fallbackName
	}
	material := scene.NewMaterial(name)

	switch strings.ToLower(mf.Kind) {
	case "", "opaque":
		material.Kind = scene.MaterialOpaque
	case "transparent":
		material.Kind = scene.MaterialTransparent
	default:
		return nil, fmt.Errorf("unknown material kind %q", mf.Kind)
	}

	if mf.Albedo != nil {
		if len(mf.Albedo) != 3 {
			return nil, fmt.Errorf("albedo expects 3 values, got %d", len(mf.Albedo))
		}
		material.Albedo = vmath.NewVec3(mf.Albedo[0], mf.Albedo[1], mf.Albedo[2])
	}
	if mf.Metallic != nil {
		material.Metallic = vmath.Clamp(*mf.Metallic, 0, 1)
	}
	if mf.Roughness != nil {
		material.Roughness = vmath.Clamp(*mf.Roughness, 0, 1)
	}
	if mf.AO != nil {
		material.AO = vmath.Clamp(*mf.AO, 0, 1)
	}

	material.SetTexture(scene.TextureAlbedo, mf.Textures.Albedo)
	material.SetTexture(scene.TextureNormal, mf.Textures.Normal)
	material.SetTexture(scene.TextureMetallic, mf.Textures.Metallic)
	material.SetTexture(scene.TextureRoughness, mf.Textures.Roughness)
	return material, nil
}
