package scene

import (
	"github.com/google/uuid"
	vmath "github.com/spaghettifunk/vortex/engine/math"
)

type TextureMap int

const (
	TextureAlbedo TextureMap = iota
	TextureNormal
	TextureMetallic
	TextureRoughness
	TextureMapCount
)

type MaterialKind int

const (
	MaterialOpaque MaterialKind = iota
	MaterialTransparent
)

/**
 * @brief PBR surface parameters plus the texture maps sampled by the fragment shader.
 */
type Material struct {
	ID   uuid.UUID
	Name string
	Kind MaterialKind

	Albedo    vmath.Vec3
	Metallic  float32
	Roughness float32
	AO        float32

	/** @brief Asset paths of the texture maps, indexed by TextureMap. Empty means unset. */
	Textures [TextureMapCount]string
}

func NewMaterial(name string) *Material {
	return &Material{
		ID:        uuid.New(),
		Name:      name,
		Kind:      MaterialOpaque,
		Albedo:    vmath.NewVec3One(),
		Metallic:  0,
		Roughness: 0.5,
		AO:        1,
	}
}

func (m *Material) SetTexture(slot TextureMap, path string) {
	if slot < 0 || slot >= TextureMapCount {
		return
	}
	m.Textures[slot] = path
}

func (m *Material) UBO() MaterialUBO {
	return MaterialUBO{
		Albedo:    m.Albedo,
		Metallic:  m.Metallic,
		Roughness: m.Roughness,
		AO:        m.AO,
	}
}
