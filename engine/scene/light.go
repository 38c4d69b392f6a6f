package scene

import vmath "github.com/spaghettifunk/vortex/engine/math"

type LightType int32

const (
	LightPoint LightType = iota
	LightDirectional
	LightSpot
)

type Light struct {
	Position  vmath.Vec3
	Intensity float32
	Color     vmath.Vec3
	Type      LightType
}

// DefaultLight is a white point light above and to the right of the origin.
func DefaultLight() Light {
	return Light{
		Position:  vmath.NewVec3(2, 2, 2),
		Intensity: 1,
		Color:     vmath.NewVec3One(),
		Type:      LightPoint,
	}
}

func (l Light) UBO() LightUBO {
	return LightUBO{
		Position:  l.Position,
		Intensity: l.Intensity,
		Color:     l.Color,
		Type:      int32(l.Type),
	}
}
