package scene

import (
	"encoding/binary"
	"math"

	vmath "github.com/spaghettifunk/vortex/engine/math"
)

// Byte sizes of the uniform blocks as the shaders declare them (std140).
const (
	CameraUBOSize    = 144
	TransformUBOSize = 128
	LightUBOSize     = 32
	MaterialUBOSize  = 32
)

type CameraUBO struct {
	View       vmath.Mat4
	Projection vmath.Mat4
	Position   vmath.Vec3
}

type TransformUBO struct {
	Model vmath.Mat4
	// transpose(inverse(Model))
	Normal vmath.Mat4
}

type LightUBO struct {
	Position  vmath.Vec3
	Intensity float32
	Color     vmath.Vec3
	Type      int32
}

type MaterialUBO struct {
	Albedo    vmath.Vec3
	Metallic  float32
	Roughness float32
	AO        float32
}

func putFloat(buf []byte, offset int, f float32) {
	binary.LittleEndian.PutUint32(buf[offset:], math.Float32bits(f))
}

func putVec3(buf []byte, offset int, v vmath.Vec3) {
	putFloat(buf, offset, v.X)
	putFloat(buf, offset+4, v.Y)
	putFloat(buf, offset+8, v.Z)
}

func putMat4(buf []byte, offset int, m vmath.Mat4) {
	for i, f := range m.Data {
		putFloat(buf, offset+i*4, f)
	}
}

func (u CameraUBO) Bytes() []byte {
	buf := make([]byte, CameraUBOSize)
	putMat4(buf, 0, u.View)
	putMat4(buf, 64, u.Projection)
	// vec3 padded to 16 bytes
	putVec3(buf, 128, u.Position)
	return buf
}

func NewTransformUBO(model vmath.Mat4) TransformUBO {
	return TransformUBO{Model: model, Normal: model.Inverse().Transposed()}
}

func (u TransformUBO) Bytes() []byte {
	buf := make([]byte, TransformUBOSize)
	putMat4(buf, 0, u.Model)
	putMat4(buf, 64, u.Normal)
	return buf
}

func (u LightUBO) Bytes() []byte {
	buf := make([]byte, LightUBOSize)
	putVec3(buf, 0, u.Position)
	putFloat(buf, 12, u.Intensity)
	putVec3(buf, 16, u.Color)
	binary.LittleEndian.PutUint32(buf[28:], uint32(u.Type))
	return buf
}

func (u MaterialUBO) Bytes() []byte {
	buf := make([]byte, MaterialUBOSize)
	putVec3(buf, 0, u.Albedo)
	putFloat(buf, 12, u.Metallic)
	putFloat(buf, 16, u.Roughness)
	putFloat(buf, 20, u.AO)
	return buf
}
