package loaders

import vmath "github.com/spaghettifunk/vortex/engine/math"

type ResourceType int

/** @brief Resource types known to the asset manager. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Compiled SPIR-V shader stage. */
	ResourceTypeShader
	/** @brief Texture image (png, jpg, bmp, tiff, webp). */
	ResourceTypeImage
	/** @brief Wavefront OBJ mesh. */
	ResourceTypeModel
	/** @brief TOML material definition. */
	ResourceTypeMaterial
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeModel:
		return "model"
	case ResourceTypeMaterial:
		return "material"
	default:
		return "none"
	}
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource, the file name without extension. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	Type     ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/**
	 * @brief The resource data: []uint32 for shaders, *ImageData, *MeshData
	 * or *scene.Material.
	 */
	Data interface{}
}

/** @brief Decoded image, tightly packed RGBA8 rows starting at the bottom. */
type ImageData struct {
	Width  uint32
	Height uint32
	Pixels []byte
}

type MeshData struct {
	Vertices []vmath.Vertex3D
	Indices  []uint32
}

type Loader interface {
	Load(path string) (*Resource, error)
}
