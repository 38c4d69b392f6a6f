package loaders

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	vmath "github.com/spaghettifunk/vortex/engine/math"
)

const invalidIndex = -1

type ModelLoader struct{}

func (ml *ModelLoader) Load(path string) (*Resource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	mesh, err := DecodeOBJ(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse model %s: %w", path, err)
	}
	return &Resource{
		Name:     strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		FullPath: path,
		Type:     ResourceTypeModel,
		DataSize: uint64(len(mesh.Vertices)*vmath.Vertex3DStride + len(mesh.Indices)*4),
		Data:     mesh,
	}, nil
}

// Each corner of a face is a position plus optional uv and normal indices.
type objCorner struct {
	position int
	uv       int
	normal   int
}

type objDecoder struct {
	line      int
	positions []vmath.Vec3
	normals   []vmath.Vec3
	uvs       []vmath.Vec2

	mesh   *MeshData
	unique map[objCorner]uint32
}

/**
 * @brief Parses a Wavefront OBJ stream into a single indexed triangle mesh.
 * Polygons are fan triangulated and identical corners share one vertex.
 * Corners without a normal get (0,0,1) and corners without a uv get (0,0).
 * Materials, groups and smoothing groups are ignored.
 */
func DecodeOBJ(reader io.Reader) (*MeshData, error) {
	dec := &objDecoder{
		mesh:   &MeshData{},
		unique: make(map[objCorner]uint32),
	}
	bufin := bufio.NewReader(reader)
	dec.line = 1
	for {
		// Reads next line and abort on errors (not EOF)
		line, err := bufin.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if perr := dec.parseLine(strings.TrimSpace(line)); perr != nil {
			return nil, fmt.Errorf("line %d: %w", dec.line, perr)
		}
		if err == io.EOF {
			break
		}
		dec.line++
	}
	if len(dec.mesh.Indices) == 0 {
		return nil, errors.New("no faces found")
	}
	return dec.mesh, nil
}

func (dec *objDecoder) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		dec.positions = append(dec.positions, vmath.NewVec3(v[0], v[1], v[2]))
	case "vn":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		dec.normals = append(dec.normals, vmath.NewVec3(v[0], v[1], v[2]))
	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		dec.uvs = append(dec.uvs, vmath.NewVec2(v[0], v[1]))
	case "f":
		return dec.parseFace(fields[1:])
	}
	return nil
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i, f := range fields[:n] {
		val, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(val)
	}
	return out, nil
}

// resolveIndex maps a 1-based or negative (relative) OBJ index onto [0, count).
func resolveIndex(field string, count int) (int, error) {
	val, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	idx := val - 1
	if val < 0 {
		idx = count + val
	} else if val == 0 {
		return 0, errors.New("index value equal to 0")
	}
	if idx < 0 || idx >= count {
		return 0, fmt.Errorf("index %d out of range (%d defined)", val, count)
	}
	return idx, nil
}

// parseFace parses a face description line:
// f v1[/vt1][/vn1] v2[/vt2][/vn2] v3[/vt3][/vn3] ...
func (dec *objDecoder) parseFace(fields []string) error {
	if len(fields) < 3 {
		return errors.New("face line with less than 3 corners")
	}
	corners := make([]uint32, len(fields))
	for pos, f := range fields {
		parts := strings.Split(f, "/")
		corner := objCorner{uv: invalidIndex, normal: invalidIndex}

		var err error
		if corner.position, err = resolveIndex(parts[0], len(dec.positions)); err != nil {
			return err
		}
		if len(parts) > 1 && parts[1] != "" {
			if corner.uv, err = resolveIndex(parts[1], len(dec.uvs)); err != nil {
				return err
			}
		}
		if len(parts) > 2 && parts[2] != "" {
			if corner.normal, err = resolveIndex(parts[2], len(dec.normals)); err != nil {
				return err
			}
		}
		corners[pos] = dec.vertexFor(corner)
	}
	for i := 1; i+1 < len(corners); i++ {
		dec.mesh.Indices = append(dec.mesh.Indices, corners[0], corners[i], corners[i+1])
	}
	return nil
}

func (dec *objDecoder) vertexFor(c objCorner) uint32 {
	if idx, ok := dec.unique[c]; ok {
		return idx
	}
	vertex := vmath.Vertex3D{
		Position: dec.positions[c.position],
		Normal:   vmath.NewVec3(0, 0, 1),
	}
	if c.normal != invalidIndex {
		vertex.Normal = dec.normals[c.normal]
	}
	if c.uv != invalidIndex {
		vertex.Texcoord = dec.uvs[c.uv]
	}
	idx := uint32(len(dec.mesh.Vertices))
	dec.mesh.Vertices = append(dec.mesh.Vertices, vertex)
	dec.unique[c] = idx
	return idx
}
