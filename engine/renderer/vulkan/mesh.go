package vulkan

import (
	"bytes"
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
	vmath "github.com/spaghettifunk/vortex/engine/math"
)

/**
 * @brief Device local vertex and index buffers of one mesh. Indices are uint32.
 */
type VulkanMesh struct {
	VertexBuffer *VulkanBuffer
	IndexBuffer  *VulkanBuffer
	VertexCount  uint32
	IndexCount   uint32
}

// encodeMesh lays vertices and indices out the way the vertex input state reads them.
func encodeMesh(vertices []vmath.Vertex3D, indices []uint32) ([]byte, []byte, error) {
	var vb, ib bytes.Buffer
	vb.Grow(len(vertices) * vmath.Vertex3DStride)
	if err := binary.Write(&vb, binary.LittleEndian, vertices); err != nil {
		return nil, nil, err
	}
	ib.Grow(len(indices) * 4)
	if err := binary.Write(&ib, binary.LittleEndian, indices); err != nil {
		return nil, nil, err
	}
	return vb.Bytes(), ib.Bytes(), nil
}

func NewVulkanMesh(context *VulkanContext, vertices []vmath.Vertex3D, indices []uint32) (*VulkanMesh, error) {
	if len(vertices) == 0 || len(indices) == 0 {
		err := fmt.Errorf("%w: mesh needs vertices and indices, got %d and %d", core.ErrInvalidConfig, len(vertices), len(indices))
		core.LogError(err.Error())
		return nil, err
	}
	vertexData, indexData, err := encodeMesh(vertices, indices)
	if err != nil {
		core.LogError("failed to encode mesh: %s", err)
		return nil, err
	}

	vertexBuffer, err := context.Allocator.CreateDeviceLocalBuffer(vertexData, vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit))
	if err != nil {
		return nil, err
	}
	indexBuffer, err := context.Allocator.CreateDeviceLocalBuffer(indexData, vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit))
	if err != nil {
		vertexBuffer.Destroy()
		return nil, err
	}

	core.LogDebug("Mesh uploaded: %d vertices, %d indices", len(vertices), len(indices))
	return &VulkanMesh{
		VertexBuffer: vertexBuffer,
		IndexBuffer:  indexBuffer,
		VertexCount:  uint32(len(vertices)),
		IndexCount:   uint32(len(indices)),
	}, nil
}

// Bind binds the vertex buffer at binding 0 and the index buffer.
func (m *VulkanMesh) Bind(commandBuffer *VulkanCommandBuffer) {
	vk.CmdBindVertexBuffers(commandBuffer.Handle, 0, 1, []vk.Buffer{m.VertexBuffer.Handle}, []vk.DeviceSize{0})
	vk.CmdBindIndexBuffer(commandBuffer.Handle, m.IndexBuffer.Handle, 0, vk.IndexTypeUint32)
}

func (m *VulkanMesh) Draw(commandBuffer *VulkanCommandBuffer) {
	vk.CmdDrawIndexed(commandBuffer.Handle, m.IndexCount, 1, 0, 0, 0)
}

func (m *VulkanMesh) Destroy() {
	if m == nil {
		return
	}
	m.IndexBuffer.Destroy()
	m.VertexBuffer.Destroy()
	m.IndexCount = 0
	m.VertexCount = 0
}
