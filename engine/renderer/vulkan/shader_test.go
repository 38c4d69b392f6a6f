package vulkan

import (
	"os"
	"path/filepath"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadShaderBinary(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.spv")
	// SPIR-V magic followed by one more word.
	require.NoError(t, os.WriteFile(valid, []byte{0x03, 0x02, 0x23, 0x07, 0x01, 0x00, 0x00, 0x00}, 0o644))
	code, err := LoadShaderBinary(valid)
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x07230203, 1}, code)

	odd := filepath.Join(dir, "odd.spv")
	require.NoError(t, os.WriteFile(odd, []byte{1, 2, 3, 4, 5, 6}, 0o644))
	_, err = LoadShaderBinary(odd)
	assert.ErrorIs(t, err, core.ErrInvalidShaderBinary)
	var typed *InvalidShaderBinaryError
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, 6, typed.Size)
	assert.Equal(t, odd, typed.Path)

	_, err = LoadShaderBinary(filepath.Join(dir, "missing.spv"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrInvalidShaderBinary)
}

func TestDecodeShaderBinaryRejectsEmpty(t *testing.T) {
	_, err := DecodeShaderBinary("empty.spv", nil)
	assert.ErrorIs(t, err, core.ErrInvalidShaderBinary)
}

func TestShaderStageDestroyWithoutHandle(t *testing.T) {
	var stage *VulkanShaderStage
	assert.NotPanics(t, func() { stage.Destroy(nil) })
	assert.NotPanics(t, func() { (&VulkanShaderStage{}).Destroy(nil) })
}

func TestShaderModuleInfoSizeInBytes(t *testing.T) {
	code := []uint32{0x07230203, 1, 2}
	info := shaderModuleInfo(code)
	assert.Equal(t, uint64(12), info.CodeSize)
	assert.Equal(t, code, info.PCode)
	assert.Equal(t, vk.StructureTypeShaderModuleCreateInfo, info.SType)
}
