package vulkan

import (
	"encoding/binary"
	"fmt"
	"os"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

// DecodeShaderBinary turns a SPIR-V blob into words. The blob is opaque apart
// from its length, which must be a multiple of 4.
func DecodeShaderBinary(path string, data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, &InvalidShaderBinaryError{Path: path, Size: len(data)}
	}
	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return code, nil
}

func LoadShaderBinary(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("unable to read shader binary %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	code, err := DecodeShaderBinary(path, data)
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}
	return code, nil
}

// shaderModuleInfo describes code to vkCreateShaderModule; CodeSize is in bytes.
func shaderModuleInfo(code []uint32) vk.ShaderModuleCreateInfo {
	return vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}
}

func NewShaderModule(context *VulkanContext, code []uint32, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	createInfo := shaderModuleInfo(code)

	var module vk.ShaderModule
	if err := lockPool.SafeCall(ShaderManagement, func() error {
		if res := vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, nil, &module); res != vk.Success {
			return fmt.Errorf("vkCreateShaderModule failed with %s", VulkanResultString(res, true))
		}
		return nil
	}); err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	return &VulkanShaderStage{
		Handle: module,
		ShaderStageCreateInfo: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  stage,
			Module: module,
			PName:  "main\x00",
		},
	}, nil
}

// LoadShaderStage reads path and wraps it in a module for stage.
func LoadShaderStage(context *VulkanContext, path string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	code, err := LoadShaderBinary(path)
	if err != nil {
		return nil, err
	}
	return NewShaderModule(context, code, stage)
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s == nil || s.Handle == vk.NullShaderModule {
		return
	}
	_ = lockPool.SafeCall(ShaderManagement, func() error {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, nil)
		return nil
	})
	s.Handle = vk.NullShaderModule
}
