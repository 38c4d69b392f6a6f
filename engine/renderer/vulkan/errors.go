package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
)

type NoSuitableDeviceError struct {
	Candidates int
}

func (e *NoSuitableDeviceError) Error() string {
	return fmt.Sprintf("no suitable physical device among %d candidates", e.Candidates)
}

func (e *NoSuitableDeviceError) Unwrap() error { return core.ErrNoSuitableDevice }

type SurfaceLostError struct {
	Result vk.Result
}

func (e *SurfaceLostError) Error() string {
	return fmt.Sprintf("surface capabilities query failed with %s", VulkanResultString(e.Result, false))
}

func (e *SurfaceLostError) Unwrap() error { return core.ErrSurfaceLost }

type PassCompilationError struct {
	Result vk.Result
}

func (e *PassCompilationError) Error() string {
	return fmt.Sprintf("vkCreateRenderPass failed with %s", VulkanResultString(e.Result, true))
}

func (e *PassCompilationError) Unwrap() error { return core.ErrPassCompilation }

// DuplicateLayoutError is returned when a descriptor set index is declared twice.
type DuplicateLayoutError struct {
	Set uint32
}

func (e *DuplicateLayoutError) Error() string {
	return fmt.Sprintf("descriptor set %d already has a layout", e.Set)
}

func (e *DuplicateLayoutError) Unwrap() error { return core.ErrDuplicateLayout }

// SparseLayoutError names the first set index missing below the highest declared one.
type SparseLayoutError struct {
	Missing uint32
}

func (e *SparseLayoutError) Error() string {
	return fmt.Sprintf("descriptor set layouts are not dense: set %d is missing", e.Missing)
}

func (e *SparseLayoutError) Unwrap() error { return core.ErrSparseLayout }

type InvalidShaderBinaryError struct {
	Path string
	Size int
}

func (e *InvalidShaderBinaryError) Error() string {
	return fmt.Sprintf("shader binary %q has size %d which is not a multiple of 4", e.Path, e.Size)
}

func (e *InvalidShaderBinaryError) Unwrap() error { return core.ErrInvalidShaderBinary }

type AcquireFailedError struct {
	Result vk.Result
}

func (e *AcquireFailedError) Error() string {
	return fmt.Sprintf("vkAcquireNextImageKHR failed with %s", VulkanResultString(e.Result, false))
}

func (e *AcquireFailedError) Unwrap() error { return core.ErrAcquireFailed }

// OutOfDate reports whether the swapchain must be recreated before acquiring again.
func (e *AcquireFailedError) OutOfDate() bool {
	return e.Result == vk.ErrorOutOfDate
}
