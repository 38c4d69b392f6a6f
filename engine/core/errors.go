package core

import (
	"errors"
)

var (
	// Startup failures. These abort initialization.
	ErrNoSuitableDevice           = errors.New("no suitable physical device")
	ErrValidationLayerUnavailable = errors.New("required validation layer is unavailable")
	ErrSurfaceLost                = errors.New("presentation surface lost")
	ErrDeviceLost                 = errors.New("logical device lost")
	ErrPassCompilation            = errors.New("render pass compilation failed")
	ErrPipelineCompilation        = errors.New("pipeline compilation failed")
	ErrInvalidShaderBinary        = errors.New("invalid shader binary")

	// Descriptor registry misuse.
	ErrDuplicateLayout      = errors.New("descriptor set layout already declared")
	ErrSparseLayout         = errors.New("descriptor set layouts are not contiguous")
	ErrDescriptorOutOfRange = errors.New("descriptor set or instance out of range")

	// Per-frame conditions. These are recovered by recreating the swapchain.
	ErrFrameNotReady = errors.New("frame slot not ready")
	ErrAcquireFailed = errors.New("failed to acquire swapchain image")
	ErrSubmitFailed  = errors.New("failed to submit frame")
	ErrPresentFailed = errors.New("failed to present frame")

	ErrSceneCapacityExceeded = errors.New("scene object capacity exceeded")
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrWindowSystemReleased  = errors.New("window system released more times than acquired")
	ErrUnknown               = errors.New("unknown")
)
