package vulkan

// Default number of frames the CPU may record ahead of the GPU.
const MaxFramesInFlight = 2

/**
 * @brief How long BeginFrame waits on a frame slot fence before giving up.
 */
const FenceTimeoutNs uint64 = 1_000_000_000

const AcquireTimeoutNs uint64 = ^uint64(0)

// Texture slots of the per-object descriptor set: albedo, normal, metallic, roughness.
const MaterialTextureCount = 4
