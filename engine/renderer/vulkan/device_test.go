package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/vortex/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(present bool, bits ...vk.QueueFlagBits) queueFamilyInfo {
	var flags vk.QueueFlags
	for _, b := range bits {
		flags |= vk.QueueFlags(b)
	}
	return queueFamilyInfo{Flags: flags, Present: present}
}

func TestSelectQueueFamilies(t *testing.T) {
	families := []queueFamilyInfo{
		family(false, vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
		family(true, vk.QueueComputeBit, vk.QueueTransferBit),
		family(false, vk.QueueTransferBit),
	}
	indices := selectQueueFamilies(families)
	assert.Equal(t, int32(0), indices.Graphics)
	assert.Equal(t, int32(1), indices.Present)
	assert.Equal(t, int32(0), indices.Compute)
	// first transfer family without graphics support
	assert.Equal(t, int32(1), indices.Transfer)
	assert.Equal(t, []uint32{0, 1}, indices.unique())
}

func TestSelectQueueFamiliesTransferFallsBackToGraphics(t *testing.T) {
	families := []queueFamilyInfo{
		family(true, vk.QueueGraphicsBit, vk.QueueComputeBit, vk.QueueTransferBit),
	}
	indices := selectQueueFamilies(families)
	assert.Equal(t, int32(0), indices.Transfer)
	assert.True(t, indices.complete())
	assert.Equal(t, []uint32{0}, indices.unique())
}

func TestSelectQueueFamiliesIncomplete(t *testing.T) {
	indices := selectQueueFamilies([]queueFamilyInfo{family(false, vk.QueueComputeBit)})
	assert.False(t, indices.complete())
	assert.Equal(t, int32(-1), indices.Graphics)
	assert.Equal(t, int32(-1), indices.Transfer)
}

func TestScoreDevice(t *testing.T) {
	shared := []queueFamilyInfo{family(true, vk.QueueGraphicsBit)}
	split := []queueFamilyInfo{family(false, vk.QueueGraphicsBit), family(true, vk.QueueTransferBit)}

	cases := []struct {
		name  string
		c     deviceCandidate
		score int
	}{
		{"discrete shared", deviceCandidate{Type: vk.PhysicalDeviceTypeDiscreteGpu, Families: shared, SwapchainSupported: true}, 11000},
		{"integrated shared", deviceCandidate{Type: vk.PhysicalDeviceTypeIntegratedGpu, Families: shared, SwapchainSupported: true}, 10500},
		{"virtual split", deviceCandidate{Type: vk.PhysicalDeviceTypeVirtualGpu, Families: split, SwapchainSupported: true}, 100},
		{"cpu split", deviceCandidate{Type: vk.PhysicalDeviceTypeCpu, Families: split, SwapchainSupported: true}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			score, ok := scoreDevice(tc.c)
			require.True(t, ok)
			assert.Equal(t, tc.score, score)
		})
	}

	_, ok := scoreDevice(deviceCandidate{Type: vk.PhysicalDeviceTypeDiscreteGpu, Families: shared})
	assert.False(t, ok, "a device without swapchain support is unsuitable")
}

func TestPickDevicePrefersSharedFamily(t *testing.T) {
	candidates := []deviceCandidate{
		{
			Name:               "discrete-split",
			Type:               vk.PhysicalDeviceTypeDiscreteGpu,
			Families:           []queueFamilyInfo{family(false, vk.QueueGraphicsBit), family(true)},
			SwapchainSupported: true,
		},
		{
			Name:               "integrated-shared",
			Type:               vk.PhysicalDeviceTypeIntegratedGpu,
			Families:           []queueFamilyInfo{family(true, vk.QueueGraphicsBit)},
			SwapchainSupported: true,
		},
	}
	idx, err := pickDevice(candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestPickDeviceNoneSuitable(t *testing.T) {
	candidates := []deviceCandidate{
		{Name: "compute-only", Families: []queueFamilyInfo{family(false, vk.QueueComputeBit)}, SwapchainSupported: true},
	}
	_, err := pickDevice(candidates)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNoSuitableDevice))

	var typed *NoSuitableDeviceError
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, 1, typed.Candidates)
}
