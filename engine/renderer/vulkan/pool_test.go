package vulkan

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLockPoolSerializesGroup(t *testing.T) {
	pool := NewVulkanLockPool()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = pool.SafeCall(PipelineManagement, func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestLockPoolNestedGroups(t *testing.T) {
	pool := NewVulkanLockPool()

	// different groups must not block each other
	err := pool.SafeCall(PipelineManagement, func() error {
		return pool.SafeCall(ShaderManagement, func() error {
			return pool.SafeQueueCall(0, func() error { return nil })
		})
	})
	assert.NoError(t, err)
}

func TestLockPoolPropagatesError(t *testing.T) {
	pool := NewVulkanLockPool()
	boom := errors.New("boom")

	pool.SetQueueFamily(2)
	assert.ErrorIs(t, pool.SafeQueueCall(2, func() error { return boom }), boom)
	// lazily created family
	assert.NoError(t, pool.SafeQueueCall(7, func() error { return nil }))
}
