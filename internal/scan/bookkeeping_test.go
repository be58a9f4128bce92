package scan

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookkeeping_TryMarkAttached(t *testing.T) {
	b := newBookkeeping()

	assert.True(t, b.tryMarkAttached(7), "first insert should report new")
	assert.False(t, b.tryMarkAttached(7), "second insert should report existing")
	assert.True(t, b.tryMarkAttached(8), "distinct id should report new")
}

func TestBookkeeping_Invalidation(t *testing.T) {
	b := newBookkeeping()

	assert.False(t, b.isInvalidated(7))

	// Invalidation is allowed for chunks that were never attached.
	b.markInvalidated(7)
	assert.True(t, b.isInvalidated(7))

	// Invalidation is sticky for the session.
	b.markInvalidated(7)
	assert.True(t, b.isInvalidated(7))
}

func TestBookkeeping_ConcurrentTryMarkAttached(t *testing.T) {
	b := newBookkeeping()

	const goroutines = 32
	var wg sync.WaitGroup
	winners := make(chan ChunkID, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.tryMarkAttached(42) {
				winners <- 42
			}
		}()
	}
	wg.Wait()
	close(winners)

	var count int
	for range winners {
		count++
	}
	assert.Equal(t, 1, count, "exactly one goroutine should win the insert")
}
