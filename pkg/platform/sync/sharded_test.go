package sync

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardedMutexSerializesSameKey(t *testing.T) {
	m := NewShardedMutex(0)
	var inside, maxInside atomic.Int32

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("alice")
			defer unlock()
			n := inside.Add(1)
			for {
				cur := maxInside.Load()
				if n <= cur || maxInside.CompareAndSwap(cur, n) {
					break
				}
			}
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}

func TestShardedMutexShardSelection(t *testing.T) {
	m := NewShardedMutex(8)

	assert.Equal(t, 0, m.shardFor(""))
	assert.Equal(t, m.shardFor("bob"), m.shardFor("bob"))
	for _, key := range []string{"a", "bob", "carol", "merchant-42"} {
		s := m.shardFor(key)
		assert.GreaterOrEqual(t, s, 0)
		assert.Less(t, s, 8)
	}
}

func TestShardedMutexReleases(t *testing.T) {
	m := NewShardedMutex(1)
	m.Lock("x")()
	unlock := m.Lock("y")
	unlock()
}
