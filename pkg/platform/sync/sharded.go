// Package sync provides keyed locking for per-identity critical sections.
package sync

import (
	"hash/fnv"
	"sync"
)

const defaultShards = 64

// ShardedMutex serializes work per key without keeping a lock per key.
// Keys hashing to the same shard also exclude each other, so a holder must
// never take a second key's lock.
type ShardedMutex struct {
	shards []sync.Mutex
}

// NewShardedMutex uses 64 shards when n is not positive.
func NewShardedMutex(n int) *ShardedMutex {
	if n <= 0 {
		n = defaultShards
	}
	return &ShardedMutex{shards: make([]sync.Mutex, n)}
}

// Lock acquires key's shard and returns its release func.
func (m *ShardedMutex) Lock(key string) (unlock func()) {
	mu := &m.shards[m.shardFor(key)]
	mu.Lock()
	return mu.Unlock
}

func (m *ShardedMutex) shardFor(key string) int {
	if key == "" {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(m.shards)))
}
