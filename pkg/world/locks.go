package world

import (
	"hash/fnv"
	"sort"
	"sync"
)

const lockShards = 128

// lockTable is a fixed pool of mutexes keyed by hash. Two tables exist in
// the engine, one keyed by tile coordinate and one by user id; every
// operation acquires tile locks before player locks so the families never
// invert.
type lockTable struct {
	shards [lockShards]sync.Mutex
}

func lockShard(key string) int {
	h := fnv.New32a()
	h.Write([]byte(key))
	return int(h.Sum32() % lockShards)
}

// lock acquires the shard for key and returns its release.
func (lt *lockTable) lock(key string) func() {
	i := lockShard(key)
	lt.shards[i].Lock()
	return lt.shards[i].Unlock
}

// lockMany acquires the shards for all keys in ascending shard order, which
// is a total order shared by every caller, deduping keys that collide on a
// shard. Returns a single release for the whole acquisition.
func (lt *lockTable) lockMany(keys ...string) func() {
	idx := make([]int, 0, len(keys))
	for _, key := range keys {
		idx = append(idx, lockShard(key))
	}
	sort.Ints(idx)

	held := idx[:0]
	last := -1
	for _, i := range idx {
		if i == last {
			continue
		}
		lt.shards[i].Lock()
		held = append(held, i)
		last = i
	}
	return func() {
		for j := len(held) - 1; j >= 0; j-- {
			lt.shards[held[j]].Unlock()
		}
	}
}
