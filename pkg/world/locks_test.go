package world

import (
	"sync"
	"testing"
	"time"
)

func TestLockManyOppositeOrders(t *testing.T) {
	var lt lockTable
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				var unlock func()
				if i%2 == 0 {
					unlock = lt.lockMany("alice", "bob")
				} else {
					unlock = lt.lockMany("bob", "alice")
				}
				unlock()
			}
		}(i)
	}
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lockMany deadlocked on opposite acquisition orders")
	}
}

func TestLockManySameShard(t *testing.T) {
	// Duplicate keys and same-shard collisions must not self-deadlock.
	var lt lockTable
	unlock := lt.lockMany("x", "x", "x")
	unlock()

	keys := make([]string, 0, 300)
	for i := 0; i < 300; i++ {
		keys = append(keys, string(rune('a'+i%26))+string(rune('0'+i%10)))
	}
	unlock = lt.lockMany(keys...)
	unlock()
}

func TestLockBlocksUntilReleased(t *testing.T) {
	var lt lockTable
	unlock := lt.lock("tile")

	acquired := make(chan struct{})
	go func() {
		inner := lt.lock("tile")
		inner()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired the lock while it was held")
	case <-time.After(20 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("lock was never handed over after release")
	}
}
