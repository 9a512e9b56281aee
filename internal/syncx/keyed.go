// Package syncx holds small concurrency helpers shared by the app services.
package syncx

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// KeyedMutex hands out one mutex per key so that updates for the same
// user (or session) are serialised while different keys run in parallel.
type KeyedMutex[K comparable] struct {
	locks *xsync.Map[K, *sync.Mutex]
}

func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{locks: xsync.NewMap[K, *sync.Mutex]()}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyedMutex[K]) Lock(key K) (unlock func()) {
	mu, _ := k.locks.LoadOrCompute(key, func() (*sync.Mutex, bool) {
		return &sync.Mutex{}, false
	})
	mu.Lock()
	return mu.Unlock
}
