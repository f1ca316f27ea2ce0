package city

import (
	"sync"

	"github.com/mcoot/fhecity/internal/model"
)

// keyedMutex serializes work per player. Entries are dropped once no
// goroutine holds or waits on them, so the map only grows with contention.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[model.PlayerID]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[model.PlayerID]*keyLock)}
}

// Lock blocks until the lock for id is held and returns its release func
func (k *keyedMutex) Lock(id model.PlayerID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

// size returns the number of live entries
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
