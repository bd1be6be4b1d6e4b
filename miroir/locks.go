package miroir

import "sync"

// keyedLocks serializes the read-modify-write sequence of mutating
// operations per clone id. Without it, two concurrent mutations on the same
// clone interleave their artifact reads and the whole-file overwrite drops
// one change while both registry entries survive.
//
// Entries are never evicted: one mutex per live clone id is a bounded,
// negligible cost and eviction would reintroduce the race it exists to fix.
type keyedLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{m: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedLocks) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.m[key]
	if !ok {
		l = &sync.Mutex{}
		k.m[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
