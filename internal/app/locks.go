package app

import "sync"

// entityLocks hands out one mutex per entity id so that transitions for the
// same entity never interleave while different entities proceed in parallel.
// Locks are never reclaimed; the map is bounded by the number of distinct
// entities the process has seen.
type entityLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *entityLocks) lock(entityID string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[entityID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[entityID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
