package ingest

import "sync"

// Locks hands out one mutex per notebook. Every write to a notebook's sources
// runs under that notebook's lock; different notebooks never contend.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks returns an empty lock set.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the lock of notebookID and returns its release function.
func (l *Locks) Lock(notebookID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[notebookID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[notebookID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}
