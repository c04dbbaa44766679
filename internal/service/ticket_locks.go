package service

import "sync"

// TicketLocks serializes mutating operations per ticket id. Writers on the
// same ticket must not interleave their read-modify-append sequence;
// operations on different tickets proceed in parallel.
type TicketLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewTicketLocks creates the lock table.
func NewTicketLocks() *TicketLocks {
	return &TicketLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for the given ticket id and returns the unlock
// function.
func (t *TicketLocks) Lock(ticketID string) func() {
	t.mu.Lock()
	lock, ok := t.locks[ticketID]
	if !ok {
		lock = &sync.Mutex{}
		t.locks[ticketID] = lock
	}
	t.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
