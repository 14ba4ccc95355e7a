package automation

import "sync"

// clientLocks serializes score mutations per client so concurrent events for
// the same client apply in submission order. Locks are never held across
// rendering or delivery, only around the read-modify-write on the record.
type clientLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func newClientLocks() *clientLocks {
	return &clientLocks{locks: make(map[uint]*sync.Mutex)}
}

func (cl *clientLocks) lock(clientID uint) func() {
	cl.mu.Lock()
	m, ok := cl.locks[clientID]
	if !ok {
		m = &sync.Mutex{}
		cl.locks[clientID] = m
	}
	cl.mu.Unlock()

	m.Lock()
	return m.Unlock
}
