package engine

import (
	"fmt"
	"sync"
)

// ledger tracks what the engine has claimed from the global pool.
// Reservations are made before the underlying resource is created and
// released after it is destroyed, in strict pairs.
type ledger struct {
	mu       sync.Mutex
	capacity uint64
	inUse    uint64
}

func (l *ledger) reserve(n uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > l.capacity-l.inUse {
		return fmt.Errorf("pool exhausted: %d bytes requested, %d of %d available",
			n, l.capacity-l.inUse, l.capacity)
	}
	l.inUse += n
	return nil
}

func (l *ledger) release(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > l.inUse {
		n = l.inUse
	}
	l.inUse -= n
}

func (l *ledger) stats() (capacity, inUse uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capacity, l.inUse
}
