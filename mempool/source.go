package mempool

import (
	"fmt"
	"sync"
)

// Class names a memory capability tier.
type Class uint8

const (
	// ClassExternal is the wide-but-slower external pool, preferred for
	// large buffers such as the engine heap.
	ClassExternal Class = iota

	// ClassInternal is the fast-but-small internal pool, the fallback
	// when no external tier is present or it is exhausted.
	ClassInternal
)

func (c Class) String() string {
	switch c {
	case ClassExternal:
		return "external"
	case ClassInternal:
		return "internal"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Source is a single memory tier. Allocate returns a buffer charged
// against the tier's capacity; Free returns the charge. A failed
// Allocate retains nothing.
type Source interface {
	Class() Class
	Allocate(size uint32) ([]byte, error)
	Free(buf []byte)
	Capacity() uint32
	InUse() uint32
}

// Arena is a fixed-capacity Source. The Go allocator owns the backing
// bytes; the arena enforces the tier's budget so exhaustion surfaces as
// an error instead of host memory pressure.
type Arena struct {
	mu       sync.Mutex
	class    Class
	capacity uint32
	inUse    uint32
}

// NewArena creates a budgeted source for the given tier.
func NewArena(class Class, capacity uint32) *Arena {
	return &Arena{class: class, capacity: capacity}
}

func (a *Arena) Class() Class { return a.class }

func (a *Arena) Allocate(size uint32) ([]byte, error) {
	if size == 0 {
		return nil, fmt.Errorf("%s: zero-size allocation", a.class)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if size > a.capacity-a.inUse {
		return nil, fmt.Errorf("%s: %d bytes requested, %d available",
			a.class, size, a.capacity-a.inUse)
	}

	a.inUse += size
	return make([]byte, size), nil
}

func (a *Arena) Free(buf []byte) {
	if buf == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	n := uint32(len(buf))
	if n > a.inUse {
		n = a.inUse
	}
	a.inUse -= n
}

func (a *Arena) Capacity() uint32 {
	return a.capacity
}

func (a *Arena) InUse() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.inUse
}
