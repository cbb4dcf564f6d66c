package mempool

import (
	"errors"
	"fmt"
)

// ErrExhausted reports that every configured source refused a request.
var ErrExhausted = errors.New("mempool: all memory sources exhausted")

// Allocation is a buffer with provenance. Release returns the budget to
// the source that granted it; Release is idempotent.
type Allocation struct {
	Bytes  []byte
	Class  Class
	source Source
}

func (a *Allocation) Release() {
	if a == nil || a.source == nil {
		return
	}
	a.source.Free(a.Bytes)
	a.source = nil
	a.Bytes = nil
}

// Size returns the allocation length in bytes.
func (a *Allocation) Size() uint32 {
	return uint32(len(a.Bytes))
}

// Selector tries sources in priority order and returns the first
// successful allocation. A source's refusal retains nothing before the
// next tier is tried.
type Selector struct {
	sources []Source
}

// NewSelector builds a selector over the given sources, highest
// priority first.
func NewSelector(sources ...Source) *Selector {
	return &Selector{sources: sources}
}

// DefaultSelector mirrors the common two-tier layout: a wide external
// pool first, the fast internal pool as fallback.
func DefaultSelector() *Selector {
	return NewSelector(
		NewArena(ClassExternal, 4*1024*1024),
		NewArena(ClassInternal, 320*1024),
	)
}

// Allocate returns the first successful allocation along with the tier
// it came from, or ErrExhausted when every source refuses.
func (s *Selector) Allocate(size uint32) (*Allocation, error) {
	if len(s.sources) == 0 {
		return nil, fmt.Errorf("%w (no sources configured)", ErrExhausted)
	}

	for _, src := range s.sources {
		buf, err := src.Allocate(size)
		if err != nil {
			continue
		}
		return &Allocation{Bytes: buf, Class: src.Class(), source: src}, nil
	}

	return nil, fmt.Errorf("%w (%d bytes)", ErrExhausted, size)
}

// Sources returns the configured sources in priority order.
func (s *Selector) Sources() []Source {
	return s.sources
}

// InUse sums outstanding bytes across all sources.
func (s *Selector) InUse() uint32 {
	var total uint32
	for _, src := range s.sources {
		total += src.InUse()
	}
	return total
}
