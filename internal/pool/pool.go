// Package pool implements lewi's reference-counted value allocator,
// grounded on original_source/LEngine/MemoryManager.h. The original is
// a set of fixed-size raw-memory pools with an intrusive free list
// threaded through freed blocks, handed out behind a shared_ptr whose
// deleter runs the object's destructor before returning its block to
// the pool. Go has no manual storage to recycle this way, so this
// package keeps the same observable contract — size-classed slots, an
// intrusive free list, and "destructor-before-reuse" semantics — over a
// slice-backed slot table instead of raw bytes, which is what makes the
// pool's invariants (spec.md §4.5/§8) testable without unsafe code.
package pool

import "fmt"

// sizeClass buckets a requested byte size the same way
// MemoryManager.h's align_to_nearest_multiple does, into 8/16/32/64 (and
// anything larger gets its own dedicated class rather than pooled).
func sizeClass(n int) int {
	for _, c := range []int{8, 16, 32, 64} {
		if n <= c {
			return c
		}
	}
	return n
}

// Destructible is implemented by any value whose release must run a
// cleanup action before its slot is reused (e.g. a Module closing its
// native library handle).
type Destructible interface {
	Release()
}

type slot struct {
	value    any
	refCount int
	class    int
}

// Pool is a reference-counted allocator over fixed size classes. It is
// not safe for concurrent use without external synchronization, mirroring
// MemoryManager's own single-threaded design.
type Pool struct {
	slots     []slot
	freeLists map[int][]int // size class -> free list of slot indices, intrusive-list analog
}

// New creates an empty Pool.
func New() *Pool {
	return &Pool{freeLists: make(map[int][]int)}
}

// Handle is an opaque reference-counted allocation returned by Alloc.
// It is safe to copy; copies refer to the same slot.
type Handle struct {
	pool *Pool
	idx  int
}

// Alloc reserves a slot sized to fit approxSize bytes (a caller-supplied
// estimate of the value's footprint; lewi's value package does not need
// byte-exact sizing since nothing here touches raw memory) and stores
// value in it with an initial reference count of 1.
func (p *Pool) Alloc(approxSize int, value any) Handle {
	class := sizeClass(approxSize)
	if free := p.freeLists[class]; len(free) > 0 {
		idx := free[len(free)-1]
		p.freeLists[class] = free[:len(free)-1]
		p.slots[idx] = slot{value: value, refCount: 1, class: class}
		return Handle{pool: p, idx: idx}
	}
	p.slots = append(p.slots, slot{value: value, refCount: 1, class: class})
	return Handle{pool: p, idx: len(p.slots) - 1}
}

// Value returns the handle's current payload.
func (h Handle) Value() any {
	return h.pool.slots[h.idx].value
}

// Retain increments the handle's reference count, returning h for
// chaining at call sites that copy a handle into a new binding.
func (h Handle) Retain() Handle {
	h.pool.slots[h.idx].refCount++
	return h
}

// Release decrements the handle's reference count. At zero, if the
// stored value implements Destructible its Release method runs (the
// Deleter in MemoryManager.h's terms), then the slot is cleared and
// returned to its size class's free list for reuse.
func (h Handle) Release() {
	s := &h.pool.slots[h.idx]
	if s.refCount <= 0 {
		panic(fmt.Sprintf("pool: double release of slot %d", h.idx))
	}
	s.refCount--
	if s.refCount > 0 {
		return
	}
	if d, ok := s.value.(Destructible); ok {
		d.Release()
	}
	s.value = nil
	h.pool.freeLists[s.class] = append(h.pool.freeLists[s.class], h.idx)
}

// RefCount reports the handle's current reference count, exposed for
// tests asserting the pool's release invariant.
func (h Handle) RefCount() int {
	return h.pool.slots[h.idx].refCount
}

// Live reports how many slots across all size classes are currently
// allocated (not on a free list), exposed for tests.
func (p *Pool) Live() int {
	free := 0
	for _, fl := range p.freeLists {
		free += len(fl)
	}
	return len(p.slots) - free
}
