package compiler

import "fmt"

// Debug flag for register allocation tracing, same idiom as the
// teacher's own debugRegAlloc in _examples/nooga-paserati's regalloc.go.
const debugRegAlloc = false

// Register is a VM register index within one function's frame. The
// wire format devotes one byte to each register operand (spec §6.2),
// so 256 registers is the hard per-function ceiling.
type Register = uint8

const maxRegisters = 256

// registerAllocator manages one function's register file: a
// monotonically-growing file of slots plus a free-list for recycled
// temporaries (spec §4.4's "Temporary discipline"). Named locals are
// allocated the same way as temporaries but are never returned to the
// free list, so their register never gets reused for the life of the
// function — mirroring the teacher's RegisterAllocator, which does not
// special-case locals either: a symbol's register simply never sees a
// matching Free() call.
type registerAllocator struct {
	next     Register
	high     Register // highest register ever allocated
	anyAlloc bool
	freeList []Register
	reserved map[Register]bool // locals: never eligible for the free list
}

func newRegisterAllocator() *registerAllocator {
	return &registerAllocator{reserved: make(map[Register]bool)}
}

// alloc returns a register from the free list if one is available,
// else grows the file by one slot.
func (ra *registerAllocator) alloc() Register {
	var r Register
	if n := len(ra.freeList); n > 0 {
		r = ra.freeList[n-1]
		ra.freeList = ra.freeList[:n-1]
		if debugRegAlloc {
			fmt.Printf("[REGALLOC] REUSE R%d (from free list, %d remaining)\n", r, len(ra.freeList))
		}
	} else {
		// Allocation is sequential, so with an empty free list a high
		// water mark at the last register means all 256 are live.
		if ra.anyAlloc && int(ra.high) == maxRegisters-1 {
			panic("compiler: function exceeds the 256-register limit")
		}
		r = ra.next
		if ra.anyAlloc {
			ra.next++
		} else {
			ra.anyAlloc = true
			ra.next = 1
		}
		if debugRegAlloc {
			fmt.Printf("[REGALLOC] NEW R%d (next now %d)\n", r, ra.next)
		}
	}
	if r > ra.high {
		ra.high = r
	}
	return r
}

// allocLocal allocates a register for a named local (parameter or
// declared variable) and marks it permanently reserved.
func (ra *registerAllocator) allocLocal() Register {
	r := ra.alloc()
	ra.reserved[r] = true
	if debugRegAlloc {
		fmt.Printf("[REGALLOC] RESERVE R%d (named local)\n", r)
	}
	return r
}

// allocTemp allocates a scratch register for an intermediate value.
func (ra *registerAllocator) allocTemp() Register {
	return ra.alloc()
}

// freeTemp returns r to the free list, unless r is a named local's
// register (spec §4.4: "only if r was allocated as a temporary, never
// a named local").
func (ra *registerAllocator) freeTemp(r Register) {
	if ra.reserved[r] {
		return
	}
	ra.freeList = append(ra.freeList, r)
	if debugRegAlloc {
		fmt.Printf("[REGALLOC] FREE R%d (%d now free)\n", r, len(ra.freeList))
	}
}

// localsCount is the high-water mark written into the function header:
// the peak number of simultaneously-relevant register slots.
func (ra *registerAllocator) localsCount() uint16 {
	if !ra.anyAlloc {
		return 0
	}
	return uint16(ra.high) + 1
}
