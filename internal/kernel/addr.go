// Package kernel implements the virtual-memory core of a small teaching
// kernel: the supplementary page table, the frame table and its eviction
// policy, the swap manager, and the syscall gate that validates and pins
// user memory across a system call.
package kernel

import "fmt"

// PageSize is the size, in bytes, of a page and of a frame. Pintos uses
// 4096; nothing in this package depends on the exact value beyond it being
// a power of two.
const PageSize = 4096

// Addr is a byte address in a process's virtual address space.
type Addr uint64

// PageStart rounds a down to the start of the page containing it.
func (a Addr) PageStart() Addr {
	return a &^ (PageSize - 1)
}

// PageOffset returns the offset of a within its page.
func (a Addr) PageOffset() Addr {
	return a & (PageSize - 1)
}

// Aligned reports whether a is page-aligned.
func (a Addr) Aligned() bool {
	return a.PageOffset() == 0
}

// AddrRange is a half-open byte range [Start, End).
type AddrRange struct {
	Start Addr
	End   Addr
}

// Length returns the number of bytes covered by the range.
func (r AddrRange) Length() Addr {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Pages returns the page-aligned range covering r, rounding Start down and
// End up.
func (r AddrRange) Pages() AddrRange {
	end := r.End
	if off := end.PageOffset(); off != 0 {
		end += PageSize - off
	}
	return AddrRange{Start: r.Start.PageStart(), End: end}
}

// ForEachPage calls f once for every page-aligned address covered by r's
// page-rounded extent, in ascending order.
func (r AddrRange) ForEachPage(f func(page Addr) error) error {
	pr := r.Pages()
	for p := pr.Start; p < pr.End; p += PageSize {
		if err := f(p); err != nil {
			return err
		}
	}
	return nil
}

func (r AddrRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", uint64(r.Start), uint64(r.End))
}

// Address-space layout. UserBase/UserTop bound the user portion of the
// address space; StackTop is the highest address a stack may occupy and
// StackLimit is the lowest a lazily-grown stack may reach (spec.md §3,
// invariant 7; §4.1 grow_stack_if_necessary). StackGrowthWindow is the
// "plausible stack access" slack below esp (GLOSSARY: stack growth window).
const (
	UserBase          Addr = 0
	UserTop           Addr = 1 << 47
	StackTop          Addr = UserTop
	StackLimit        Addr = StackTop - 8*1024*1024 // 8 MiB max stack, teaching-kernel default
	StackGrowthWindow Addr = 32
)

// InUserSpace reports whether a lies within the user portion of the
// address space.
func InUserSpace(a Addr) bool {
	return a >= UserBase && a < UserTop
}

// InStackRegion reports whether page (already page-aligned) lies in the
// stack's address range: above StackLimit and below StackTop.
func InStackRegion(page Addr) bool {
	return page >= StackLimit && page < StackTop
}
