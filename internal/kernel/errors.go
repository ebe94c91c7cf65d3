package kernel

import "errors"

// Sentinel errors for user-induced faults (spec.md §7, taxon 1). Callers
// compare with errors.Is rather than matching strings, following the
// pattern of gvisor's pkg/syserror rather than the teacher's ad hoc
// fmt.Errorf strings (see DESIGN.md).
var (
	ErrBadPointer          = errors.New("user pointer not covered by a live mapping")
	ErrUnmappedRegion      = errors.New("user range not fully mapped")
	ErrNotStackAccess      = errors.New("address is not a plausible stack access")
	ErrAlreadyMapped       = errors.New("page already present in supplementary page table")
	ErrUnknownMapping      = errors.New("no mapping with that id")
	ErrEmptyMapping        = errors.New("mmap of zero-length file rejected")
	ErrMmapOverlapsStack   = errors.New("mmap region would cross into the stack")
	ErrMmapOverlapsMapping = errors.New("mmap region overlaps an existing page")
	ErrUnknownFD           = errors.New("unknown file descriptor")
	ErrStdoutRead          = errors.New("read from stdout is not permitted")
	ErrStdinWrite          = errors.New("write to stdin is not permitted")
	ErrUnimplementedSyscall = errors.New("unimplemented syscall number")
	ErrBadSwapSlot         = errors.New("swap slot index out of range or not in use")
)

// System capacity failures (spec.md §7, taxon 2) panic rather than return
// an error; these values are passed to panic() so callers can recover and
// identify them in tests.
var (
	ErrSwapExhausted = errors.New("swap device exhausted: no free slot")
	ErrFrameTableOOM = errors.New("kernel pool exhausted while growing frame metadata")
)

// ForcedExit is returned by the syscall gate's dispatch path (never by
// component-level functions) to signal that the calling process must be
// terminated with exit status -1 after cleanup. It carries the triggering
// error for logging. This is the explicit result type called for by
// spec.md §9 ("Forced exit from arbitrary depth"): the gate's top frame
// receives it, releases every lock and pin the process held, tears down
// its SPT, and only then reports the exit.
type ForcedExit struct {
	Cause error
}

func (f *ForcedExit) Error() string {
	return "forced exit: " + f.Cause.Error()
}

func (f *ForcedExit) Unwrap() error {
	return f.Cause
}

// forcedExit wraps cause in a *ForcedExit, unless it already is one.
func forcedExit(cause error) *ForcedExit {
	var fe *ForcedExit
	if errors.As(cause, &fe) {
		return fe
	}
	return &ForcedExit{Cause: cause}
}
