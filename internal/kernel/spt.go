package kernel

import (
	"log/slog"
	"sync"
)

// Location is the storage location of a page descriptor's contents
// (spec.md §3, invariant 2).
type Location int

const (
	NotPresent Location = iota
	InFrame
	InSwap
	InFile
)

func (l Location) String() string {
	switch l {
	case NotPresent:
		return "not-present"
	case InFrame:
		return "in-frame"
	case InSwap:
		return "in-swap"
	case InFile:
		return "in-file"
	default:
		return "unknown"
	}
}

// PageDescriptor is one entry in a Supplementary Page Table (spec.md §3).
// Its own mutex, not the table's, guards its mutable fields — eviction
// (running on behalf of the Frame Table, possibly from a different
// process's goroutine) mutates a victim descriptor directly, and must be
// able to do so without contending with unrelated pages in the same SPT
// (grounded on gvisor's pkg/sentry/mm convention of one mutex per concern
// rather than one giant lock: mappingMu, activeMu, ... in that package).
type PageDescriptor struct {
	Upage Addr

	mu         sync.Mutex
	location   Location
	kpage      Addr
	swapSlot   int
	fileRef    File
	fileOffset int64
	fileBytes  int
	writable   bool
	mappingID  MappingID
	hasMapping bool
	pinned     bool
}

// Snapshot is a point-in-time, race-free copy of a descriptor's fields,
// returned by Lookup for callers that only need to read.
type Snapshot struct {
	Upage      Addr
	Location   Location
	Kpage      Addr
	SwapSlot   int
	FileRef    File
	FileOffset int64
	FileBytes  int
	Writable   bool
	MappingID  MappingID
	HasMapping bool
	Pinned     bool
}

func (d *PageDescriptor) snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Upage: d.Upage, Location: d.location, Kpage: d.kpage,
		SwapSlot: d.swapSlot, FileRef: d.fileRef, FileOffset: d.fileOffset,
		FileBytes: d.fileBytes, Writable: d.writable, MappingID: d.mappingID,
		HasMapping: d.hasMapping, Pinned: d.pinned,
	}
}

// SPT is a process's Supplementary Page Table (spec.md §4.1): a map from
// page-aligned user address to PageDescriptor. SPT.mu protects only the
// map's shape (insert/delete of keys); field-level mutation within an
// existing descriptor goes through that descriptor's own mutex.
type SPT struct {
	pid   int
	k     *Kernel
	proc  *Process
	log   *slog.Logger
	mu    sync.Mutex
	pages map[Addr]*PageDescriptor
}

// NewSPT creates an empty supplementary page table for proc.
func NewSPT(pid int, k *Kernel, proc *Process) *SPT {
	return &SPT{
		pid:   pid,
		k:     k,
		proc:  proc,
		log:   k.log.With("component", "spt", "pid", pid),
		pages: make(map[Addr]*PageDescriptor),
	}
}

// Lookup returns the descriptor for the page containing addr, if any
// (spec.md §4.1 lookup).
func (s *SPT) Lookup(addr Addr) (Snapshot, bool) {
	page := addr.PageStart()
	s.mu.Lock()
	d, ok := s.pages[page]
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, false
	}
	return d.snapshot(), true
}

// lookupDescriptor returns the live descriptor pointer for page (already
// page-aligned), used internally and by the Frame Table's eviction path,
// which reaches into a (possibly different) process's SPT by upage —
// never by a stored pointer into the SPT (spec.md §9 Design Notes).
func (s *SPT) lookupDescriptor(page Addr) (*PageDescriptor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.pages[page]
	return d, ok
}

func (s *SPT) lookupLocked(page Addr) (*PageDescriptor, bool) {
	return s.lookupDescriptor(page)
}

// AllocZero installs a NotPresent zero-backed descriptor for upage
// (spec.md §4.1 alloc_zero). Fails with ErrAlreadyMapped if the key is
// already present.
func (s *SPT) AllocZero(upage Addr, writable bool) error {
	page := upage.PageStart()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[page]; ok {
		return ErrAlreadyMapped
	}
	s.pages[page] = &PageDescriptor{Upage: page, location: NotPresent, writable: writable}
	return nil
}

// AllocFile installs a NotPresent file-backed descriptor for upage
// (spec.md §4.1 alloc_file). bytes must be in [1, PageSize].
func (s *SPT) AllocFile(upage Addr, file File, offset int64, bytes int, mapping MappingID, hasMapping bool, writable bool) error {
	if bytes < 1 || bytes > PageSize {
		return ErrEmptyMapping
	}
	page := upage.PageStart()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pages[page]; ok {
		return ErrAlreadyMapped
	}
	s.pages[page] = &PageDescriptor{
		Upage: page, location: NotPresent, fileRef: file, fileOffset: offset,
		fileBytes: bytes, writable: writable, mappingID: mapping, hasMapping: hasMapping,
	}
	return nil
}

// ForceLoad ensures the descriptor for upage is resident in a frame
// (spec.md §4.1 "Demand-load algorithm"). The caller must already have
// set descriptor.pinned = true (via validate_*) before calling; only the
// caller later clears it. Idempotent on an already-resident page.
func (s *SPT) ForceLoad(upage Addr) error {
	page := upage.PageStart()
	d, ok := s.lookupDescriptor(page)
	if !ok {
		return ErrBadPointer
	}

	d.mu.Lock()
	if d.location == InFrame {
		d.mu.Unlock()
		return nil
	}
	d.mu.Unlock()

	kpage := s.k.Frames.Alloc(s.proc, page)

	d.mu.Lock()
	defer d.mu.Unlock()

	from := d.location
	load := d.location
	if load == NotPresent && d.fileRef != nil {
		// A file-backed descriptor that was never resident reads its
		// contents from the file on first load, not zeros.
		load = InFile
	}
	switch load {
	case NotPresent:
		zeroPage(kpage, s.k)
	case InSwap:
		buf := make([]byte, PageSize)
		if !s.k.Swap.LoadPage(d.swapSlot, buf) {
			return ErrBadSwapSlot
		}
		s.k.writeFrame(kpage, buf)
		d.swapSlot = 0
	case InFile:
		buf := make([]byte, PageSize)
		s.k.FSLock.Lock()
		_, err := d.fileRef.ReadAt(buf[:d.fileBytes], d.fileOffset)
		s.k.FSLock.Unlock()
		if err != nil {
			return err
		}
		// remainder of the page beyond fileBytes is already zero.
		s.k.writeFrame(kpage, buf)
	}

	if err := s.proc.Dir.Install(page, kpage, d.writable); err != nil {
		return err
	}
	d.location = InFrame
	d.kpage = kpage
	s.log.Debug("page loaded", "upage", page, "from", from.String())
	s.k.Metrics.PageFault(s.pid)
	if from == InSwap {
		s.k.Metrics.SwapIn(s.pid)
	}
	return nil
}

// GrowStackIfNecessary implements spec.md §4.1's stack-growth policy: if
// faultPage is within the stack region, above StackLimit, and a
// plausible access relative to esp, install a NotPresent zero-backed
// writable descriptor for it. Returns nil (no-op) if the page is already
// mapped, and ErrNotStackAccess if the address isn't a plausible stack
// access at all.
func (s *SPT) GrowStackIfNecessary(esp, faultPage Addr) error {
	page := faultPage.PageStart()
	if _, ok := s.lookupDescriptor(page); ok {
		return nil
	}
	if !InStackRegion(page) {
		return ErrNotStackAccess
	}
	plausible := page+StackGrowthWindow >= esp || page >= esp
	if !plausible {
		return ErrNotStackAccess
	}
	return s.AllocZero(page, true)
}

// Free destroys the descriptor for upage per the lifecycle rules in
// spec.md §3: flush dirty file-backed contents, free the frame if
// resident, free the swap slot if swapped.
func (s *SPT) Free(upage Addr) error {
	page := upage.PageStart()
	s.mu.Lock()
	d, ok := s.pages[page]
	if ok {
		delete(s.pages, page)
	}
	s.mu.Unlock()
	if !ok {
		return ErrBadPointer
	}
	s.destroyDescriptor(d)
	return nil
}

// destroyDescriptor performs the teardown lifecycle (write-back/frame
// free/swap free) for a descriptor already removed from the map.
func (s *SPT) destroyDescriptor(d *PageDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch d.location {
	case InFrame:
		if d.hasMapping && d.writable && s.proc.Dir.Dirty(d.Upage) {
			s.writeBackLocked(d)
		}
		s.proc.Dir.Clear(d.Upage)
		s.k.FreeFrame(d.kpage)
	case InSwap:
		s.k.Swap.Free(d.swapSlot)
	case InFile, NotPresent:
		// nothing resident to release.
	}
}

// writeBackLocked writes a dirty file-backed descriptor's contents back
// to its file (spec.md invariant 8). d.mu must already be held.
func (s *SPT) writeBackLocked(d *PageDescriptor) {
	buf := make([]byte, PageSize)
	s.k.readFrame(d.kpage, buf)
	s.k.FSLock.Lock()
	d.fileRef.WriteAt(buf[:d.fileBytes], d.fileOffset)
	s.k.FSLock.Unlock()
}

// destroyAll tears down every descriptor in the table, used by Process
// exit/forced-exit cleanup (spec.md §5 Cancellation, P8).
func (s *SPT) destroyAll(k *Kernel) {
	s.mu.Lock()
	all := make([]*PageDescriptor, 0, len(s.pages))
	for _, d := range s.pages {
		all = append(all, d)
	}
	s.pages = make(map[Addr]*PageDescriptor)
	s.mu.Unlock()

	for _, d := range all {
		s.destroyDescriptor(d)
	}
}

// Empty reports whether the table holds no descriptors, for P8 assertions.
func (s *SPT) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pages) == 0
}

// setPinned toggles the pinned flag on the descriptor for page. Used by
// the syscall gate's validate_*/unpin_* trio (spec.md §4.4).
func (s *SPT) setPinned(page Addr, pinned bool) error {
	d, ok := s.lookupDescriptor(page)
	if !ok {
		return ErrBadPointer
	}
	d.mu.Lock()
	d.pinned = pinned
	d.mu.Unlock()
	return nil
}

func zeroPage(kpage Addr, k *Kernel) {
	buf := make([]byte, PageSize)
	k.writeFrame(kpage, buf)
}
