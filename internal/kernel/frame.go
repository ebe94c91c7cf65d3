package kernel

import (
	"container/list"
	"log/slog"
	"sync"
)

// FrameEntry records one occupied physical frame: which kernel page backs
// it and which (process, user page) currently owns it. Deliberately not a
// pointer into that process's SPT — lookups go through the process
// handle by upage instead, so the Frame Table and the SPT never hold
// pointers into each other (spec.md §9 Design Notes, breaking the
// allocation cycle between the two tables).
type FrameEntry struct {
	Kpage Addr
	Upage Addr
	Proc  *Process
}

// FrameTable is the single, kernel-wide pool of physical frames backing
// resident user pages (spec.md §4.2). Eviction runs the clock
// (second-chance) algorithm over frames in allocation order.
type FrameTable struct {
	log *slog.Logger

	mu      sync.Mutex
	free    []Addr
	order   *list.List // of *FrameEntry, clock hand walks from Front to Back
	byKpage map[Addr]*list.Element

	nextKpage Addr
}

// NewFrameTable creates a frame table with capacity physical frames,
// numbered as synthetic kernel addresses starting at base (spec.md's
// kernel pool is a fixed-size array of physical frames; this models that
// array with opaque Addr handles rather than real physical memory).
func NewFrameTable(capacity int, base Addr, log *slog.Logger) *FrameTable {
	ft := &FrameTable{
		log:     log.With("component", "frame-table"),
		order:   list.New(),
		byKpage: make(map[Addr]*list.Element),
	}
	for i := 0; i < capacity; i++ {
		ft.free = append(ft.free, base+Addr(i)*PageSize)
	}
	return ft
}

// Capacity returns the total number of frames managed by the table.
func (ft *FrameTable) Capacity() int {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return len(ft.free) + ft.order.Len()
}

// Resident reports the (proc, upage) pairs currently occupying a frame,
// for P2 (Frame/SPT bijection) assertions in tests.
func (ft *FrameTable) Resident() []FrameEntry {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	out := make([]FrameEntry, 0, ft.order.Len())
	for e := ft.order.Front(); e != nil; e = e.Next() {
		out = append(out, *e.Value.(*FrameEntry))
	}
	return out
}

// Alloc returns a frame for (proc, upage), taking one from the free pool
// if available, or running the clock eviction algorithm otherwise
// (spec.md §4.2 frame_alloc). The evicted frame is reused directly for
// the new owner rather than being returned to the free pool. Panics with
// ErrFrameTableOOM if every frame is pinned and none can be evicted — a
// system capacity failure, not a user fault (spec.md §7, taxon 2).
func (ft *FrameTable) Alloc(proc *Process, upage Addr) Addr {
	ft.mu.Lock()
	var kpage Addr
	if n := len(ft.free); n > 0 {
		kpage = ft.free[n-1]
		ft.free = ft.free[:n-1]
		ft.mu.Unlock()
	} else {
		ft.mu.Unlock()
		kpage = ft.evict()
	}

	ft.mu.Lock()
	entry := &FrameEntry{Kpage: kpage, Upage: upage, Proc: proc}
	elem := ft.order.PushBack(entry)
	ft.byKpage[kpage] = elem
	ft.mu.Unlock()

	ft.log.Debug("frame allocated", "kpage", kpage, "pid", proc.PID, "upage", upage)
	return kpage
}

// evict runs the clock/second-chance algorithm (spec.md §4.2 Eviction
// algorithm): walk frames in allocation order, skip pinned ones, give
// any accessed frame a second chance by clearing its accessed bit and
// moving on, and select the first frame that is neither pinned nor
// accessed. The victim's contents are saved per writeOutVictim (back to
// its file if it is a dirty, writable, file-backed mapping, no I/O if it
// is a clean file-backed mapping, to swap otherwise), the frame is
// poisoned if DebugPoison is set, and its frame handle is returned for
// immediate reuse.
func (ft *FrameTable) evict() Addr {
	ft.mu.Lock()
	if ft.order.Len() == 0 {
		ft.mu.Unlock()
		panic(ErrFrameTableOOM)
	}

	var victimElem *list.Element
	scanned := 0
	total := ft.order.Len()
	for victimElem == nil {
		if scanned >= total*2 {
			// every frame pinned: no victim exists.
			ft.mu.Unlock()
			panic(ErrFrameTableOOM)
		}
		e := ft.order.Front()
		entry := e.Value.(*FrameEntry)
		d, ok := entry.Proc.SPT.lookupDescriptor(entry.Upage)
		if !ok {
			// descriptor vanished (process exited concurrently); drop
			// the stale entry and keep scanning.
			ft.order.Remove(e)
			delete(ft.byKpage, entry.Kpage)
			scanned++
			continue
		}

		d.mu.Lock()
		pinned := d.pinned
		d.mu.Unlock()
		if pinned {
			ft.order.MoveToBack(e)
			scanned++
			continue
		}

		if entry.Proc.Dir.Accessed(entry.Upage, true) {
			ft.order.MoveToBack(e)
			scanned++
			continue
		}

		ft.order.Remove(e)
		delete(ft.byKpage, entry.Kpage)
		victimElem = e
	}
	ft.mu.Unlock()

	entry := victimElem.Value.(*FrameEntry)
	victim, ok := entry.Proc.SPT.lookupDescriptor(entry.Upage)
	if !ok {
		return entry.Kpage
	}
	ft.writeOutVictim(entry, victim)
	if k := entry.Proc.SPT.k; k.cfg.DebugPoison {
		k.mu.Lock()
		if buf, ok := k.mem[entry.Kpage]; ok {
			for i := range buf {
				buf[i] = 0xCC
			}
		}
		k.mu.Unlock()
	}
	entry.Proc.Dir.Clear(entry.Upage)
	ft.log.Debug("evicted", "kpage", entry.Kpage, "pid", entry.Proc.PID, "upage", entry.Upage)
	return entry.Kpage
}

// writeOutVictim persists the victim's contents before its frame is
// reused (spec.md §4.2): a dirty, writable, file-backed page is written
// back to its file; a clean file-backed page needs no I/O at all, since
// its file already holds the same bytes; everything else goes to swap.
func (ft *FrameTable) writeOutVictim(entry *FrameEntry, d *PageDescriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()

	k := entry.Proc.SPT.k
	if d.hasMapping && d.writable && entry.Proc.Dir.Dirty(entry.Upage) {
		buf := make([]byte, PageSize)
		k.readFrame(d.kpage, buf)
		k.FSLock.Lock()
		d.fileRef.WriteAt(buf[:d.fileBytes], d.fileOffset)
		k.FSLock.Unlock()
		d.location = InFile
		k.Metrics.FileWriteBack(entry.Proc.PID)
		return
	}

	if d.hasMapping && !entry.Proc.Dir.Dirty(entry.Upage) {
		d.location = InFile
		return
	}

	buf := make([]byte, PageSize)
	k.readFrame(d.kpage, buf)
	slot := k.Swap.WritePage(buf)
	d.location = InSwap
	d.swapSlot = slot
	k.Metrics.SwapOut(entry.Proc.PID)
}

// Free releases kpage back to the free pool (spec.md §4.2 frame_free),
// used when a resident page's descriptor is destroyed.
func (ft *FrameTable) Free(kpage Addr) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if elem, ok := ft.byKpage[kpage]; ok {
		ft.order.Remove(elem)
		delete(ft.byKpage, kpage)
	}
	ft.free = append(ft.free, kpage)
}
