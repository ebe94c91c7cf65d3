package kernel

import (
	"log/slog"
	"sync"
)

// SwapManager is the fixed-size pool of page-sized backing slots on a
// block device (spec.md §3 "Swap slot", §4.3). Slot occupancy is tracked
// in a bitmap guarded by a single lock; the bitmap flip and the block I/O
// are deliberately not atomic with each other (spec.md §4.3 Consistency) —
// callers must only trust a slot while the owning page descriptor still
// references it.
type SwapManager struct {
	dev   BlockDevice
	log   *slog.Logger
	mu    sync.Mutex
	used  []bool
	slots int
}

// NewSwapManager derives the slot count from the device's capacity
// (spec.md §4.3: "block_size(swap_device) / sectors_per_page") and
// initializes every slot free.
func NewSwapManager(dev BlockDevice, log *slog.Logger) (*SwapManager, error) {
	sectors, err := dev.SizeInSectors()
	if err != nil {
		return nil, err
	}
	slots := int(sectors / SectorsPerPage)
	return &SwapManager{
		dev:   dev,
		log:   log.With("component", "swap"),
		used:  make([]bool, slots),
		slots: slots,
	}, nil
}

// Slots returns the total number of swap slots.
func (s *SwapManager) Slots() int {
	return s.slots
}

// UsedSlots returns the set of currently occupied slot indices, for P3
// (swap bitmap agreement) assertions in tests.
func (s *SwapManager) UsedSlots() map[int]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]bool)
	for i, u := range s.used {
		if u {
			out[i] = true
		}
	}
	return out
}

// WritePage scans the bitmap for a free slot, flips it, and writes the
// full page to it (spec.md §4.3 write_page). Panics with
// ErrSwapExhausted if the device is full, matching spec.md §7's policy
// that swap exhaustion is a system capacity failure.
func (s *SwapManager) WritePage(page []byte) int {
	if len(page) != PageSize {
		panic("WritePage: page must be exactly PageSize bytes")
	}

	s.mu.Lock()
	slot := -1
	for i, u := range s.used {
		if !u {
			slot = i
			s.used[i] = true
			break
		}
	}
	s.mu.Unlock()

	if slot == -1 {
		s.log.Error("swap device full", "slots", s.slots)
		panic(ErrSwapExhausted)
	}

	for i := 0; i < SectorsPerPage; i++ {
		sector := page[i*SectorSize : (i+1)*SectorSize]
		if err := s.dev.WriteSector(int64(slot)*SectorsPerPage+int64(i), sector); err != nil {
			s.log.Error("swap write failed", "slot", slot, "sector", i, "error", err)
			panic(err)
		}
	}
	s.log.Debug("page written to swap", "slot", slot)
	return slot
}

// LoadPage reads slot into page and frees the slot. It returns false
// without reading anything if slot is out of range or was not in use
// (spec.md §4.3 load_page). The bitmap bit is cleared only after the
// read completes, so that a slot released by one process can't be reused
// by another until its contents have actually been consumed
// (spec.md §4.3 Consistency).
func (s *SwapManager) LoadPage(slot int, page []byte) bool {
	if len(page) != PageSize {
		panic("LoadPage: page must be exactly PageSize bytes")
	}

	s.mu.Lock()
	if slot < 0 || slot >= s.slots || !s.used[slot] {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	for i := 0; i < SectorsPerPage; i++ {
		sector := page[i*SectorSize : (i+1)*SectorSize]
		if err := s.dev.ReadSector(int64(slot)*SectorsPerPage+int64(i), sector); err != nil {
			s.log.Error("swap read failed", "slot", slot, "sector", i, "error", err)
			panic(err)
		}
	}

	s.mu.Lock()
	s.used[slot] = false
	s.mu.Unlock()

	s.log.Debug("page loaded from swap", "slot", slot)
	return true
}

// Free releases slot without reading it, used when a page descriptor
// referencing a swapped-out page is destroyed directly (spec.md's
// lifecycle rules: "free swap slot if swapped").
func (s *SwapManager) Free(slot int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot >= 0 && slot < s.slots {
		s.used[slot] = false
	}
}
