package kernel

import (
	"bytes"
	"io"
	"log/slog"
	"testing"
)

func newTestSwap(t *testing.T, slots int64) *SwapManager {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dev := NewMemBlockDevice(slots * SectorsPerPage)
	sm, err := NewSwapManager(dev, log)
	if err != nil {
		t.Fatalf("NewSwapManager: %v", err)
	}
	return sm
}

func TestSwapWriteLoadRoundTrip(t *testing.T) {
	sm := newTestSwap(t, 4)

	page := bytes.Repeat([]byte{0xAB}, PageSize)
	slot := sm.WritePage(page)

	if !sm.UsedSlots()[slot] {
		t.Fatalf("slot %d not marked used after WritePage", slot)
	}

	out := make([]byte, PageSize)
	if ok := sm.LoadPage(slot, out); !ok {
		t.Fatalf("LoadPage(%d) returned false", slot)
	}
	if !bytes.Equal(out, page) {
		t.Fatalf("loaded page contents differ from what was written")
	}
	// P3: the bitmap bit is cleared only once the read has completed.
	if sm.UsedSlots()[slot] {
		t.Fatalf("slot %d still marked used after LoadPage", slot)
	}
}

func TestSwapLoadUnusedSlotFails(t *testing.T) {
	sm := newTestSwap(t, 2)
	buf := make([]byte, PageSize)
	if ok := sm.LoadPage(0, buf); ok {
		t.Fatalf("LoadPage on a never-written slot returned true")
	}
}

func TestSwapLoadOutOfRangeFails(t *testing.T) {
	sm := newTestSwap(t, 2)
	buf := make([]byte, PageSize)
	if ok := sm.LoadPage(99, buf); ok {
		t.Fatalf("LoadPage on an out-of-range slot returned true")
	}
}

func TestSwapExhaustionPanics(t *testing.T) {
	sm := newTestSwap(t, 1)
	page := make([]byte, PageSize)
	sm.WritePage(page) // fills the only slot

	defer func() {
		r := recover()
		if r != ErrSwapExhausted {
			t.Fatalf("panic value = %v, want ErrSwapExhausted", r)
		}
	}()
	sm.WritePage(page)
}

func TestSwapFreeWithoutReading(t *testing.T) {
	sm := newTestSwap(t, 2)
	page := make([]byte, PageSize)
	slot := sm.WritePage(page)

	sm.Free(slot)
	if sm.UsedSlots()[slot] {
		t.Fatalf("slot %d still marked used after Free", slot)
	}
	// The freed slot must be reusable.
	slot2 := sm.WritePage(page)
	if slot2 != slot {
		t.Fatalf("WritePage after Free reused a different slot: got %d, want %d", slot2, slot)
	}
}
