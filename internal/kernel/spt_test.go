package kernel

import (
	"errors"
	"testing"
)

func newTestProcess(k *Kernel) *Process {
	return k.NewProcessRecord(NewFakePageDirectory())
}

func TestSPTAllocZeroRejectsDuplicate(t *testing.T) {
	k := testKernel(t, 4, 8)
	p := newTestProcess(k)

	if err := p.SPT.AllocZero(0x1000, true); err != nil {
		t.Fatalf("AllocZero: %v", err)
	}
	if err := p.SPT.AllocZero(0x1000, true); !errors.Is(err, ErrAlreadyMapped) {
		t.Fatalf("second AllocZero: got %v, want ErrAlreadyMapped", err)
	}
}

func TestSPTForceLoadIsIdempotent(t *testing.T) {
	k := testKernel(t, 4, 8)
	p := newTestProcess(k)
	if err := p.SPT.AllocZero(0x1000, true); err != nil {
		t.Fatalf("AllocZero: %v", err)
	}

	if err := p.SPT.ForceLoad(0x1000); err != nil {
		t.Fatalf("first ForceLoad: %v", err)
	}
	snap, ok := p.SPT.Lookup(0x1000)
	if !ok || snap.Location != InFrame {
		t.Fatalf("after ForceLoad: snap=%+v ok=%v, want InFrame", snap, ok)
	}
	kpage := snap.Kpage

	if err := p.SPT.ForceLoad(0x1000); err != nil {
		t.Fatalf("second ForceLoad: %v", err)
	}
	snap2, _ := p.SPT.Lookup(0x1000)
	if snap2.Kpage != kpage {
		t.Fatalf("idempotent ForceLoad changed kpage: %v -> %v", kpage, snap2.Kpage)
	}
}

func TestSPTForceLoadUnknownPageFails(t *testing.T) {
	k := testKernel(t, 4, 8)
	p := newTestProcess(k)
	if err := p.SPT.ForceLoad(0x5000); !errors.Is(err, ErrBadPointer) {
		t.Fatalf("ForceLoad on unmapped page: got %v, want ErrBadPointer", err)
	}
}

func TestGrowStackIfNecessaryPlausibleAccess(t *testing.T) {
	k := testKernel(t, 4, 8)
	p := newTestProcess(k)

	esp := StackTop - PageSize // page-aligned: esp sits exactly at its page's start
	faultPage := esp           // first touch of the page currently holding esp

	if err := p.SPT.GrowStackIfNecessary(esp, faultPage); err != nil {
		t.Fatalf("GrowStackIfNecessary: %v", err)
	}
	if _, ok := p.SPT.Lookup(faultPage); !ok {
		t.Fatalf("stack page was not installed")
	}
}

func TestGrowStackIfNecessaryRejectsNonStackAddress(t *testing.T) {
	k := testKernel(t, 4, 8)
	p := newTestProcess(k)

	if err := p.SPT.GrowStackIfNecessary(StackTop-PageSize, 0x1000); !errors.Is(err, ErrNotStackAccess) {
		t.Fatalf("GrowStackIfNecessary on a non-stack address: got %v, want ErrNotStackAccess", err)
	}
}

// TestGrowStackIfNecessaryWindowBoundary exercises the exact
// fault_page >= esp - 32 cutoff: esp is chosen so that esp-32 falls on a
// page boundary, and the fault one page further out than that boundary
// must still be rejected.
func TestGrowStackIfNecessaryWindowBoundary(t *testing.T) {
	const esp = StackTop - PageSize + StackGrowthWindow
	atBoundary := esp - StackGrowthWindow // == StackTop - PageSize, page-aligned
	pastBoundary := atBoundary - PageSize // one page further from esp

	t.Run("at boundary succeeds", func(t *testing.T) {
		k := testKernel(t, 4, 8)
		p := newTestProcess(k)
		if err := p.SPT.GrowStackIfNecessary(esp, atBoundary); err != nil {
			t.Fatalf("GrowStackIfNecessary at esp-32: %v", err)
		}
		if _, ok := p.SPT.Lookup(atBoundary); !ok {
			t.Fatalf("stack page at the window boundary was not installed")
		}
	})

	t.Run("one page past boundary fails", func(t *testing.T) {
		k := testKernel(t, 4, 8)
		p := newTestProcess(k)
		if err := p.SPT.GrowStackIfNecessary(esp, pastBoundary); !errors.Is(err, ErrNotStackAccess) {
			t.Fatalf("GrowStackIfNecessary one page past esp-32: got %v, want ErrNotStackAccess", err)
		}
	})
}

func TestSPTFreeReleasesFrame(t *testing.T) {
	k := testKernel(t, 4, 8)
	p := newTestProcess(k)
	if err := p.SPT.AllocZero(0x1000, true); err != nil {
		t.Fatalf("AllocZero: %v", err)
	}
	if err := p.SPT.ForceLoad(0x1000); err != nil {
		t.Fatalf("ForceLoad: %v", err)
	}
	before := k.Frames.Capacity() - len(k.Frames.Resident())

	if err := p.SPT.Free(0x1000); err != nil {
		t.Fatalf("Free: %v", err)
	}
	after := k.Frames.Capacity() - len(k.Frames.Resident())
	if after != before+1 {
		t.Fatalf("free frame count: before=%d after=%d, want +1", before, after)
	}
	if _, ok := p.SPT.Lookup(0x1000); ok {
		t.Fatalf("page still present in SPT after Free")
	}
}

func TestSPTEmptyAfterDestroyAll(t *testing.T) {
	k := testKernel(t, 4, 8)
	p := newTestProcess(k)
	for _, addr := range []Addr{0x1000, 0x2000, 0x3000} {
		if err := p.SPT.AllocZero(addr, true); err != nil {
			t.Fatalf("AllocZero(%v): %v", addr, err)
		}
		if err := p.SPT.ForceLoad(addr); err != nil {
			t.Fatalf("ForceLoad(%v): %v", addr, err)
		}
	}
	p.SPT.destroyAll(k)
	if !p.SPT.Empty() {
		t.Fatalf("SPT not empty after destroyAll")
	}
	if got := len(k.Frames.Resident()); got != 0 {
		t.Fatalf("frames still resident after destroyAll: %d", got)
	}
}
