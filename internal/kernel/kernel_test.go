package kernel

import (
	"io"
	"log/slog"
	"testing"
)

// testKernel builds a kernel with an in-memory block device and
// filesystem, sized per frameCount/swapSlots, with logging discarded —
// the shape every test in this package starts from.
func testKernel(t *testing.T, frameCount int, swapSlots int64) *Kernel {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dev := NewMemBlockDevice(swapSlots * SectorsPerPage)
	fs := NewMemFilesystem()
	console := NewMemConsole(nil)
	cfg := Config{FrameCount: frameCount, SwapSectors: swapSlots * SectorsPerPage}
	k, err := New(cfg, dev, fs, console, nil, log)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return k
}
