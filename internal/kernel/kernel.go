package kernel

import (
	"log/slog"
	"sync"
)

// Config holds the tunables this package's kernel context needs (spec.md
// §1.3, §7): how many physical frames back the user pool, how the swap
// device is sized, and whether freed/evicted frames are poisoned before
// reuse (a debugging aid, off by default).
type Config struct {
	FrameCount  int
	SwapSectors int64
	DebugPoison bool
}

// DefaultConfig returns reasonable defaults for the demo harness and
// tests: a small frame pool and a swap device sized generously relative
// to it, so eviction and swap-out are both exercised without either
// starving immediately.
func DefaultConfig() Config {
	return Config{
		FrameCount:  32,
		SwapSectors: 64 * SectorsPerPage,
		DebugPoison: false,
	}
}

// Kernel is the shared context every per-process and per-subsystem
// operation in this package takes a reference to, replacing the set of
// file-scope globals Pintos' vm/ and userprog/ modules rely on (spec.md
// §9 Design Notes: "a kernel-context struct ... passed explicitly").
type Kernel struct {
	log *slog.Logger

	Frames  *FrameTable
	Swap    *SwapManager
	Procs   ProcessControl
	FS      Filesystem
	Metrics *Metrics

	// FSLock serializes all filesystem access, matching Pintos'
	// single global filesys lock (spec.md §4.4 "Filesystem-lock
	// discipline", §5).
	FSLock sync.Mutex

	console Console
	cfg     Config

	mu     sync.Mutex
	mem    map[Addr][]byte
	procs  map[int]*Process
	nextID int
}

// New constructs a kernel context: a frame table sized per cfg, a swap
// manager backed by dev, and an empty process table.
func New(cfg Config, dev BlockDevice, fs Filesystem, console Console, procs ProcessControl, log *slog.Logger) (*Kernel, error) {
	swap, err := NewSwapManager(dev, log)
	if err != nil {
		return nil, err
	}
	k := &Kernel{
		log:     log,
		Swap:    swap,
		Procs:   procs,
		FS:      fs,
		Metrics: NewMetrics(log),
		console: console,
		cfg:     cfg,
		mem:     make(map[Addr][]byte),
		procs:   make(map[int]*Process),
		nextID:  1,
	}
	k.Frames = NewFrameTable(cfg.FrameCount, 1<<32, log)
	return k, nil
}

// readFrame and writeFrame model physical memory access to a kernel page
// handle: the synthetic Addr values frame.go hands out aren't real
// pointers, so the kernel keeps their backing bytes in-process instead of
// dereferencing them directly (there being no real physical address
// space to map into in a userspace test harness).
func (k *Kernel) readFrame(kpage Addr, dst []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	src, ok := k.mem[kpage]
	if !ok {
		return
	}
	copy(dst, src)
}

func (k *Kernel) writeFrame(kpage Addr, src []byte) {
	k.mu.Lock()
	defer k.mu.Unlock()
	buf := make([]byte, PageSize)
	copy(buf, src)
	k.mem[kpage] = buf
}

// FreeFrame releases kpage back to the frame table. If DebugPoison is
// set, the frame's backing bytes are overwritten first so that a bug
// reading a freed frame sees garbage instead of quietly-stale data.
func (k *Kernel) FreeFrame(kpage Addr) {
	if k.cfg.DebugPoison {
		k.mu.Lock()
		if buf, ok := k.mem[kpage]; ok {
			for i := range buf {
				buf[i] = 0xCC
			}
		}
		k.mu.Unlock()
	}
	k.Frames.Free(kpage)
}

// NewProcessRecord registers a fresh process with its own page directory
// and supplementary page table, tracked for debug/metrics enumeration.
func (k *Kernel) NewProcessRecord(dir PageDirectory) *Process {
	k.mu.Lock()
	pid := k.nextID
	k.nextID++
	k.mu.Unlock()

	p := NewProcess(pid, k, dir)

	k.mu.Lock()
	k.procs[pid] = p
	k.mu.Unlock()
	return p
}

// RemoveProcess tears a process down and drops its record (spec.md §5
// Cancellation).
func (k *Kernel) RemoveProcess(p *Process) {
	p.Exit(k)
	k.mu.Lock()
	delete(k.procs, p.PID)
	k.mu.Unlock()
	k.Metrics.Forget(p.PID)
}

// Process looks up a tracked process by pid, for the debug HTTP
// endpoints.
func (k *Kernel) Process(pid int) (*Process, bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	p, ok := k.procs[pid]
	return p, ok
}

// Processes returns a snapshot slice of every tracked process.
func (k *Kernel) Processes() []*Process {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]*Process, 0, len(k.procs))
	for _, p := range k.procs {
		out = append(out, p)
	}
	return out
}

func (k *Kernel) Console() Console { return k.console }
