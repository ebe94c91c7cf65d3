package kernel

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// SectorSize is the sector size of the simulated swap block device.
// SectorsPerPage follows directly from it (spec.md §4.3, §6).
const (
	SectorSize     = 512
	SectorsPerPage = PageSize / SectorSize
)

// BlockDevice is the block-device abstraction this package consumes but
// does not implement (spec.md §1, §6 "Swap device"): a fixed-size
// sequence of SectorSize sectors, read and written whole.
type BlockDevice interface {
	// SizeInSectors returns the device's capacity.
	SizeInSectors() (int64, error)
	// ReadSector reads SectorSize bytes from sector index into dst.
	ReadSector(index int64, dst []byte) error
	// WriteSector writes SectorSize bytes from src to sector index.
	WriteSector(index int64, src []byte) error
}

// FileBlockDevice backs BlockDevice with a real file, using unbuffered
// positioned reads/writes (golang.org/x/sys/unix.Pread/Pwrite) rather than
// a buffered os.File, so that every sector access is an explicit syscall —
// the closest a userspace program gets to a block device's "device talks
// directly to storage" contract. Grounded on google-gvisor's pervasive use
// of golang.org/x/sys/unix for raw syscalls in its platform layer.
type FileBlockDevice struct {
	f    *os.File
	size int64 // bytes
}

// OpenFileBlockDevice opens (creating if necessary) path as a block device
// with the given capacity in sectors.
func OpenFileBlockDevice(path string, sectors int64) (*FileBlockDevice, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open block device %s: %w", path, err)
	}
	size := sectors * SectorSize
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, fmt.Errorf("size block device %s: %w", path, err)
	}
	return &FileBlockDevice{f: f, size: size}, nil
}

// Close releases the underlying file descriptor.
func (d *FileBlockDevice) Close() error {
	return d.f.Close()
}

func (d *FileBlockDevice) SizeInSectors() (int64, error) {
	return d.size / SectorSize, nil
}

func (d *FileBlockDevice) ReadSector(index int64, dst []byte) error {
	if len(dst) != SectorSize {
		return fmt.Errorf("ReadSector: dst must be %d bytes, got %d", SectorSize, len(dst))
	}
	n, err := unix.Pread(int(d.f.Fd()), dst, index*SectorSize)
	if err != nil {
		return fmt.Errorf("pread sector %d: %w", index, err)
	}
	if n != SectorSize {
		return fmt.Errorf("pread sector %d: short read (%d bytes)", index, n)
	}
	return nil
}

func (d *FileBlockDevice) WriteSector(index int64, src []byte) error {
	if len(src) != SectorSize {
		return fmt.Errorf("WriteSector: src must be %d bytes, got %d", SectorSize, len(src))
	}
	n, err := unix.Pwrite(int(d.f.Fd()), src, index*SectorSize)
	if err != nil {
		return fmt.Errorf("pwrite sector %d: %w", index, err)
	}
	if n != SectorSize {
		return fmt.Errorf("pwrite sector %d: short write (%d bytes)", index, n)
	}
	return nil
}

// MemBlockDevice is an in-memory BlockDevice, used by tests that would
// otherwise pay real file-I/O latency for every swap round trip.
type MemBlockDevice struct {
	data []byte
}

// NewMemBlockDevice allocates an in-memory device of the given capacity
// in sectors.
func NewMemBlockDevice(sectors int64) *MemBlockDevice {
	return &MemBlockDevice{data: make([]byte, sectors*SectorSize)}
}

func (d *MemBlockDevice) SizeInSectors() (int64, error) {
	return int64(len(d.data)) / SectorSize, nil
}

func (d *MemBlockDevice) ReadSector(index int64, dst []byte) error {
	off := index * SectorSize
	if off < 0 || off+SectorSize > int64(len(d.data)) {
		return fmt.Errorf("ReadSector: index %d out of range", index)
	}
	copy(dst, d.data[off:off+SectorSize])
	return nil
}

func (d *MemBlockDevice) WriteSector(index int64, src []byte) error {
	off := index * SectorSize
	if off < 0 || off+SectorSize > int64(len(d.data)) {
		return fmt.Errorf("WriteSector: index %d out of range", index)
	}
	copy(d.data[off:off+SectorSize], src)
	return nil
}
