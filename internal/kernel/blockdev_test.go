package kernel

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestFileBlockDeviceReadWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swap.img")
	d, err := OpenFileBlockDevice(path, 4)
	if err != nil {
		t.Fatalf("OpenFileBlockDevice: %v", err)
	}
	defer d.Close()

	sectors, err := d.SizeInSectors()
	if err != nil || sectors != 4 {
		t.Fatalf("SizeInSectors = %d, %v, want 4, nil", sectors, err)
	}

	want := bytes.Repeat([]byte{0x5a}, SectorSize)
	if err := d.WriteSector(2, want); err != nil {
		t.Fatalf("WriteSector: %v", err)
	}
	got := make([]byte, SectorSize)
	if err := d.ReadSector(2, got); err != nil {
		t.Fatalf("ReadSector: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("ReadSector returned %v, want %v", got[:8], want[:8])
	}

	// an untouched sector reads back as zeroes.
	other := make([]byte, SectorSize)
	if err := d.ReadSector(0, other); err != nil {
		t.Fatalf("ReadSector(0): %v", err)
	}
	if !bytes.Equal(other, make([]byte, SectorSize)) {
		t.Fatalf("untouched sector is not zero-filled")
	}
}

func TestFileBlockDeviceRejectsWrongSizedBuffers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swap.img")
	d, err := OpenFileBlockDevice(path, 2)
	if err != nil {
		t.Fatalf("OpenFileBlockDevice: %v", err)
	}
	defer d.Close()

	if err := d.WriteSector(0, make([]byte, SectorSize-1)); err == nil {
		t.Fatalf("WriteSector with a short buffer did not error")
	}
	if err := d.ReadSector(0, make([]byte, SectorSize+1)); err == nil {
		t.Fatalf("ReadSector with an oversized buffer did not error")
	}
}
