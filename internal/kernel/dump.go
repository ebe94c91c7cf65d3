package kernel

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DumpProcess writes every page mapped in p's SPT, in page order, to a
// timestamped file under dir — grounded on the teacher's
// crearMemoryDump (cmd/memoria/dump.go), which walks a process's
// assigned frames and concatenates their bytes into one file. Unlike
// the teacher, pages not currently resident (in swap, in a file, or not
// yet touched) are dumped as PageSize zero bytes rather than omitted,
// so the dump's layout always matches the process's virtual address
// layout page-for-page.
func DumpProcess(k *Kernel, p *Process, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create dump directory %s: %w", dir, err)
	}

	pages := p.SPT.pagesInOrder()
	if len(pages) == 0 {
		return "", fmt.Errorf("process %d has no mapped pages", p.PID)
	}

	name := fmt.Sprintf("%d-%s.dmp", p.PID, dumpTimestamp())
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create dump file %s: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, PageSize)
	for _, page := range pages {
		snap, ok := p.SPT.Lookup(page)
		if ok && snap.Location == InFrame {
			k.readFrame(snap.Kpage, buf)
		} else {
			for i := range buf {
				buf[i] = 0
			}
		}
		if _, err := f.Write(buf); err != nil {
			return "", fmt.Errorf("write dump %s: %w", path, err)
		}
	}

	k.log.Info("memory dump written", "pid", p.PID, "path", path, "pages", len(pages))
	return path, nil
}

// dumpTimestamp formats the current time the way the teacher's dump
// filenames do (YYYYMMDD-HHMMSS).
func dumpTimestamp() string {
	return time.Now().Format("20060102-150405")
}

// pagesInOrder returns every mapped page's address in ascending order,
// for a stable, reproducible dump layout.
func (s *SPT) pagesInOrder() []Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	pages := make([]Addr, 0, len(s.pages))
	for page := range s.pages {
		pages = append(pages, page)
	}
	for i := 1; i < len(pages); i++ {
		for j := i; j > 0 && pages[j-1] > pages[j]; j-- {
			pages[j-1], pages[j] = pages[j], pages[j-1]
		}
	}
	return pages
}
