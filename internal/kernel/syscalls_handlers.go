package kernel

// This file implements the fifteen typed syscall handlers spec.md §4.4
// dispatches to. Each handler receives its already-validated argument
// words (the gate releases their pins before the handler runs);
// buffer/string arguments it touches are validated and pinned here,
// as the real gate would validate them just before reading or writing
// through them.

func (g *Gate) sysHalt(p *Process) (int64, *ForcedExit) {
	// Powering off the machine is out of scope (spec.md §1 Non-goals:
	// boot/shutdown); HALT is accepted and ignored rather than
	// terminating the calling process.
	return 0, nil
}

func (g *Gate) sysExit(p *Process, args []int64) (int64, *ForcedExit) {
	status := args[0]
	if g.k.Procs != nil {
		// status is not passed to the process-control collaborator;
		// it is returned as the call's result and carried in the
		// exitRequested cause of the returned *ForcedExit.
		_ = status
	}
	return status, forcedExit(&exitRequested{status: int(status)})
}

// exitRequested is a voluntary sys_exit, funnelled through the same
// *ForcedExit cleanup path as a fault-triggered one so the cleanup code
// has exactly one shape (spec.md §9 "Forced exit from arbitrary depth").
type exitRequested struct{ status int }

func (e *exitRequested) Error() string { return "process exited" }

func (g *Gate) sysExec(p *Process, args []int64) (int64, *ForcedExit) {
	cmdLine, verr := g.validateString(p, Addr(args[0]))
	if verr != nil {
		return 0, g.fail(p, verr)
	}
	g.unpinAll(p)
	if g.k.Procs == nil {
		return -1, nil
	}
	pid, err := g.k.Procs.Execute(cmdLine)
	if err != nil {
		return -1, nil
	}
	return int64(pid), nil
}

func (g *Gate) sysWait(p *Process, args []int64) (int64, *ForcedExit) {
	if g.k.Procs == nil {
		return -1, nil
	}
	status, err := g.k.Procs.Wait(int(args[0]))
	if err != nil {
		return -1, nil
	}
	return int64(status), nil
}

func (g *Gate) sysCreate(p *Process, args []int64) (int64, *ForcedExit) {
	name, verr := g.validateString(p, Addr(args[0]))
	if verr != nil {
		return 0, g.fail(p, verr)
	}
	g.unpinAll(p)
	size := args[1]
	p.lockFS(g.k)
	err := g.k.FS.Create(name, size)
	p.unlockFS(g.k)
	if err != nil {
		return 0, nil
	}
	return 1, nil
}

func (g *Gate) sysRemove(p *Process, args []int64) (int64, *ForcedExit) {
	name, verr := g.validateString(p, Addr(args[0]))
	if verr != nil {
		return 0, g.fail(p, verr)
	}
	g.unpinAll(p)
	p.lockFS(g.k)
	err := g.k.FS.Remove(name)
	p.unlockFS(g.k)
	if err != nil {
		return 0, nil
	}
	return 1, nil
}

func (g *Gate) sysOpen(p *Process, args []int64) (int64, *ForcedExit) {
	name, verr := g.validateString(p, Addr(args[0]))
	if verr != nil {
		return 0, g.fail(p, verr)
	}
	g.unpinAll(p)
	p.lockFS(g.k)
	f, err := g.k.FS.Open(name)
	p.unlockFS(g.k)
	if err != nil {
		return -1, nil
	}
	fd := p.FDs.Open(f)
	return int64(fd), nil
}

func (g *Gate) sysFilesize(p *Process, args []int64) (int64, *ForcedExit) {
	f, ok := p.FDs.Get(int(args[0]))
	if !ok {
		return 0, g.fail(p, ErrUnknownFD)
	}
	p.lockFS(g.k)
	n := f.Length()
	p.unlockFS(g.k)
	return n, nil
}

// sysRead implements READ(fd, buf, len) (spec.md §4.4 "Per-call
// semantics (selected)"): rejects STDOUT_FILENO, drains keystrokes from
// the console for STDIN_FILENO, otherwise reads from the backing file
// under the filesystem lock until len bytes are read or a zero-byte read
// occurs.
func (g *Gate) sysRead(p *Process, args []int64) (int64, *ForcedExit) {
	fd, addr, length := int(args[0]), Addr(args[1]), int(args[2])
	if fd == StdoutFileno {
		return 0, g.fail(p, ErrStdoutRead)
	}
	if err := g.validateRange(p, addr, length); err != nil {
		return 0, g.fail(p, err)
	}
	defer g.unpinAll(p)

	if fd == StdinFileno {
		buf := make([]byte, length)
		for i := 0; i < length; i++ {
			buf[i] = g.k.Console().InputGetc()
		}
		p.SetUserBytes(addr, buf)
		return int64(length), nil
	}

	f, ok := p.FDs.Get(fd)
	if !ok {
		return 0, g.fail(p, ErrUnknownFD)
	}
	p.lockFS(g.k)
	buf := make([]byte, length)
	total := 0
	for total < length {
		n, err := f.ReadAt(buf[total:], f.Tell())
		if n > 0 {
			f.Seek(f.Tell() + int64(n))
			total += n
		}
		if n == 0 || err != nil {
			break
		}
	}
	p.unlockFS(g.k)
	p.SetUserBytes(addr, buf[:total])
	return int64(total), nil
}

// sysWrite implements WRITE(fd, buf, len): symmetric to READ, with
// STDOUT_FILENO writing to the console buffer instead of
// STDIN_FILENO reading from it (spec.md §4.4).
func (g *Gate) sysWrite(p *Process, args []int64) (int64, *ForcedExit) {
	fd, addr, length := int(args[0]), Addr(args[1]), int(args[2])
	if fd == StdinFileno {
		return 0, g.fail(p, ErrStdinWrite)
	}
	if err := g.validateRange(p, addr, length); err != nil {
		return 0, g.fail(p, err)
	}
	defer g.unpinAll(p)

	buf := p.readUserBytes(addr, length)
	if fd == StdoutFileno {
		g.k.Console().PutBuf(buf)
		return int64(length), nil
	}

	f, ok := p.FDs.Get(fd)
	if !ok {
		return 0, g.fail(p, ErrUnknownFD)
	}
	p.lockFS(g.k)
	defer p.unlockFS(g.k)
	n, err := f.WriteAt(buf, f.Tell())
	if err != nil {
		return 0, nil
	}
	f.Seek(f.Tell() + int64(n))
	return int64(n), nil
}

func (g *Gate) sysSeek(p *Process, args []int64) (int64, *ForcedExit) {
	f, ok := p.FDs.Get(int(args[0]))
	if !ok {
		return 0, g.fail(p, ErrUnknownFD)
	}
	f.Seek(args[1])
	return 0, nil
}

func (g *Gate) sysTell(p *Process, args []int64) (int64, *ForcedExit) {
	f, ok := p.FDs.Get(int(args[0]))
	if !ok {
		return 0, g.fail(p, ErrUnknownFD)
	}
	return f.Tell(), nil
}

func (g *Gate) sysClose(p *Process, args []int64) (int64, *ForcedExit) {
	p.FDs.Close(int(args[0]))
	return 0, nil
}

// sysMmap implements MMAP(fd, addr) (spec.md §4.4): validates every
// precondition, then installs one file-backed descriptor per page (read
// from the file on first load), rolling back on any per-page failure.
func (g *Gate) sysMmap(p *Process, args []int64) (int64, *ForcedExit) {
	fd, addr := int(args[0]), Addr(args[1])

	f, ok := p.FDs.Get(fd)
	if !ok {
		return MapFailed, nil
	}
	p.lockFS(g.k)
	length := f.Length()
	p.unlockFS(g.k)

	if length <= 0 || addr == 0 || !addr.Aligned() || !InUserSpace(addr) {
		return MapFailed, nil
	}
	numPages := (int(length) + PageSize - 1) / PageSize
	if addr+Addr(numPages)*PageSize > StackLimit {
		return MapFailed, nil
	}

	pages := make([]Addr, numPages)
	for i := range pages {
		pages[i] = addr + Addr(i)*PageSize
	}
	for _, page := range pages {
		if _, ok := p.SPT.Lookup(page); ok {
			return MapFailed, nil
		}
	}
	if p.pagesOverlapAnyMapping(pages) {
		return MapFailed, nil
	}

	file, err := f.Reopen()
	if err != nil {
		return MapFailed, nil
	}

	installed := make([]Addr, 0, numPages)
	for i, page := range pages {
		remaining := int(length) - i*PageSize
		bytes := PageSize
		if remaining < PageSize {
			bytes = remaining
		}
		mapping := MappingID(addr)
		if err := p.SPT.AllocFile(page, file, int64(i*PageSize), bytes, mapping, true, true); err != nil {
			for _, rollback := range installed {
				p.SPT.Free(rollback)
			}
			file.Close()
			return MapFailed, nil
		}
		installed = append(installed, page)
	}

	id := p.allocMapping(addr, file, pages)
	return int64(id), nil
}

// sysMunmap implements MUNMAP(id) (spec.md §4.4): destroys every page
// descriptor the mapping covers, writing dirty pages back, and forces
// the process to exit if the id is unknown.
func (g *Gate) sysMunmap(p *Process, args []int64) (int64, *ForcedExit) {
	id := MappingID(args[0])
	region, ok := p.lookupMapping(id)
	if !ok {
		return 0, g.fail(p, ErrUnknownMapping)
	}
	for _, page := range region.pages {
		p.SPT.Free(page)
	}
	region.file.Close()
	p.deleteMapping(id)
	return 0, nil
}
