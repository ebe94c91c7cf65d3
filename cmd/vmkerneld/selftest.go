package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/google/subcommands"

	"github.com/sisop-kernel/vmcore/internal/kernel"
	"github.com/sisop-kernel/vmcore/internal/kutil"
)

type selftestCmd struct {
	configPath string
}

func (*selftestCmd) Name() string     { return "selftest" }
func (*selftestCmd) Synopsis() string { return "drive a single process through the file and mmap syscalls" }
func (*selftestCmd) Usage() string {
	return "selftest [-config path.toml]\n  Exercises CREATE/OPEN/WRITE/SEEK/READ/CLOSE/MMAP/MUNMAP/EXIT on one process.\n"
}

func (c *selftestCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "path to a TOML config file")
}

func (c *selftestCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := loadConfig(c.configPath)
	log := kutil.NewLogger(cfg.LogLevel, "selftest")

	k, err := buildKernel(cfg, log)
	if err != nil {
		log.Error("build kernel", "error", err)
		return subcommands.ExitFailure
	}

	p := k.NewProcessRecord(kernel.NewFakePageDirectory())
	gate := kernel.NewGate(k)

	const (
		nameAddr   kernel.Addr = 0x1000
		bufAddr    kernel.Addr = 0x2000
		readAddr   kernel.Addr = 0x3000
		mmapAddr   kernel.Addr = 0x10000
		espAddr    kernel.Addr = 0x4000
		fileSize               = 64
	)
	// A real loader would fault these in lazily; selftest has none, so it
	// pre-installs the argument-word page and the data pages a real
	// syscall's validate_ptr/validate_range would otherwise have grown
	// from a page fault.
	for _, page := range []kernel.Addr{nameAddr, bufAddr, readAddr, espAddr} {
		if err := p.SPT.AllocZero(page, true); err != nil {
			log.Error("pre-mapping page", "page", page, "error", err)
			return subcommands.ExitFailure
		}
	}
	p.Esp = espAddr
	p.SetUserString(nameAddr, "selftest.txt")

	call := func(num int, args ...int64) (int64, *kernel.ForcedExit) {
		var a [3]int64
		copy(a[:], args)
		return gate.Dispatch(p, &kernel.TrapFrame{Esp: p.Esp, Num: num, Args: a})
	}

	if _, exit := call(kernel.SysCreate, int64(nameAddr), fileSize); exit != nil {
		log.Error("CREATE failed", "cause", exit.Cause)
		return subcommands.ExitFailure
	}

	fdRet, exit := call(kernel.SysOpen, int64(nameAddr))
	if exit != nil {
		log.Error("OPEN failed", "cause", exit.Cause)
		return subcommands.ExitFailure
	}
	fd := fdRet

	payload := []byte("the quick brown fox jumps over the lazy dog")
	p.SetUserBytes(bufAddr, payload)
	if _, exit := call(kernel.SysWrite, fd, int64(bufAddr), int64(len(payload))); exit != nil {
		log.Error("WRITE failed", "cause", exit.Cause)
		return subcommands.ExitFailure
	}

	if _, exit := call(kernel.SysSeek, fd, 0); exit != nil {
		log.Error("SEEK failed", "cause", exit.Cause)
		return subcommands.ExitFailure
	}

	n, exit := call(kernel.SysRead, fd, int64(readAddr), int64(len(payload)))
	if exit != nil {
		log.Error("READ failed", "cause", exit.Cause)
		return subcommands.ExitFailure
	}
	if int(n) != len(payload) {
		log.Error("READ returned wrong length", "got", n, "want", len(payload))
		return subcommands.ExitFailure
	}

	if _, exit := call(kernel.SysClose, fd); exit != nil {
		log.Error("CLOSE failed", "cause", exit.Cause)
		return subcommands.ExitFailure
	}

	fd2, exit := call(kernel.SysOpen, int64(nameAddr))
	if exit != nil {
		log.Error("reopen for mmap failed", "cause", exit.Cause)
		return subcommands.ExitFailure
	}
	mappingID, exit := call(kernel.SysMmap, fd2, int64(mmapAddr))
	if exit != nil {
		log.Error("MMAP failed", "cause", exit.Cause)
		return subcommands.ExitFailure
	}
	if mappingID == kernel.MapFailed {
		log.Error("MMAP returned MAP_FAILED")
		return subcommands.ExitFailure
	}
	if _, exit := call(kernel.SysMunmap, mappingID); exit != nil {
		log.Error("MUNMAP failed", "cause", exit.Cause)
		return subcommands.ExitFailure
	}

	if _, exit := call(kernel.SysExit, 0); exit == nil {
		log.Error("EXIT did not produce a forced exit")
		return subcommands.ExitFailure
	}
	// Dispatch already tore p down on the forced exit above.

	fmt.Println("selftest: all syscalls completed successfully")
	return subcommands.ExitSuccess
}
