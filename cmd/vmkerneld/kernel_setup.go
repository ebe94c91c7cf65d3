package main

import (
	"log/slog"

	"github.com/sisop-kernel/vmcore/internal/kernel"
)

// buildKernel wires up a kernel.Kernel from cfg: a real file-backed swap
// device sized per cfg.SwapSectors, an in-memory filesystem and console
// (this binary has no real user-mode loader to source files or a
// terminal from), and no process-control collaborator until a caller
// supplies one via kernel.NewFakeProcessControl.
func buildKernel(cfg Config, log *slog.Logger) (*kernel.Kernel, error) {
	dev, err := kernel.OpenFileBlockDevice(cfg.SwapPath, cfg.SwapSectors)
	if err != nil {
		return nil, err
	}
	fs := kernel.NewMemFilesystem()
	console := kernel.NewMemConsole(nil)

	kcfg := kernel.Config{
		FrameCount:  cfg.FrameCount,
		SwapSectors: cfg.SwapSectors,
		DebugPoison: cfg.DebugPoison,
	}
	return kernel.New(kcfg, dev, fs, console, nil, log)
}
