package main

import (
	"context"
	"flag"

	"github.com/google/subcommands"

	"github.com/sisop-kernel/vmcore/internal/kernel"
	"github.com/sisop-kernel/vmcore/internal/kutil"
)

type serveCmd struct {
	configPath string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the debug HTTP server over an empty kernel" }
func (*serveCmd) Usage() string {
	return "serve [-config path.toml]\n  Starts the /health, /stats/{pid}, /frames debug endpoints.\n"
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.configPath, "config", "", "path to a TOML config file")
}

func (c *serveCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg := loadConfig(c.configPath)
	log := kutil.NewLogger(cfg.LogLevel, "vmkerneld")

	k, err := buildKernel(cfg, log)
	if err != nil {
		log.Error("failed to build kernel", "error", err)
		return subcommands.ExitFailure
	}

	srv := kernel.NewDebugServer(k, cfg.DebugAddr)
	if err := srv.ListenAndServe(); err != nil {
		log.Error("debug server stopped", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
