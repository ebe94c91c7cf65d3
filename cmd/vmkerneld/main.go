// Command vmkerneld hosts the virtual-memory core as a standalone
// process: a debug HTTP server plus two harnesses (selftest, demo) that
// exercise it without a real user-mode loader, generalized from the
// teacher's single-purpose cmd/memoria into a github.com/google/
// subcommands-based CLI (grounded on the rest of the example pack's use
// of subcommands-style multi-verb binaries).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"github.com/sisop-kernel/vmcore/internal/kutil"
)

func main() {
	subcommands.Register(subcommands.HelpCommand(), "")
	subcommands.Register(subcommands.FlagsCommand(), "")
	subcommands.Register(subcommands.CommandsCommand(), "")
	subcommands.Register(&serveCmd{}, "")
	subcommands.Register(&selftestCmd{}, "")
	subcommands.Register(&demoCmd{}, "")

	flag.Parse()
	os.Exit(int(subcommands.Execute(context.Background())))
}

// loadConfig reads path if non-empty, falling back to defaultConfig
// (with a message on stderr if the file fails to load) — same "config file or
// sensible defaults" shape as the teacher's inicializarModulo, minus the
// os.Exit(1) on a missing file (flags here are optional, not a required
// positional argument).
func loadConfig(path string) Config {
	if path == "" {
		return defaultConfig()
	}
	cfg, err := kutil.LoadConfig[Config](path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vmkerneld: %v, using defaults\n", err)
		return defaultConfig()
	}
	return *cfg
}
