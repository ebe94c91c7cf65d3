package main

// Config is this binary's on-disk configuration, loaded with
// kutil.LoadConfig — a TOML-flavored generalization of the teacher's
// MemoryConfig (cmd/memoria/tipos.go) read through
// utils.CargarConfiguracion.
type Config struct {
	LogLevel    string `toml:"log_level"`
	DebugAddr   string `toml:"debug_addr"`
	DumpPath    string `toml:"dump_path"`
	SwapPath    string `toml:"swap_path"`
	FrameCount  int    `toml:"frame_count"`
	SwapSectors int64  `toml:"swap_sectors"`
	DebugPoison bool   `toml:"debug_poison"`
}

func defaultConfig() Config {
	return Config{
		LogLevel:    "info",
		DebugAddr:   "127.0.0.1:8099",
		DumpPath:    "./dumps",
		SwapPath:    "./swap.img",
		FrameCount:  32,
		SwapSectors: 64 * 8, // 64 pages' worth of sectors
		DebugPoison: false,
	}
}
