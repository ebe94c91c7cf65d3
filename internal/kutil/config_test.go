package kutil

import (
	"os"
	"path/filepath"
	"testing"
)

type testConfig struct {
	LogLevel   string `toml:"log_level"`
	FrameCount int    `toml:"frame_count"`
	Poison     bool   `toml:"debug_poison"`
}

func TestLoadConfigDecodesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
log_level = "debug"
frame_count = 64
debug_poison = true
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfig[testConfig](path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := testConfig{LogLevel: "debug", FrameCount: 64, Poison: true}
	if *cfg != want {
		t.Fatalf("LoadConfig = %+v, want %+v", *cfg, want)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig[testConfig](filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("LoadConfig on a missing file returned no error")
	}
}
