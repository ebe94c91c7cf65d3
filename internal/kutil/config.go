package kutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// LoadConfig decodes the TOML file at path into a fresh T, generalizing
// the teacher's CargarConfiguracion[T any] (utils/modulo.go) from JSON to
// TOML — grounded on google-gvisor's go.mod, which pulls in
// github.com/BurntSushi/toml for its own runtime configuration. Unlike
// the teacher, a load failure is returned rather than calling os.Exit,
// so callers (and tests) can decide how to react.
func LoadConfig[T any](path string) (*T, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path %s: %w", path, err)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", abs, err)
	}
	defer f.Close()

	var cfg T
	if _, err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", abs, err)
	}
	return &cfg, nil
}
