// Package config loads settings with priority flags > env > file > defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"todo-cli/internal/store"
)

// EnvPrefix prefixes every environment override, e.g. TODO_LOG_LEVEL=debug.
const EnvPrefix = "TODO_"

type Config struct {
	DataDir          string        `koanf:"data_dir"`
	Backend          string        `koanf:"backend"`
	StorageKey       string        `koanf:"storage_key"`
	AutosaveInterval time.Duration `koanf:"autosave_interval"`
	Log              LogSection    `koanf:"log"`
	Web              WebSection    `koanf:"web"`
	TUI              TUISection    `koanf:"tui"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type WebSection struct {
	Addr string `koanf:"addr"`
}

type TUISection struct {
	Bell bool `koanf:"bell"`
}

func defaults() map[string]any {
	return map[string]any{
		"data_dir":          "",
		"backend":           string(store.BackendFile),
		"storage_key":       store.DefaultKey,
		"autosave_interval": "30s",
		"log.level":         "warn",
		"log.format":        "text",
		"web.addr":          "127.0.0.1:8080",
		"tui.bell":          true,
	}
}

// keys lists every known key so env names with underscores map back unambiguously
// (TODO_DATA_DIR -> data_dir, TODO_LOG_LEVEL -> log.level).
func keys() []string {
	out := make([]string, 0, 8)
	for k := range defaults() {
		out = append(out, k)
	}
	return out
}

type Options struct {
	// File is an explicit config path. When empty, config.yaml, config.yml or
	// config.toml in the default data dir is used if present.
	File string
	// Overrides are applied last, typically from flags the user actually set.
	Overrides map[string]any
	// Environ replaces os.Environ for tests.
	Environ []string
}

// Load reads configuration from all sources.
func Load(opts Options) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path := strings.TrimSpace(opts.File)
	if path == "" {
		dir, _ := opts.Overrides["data_dir"].(string)
		path = discoverFile(dir)
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}
	if path != "" {
		parser, err := parserFor(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := loadEnv(k, opts.Environ); err != nil {
		return nil, err
	}

	if len(opts.Overrides) > 0 {
		if err := k.Load(mapProvider(opts.Overrides), nil); err != nil {
			return nil, fmt.Errorf("load overrides: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = path

	if strings.TrimSpace(cfg.DataDir) == "" {
		dir, err := store.DefaultDir()
		if err != nil {
			return nil, err
		}
		cfg.DataDir = dir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	kind, err := store.ParseBackendKind(c.Backend)
	if err != nil {
		return err
	}
	c.Backend = string(kind)
	if strings.TrimSpace(c.StorageKey) == "" {
		return errors.New("storage_key must not be empty")
	}
	if c.AutosaveInterval <= 0 {
		return fmt.Errorf("autosave_interval must be positive, got %s", c.AutosaveInterval)
	}
	return nil
}

func loadEnv(k *koanf.Koanf, environ []string) error {
	known := keys()
	transform := func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		for _, key := range known {
			if strings.ReplaceAll(key, ".", "_") == name {
				return key
			}
		}
		return strings.ReplaceAll(name, "_", ".")
	}
	if environ == nil {
		if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
			return fmt.Errorf("load env: %w", err)
		}
		return nil
	}
	vals := map[string]any{}
	for _, kv := range environ {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		vals[transform(name)] = val
	}
	if err := k.Load(mapProvider(vals), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".toml":
		return TOMLParser(), nil
	default:
		return nil, fmt.Errorf("unsupported config file type: %s (expected .yaml, .yml or .toml)", path)
	}
}

// discoverFile looks for a config file in dir, or in the default data dir when dir is empty.
func discoverFile(dir string) string {
	if strings.TrimSpace(dir) == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return ""
		}
		dir = d
	}
	for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
		p := filepath.Join(dir, name)
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}
