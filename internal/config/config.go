// Package config loads codelens' runtime configuration by layering
// built-in defaults, an optional project config file, and environment
// overrides, using koanf as the provider/parser substrate.
package config

import (
	"log"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/confmap"
	env "github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/codelens-dev/codelens/pkg/xerrors"
)

var configLog = log.New(os.Stderr, "[codelens:config] ", log.Ltime)

// EnvPrefix is stripped from environment variable names before they are
// folded into the config tree, e.g. CODELENS_WORKER_POOL_SIZE becomes
// worker_pool_size.
const EnvPrefix = "CODELENS_"

// Config is the fully resolved, layered runtime configuration.
type Config struct {
	IndexDir       string        `koanf:"index_dir"`
	Roots          []string      `koanf:"roots"`
	IgnoreFile     string        `koanf:"ignore_file"`
	GrammarDir     string        `koanf:"grammar_dir"`
	AutoDownload   bool          `koanf:"auto_download"`
	EmbedderModel  string        `koanf:"embedder_model"`
	DebounceDelay  time.Duration `koanf:"debounce_delay"`
	WorkerPoolSize int           `koanf:"worker_pool_size"`
}

// DefaultConfig returns the built-in defaults as a plain map, suitable for
// seeding koanf's confmap provider as the lowest-priority layer.
func DefaultConfig() map[string]any {
	return map[string]any{
		"index_dir":        ".codelens",
		"roots":            []string{},
		"ignore_file":      ".codelensignore",
		"grammar_dir":      ".codelens/grammars",
		"auto_download":    true,
		"embedder_model":   "hash-256",
		"debounce_delay":   2 * time.Second,
		"worker_pool_size": runtime.NumCPU(),
	}
}

// Load resolves a Config from, in increasing priority: built-in defaults,
// the JSON file at path (skipped if path is empty or the file doesn't
// exist), and CODELENS_-prefixed environment variables.
func Load(path string) (*Config, error) {
	return load(path)
}

// LoadFromFile is like Load but treats a missing file at path as an error
// instead of silently falling back to defaults.
func LoadFromFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, xerrors.Wrap(xerrors.ConfigError, "check the config file path", err, "config file %s", path)
	}
	return load(path)
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(DefaultConfig(), "."), nil); err != nil {
		return nil, xerrors.Wrap(xerrors.ConfigError, "this is a bug in the built-in defaults, not your config", err, "loading default config")
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), json.Parser()); err != nil {
				return nil, xerrors.Wrap(xerrors.ConfigError, "check that "+path+" is valid JSON", err, "loading config file %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, xerrors.Wrap(xerrors.ConfigError, "check file permissions on "+path, err, "statting config file %s", path)
		}
	}

	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		trimmed := strings.TrimPrefix(s, EnvPrefix)
		return strings.ToLower(trimmed)
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, xerrors.Wrap(xerrors.ConfigError, "check CODELENS_-prefixed environment variables", err, "loading environment overrides")
	}

	var cfg Config
	decodeConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, decodeConf); err != nil {
		return nil, xerrors.Wrap(xerrors.ConfigError, "check config value types against their documented defaults", err, "unmarshalling config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configLog.Printf("loaded config: index_dir=%s roots=%d worker_pool_size=%d", cfg.IndexDir, len(cfg.Roots), cfg.WorkerPoolSize)
	return &cfg, nil
}

// Validate checks that the configuration has valid required fields.
func (c *Config) Validate() error {
	if c.WorkerPoolSize < 1 {
		return xerrors.New(xerrors.ConfigError, "set worker_pool_size to a positive integer", "worker_pool_size must be >= 1, got %d", c.WorkerPoolSize)
	}
	if c.IndexDir == "" {
		return xerrors.New(xerrors.ConfigError, "set index_dir to a writable directory path", "index_dir must not be empty")
	}
	if c.DebounceDelay < 0 {
		return xerrors.New(xerrors.ConfigError, "set debounce_delay to a non-negative duration", "debounce_delay must be >= 0, got %s", c.DebounceDelay)
	}
	return nil
}
