package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents ~/.talc/config.toml: UI preferences only. API
// credentials and session material belong to the backend layer, not
// here.
type Config struct {
	LogPath      string `toml:"log_path"`
	MessageLimit int    `toml:"message_limit"`
	DemoMode     bool   `toml:"demo_mode"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogPath:      filepath.Join(baseDir(), "talc.log"),
		MessageLimit: 100,
		DemoMode:     true,
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(baseDir(), "config.toml")
}

func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".talc")
}

// Load reads config from the given path. Missing file returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 100
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}
