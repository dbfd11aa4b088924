package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

func homeDirOrFallback() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return home
}

// Config holds all user-configurable settings.
type Config struct {
	// BaseDir is the directory the browser opens and never leaves.
	BaseDir string `json:"base_dir" mapstructure:"base_dir"`
	// ListHeight caps the number of listing rows (0 = fit the terminal).
	ListHeight int `json:"list_height" mapstructure:"list_height"`
	// ShowHidden lists dot files.
	ShowHidden bool `json:"show_hidden" mapstructure:"show_hidden"`
	// LogFile receives the JSON log; "-" logs to stderr.
	LogFile string `json:"log_file" mapstructure:"log_file"`
	// IndexWorkers is how many top-level directories are indexed in parallel.
	IndexWorkers int `json:"index_workers" mapstructure:"index_workers"`
	// ReadsPerSecond rate-limits directory reads while indexing.
	ReadsPerSecond float64 `json:"reads_per_second" mapstructure:"reads_per_second"`
	// SFTPAddr switches the browser to a remote host (host:port).
	SFTPAddr string `json:"sftp_addr" mapstructure:"sftp_addr"`
	// SFTPUser is the remote login name.
	SFTPUser string `json:"sftp_user" mapstructure:"sftp_user"`
	// SFTPKeyFile is a private key used for the remote login.
	SFTPKeyFile string `json:"sftp_key_file" mapstructure:"sftp_key_file"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir:        homeDirOrFallback(),
		ListHeight:     0,
		ShowHidden:     false,
		LogFile:        filepath.Join(ConfigDir(), "dirviewer.log"),
		IndexWorkers:   4,
		ReadsPerSecond: 200,
	}
}

// ConfigDir returns the directory where config and data files are stored.
func ConfigDir() string {
	if dir := os.Getenv("DIRVIEWER_CONFIG_DIR"); dir != "" {
		return dir
	}
	home := homeDirOrFallback()
	return filepath.Join(home, ".config", "dirviewer")
}

// DBPath returns the path to the SQLite index of the local disk.
func DBPath() string {
	return IndexPath("")
}

// IndexPath returns the path to the SQLite index of a backend. The empty key
// is the local disk; remote backends are keyed by their user@host:port.
func IndexPath(key string) string {
	if key == "" {
		return filepath.Join(ConfigDir(), "index.db")
	}
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, key)
	return filepath.Join(ConfigDir(), "index-"+safe+".db")
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.json")
}

func newViper(defaults *Config) *viper.Viper {
	v := viper.New()
	v.SetConfigFile(ConfigPath())
	v.SetConfigType("json")
	v.SetEnvPrefix("DIRVIEWER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("base_dir", defaults.BaseDir)
	v.SetDefault("list_height", defaults.ListHeight)
	v.SetDefault("show_hidden", defaults.ShowHidden)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("index_workers", defaults.IndexWorkers)
	v.SetDefault("reads_per_second", defaults.ReadsPerSecond)
	v.SetDefault("sftp_addr", defaults.SFTPAddr)
	v.SetDefault("sftp_user", defaults.SFTPUser)
	v.SetDefault("sftp_key_file", defaults.SFTPKeyFile)
	return v
}

// Load reads config from disk and the environment. A missing file is created
// with the defaults.
func Load() (*Config, error) {
	defaults := DefaultConfig()
	v := newViper(defaults)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", ConfigPath(), err)
		}
		if err := defaults.Save(); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate fixes up zero values and rejects unusable settings.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseDir) == "" {
		return errors.New("base_dir must not be empty")
	}
	if c.ListHeight < 0 {
		return fmt.Errorf("list_height must be >= 0, got %d", c.ListHeight)
	}
	if c.IndexWorkers < 1 {
		c.IndexWorkers = 1
	}
	if c.ReadsPerSecond <= 0 {
		c.ReadsPerSecond = 200
	}
	if c.SFTPAddr != "" && c.SFTPUser == "" {
		return errors.New("sftp_user is required when sftp_addr is set")
	}
	return nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(), data, 0o644)
}
