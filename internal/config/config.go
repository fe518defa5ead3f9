// Package config resolves hmb settings from the config file, HMB_*
// environment variables and defaults, in rising order of precedence:
// defaults, config file, environment, command-line flags.
//
// Remote connection settings are read from the environment only, with the
// variable names the mobile and server builds already use.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/helpmebuyapp/helpmebuy/internal/remote"
	"github.com/helpmebuyapp/helpmebuy/internal/task"
)

// EnvPrefix prefixes every environment override, e.g. HMB_DB_PATH.
const EnvPrefix = "HMB"

// DirName is the per-user directory holding the database, logs and config.
const DirName = ".helpmebuy"

// DBFile is the database file name inside DirName.
const DBFile = "hmb.db"

// Config is the resolved configuration.
type Config struct {
	DB        DBConfig        `mapstructure:"db"`
	Log       LogConfig       `mapstructure:"log"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Tasks     TasksConfig     `mapstructure:"tasks"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`

	// Offline replaces the remote mirror with an empty in-memory store.
	Offline bool `mapstructure:"offline"`

	// Remote is filled from the environment by RemoteFromEnv.
	Remote remote.Config `mapstructure:"-"`

	// File is the config file that was read, if any.
	File string `mapstructure:"-"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type SyncConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Debounce time.Duration `mapstructure:"debounce"`
}

type TasksConfig struct {
	Deadline    time.Duration `mapstructure:"deadline"`
	MaxInFlight int           `mapstructure:"max_inflight"`
}

type DashboardConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Dir returns $HOME/.helpmebuy.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to find home directory: %w", err)
	}
	return filepath.Join(home, DirName), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// setDefaults registers every key so environment overrides resolve even
// when no config file mentions them.
func setDefaults(v *viper.Viper, dir string) {
	v.SetDefault("db.path", filepath.Join(dir, DBFile))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(dir, "hmb.log"))
	v.SetDefault("sync.interval", 5*time.Minute)
	v.SetDefault("sync.debounce", 2*time.Second)
	v.SetDefault("tasks.deadline", task.DefaultDeadline)
	v.SetDefault("tasks.max_inflight", task.DefaultMaxInFlight)
	v.SetDefault("dashboard.host", "127.0.0.1")
	v.SetDefault("dashboard.port", 8080)
	v.SetDefault("offline", false)
}

// Load resolves the configuration. An empty path means the default
// location, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return load(path, dir)
}

func load(path, dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v, dir)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(dir, "config.toml")
	}

	file := path
	if _, err := os.Stat(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		file = ""
	}

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = file

	rc, err := RemoteFromEnv()
	if err != nil {
		return nil, err
	}
	cfg.Remote = rc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DB.Path) == "" {
		return fmt.Errorf("db.path must not be empty")
	}
	if c.Sync.Interval < 0 || c.Sync.Debounce < 0 {
		return fmt.Errorf("sync.interval and sync.debounce must not be negative")
	}
	if c.Tasks.Deadline <= 0 {
		return fmt.Errorf("tasks.deadline must be positive (got %s)", c.Tasks.Deadline)
	}
	if c.Tasks.MaxInFlight <= 0 {
		return fmt.Errorf("tasks.max_inflight must be positive (got %d)", c.Tasks.MaxInFlight)
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		return fmt.Errorf("dashboard.port out of range (got %d)", c.Dashboard.Port)
	}
	return nil
}

// RemoteFromEnv reads the remote connection settings from HMB_DDB_TABLE,
// AWS_ENDPOINT, AWS_DEFAULT_REGION and HMB_REMOTE_TIMEOUT.
func RemoteFromEnv() (remote.Config, error) {
	var rc remote.Config
	if err := env.Parse(&rc); err != nil {
		return remote.Config{}, fmt.Errorf("parse env: %w", err)
	}
	return rc, nil
}

// fileLayout is the on-disk shape written by WriteDefault. Durations are
// strings so the file stays readable.
type fileLayout struct {
	Offline bool `toml:"offline"`
	DB      struct {
		Path string `toml:"path"`
	} `toml:"db"`
	Log struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
	Sync struct {
		Interval string `toml:"interval"`
		Debounce string `toml:"debounce"`
	} `toml:"sync"`
	Tasks struct {
		Deadline    string `toml:"deadline"`
		MaxInFlight int    `toml:"max_inflight"`
	} `toml:"tasks"`
	Dashboard struct {
		Host string `toml:"host"`
		Port int    `toml:"port"`
	} `toml:"dashboard"`
}

func defaultIn(dir string) *Config {
	return &Config{
		DB:        DBConfig{Path: filepath.Join(dir, DBFile)},
		Log:       LogConfig{Level: "info", File: filepath.Join(dir, "hmb.log")},
		Sync:      SyncConfig{Interval: 5 * time.Minute, Debounce: 2 * time.Second},
		Tasks:     TasksConfig{Deadline: task.DefaultDeadline, MaxInFlight: task.DefaultMaxInFlight},
		Dashboard: DashboardConfig{Host: "127.0.0.1", Port: 8080},
		Remote:    remote.DefaultConfig(),
	}
}

// Encode renders c in the config file format.
func (c *Config) Encode() ([]byte, error) {
	var f fileLayout
	f.Offline = c.Offline
	f.DB.Path = c.DB.Path
	f.Log.Level = c.Log.Level
	f.Log.File = c.Log.File
	f.Sync.Interval = c.Sync.Interval.String()
	f.Sync.Debounce = c.Sync.Debounce.String()
	f.Tasks.Deadline = c.Tasks.Deadline.String()
	f.Tasks.MaxInFlight = c.Tasks.MaxInFlight
	f.Dashboard.Host = c.Dashboard.Host
	f.Dashboard.Port = c.Dashboard.Port

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// ErrExists is returned by WriteDefault when the file is already there.
var ErrExists = errors.New("config file already exists")

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return writeDefault(path, dir, force)
}

func writeDefault(path, dir string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
	}

	data, err := defaultIn(dir).Encode()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
