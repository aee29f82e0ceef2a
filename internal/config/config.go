// Package config loads ormcore settings from .ormcore.yaml, ORMCORE_*
// environment variables and .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/satishbabariya/ormcore/internal/adapters/database/factory"
	"github.com/satishbabariya/ormcore/internal/core/persister"
	"github.com/satishbabariya/ormcore/internal/debug"
	"github.com/satishbabariya/ormcore/pkg/client"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// AppFs is the filesystem configuration is read from.
var AppFs = afero.NewOsFs()

// ErrNoConfigFile is returned by Watch when no config file was loaded.
var ErrNoConfigFile = errors.New("no config file in use")

const (
	// FileName is the config file name without extension.
	FileName = ".ormcore"
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "ORMCORE"
)

// Config holds the application configuration.
type Config struct {
	Database DatabaseConfig
	Batch    BatchConfig
	Debug    bool
	// File is the config file that was read, if any.
	File string
}

// DatabaseConfig selects and tunes the database connection.
type DatabaseConfig struct {
	Provider       string
	URL            string
	MaxConnections int
	MaxIdleTime    time.Duration
	ConnectTimeout time.Duration
	ConnectRetries int
}

// BatchConfig tunes batch loading.
type BatchConfig struct {
	DefaultSize int
	MaxSize     int
	Strategy    string
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Provider:       "postgres",
			MaxConnections: 25,
			MaxIdleTime:    10 * time.Minute,
			ConnectTimeout: 10 * time.Second,
		},
		Batch: BatchConfig{
			DefaultSize: 16,
			MaxSize:     256,
			Strategy:    "auto",
		},
	}
}

// Loader reads configuration through its own viper instance.
type Loader struct {
	v      *viper.Viper
	fs     afero.Fs
	file   string
	dotenv map[string]string
}

// New creates a loader on fs.
func New(fs afero.Fs) *Loader {
	v := viper.New()
	v.SetFs(fs)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range Default().settings() {
		v.SetDefault(key, value)
	}
	return &Loader{v: v, fs: fs, dotenv: map[string]string{}}
}

// SetConfigFile reads path instead of searching for .ormcore.yaml.
func (l *Loader) SetConfigFile(path string) {
	l.file = path
}

// Load loads configuration from various sources. Precedence, highest first:
// ORMCORE_* environment, .env.local, .env, config file, defaults. The
// database URL falls back to DATABASE_URL.
func Load() (*Config, error) {
	return New(AppFs).Load()
}

// Load reads all sources and validates the result.
func (l *Loader) Load() (*Config, error) {
	if err := l.readConfigFile(); err != nil {
		return nil, err
	}
	if err := l.readDotenv(); err != nil {
		return nil, err
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) readConfigFile() error {
	if l.file != "" {
		l.v.SetConfigFile(l.file)
		if err := l.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config %s: %w", l.file, err)
		}
		return nil
	}

	l.v.SetConfigName(FileName)
	l.v.SetConfigType("yaml")
	l.v.AddConfigPath(".")
	if home, err := homedir.Dir(); err == nil {
		l.v.AddConfigPath(home)
		l.v.AddConfigPath(filepath.Join(home, ".config", "ormcore"))
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

// readDotenv applies .env and then .env.local. Values never override
// variables already present in the process environment.
func (l *Loader) readDotenv() error {
	for _, name := range []string{".env", ".env.local"} {
		f, err := l.fs.Open(name)
		if err != nil {
			continue
		}
		values, err := godotenv.Parse(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", name, err)
		}
		for k, v := range values {
			l.dotenv[k] = v
		}
		debug.Debug("Loaded env file", "file", name, "keys", len(values))
	}

	for key := range Default().settings() {
		name := envName(key)
		if os.Getenv(name) != "" {
			continue
		}
		if value, ok := l.dotenv[name]; ok {
			l.v.Set(key, value)
		}
	}
	return nil
}

func (l *Loader) lookup(name string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return l.dotenv[name]
}

func (l *Loader) decode() (*Config, error) {
	idle, err := l.duration("database.max_idle_time")
	if err != nil {
		return nil, err
	}
	timeout, err := l.duration("database.connect_timeout")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Provider:       l.v.GetString("database.provider"),
			URL:            l.v.GetString("database.url"),
			MaxConnections: l.v.GetInt("database.max_connections"),
			MaxIdleTime:    idle,
			ConnectTimeout: timeout,
			ConnectRetries: l.v.GetInt("database.connect_retries"),
		},
		Batch: BatchConfig{
			DefaultSize: l.v.GetInt("batch.default_size"),
			MaxSize:     l.v.GetInt("batch.max_size"),
			Strategy:    l.v.GetString("batch.strategy"),
		},
		Debug: l.v.GetBool("debug"),
		File:  l.v.ConfigFileUsed(),
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = l.lookup("DATABASE_URL")
	}
	return cfg, nil
}

func (l *Loader) duration(key string) (time.Duration, error) {
	raw := l.v.GetString(key)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}

// Watch calls onChange with the reloaded configuration whenever the config
// file is written.
func (l *Loader) Watch(onChange func(*Config, error)) error {
	if l.v.ConfigFileUsed() == "" {
		return ErrNoConfigFile
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		debug.Info("Config file changed", "file", e.Name, "op", e.Op.String())
		cfg, err := l.decode()
		if err == nil {
			err = cfg.Validate()
		}
		onChange(cfg, err)
	})
	l.v.WatchConfig()
	return nil
}

// Save writes cfg as YAML to path.
func (l *Loader) Save(cfg *Config, path string) error {
	for key, value := range cfg.settings() {
		l.v.Set(key, value)
	}
	if err := l.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return l.v.WriteConfigAs(path)
}

// DefaultPath returns ~/.config/ormcore/.ormcore.yaml.
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ormcore", FileName+".yaml"), nil
}

func (c *Config) settings() map[string]any {
	return map[string]any{
		"database.provider":        c.Database.Provider,
		"database.url":             c.Database.URL,
		"database.max_connections": c.Database.MaxConnections,
		"database.max_idle_time":   c.Database.MaxIdleTime.String(),
		"database.connect_timeout": c.Database.ConnectTimeout.String(),
		"database.connect_retries": c.Database.ConnectRetries,
		"batch.default_size":       c.Batch.DefaultSize,
		"batch.max_size":           c.Batch.MaxSize,
		"batch.strategy":           c.Batch.Strategy,
		"debug":                    c.Debug,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if !knownProvider(c.Database.Provider) {
		errs = append(errs, fmt.Errorf("database.provider %q is not supported (supported: %s)",
			c.Database.Provider, strings.Join(factory.Providers(), ", ")))
	}
	if c.Database.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("database.max_connections must not be negative"))
	}
	if c.Database.ConnectRetries < 0 {
		errs = append(errs, fmt.Errorf("database.connect_retries must not be negative"))
	}
	if c.Database.MaxIdleTime < 0 || c.Database.ConnectTimeout < 0 {
		errs = append(errs, fmt.Errorf("database durations must not be negative"))
	}
	if c.Batch.DefaultSize < 0 || c.Batch.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("batch sizes must not be negative"))
	}
	if c.Batch.MaxSize > 0 && c.Batch.DefaultSize > c.Batch.MaxSize {
		errs = append(errs, fmt.Errorf("batch.default_size %d exceeds batch.max_size %d", c.Batch.DefaultSize, c.Batch.MaxSize))
	}
	if _, err := persister.ParseStrategy(c.Batch.Strategy); err != nil {
		errs = append(errs, fmt.Errorf("batch.strategy: %w", err))
	}

	return errors.Join(errs...)
}

// ClientOptions converts the batch and pool settings into client options.
func (c *Config) ClientOptions() []client.Option {
	return []client.Option{
		client.WithDefaultBatchSize(c.Batch.DefaultSize),
		client.WithMaxBatchSize(c.Batch.MaxSize),
		client.WithStrategy(c.Batch.Strategy),
		client.WithMaxConnections(c.Database.MaxConnections),
		client.WithMaxIdleTime(c.Database.MaxIdleTime),
		client.WithConnectTimeout(c.Database.ConnectTimeout),
		client.WithConnectRetries(c.Database.ConnectRetries),
	}
}

func knownProvider(provider string) bool {
	provider = strings.ToLower(provider)
	for _, p := range factory.Providers() {
		if p == provider {
			return true
		}
	}
	return false
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
