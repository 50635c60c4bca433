// Package config handles botbuilder configuration loading.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/edboykin-insight/botbuilder-dotnet/internal/logging"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "botbuilder.yaml"

// Config holds all botbuilder configuration.
type Config struct {
	// Bot is the dialog definition: a YAML file or a directory of them.
	Bot string `yaml:"bot"`

	LogLevel string `yaml:"log_level"`
	// LogFile receives JSON log lines in addition to stderr.
	LogFile string `yaml:"log_file"`

	StrictRecognition bool `yaml:"strict_recognition"`
	MaxSteps          int  `yaml:"max_steps"`

	Storage StorageConfig `yaml:"storage"`
	HTTP    HTTPConfig    `yaml:"http"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// StorageConfig selects and configures the state backend.
type StorageConfig struct {
	// Driver is one of memory, file, sqlite, redis.
	Driver string `yaml:"driver"`
	// Path is the directory of the file driver or the DSN of the sqlite driver.
	Path  string      `yaml:"path"`
	Redis RedisConfig `yaml:"redis"`

	// EncryptionKey enables AES-GCM encryption of stored values. It is a
	// passphrase; the AES key is derived from it.
	EncryptionKey string `yaml:"encryption_key"`
	// PreviousKeys still decrypt values written before a key rotation.
	PreviousKeys []string `yaml:"previous_keys"`
	// MaskKeys lists regular expressions of object keys hidden by `state inspect`.
	MaskKeys []string `yaml:"mask_keys"`
}

// RedisConfig configures the redis driver.
type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	TTL      time.Duration `yaml:"ttl"`
	// Lock serializes turns of a conversation across replicas.
	Lock    bool          `yaml:"lock"`
	LockTTL time.Duration `yaml:"lock_ttl"`
}

// HTTPConfig configures the serve command.
type HTTPConfig struct {
	Address        string        `yaml:"address"`
	MaxInputSize   int           `yaml:"max_input_size"`
	TurnTimeout    time.Duration `yaml:"turn_timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	Channel        string        `yaml:"channel"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Bot:      ".",
		LogLevel: "info",
		Storage: StorageConfig{
			Driver: "file",
		},
		HTTP: HTTPConfig{
			Address:     ":8080",
			TurnTimeout: 30 * time.Second,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// Load reads path over the defaults. Environment variables referenced as
// ${VAR} are expanded, then BOTBUILDER_* overrides are applied. A missing
// file is not an error when path is DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := os.ExpandEnv(string(data))
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
	default:
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// LoadEnv loads .env files into the process environment. Missing files are
// ignored; variables already set win.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"BOTBUILDER_BOT":            &c.Bot,
		"BOTBUILDER_LOG_LEVEL":      &c.LogLevel,
		"BOTBUILDER_LOG_FILE":       &c.LogFile,
		"BOTBUILDER_STORAGE":        &c.Storage.Driver,
		"BOTBUILDER_STORAGE_PATH":   &c.Storage.Path,
		"BOTBUILDER_REDIS_ADDR":     &c.Storage.Redis.Address,
		"BOTBUILDER_REDIS_PASSWORD": &c.Storage.Redis.Password,
		"BOTBUILDER_ENCRYPTION_KEY": &c.Storage.EncryptionKey,
		"BOTBUILDER_HTTP_ADDR":      &c.HTTP.Address,
	}
	for name, dst := range strs {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"BOTBUILDER_REDIS_DB":       &c.Storage.Redis.DB,
		"BOTBUILDER_MAX_INPUT_SIZE": &c.HTTP.MaxInputSize,
		"BOTBUILDER_MAX_STEPS":      &c.MaxSteps,
	}
	for name, dst := range ints {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv("BOTBUILDER_STRICT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BOTBUILDER_STRICT: %w", err)
		}
		c.StrictRecognition = b
	}
	return nil
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	if _, err := c.Level(); err != nil {
		return err
	}
	switch c.Storage.Driver {
	case "memory", "file", "sqlite":
	case "redis":
		if c.Storage.Redis.Address == "" {
			return errors.New("storage.redis.address is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q (valid: memory, file, sqlite, redis)", c.Storage.Driver)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("max_steps must not be negative, got %d", c.MaxSteps)
	}
	return nil
}

// Level returns the parsed log level.
func (c *Config) Level() (slog.Level, error) {
	return logging.ParseLevel(c.LogLevel)
}
