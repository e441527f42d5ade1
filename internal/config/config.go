package config

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/vango-dev/reactivity/internal/errors"
	"github.com/vango-dev/reactivity/pkg/reactivity"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "reactivity.json"

	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultReadonly   = "warn"
	DefaultAddr       = "127.0.0.1:7070"
	DefaultBuffer     = 1024
	DefaultRate       = 100
	DefaultBurst      = 50
	DefaultNamespace  = "reactivity"
	DefaultPersistDir = ".snapshots"
)

// Config is the contents of reactivity.json.
type Config struct {
	// LogLevel is debug, info, warn or error.
	LogLevel string `json:"logLevel,omitempty"`

	// LogFormat is text or json.
	LogFormat string `json:"logFormat,omitempty"`

	// Readonly is the readonly mutation policy: warn, panic or silent.
	Readonly string `json:"readonly,omitempty"`

	Inspector InspectorConfig `json:"inspector,omitempty"`
	Metrics   MetricsConfig   `json:"metrics,omitempty"`
	Persist   PersistConfig   `json:"persist,omitempty"`

	// configPath is where the config was loaded from, or empty for defaults.
	configPath string
}

// InspectorConfig configures the HTTP inspector started by serve.
type InspectorConfig struct {
	// Addr is the listen address.
	Addr string `json:"addr,omitempty"`

	// Buffer is the number of recent events kept for /events.
	Buffer int `json:"buffer,omitempty"`

	// Rate and Burst limit events per second on each stream client.
	Rate  float64 `json:"rate,omitempty"`
	Burst int     `json:"burst,omitempty"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty"`
}

// PersistConfig selects the snapshot store. S3 wins when a bucket is set.
type PersistConfig struct {
	Dir string   `json:"dir,omitempty"`
	S3  S3Config `json:"s3,omitempty"`
}

// S3Config locates snapshots in a bucket.
type S3Config struct {
	Bucket string `json:"bucket,omitempty"`
	Prefix string `json:"prefix,omitempty"`

	// Region overrides the region from the AWS environment.
	Region string `json:"region,omitempty"`
}

// New returns a Config with default values.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads reactivity.json from dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New("C101").Wrap(err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("C101").
			Wrap(err).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}
	cfg.configPath = path
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the file the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory holding the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Readonly == "" {
		c.Readonly = DefaultReadonly
	}

	if c.Inspector.Addr == "" {
		c.Inspector.Addr = DefaultAddr
	}
	if c.Inspector.Buffer == 0 {
		c.Inspector.Buffer = DefaultBuffer
	}
	if c.Inspector.Rate == 0 {
		c.Inspector.Rate = DefaultRate
	}
	if c.Inspector.Burst == 0 {
		c.Inspector.Burst = DefaultBurst
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Persist.Dir == "" && c.Persist.S3.Bucket == "" {
		c.Persist.Dir = DefaultPersistDir
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return errors.New("C102").WithDetail(`logLevel is "` + c.LogLevel + `"; expected "debug", "info", "warn" or "error".`)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.New("C103").WithDetail(`logFormat is "` + c.LogFormat + `"; expected "text" or "json".`)
	}
	if _, err := c.ReadonlyPolicy(); err != nil {
		return errors.New("C104").Wrap(err)
	}

	if _, _, err := net.SplitHostPort(c.Inspector.Addr); err != nil {
		return errors.New("C105").Wrap(err)
	}
	if c.Inspector.Buffer < 0 || c.Inspector.Rate < 0 || c.Inspector.Burst < 0 {
		return errors.New("C105").WithSuggestion("Remove negative values from the inspector section")
	}

	if strings.HasPrefix(c.Persist.S3.Prefix, "/") {
		return errors.New("C106").WithSuggestion(`Use a prefix such as "snapshots/"`)
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(c.LogLevel))
	return level, err
}

// ReadonlyPolicy parses Readonly.
func (c *Config) ReadonlyPolicy() (reactivity.ReadonlyPolicy, error) {
	return reactivity.ParseReadonlyPolicy(c.Readonly)
}

// NewLogger builds a text or JSON logger writing to w at LogLevel.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := c.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// PersistPath resolves Persist.Dir against the config directory.
func (c *Config) PersistPath() string {
	if filepath.IsAbs(c.Persist.Dir) || c.configPath == "" {
		return c.Persist.Dir
	}
	return filepath.Join(c.Dir(), c.Persist.Dir)
}

// UsesS3 reports whether snapshots go to S3.
func (c *Config) UsesS3() bool {
	return c.Persist.S3.Bucket != ""
}

// Exists reports whether dir holds a reactivity.json.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindConfig walks up from startDir and returns the path of the first
// reactivity.json found, or "" if there is none.
func FindConfig(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}
	for {
		if Exists(dir) {
			return filepath.Join(dir, ConfigFileName), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// LoadFromWorkingDir loads the nearest reactivity.json above the working
// directory, or the defaults if there is none.
func LoadFromWorkingDir() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	path, err := FindConfig(wd)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return New(), nil
	}
	return LoadFile(path)
}
