// Package config provides configuration management for Refract Studio.
// Values come from built-in defaults, then an optional TOML file in the data
// directory, then environment variables.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const (
	// Default values
	DefaultPort     = 8790
	DefaultLogLevel = "info"
	DefaultDataDir  = ".refract"

	// Environment variable names
	EnvPort       = "REFRACT_PORT"
	EnvLogLevel   = "REFRACT_LOG_LEVEL"
	EnvLogFormat  = "REFRACT_LOG_FORMAT"
	EnvDataDir    = "REFRACT_DATA_DIR"
	EnvConfigFile = "REFRACT_CONFIG"
	EnvHeadless   = "REFRACT_HEADLESS"
	EnvMediaDir   = "REFRACT_MEDIA_DIR"

	// File names inside the data directory
	DBFilename     = "refract.db"
	ConfigFilename = "refract.toml"
	LockFilename   = "refract.lock"

	// Editor defaults
	DefaultClipSeconds      = 10.0
	DefaultGridSeconds      = 1.0
	DefaultPixelsPerSecond  = 20.0
	DefaultZoom             = 1.0
	DefaultTickMillis       = 100
	DefaultDragLeaseMillis  = 5000
	DefaultMaxSessions      = 32
	DefaultProbeTimeoutSecs = 10
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	LogFormat() string
	DataDir() string
	DBPath() string
	LockPath() string
	ConfigPath() string
	MediaDir() string
	Headless() bool
	Editor() Editor
}

// Server holds the HTTP listener settings.
type Server struct {
	Port     int    `toml:"port"`
	Headless bool   `toml:"headless"`
	MediaDir string `toml:"media_dir"`
}

// Logging holds log output settings. Format is "json", "text" or "auto".
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Editor holds the timeline editor defaults applied to new sessions.
type Editor struct {
	DefaultClipSeconds float64 `toml:"default_clip_seconds"`
	GridSeconds        float64 `toml:"grid_seconds"`
	Snap               bool    `toml:"snap"`
	PixelsPerSecond    float64 `toml:"pixels_per_second"`
	Zoom               float64 `toml:"zoom"`
	TickMillis         int     `toml:"tick_millis"`
	DragLeaseMillis    int     `toml:"drag_lease_millis"`
	MaxSessions        int     `toml:"max_sessions"`
	ProbeTimeoutSecs   int     `toml:"probe_timeout_seconds"`
}

func (e Editor) TickInterval() time.Duration {
	return time.Duration(e.TickMillis) * time.Millisecond
}

func (e Editor) DragLease() time.Duration {
	return time.Duration(e.DragLeaseMillis) * time.Millisecond
}

func (e Editor) ProbeTimeout() time.Duration {
	return time.Duration(e.ProbeTimeoutSecs) * time.Second
}

// File is the on-disk TOML layout.
type File struct {
	Server  Server  `toml:"server"`
	Logging Logging `toml:"logging"`
	Editor  Editor  `toml:"editor"`
}

// Default returns the built-in configuration.
func Default() File {
	return File{
		Server: Server{Port: DefaultPort},
		Logging: Logging{
			Level:  DefaultLogLevel,
			Format: "auto",
		},
		Editor: DefaultEditor(),
	}
}

func DefaultEditor() Editor {
	return Editor{
		DefaultClipSeconds: DefaultClipSeconds,
		GridSeconds:        DefaultGridSeconds,
		Snap:               true,
		PixelsPerSecond:    DefaultPixelsPerSecond,
		Zoom:               DefaultZoom,
		TickMillis:         DefaultTickMillis,
		DragLeaseMillis:    DefaultDragLeaseMillis,
		MaxSessions:        DefaultMaxSessions,
		ProbeTimeoutSecs:   DefaultProbeTimeoutSecs,
	}
}

// AppConfig is the resolved configuration
type AppConfig struct {
	file       File
	dataDir    string
	configPath string
	fromFile   bool
}

// New creates an AppConfig from defaults, the config file and environment
// variable overrides.
func New() (*AppConfig, error) {
	cfg := &AppConfig{
		file:       Default(),
		dataDir:    dataDir(),
		configPath: DefaultConfigPath(),
	}

	loaded, exists, err := LoadFile(cfg.configPath)
	if err != nil {
		return nil, err
	}
	cfg.file = loaded
	cfg.fromFile = exists

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.file.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile decodes path on top of the defaults. A missing file is not an
// error; exists reports whether it was found.
func LoadFile(path string) (File, bool, error) {
	f := Default()

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return f, false, nil
		}
		return f, false, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := toml.NewDecoder(file).Decode(&f); err != nil {
		return f, true, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, true, nil
}

func (c *AppConfig) applyEnv() error {
	// Override port from environment
	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		c.file.Server.Port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		c.file.Logging.Level = ll
	}

	if lf := os.Getenv(EnvLogFormat); lf != "" {
		c.file.Logging.Format = lf
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		c.file.Server.Headless = headless
	}

	if md := os.Getenv(EnvMediaDir); md != "" {
		c.file.Server.MediaDir = md
	}

	return nil
}

// Validate checks ranges that would otherwise fail later at runtime.
func (f File) Validate() error {
	if f.Server.Port < 1 || f.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d: port must be between 1 and 65535", f.Server.Port)
	}
	switch strings.ToLower(f.Logging.Format) {
	case "", "auto", "json", "text":
	default:
		return fmt.Errorf("invalid log format %q: want json, text or auto", f.Logging.Format)
	}
	return f.Editor.Validate()
}

func (e Editor) Validate() error {
	if e.DefaultClipSeconds <= 0 {
		return fmt.Errorf("editor.default_clip_seconds must be positive")
	}
	if e.GridSeconds <= 0 {
		return fmt.Errorf("editor.grid_seconds must be positive")
	}
	if e.PixelsPerSecond <= 0 {
		return fmt.Errorf("editor.pixels_per_second must be positive")
	}
	if e.Zoom < 0.25 || e.Zoom > 4 {
		return fmt.Errorf("editor.zoom must be between 0.25 and 4")
	}
	if e.TickMillis <= 0 {
		return fmt.Errorf("editor.tick_millis must be positive")
	}
	if e.DragLeaseMillis <= 0 {
		return fmt.Errorf("editor.drag_lease_millis must be positive")
	}
	if e.MaxSessions <= 0 {
		return fmt.Errorf("editor.max_sessions must be positive")
	}
	if e.ProbeTimeoutSecs <= 0 {
		return fmt.Errorf("editor.probe_timeout_seconds must be positive")
	}
	return nil
}

// Port returns the HTTP server port
func (c *AppConfig) Port() int {
	return c.file.Server.Port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *AppConfig) LogLevel() string {
	return c.file.Logging.Level
}

func (c *AppConfig) LogFormat() string {
	return c.file.Logging.Format
}

// DataDir returns the data directory path
func (c *AppConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *AppConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

func (c *AppConfig) LockPath() string {
	return filepath.Join(c.dataDir, LockFilename)
}

// ConfigPath returns the config file location, whether or not it exists.
func (c *AppConfig) ConfigPath() string {
	return c.configPath
}

// FromFile reports whether a config file was found and loaded.
func (c *AppConfig) FromFile() bool {
	return c.fromFile
}

// MediaDir limits which local files clip previews may stream. Empty means
// the data directory's media folder.
func (c *AppConfig) MediaDir() string {
	if c.file.Server.MediaDir != "" {
		return c.file.Server.MediaDir
	}
	return filepath.Join(c.dataDir, "media")
}

func (c *AppConfig) Headless() bool {
	return c.file.Server.Headless
}

func (c *AppConfig) Editor() Editor {
	return c.file.Editor
}

// CreateSample writes a sample configuration file to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// DefaultConfigPath is $REFRACT_CONFIG, or refract.toml in the data dir.
func DefaultConfigPath() string {
	if cp := os.Getenv(EnvConfigFile); cp != "" {
		return cp
	}
	return filepath.Join(dataDir(), ConfigFilename)
}

func dataDir() string {
	if dd := os.Getenv(EnvDataDir); dd != "" {
		return dd
	}
	return defaultDataDir()
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

// Version information (set at build time via ldflags)
var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)
