// Package config loads petalcall.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/petalcall/tool"
)

const (
	projectConfigName = "petalcall.yaml"
	homeConfigDir     = ".petalcall"
	homeConfigName    = "config.yaml"
)

// Journal drivers.
const (
	JournalNone   = "none"
	JournalMemory = "memory"
	JournalSQLite = "sqlite"
)

// Config is the petalcall.yaml shape.
type Config struct {
	Types     TypesConfig     `yaml:"types"`
	Registry  RegistryConfig  `yaml:"registry"`
	Tools     ToolsConfig     `yaml:"tools"`
	Journal   JournalConfig   `yaml:"journal"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`

	// Path is the file the config was read from, or "" for defaults.
	Path string `yaml:"-"`
}

type TypesConfig struct {
	CaseInsensitiveBooleans bool `yaml:"case_insensitive_booleans"`
}

type RegistryConfig struct {
	DuplicatePolicy string `yaml:"duplicate_policy"`
}

// ToolsConfig selects built-in tools. An empty list enables all of them.
type ToolsConfig struct {
	Builtins []string `yaml:"builtins,omitempty"`
}

type JournalConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path,omitempty"`
	Capacity int    `yaml:"capacity,omitempty"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	ServiceName  string `yaml:"service_name,omitempty"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	Insecure     bool   `yaml:"insecure"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	MaxBody      int64         `yaml:"max_body"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Registry: RegistryConfig{DuplicatePolicy: string(tool.DuplicateReject)},
		Journal: JournalConfig{
			Driver:   JournalMemory,
			Capacity: tool.DefaultJournalCapacity,
		},
		Telemetry: TelemetryConfig{ServiceName: "petalcall"},
		Log:       LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			MaxBody:      1 << 20,
		},
	}
}

// Discover resolves the config location with first-match semantics:
// explicitPath, ./petalcall.yaml, then ~/.petalcall/config.yaml.
func Discover(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverFrom(explicitPath, cwd, homeDir)
}

// DiscoverFrom is a testable variant of Discover.
func DiscoverFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		if homeDir != "" {
			candidates = append(candidates, filepath.Join(homeDir, homeConfigDir, homeConfigName))
		}
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			// An explicit path that does not exist is an error.
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found: %w", candidate, os.ErrNotExist)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// Load discovers and reads the config. A missing file yields Default().
func Load(explicitPath string) (Config, error) {
	path, found, err := Discover(explicitPath)
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFrom is Load with explicit search roots.
func LoadFrom(explicitPath, cwd, homeDir string) (Config, error) {
	path, found, err := DiscoverFrom(explicitPath, cwd, homeDir)
	if err != nil {
		return Config{}, err
	}
	if !found {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates one config file. Keys it omits keep their
// defaults.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Parse decodes YAML over Default() and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return Config{}, fmt.Errorf("parsing yaml: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values and ranges.
func (c Config) Validate() error {
	var errs []error
	if _, err := tool.ParseDuplicatePolicy(c.Registry.DuplicatePolicy); err != nil {
		errs = append(errs, fmt.Errorf("registry.duplicate_policy: %w", err))
	}
	for _, name := range c.Tools.Builtins {
		if !slices.Contains(tool.BuiltinNames(), name) {
			errs = append(errs, fmt.Errorf("tools.builtins: unknown built-in %q", name))
		}
	}
	switch c.Journal.Driver {
	case JournalNone, JournalMemory, "":
	case JournalSQLite:
	default:
		errs = append(errs, fmt.Errorf("journal.driver: unknown driver %q (want none, memory or sqlite)", c.Journal.Driver))
	}
	if c.Journal.Capacity < 0 {
		errs = append(errs, errors.New("journal.capacity: must not be negative"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q (want text or json)", c.Log.Format))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port: %d out of range", c.Server.Port))
	}
	if c.Server.MaxBody < 0 {
		errs = append(errs, errors.New("server.max_body: must not be negative"))
	}
	return errors.Join(errs...)
}

// TypeOptions returns the parser options for the config.
func (c Config) TypeOptions() tool.TypeOptions {
	return tool.TypeOptions{CaseInsensitiveBooleans: c.Types.CaseInsensitiveBooleans}
}

// DuplicatePolicy returns the parsed registry policy.
func (c Config) DuplicatePolicy() tool.DuplicatePolicy {
	policy, err := tool.ParseDuplicatePolicy(c.Registry.DuplicatePolicy)
	if err != nil {
		return tool.DuplicateReject
	}
	return policy
}

// Logger builds a slog logger writing to w. verbose forces debug level.
func (c Config) Logger(w io.Writer, verbose bool) (*slog.Logger, error) {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level: unknown level %q", s)
	}
}
