package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/petal-labs/petalcall/tool"
)

func TestDiscoverFrom_FirstMatchWins(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	projectConfig := filepath.Join(cwd, "petalcall.yaml")
	if err := os.WriteFile(projectConfig, []byte("log: {level: debug}"), 0o600); err != nil {
		t.Fatalf("WriteFile(project config) error = %v", err)
	}

	homeDir := filepath.Join(home, ".petalcall")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("MkdirAll(home config dir) error = %v", err)
	}
	homeConfig := filepath.Join(homeDir, "config.yaml")
	if err := os.WriteFile(homeConfig, []byte("log: {level: error}"), 0o600); err != nil {
		t.Fatalf("WriteFile(home config) error = %v", err)
	}

	got, found, err := DiscoverFrom("", cwd, home)
	if err != nil {
		t.Fatalf("DiscoverFrom() error = %v", err)
	}
	if !found {
		t.Fatal("found = false, want true")
	}
	if got != projectConfig {
		t.Fatalf("path = %q, want %q", got, projectConfig)
	}

	if err := os.Remove(projectConfig); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	got, found, err = DiscoverFrom("", cwd, home)
	if err != nil || !found || got != homeConfig {
		t.Fatalf("DiscoverFrom() = %q, %v, %v, want home config", got, found, err)
	}
}

func TestDiscoverFrom_ExplicitNotFound(t *testing.T) {
	_, found, err := DiscoverFrom(filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir(), t.TempDir())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("DiscoverFrom() error = %v, want not-exist", err)
	}
	if found {
		t.Fatal("found = true, want false")
	}
}

func TestLoadFromMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom("", t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom() error = %v", err)
	}
	if cfg.Path != "" {
		t.Fatalf("Path = %q, want empty", cfg.Path)
	}
	if cfg.DuplicatePolicy() != tool.DuplicateReject {
		t.Fatalf("DuplicatePolicy() = %q, want reject", cfg.DuplicatePolicy())
	}
	if cfg.Journal.Driver != JournalMemory || cfg.Server.Port != 8080 {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petalcall.yaml")
	yamlText := `
types:
  case_insensitive_booleans: true
registry:
  duplicate_policy: replace
tools:
  builtins: [process_values]
journal:
  driver: sqlite
  path: ./journal.db
log:
  level: debug
  format: json
server:
  port: 9090
  read_timeout: 5s
`
	if err := os.WriteFile(path, []byte(yamlText), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !cfg.TypeOptions().CaseInsensitiveBooleans {
		t.Fatal("CaseInsensitiveBooleans = false, want true")
	}
	if cfg.DuplicatePolicy() != tool.DuplicateReplace {
		t.Fatalf("DuplicatePolicy() = %q, want replace", cfg.DuplicatePolicy())
	}
	if cfg.Journal.Driver != JournalSQLite || cfg.Journal.Path != "./journal.db" {
		t.Fatalf("Journal = %+v", cfg.Journal)
	}
	if cfg.Server.Port != 9090 || cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("Server = %+v", cfg.Server)
	}
	if cfg.Server.WriteTimeout != 60*time.Second {
		t.Fatalf("WriteTimeout = %v, want default 60s", cfg.Server.WriteTimeout)
	}
	if cfg.Path != path {
		t.Fatalf("Path = %q, want %q", cfg.Path, path)
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{name: "policy", yaml: "registry: {duplicate_policy: merge}", want: "registry.duplicate_policy"},
		{name: "driver", yaml: "journal: {driver: redis}", want: "journal.driver"},
		{name: "level", yaml: "log: {level: loud}", want: "log.level"},
		{name: "format", yaml: "log: {format: xml}", want: "log.format"},
		{name: "port", yaml: "server: {port: 70000}", want: "server.port"},
		{name: "builtin", yaml: "tools: {builtins: [nope]}", want: "tools.builtins"},
		{name: "unknown key", yaml: "registery: {}", want: "registery"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Parse() error = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.Log.Format = "json"

	logger, err := cfg.Logger(&buf, false)
	if err != nil {
		t.Fatalf("Logger() error = %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown", "tool", "process_values")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record written at info level: %s", out)
	}
	if !strings.Contains(out, `"tool":"process_values"`) {
		t.Fatalf("output = %s, want JSON record", out)
	}

	buf.Reset()
	logger, err = Default().Logger(&buf, true)
	if err != nil {
		t.Fatalf("Logger(verbose) error = %v", err)
	}
	logger.Debug("visible")
	if !strings.Contains(buf.String(), "msg=visible") {
		t.Fatalf("output = %q, want text debug record", buf.String())
	}
}
