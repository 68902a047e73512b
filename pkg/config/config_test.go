package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/contactpic/internal/bytesize"
	"github.com/marmos91/contactpic/pkg/directory"
)

// yamlSafePath converts a filesystem path to a YAML-safe representation.
// On Windows, backslashes in double-quoted YAML strings are interpreted as
// escape sequences (e.g. \U -> Unicode escape), causing parse errors.
func yamlSafePath(p string) string {
	return filepath.ToSlash(p)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, `
logging:
  level: "debug"

avatar:
  picture_size: 96
  fetch_timeout: 2s

cache:
  capacity: 8Mi

directory:
  type: static
  static:
    path: "`+yamlSafePath(tmpDir)+`/contacts.yaml"
    watch: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected level normalized to 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Avatar.PictureSize != 96 {
		t.Errorf("Expected picture size 96, got %d", cfg.Avatar.PictureSize)
	}
	if cfg.Avatar.FetchTimeout != 2*time.Second {
		t.Errorf("Expected fetch timeout 2s, got %v", cfg.Avatar.FetchTimeout)
	}
	if cfg.Avatar.Workers != 4 {
		t.Errorf("Expected default workers 4, got %d", cfg.Avatar.Workers)
	}
	if cfg.Cache.Capacity != 8*bytesize.MiB {
		t.Errorf("Expected capacity 8Mi, got %s", cfg.Cache.Capacity)
	}
	if cfg.Directory.Type != directory.TypeStatic || !cfg.Directory.Static.Watch {
		t.Errorf("Expected watched static directory, got %+v", cfg.Directory)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Avatar.PictureSize != DefaultPictureSize {
		t.Errorf("Expected default picture size %d, got %d", DefaultPictureSize, cfg.Avatar.PictureSize)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("CONTACTPIC_CACHE_CAPACITY", "2Mi")
	t.Setenv("CONTACTPIC_AVATAR_WORKERS", "9")
	t.Setenv("CONTACTPIC_SERVER_PORT", "9999")
	t.Setenv("CONTACTPIC_TELEMETRY_PROFILING_PROFILE_TYPES", "cpu,goroutines")

	// No file: overrides still apply on top of defaults.
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Cache.Capacity != 2*bytesize.MiB {
		t.Errorf("Expected capacity 2Mi from env, got %s", cfg.Cache.Capacity)
	}
	if cfg.Avatar.Workers != 9 {
		t.Errorf("Expected 9 workers from env, got %d", cfg.Avatar.Workers)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Expected port 9999 from env, got %d", cfg.Server.Port)
	}
	if got := cfg.Telemetry.Profiling.ProfileTypes; len(got) != 2 || got[0] != "cpu" || got[1] != "goroutines" {
		t.Errorf("Expected profile types from env, got %v", got)
	}

	// With a file, env still wins.
	cfg, err = Load(writeConfig(t, "avatar:\n  workers: 2\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Avatar.Workers != 9 {
		t.Errorf("Expected env to override file, got %d workers", cfg.Avatar.Workers)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, `
logging:
  level: INFO
  invalid yaml here [[[
`))
	if err == nil {
		t.Fatal("Expected error with invalid YAML, got nil")
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cases := map[string]string{
		"bad size":      "cache:\n  capacity: lots\n",
		"bad duration":  "avatar:\n  fetch_timeout: soon\n",
		"bad level":     "logging:\n  level: chatty\n",
		"bad directory": "directory:\n  type: ldap\n",
		"missing path":  "directory:\n  type: static\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Errorf("Expected error for %s", name)
			}
		})
	}
}

func TestMustLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := MustLoad(path); err == nil {
		t.Fatal("Expected error for missing config file")
	}

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	if _, err := MustLoad(""); err == nil {
		t.Fatal("Expected error when default config does not exist")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := GetDefaultConfig()
	cfg.Cache.Capacity = 3 * bytesize.MiB
	cfg.Avatar.FetchTimeout = 1500 * time.Millisecond
	cfg.Directory = directory.Config{Type: directory.TypeBadger, Badger: directory.BadgerConfig{InMemory: true}}

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Saved file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 && os.PathSeparator == '/' {
		t.Errorf("Expected mode 0600, got %o", perm)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Cache.Capacity != 3*bytesize.MiB {
		t.Errorf("Capacity did not round-trip: %s", loaded.Cache.Capacity)
	}
	if loaded.Avatar.FetchTimeout != 1500*time.Millisecond {
		t.Errorf("FetchTimeout did not round-trip: %v", loaded.Avatar.FetchTimeout)
	}
	if loaded.Directory.Type != directory.TypeBadger || !loaded.Directory.Badger.InMemory {
		t.Errorf("Directory did not round-trip: %+v", loaded.Directory)
	}
}

func TestGetConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom")

	if got := GetConfigDir(); got != filepath.Join("/custom", "contactpic") {
		t.Errorf("Unexpected config dir %q", got)
	}
	if got := GetDefaultConfigPath(); got != filepath.Join("/custom", "contactpic", "config.yaml") {
		t.Errorf("Unexpected config path %q", got)
	}
}
