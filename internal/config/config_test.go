package config

import (
	"os"
	"path/filepath"
	"testing"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)
	for _, key := range []string{EnvPort, EnvLogLevel, EnvLogFormat, EnvConfigFile, EnvHeadless, EnvMediaDir} {
		t.Setenv(key, "")
	}
	return dir
}

func TestNew_Defaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port() != DefaultPort {
		t.Errorf("Port() = %d, want %d", cfg.Port(), DefaultPort)
	}
	if cfg.DBPath() != filepath.Join(dir, DBFilename) {
		t.Errorf("DBPath() = %q", cfg.DBPath())
	}
	if cfg.FromFile() {
		t.Error("FromFile() = true without a config file")
	}
	if got := cfg.Editor(); got != DefaultEditor() {
		t.Errorf("Editor() = %+v, want defaults", got)
	}
	if cfg.MediaDir() != filepath.Join(dir, "media") {
		t.Errorf("MediaDir() = %q", cfg.MediaDir())
	}
}

func TestNew_FileThenEnv(t *testing.T) {
	dir := isolate(t)
	content := `
[server]
port = 9100

[editor]
grid_seconds = 0.5
snap = false
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFilename), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvPort, "9200")

	cfg, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.FromFile() {
		t.Error("FromFile() = false, want true")
	}
	if cfg.Port() != 9200 {
		t.Errorf("Port() = %d, want env override 9200", cfg.Port())
	}
	ed := cfg.Editor()
	if ed.GridSeconds != 0.5 || ed.Snap {
		t.Errorf("Editor() = %+v, want grid 0.5 and snap off", ed)
	}
	if ed.DefaultClipSeconds != DefaultClipSeconds {
		t.Errorf("DefaultClipSeconds = %v, want default kept", ed.DefaultClipSeconds)
	}
}

func TestNew_InvalidPort(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPort, "70000")

	if _, err := New(); err == nil {
		t.Fatal("expected error for out of range port")
	}

	t.Setenv(EnvPort, "abc")
	if _, err := New(); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}

func TestNew_BadFile(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, ConfigFilename), []byte("[editor\nzoom = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := New(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEditorValidate(t *testing.T) {
	ed := DefaultEditor()
	ed.Zoom = 8
	if err := ed.Validate(); err == nil {
		t.Error("zoom 8 should be invalid")
	}
	ed = DefaultEditor()
	ed.GridSeconds = 0
	if err := ed.Validate(); err == nil {
		t.Error("zero grid should be invalid")
	}
}

func TestCreateSample_Loads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ConfigFilename)
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample() error = %v", err)
	}
	f, exists, err := LoadFile(path)
	if err != nil || !exists {
		t.Fatalf("LoadFile() = %v, %v", exists, err)
	}
	if err := f.Validate(); err != nil {
		t.Errorf("sample config invalid: %v", err)
	}
	if f.Editor != DefaultEditor() {
		t.Errorf("sample editor = %+v, want defaults", f.Editor)
	}
}
