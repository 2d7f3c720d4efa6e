package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"squeeze-audio/domain/audio"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
conversion:
  max_size_mb: 10
  profile: opus
tools:
  encode_timeout: 5m
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Conversion.MaxSizeMB != 10 {
		t.Errorf("expected max size 10, got %v", cfg.Conversion.MaxSizeMB)
	}
	if cfg.Conversion.Profile != "opus" {
		t.Errorf("expected profile opus, got %q", cfg.Conversion.Profile)
	}
	if cfg.Conversion.MaxAttempts != audio.DefaultMaxAttempts {
		t.Errorf("expected default attempts, got %d", cfg.Conversion.MaxAttempts)
	}
	if cfg.Tools.EncodeTimeout != 5*time.Minute {
		t.Errorf("expected encode timeout 5m, got %v", cfg.Tools.EncodeTimeout)
	}
	if cfg.Tools.ProbeTimeout != DefaultProbeTimeout {
		t.Errorf("expected default probe timeout, got %v", cfg.Tools.ProbeTimeout)
	}
	if cfg.Tools.FFmpegPath != "ffmpeg" {
		t.Errorf("expected default ffmpeg path, got %q", cfg.Tools.FFmpegPath)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr error
	}{
		{name: "unknown profile", content: "conversion:\n  profile: flac\n", wantErr: audio.ErrUnknownProfile},
		{name: "negative ceiling", content: "conversion:\n  max_size_mb: -1\n", wantErr: audio.ErrInvalidCeiling},
		{name: "margin above one", content: "conversion:\n  safety_margin: 1.5\n", wantErr: audio.ErrInvalidSafetyMargin},
		{name: "negative attempts", content: "conversion:\n  max_attempts: -2\n", wantErr: audio.ErrInvalidMaxAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "conversion: [unclosed\n"))
	if err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Conversion.MaxSizeMB != audio.DefaultMaxSizeMB {
		t.Errorf("expected default max size, got %v", cfg.Conversion.MaxSizeMB)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.Conversion.Profile = "speech"
	cfg.Google.UploadFolderID = "folder-123"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Conversion.Profile != "speech" || loaded.Google.UploadFolderID != "folder-123" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestConfigManager_Set(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	m := NewConfigManager(cfg, path)

	if err := m.Set("Conversion.Max_Size_MB", "8"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Set("tools.probe_timeout", "45s"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Conversion.MaxSizeMB != 8 {
		t.Errorf("expected in-memory max size 8, got %v", cfg.Conversion.MaxSizeMB)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Conversion.MaxSizeMB != 8 {
		t.Errorf("expected saved max size 8, got %v", loaded.Conversion.MaxSizeMB)
	}
	if loaded.Tools.ProbeTimeout != 45*time.Second {
		t.Errorf("expected saved probe timeout 45s, got %v", loaded.Tools.ProbeTimeout)
	}
}

func TestConfigManager_SetRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	m := NewConfigManager(cfg, path)

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr error
	}{
		{name: "unknown key", key: "email.sender", value: "x", wantErr: ErrUnknownKey},
		{name: "not a number", key: "conversion.max_size_mb", value: "big", wantErr: ErrInvalidValue},
		{name: "fails validation", key: "conversion.safety_margin", value: "2", wantErr: ErrInvalidValue},
		{name: "unknown profile", key: "conversion.profile", value: "wav", wantErr: ErrInvalidValue},
		{name: "bad duration", key: "tools.encode_timeout", value: "soon", wantErr: ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Set(tt.key, tt.value)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if cfg.Conversion.SafetyMargin != audio.DefaultSafetyMargin {
		t.Errorf("rejected value leaked into config: %v", cfg.Conversion.SafetyMargin)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected no file written, stat err = %v", err)
	}
}

func TestConfigManager_List(t *testing.T) {
	m := NewConfigManager(Default(), "")
	entries := m.List()

	if len(entries) != len(Keys()) {
		t.Fatalf("expected %d entries, got %d", len(Keys()), len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key > entries[i].Key {
			t.Errorf("entries not sorted: %s > %s", entries[i-1].Key, entries[i].Key)
		}
	}

	got, err := m.Get("conversion.profile")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != audio.DefaultProfileName {
		t.Errorf("expected %q, got %q", audio.DefaultProfileName, got)
	}
}
