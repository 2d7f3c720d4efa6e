package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"squeeze-audio/domain/audio"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the configuration file is looked up when --config is not given
const DefaultPath = "config/config.yaml"

// Default tool timeouts
const (
	DefaultProbeTimeout  = 30 * time.Second
	DefaultEncodeTimeout = 30 * time.Minute
)

// Config represents the complete application configuration
type Config struct {
	Conversion ConversionConfig `yaml:"conversion"`
	Tools      ToolsConfig      `yaml:"tools"`
	Google     GoogleConfig     `yaml:"google"`
}

// ConversionConfig contains the size budget and bitrate search settings
type ConversionConfig struct {
	MaxSizeMB      float64 `yaml:"max_size_mb"`
	MaxAttempts    int     `yaml:"max_attempts"`
	SafetyMargin   float64 `yaml:"safety_margin"`
	Profile        string  `yaml:"profile"`
	MinBitrateKbps int     `yaml:"min_bitrate_kbps,omitempty"` // 0 uses the profile floor
	MaxBitrateKbps int     `yaml:"max_bitrate_kbps,omitempty"` // 0 uses the profile cap
}

// ToolsConfig contains external tool locations and time limits
type ToolsConfig struct {
	FFmpegPath    string        `yaml:"ffmpeg_path"`
	FFprobePath   string        `yaml:"ffprobe_path"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	EncodeTimeout time.Duration `yaml:"encode_timeout"`
}

// GoogleConfig contains Google Drive upload settings
type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	UploadFolderID  string `yaml:"upload_folder_id"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Conversion: ConversionConfig{
			MaxSizeMB:    audio.DefaultMaxSizeMB,
			MaxAttempts:  audio.DefaultMaxAttempts,
			SafetyMargin: audio.DefaultSafetyMargin,
			Profile:      audio.DefaultProfileName,
		},
		Tools: ToolsConfig{
			FFmpegPath:    "ffmpeg",
			FFprobePath:   "ffprobe",
			ProbeTimeout:  DefaultProbeTimeout,
			EncodeTimeout: DefaultEncodeTimeout,
		},
		Google: GoogleConfig{
			CredentialsFile: "credentials.json",
			TokenFile:       "token.json",
		},
	}
}

// Load reads and parses the configuration from the specified YAML file.
// Values missing from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadOrDefault loads the file at path, falling back to defaults when it does not exist
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes the configuration to the specified YAML file
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the conversion settings using the same rules as a request
func (c *Config) Validate() error {
	profile, err := audio.LookupProfile(c.Conversion.Profile)
	if err != nil {
		return err
	}

	_, err = audio.NewConversionRequest("config-check.input", profile, c.RequestOptions())
	if err != nil {
		return err
	}

	if c.Tools.ProbeTimeout < 0 || c.Tools.EncodeTimeout < 0 {
		return fmt.Errorf("tool timeouts must not be negative")
	}
	return nil
}

// RequestOptions converts the conversion settings into request options
func (c *Config) RequestOptions() audio.RequestOptions {
	return audio.RequestOptions{
		MaxSizeMB:      c.Conversion.MaxSizeMB,
		MaxAttempts:    c.Conversion.MaxAttempts,
		SafetyMargin:   c.Conversion.SafetyMargin,
		MinBitrateKbps: c.Conversion.MinBitrateKbps,
		MaxBitrateKbps: c.Conversion.MaxBitrateKbps,
	}
}
