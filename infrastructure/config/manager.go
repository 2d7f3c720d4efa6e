package config

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Errors for config management
var (
	ErrUnknownKey   = errors.New("unknown config key")
	ErrInvalidValue = errors.New("invalid config value")
)

// field binds a dotted key to a getter and a parser that writes into the config
type field struct {
	get func(c *Config) string
	set func(c *Config, value string) error
}

var fields = map[string]field{
	"conversion.max_size_mb": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Conversion.MaxSizeMB, 'g', -1, 64) },
		set: func(c *Config, v string) error { return parseFloat(v, &c.Conversion.MaxSizeMB) },
	},
	"conversion.max_attempts": {
		get: func(c *Config) string { return strconv.Itoa(c.Conversion.MaxAttempts) },
		set: func(c *Config, v string) error { return parseInt(v, &c.Conversion.MaxAttempts) },
	},
	"conversion.safety_margin": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Conversion.SafetyMargin, 'g', -1, 64) },
		set: func(c *Config, v string) error { return parseFloat(v, &c.Conversion.SafetyMargin) },
	},
	"conversion.profile": {
		get: func(c *Config) string { return c.Conversion.Profile },
		set: func(c *Config, v string) error { c.Conversion.Profile = strings.ToLower(v); return nil },
	},
	"conversion.min_bitrate_kbps": {
		get: func(c *Config) string { return strconv.Itoa(c.Conversion.MinBitrateKbps) },
		set: func(c *Config, v string) error { return parseInt(v, &c.Conversion.MinBitrateKbps) },
	},
	"conversion.max_bitrate_kbps": {
		get: func(c *Config) string { return strconv.Itoa(c.Conversion.MaxBitrateKbps) },
		set: func(c *Config, v string) error { return parseInt(v, &c.Conversion.MaxBitrateKbps) },
	},
	"tools.ffmpeg_path": {
		get: func(c *Config) string { return c.Tools.FFmpegPath },
		set: func(c *Config, v string) error { c.Tools.FFmpegPath = v; return nil },
	},
	"tools.ffprobe_path": {
		get: func(c *Config) string { return c.Tools.FFprobePath },
		set: func(c *Config, v string) error { c.Tools.FFprobePath = v; return nil },
	},
	"tools.probe_timeout": {
		get: func(c *Config) string { return c.Tools.ProbeTimeout.String() },
		set: func(c *Config, v string) error { return parseDuration(v, &c.Tools.ProbeTimeout) },
	},
	"tools.encode_timeout": {
		get: func(c *Config) string { return c.Tools.EncodeTimeout.String() },
		set: func(c *Config, v string) error { return parseDuration(v, &c.Tools.EncodeTimeout) },
	},
	"google.credentials_file": {
		get: func(c *Config) string { return c.Google.CredentialsFile },
		set: func(c *Config, v string) error { c.Google.CredentialsFile = v; return nil },
	},
	"google.token_file": {
		get: func(c *Config) string { return c.Google.TokenFile },
		set: func(c *Config, v string) error { c.Google.TokenFile = v; return nil },
	},
	"google.upload_folder_id": {
		get: func(c *Config) string { return c.Google.UploadFolderID },
		set: func(c *Config, v string) error { c.Google.UploadFolderID = v; return nil },
	},
}

// Entry is one key/value pair of the configuration
type Entry struct {
	Key   string
	Value string
}

// ConfigManager reads and updates individual config entries
type ConfigManager struct {
	config     *Config
	configPath string
}

// NewConfigManager creates a new config manager
func NewConfigManager(cfg *Config, configPath string) *ConfigManager {
	return &ConfigManager{
		config:     cfg,
		configPath: configPath,
	}
}

// Keys returns every settable key in sorted order
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// List returns all entries sorted by key
func (m *ConfigManager) List() []Entry {
	keys := Keys()
	entries := make([]Entry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, Entry{Key: k, Value: fields[k].get(m.config)})
	}
	return entries
}

// Get returns the value for a key (case-insensitive)
func (m *ConfigManager) Get(key string) (string, error) {
	f, err := lookupField(key)
	if err != nil {
		return "", err
	}
	return f.get(m.config), nil
}

// Set updates a key, validates the result and saves the file.
// The in-memory config is left untouched when validation fails.
func (m *ConfigManager) Set(key, value string) error {
	f, err := lookupField(key)
	if err != nil {
		return err
	}

	updated := *m.config
	if err := f.set(&updated, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrInvalidValue, key, err)
	}
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("%w for %s: %v", ErrInvalidValue, key, err)
	}

	if err := Save(&updated, m.configPath); err != nil {
		return err
	}
	*m.config = updated
	return nil
}

func lookupField(key string) (field, error) {
	f, ok := fields[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return field{}, fmt.Errorf("%w: %q (valid keys: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	return f, nil
}

func parseFloat(v string, dst *float64) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func parseInt(v string, dst *int) error {
	i, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = i
	return nil
}

func parseDuration(v string, dst *time.Duration) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
