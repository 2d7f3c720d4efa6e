package audio

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultProfileName is the profile used when none is configured
const DefaultProfileName = "mp3"

// Profile describes an output audio format and the bitrate range it supports
type Profile struct {
	Name      string
	Codec     string // ffmpeg audio encoder
	Extension string // output file extension, including the dot
	MimeType  string
	// MinBitrateKbps is the floor the planner never goes below
	MinBitrateKbps int
	// MaxBitrateKbps caps the planned bitrate for very short inputs
	MaxBitrateKbps int
	// ExtraArgs are appended to the encoder arguments after the bitrate
	ExtraArgs []string
}

var profiles = map[string]Profile{
	"mp3": {
		Name:           "mp3",
		Codec:          "libmp3lame",
		Extension:      ".mp3",
		MimeType:       "audio/mpeg",
		MinBitrateKbps: 32,
		MaxBitrateKbps: 320,
	},
	"aac": {
		Name:           "aac",
		Codec:          "aac",
		Extension:      ".m4a",
		MimeType:       "audio/mp4",
		MinBitrateKbps: 64,
		MaxBitrateKbps: 320,
	},
	"opus": {
		Name:           "opus",
		Codec:          "libopus",
		Extension:      ".opus",
		MimeType:       "audio/ogg",
		MinBitrateKbps: 8,
		MaxBitrateKbps: 510,
		ExtraArgs:      []string{"-vbr", "off"},
	},
	"speech": {
		Name:           "speech",
		Codec:          "libmp3lame",
		Extension:      ".mp3",
		MimeType:       "audio/mpeg",
		MinBitrateKbps: 8,
		MaxBitrateKbps: 64,
		ExtraArgs:      []string{"-ac", "1", "-ar", "22050"},
	},
}

// LookupProfile returns the built-in profile with the given name (case-insensitive).
// An empty name selects the default profile.
func LookupProfile(name string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultProfileName
	}
	p, ok := profiles[key]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProfile, name, strings.Join(ProfileNames(), ", "))
	}
	p.ExtraArgs = append([]string(nil), p.ExtraArgs...)
	return p, nil
}

// ProfileNames returns the names of all built-in profiles in sorted order
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
