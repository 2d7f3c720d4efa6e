package filesystem

import (
	"fmt"
	"os"

	"squeeze-audio/domain/audio"
)

// Checker implements audio.FileChecker and audio.FileStore using the os package
type Checker struct{}

// NewChecker creates a new filesystem checker
func NewChecker() *Checker {
	return &Checker{}
}

// Exists returns true if a regular file exists at path
func (c *Checker) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Size returns the size of the file in bytes
func (c *Checker) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is not a regular file", path)
	}
	return info.Size(), nil
}

// Remove deletes the file
func (c *Checker) Remove(path string) error {
	return os.Remove(path)
}

// Ensure Checker implements the audio ports
var (
	_ audio.FileChecker = (*Checker)(nil)
	_ audio.FileStore   = (*Checker)(nil)
)
