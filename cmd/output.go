package cmd

import "os"

// OutputWriter interface for writing output (allows capturing in tests)
type OutputWriter interface {
	Write(p []byte) (n int, err error)
}

// DefaultOutput is the default output writer for commands
var DefaultOutput OutputWriter = os.Stdout
