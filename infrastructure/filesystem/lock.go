package filesystem

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrOutputLocked is returned when another run already owns the output path
var ErrOutputLocked = errors.New("output file is in use by another conversion")

// OutputLock holds exclusive ownership of an output path for one conversion.
// The lock file lives in the temp directory so nothing is left next to the output.
type OutputLock struct {
	outputPath string
	lock       *flock.Flock
}

// LockOutput acquires the lock for outputPath without blocking
func LockOutput(outputPath string) (*OutputLock, error) {
	return lockOutputIn(os.TempDir(), outputPath)
}

func lockOutputIn(dir, outputPath string) (*OutputLock, error) {
	abs, err := filepath.Abs(outputPath)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}

	sum := sha256.Sum256([]byte(abs))
	lockPath := filepath.Join(dir, "squeeze-audio-"+hex.EncodeToString(sum[:8])+".lock")

	l := flock.New(lockPath)
	ok, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, abs)
	}

	return &OutputLock{outputPath: abs, lock: l}, nil
}

// Path returns the lock file path
func (l *OutputLock) Path() string {
	return l.lock.Path()
}

// Release gives up ownership of the output path
func (l *OutputLock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release output lock for %s: %w", l.outputPath, err)
	}
	return nil
}
