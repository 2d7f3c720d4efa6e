package console

import (
	"io"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

const spinnerInterval = 100 * time.Millisecond

// Spinner animates an indeterminate progress indicator while an external tool runs.
// It is inert when the writer is not a terminal.
type Spinner struct {
	w       io.Writer
	enabled bool

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner writing to w
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{w: w, enabled: IsTerminal(w)}
}

// IsTerminal reports whether v is a file attached to a terminal
func IsTerminal(v any) bool {
	f, ok := v.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Start shows the spinner with the given description, replacing any running one
func (s *Spinner) Start(description string) {
	if !s.enabled {
		return
	}
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(s.w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				_ = bar.Finish()
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()
}

// Stop clears the spinner and waits for its goroutine to exit
func (s *Spinner) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}
