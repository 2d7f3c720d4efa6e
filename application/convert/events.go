package convert

import "squeeze-audio/domain/audio"

// EventKind identifies a state transition of the conversion loop
type EventKind int

const (
	EventProbeStarted EventKind = iota
	EventProbeFinished
	EventEncodeStarted
	EventEncodeFinished
	EventMeasured
	EventRetrying
	EventFinished
)

// Event describes a state transition. Fields not relevant to Kind are zero.
type Event struct {
	Kind EventKind

	InputPath  string
	OutputPath string

	// Attempt is the 1-based attempt the event belongs to
	Attempt     int
	MaxAttempts int

	// BitrateKbps is the bitrate of the attempt, or the next attempt for EventRetrying
	BitrateKbps int

	SizeBytes       int64
	LimitBytes      int64
	DurationSeconds float64

	// Err is set on EventProbeFinished and EventEncodeFinished when the call failed
	Err error

	// Outcome is set on EventFinished
	Outcome *audio.Outcome
}

// Observer receives state transitions. It must not block for long; the loop waits for
// OnEvent to return before inspecting any result.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface
type ObserverFunc func(Event)

// OnEvent implements Observer
func (f ObserverFunc) OnEvent(e Event) {
	f(e)
}

type noopObserver struct{}

func (noopObserver) OnEvent(Event) {}
