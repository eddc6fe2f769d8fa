package suite

import (
	"time"

	"linecheck/internal/verify"
)

// Status captures the progress state of one fixture.
type Status string

const (
	// StatusQueued indicates the fixture is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the fixture is being verified.
	StatusWorking Status = "working"
	// StatusPassed indicates the checks held.
	StatusPassed Status = "passed"
	// StatusFailed indicates a check failed.
	StatusFailed Status = "failed"
	// StatusError indicates the fixture could not be run at all.
	StatusError Status = "error"
)

// Done reports whether s is terminal.
func (s Status) Done() bool {
	return s == StatusPassed || s == StatusFailed || s == StatusError
}

// Event reports progress for a fixture (or for the whole suite when Fixture
// is empty and Status is terminal).
type Event struct {
	Fixture string
	Index   int
	Status  Status
	Kind    verify.FailureKind
	Cached  bool
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. OnEvent is called from worker
// goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// SinkFunc adapts a function to ProgressSink.
type SinkFunc func(Event)

func (f SinkFunc) OnEvent(evt Event) {
	if f != nil {
		f(evt)
	}
}
