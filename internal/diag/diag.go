package diag

import (
	"sync"

	"github.com/hashicorp/go-hclog"
)

// Sink records errors raised by background work
type Sink struct {
	log hclog.Logger
}

// New creates a sink writing through the given logger
func New(log hclog.Logger) *Sink {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &Sink{log: log}
}

// Record logs an error, fire-and-forget. Nil errors are ignored.
func (s *Sink) Record(err error) {
	if err == nil {
		return
	}
	s.log.Error("operation error", "error", err)
}

// Warn logs a non-fatal condition, such as a failed cleanup of a
// partial output file.
func (s *Sink) Warn(msg string, args ...interface{}) {
	s.log.Warn(msg, args...)
}

var (
	defaultSink *Sink
	defaultOnce sync.Once
)

// Default returns the process-wide sink, creating it on first use
func Default() *Sink {
	defaultOnce.Do(func() {
		defaultSink = New(hclog.New(&hclog.LoggerOptions{
			Name:  "media-converter",
			Level: hclog.Info,
		}))
	})
	return defaultSink
}
