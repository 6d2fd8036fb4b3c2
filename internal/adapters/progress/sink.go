// Package progress provides ProgressSink implementations.
package progress

import (
	"log/slog"

	"github.com/devnet-tools/devnetctl/internal/usecase"
)

// NopSink discards all progress messages.
type NopSink struct{}

// NewNopSink creates a no-op progress sink.
func NewNopSink() usecase.ProgressSink {
	return &NopSink{}
}

func (*NopSink) Info(string)  {}
func (*NopSink) Error(string) {}

// LogSink forwards progress messages to the structured logger. The daemon
// uses it so operation progress shows up in the service log.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a logger-backed progress sink.
func NewLogSink(log *slog.Logger) usecase.ProgressSink {
	return &LogSink{log: log}
}

func (s *LogSink) Info(message string)  { s.log.Info(message) }
func (s *LogSink) Error(message string) { s.log.Warn(message) }

var (
	_ usecase.ProgressSink = (*NopSink)(nil)
	_ usecase.ProgressSink = (*LogSink)(nil)
)
