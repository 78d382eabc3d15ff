package goRealm

import (
	"io"

	"github.com/MrEthical07/goRealm/internal/audit"
	"github.com/go-logr/logr"
)

// AuditEvent is one security-relevant occurrence emitted by the engine.
type AuditEvent = audit.Event

// AuditSink receives audit events from the engine's dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink drops audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink forwards audit events into a buffered channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = audit.JSONWriterSink

// LogSink writes audit events through a logr.Logger.
type LogSink = audit.LogSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewLogSink(log logr.Logger) *LogSink {
	return audit.NewLogSink(log)
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *audit.Dispatcher {
	return audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Enabled,
		BufferSize: cfg.BufferSize,
		DropIfFull: cfg.DropIfFull,
	}, sink)
}
