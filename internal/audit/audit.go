package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// Event is one security-relevant occurrence: a login attempt, a lock
// transition, a logout or a denied permission check.
type Event struct {
	// ID is a time-ordered event id when the engine has an allocator.
	ID        uint64            `json:"id,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	LoginName string            `json:"login_name,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops audit events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink writes audit events into a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan Event, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{
		writer: w,
	}
}

func (s *JSONWriterSink) Emit(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}

// LogSink writes events as structured log lines at verbosity 0.
type LogSink struct {
	log logr.Logger
}

func NewLogSink(log logr.Logger) *LogSink {
	return &LogSink{log: log.WithName("audit")}
}

func (s *LogSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}
	kv := []any{
		"type", event.EventType,
		"success", event.Success,
	}
	if event.ID != 0 {
		kv = append(kv, "id", event.ID)
	}
	if event.UserID != "" {
		kv = append(kv, "user", event.UserID)
	}
	if event.LoginName != "" {
		kv = append(kv, "loginName", event.LoginName)
	}
	if event.IP != "" {
		kv = append(kv, "ip", event.IP)
	}
	if event.Error != "" {
		kv = append(kv, "error", event.Error)
	}
	for k, v := range event.Metadata {
		kv = append(kv, k, v)
	}
	s.log.Info("audit event", kv...)
}
