package audit

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr/funcr"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, Event) {
	s.count.Add(1)
}

type gateSink struct {
	gate chan struct{}
}

func newGateSink() *gateSink {
	return &gateSink{
		gate: make(chan struct{}),
	}
}

func (s *gateSink) Emit(context.Context, Event) {
	<-s.gate
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestDispatcherDisabledIsNil(t *testing.T) {
	d := NewDispatcher(Config{Enabled: false}, &countingSink{})
	if d != nil {
		t.Fatal("expected nil dispatcher when disabled")
	}
	d.Emit(context.Background(), Event{EventType: "ignored"})
	d.Close()
	if d.Dropped() != 0 || d.Delivered() != 0 {
		t.Fatal("nil dispatcher must report zero counters")
	}
}

func TestDispatcherDeliversOnClose(t *testing.T) {
	sink := &countingSink{}
	d := NewDispatcher(Config{Enabled: true, BufferSize: 16}, sink)

	for i := 0; i < 10; i++ {
		d.Emit(context.Background(), Event{EventType: "login_success"})
	}
	d.Close()

	if got := sink.count.Load(); got != 10 {
		t.Fatalf("expected 10 delivered events, got %d", got)
	}
	if d.Delivered() != 10 {
		t.Fatalf("expected Delivered()=10, got %d", d.Delivered())
	}
}

func TestDispatcherBufferFullDropIfFullTrueDoesNotBlock(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: true,
	}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	start := time.Now()
	d.Emit(context.Background(), Event{EventType: "e3"})
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("expected non-blocking emit when DropIfFull is true")
	}
	if d.Dropped() == 0 {
		t.Fatal("expected dropped counter to increment when queue is full")
	}
}

func TestDispatcherBufferFullDropIfFullFalseBlocksUntilSpace(t *testing.T) {
	sink := newGateSink()
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 1,
		DropIfFull: false,
	}, sink)
	defer func() {
		close(sink.gate)
		d.Close()
	}()

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Emit(context.Background(), Event{EventType: "e2"})

	done := make(chan struct{})
	go func() {
		d.Emit(context.Background(), Event{EventType: "e3"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("expected emit to block while buffer is full")
	case <-time.After(150 * time.Millisecond):
	}

	sink.gate <- struct{}{}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected blocked emit to proceed after space is available")
	}
}

func TestDispatcherCloseIdempotentAndEmitAfterCloseSafe(t *testing.T) {
	d := NewDispatcher(Config{
		Enabled:    true,
		BufferSize: 4,
		DropIfFull: true,
	}, &countingSink{})

	d.Emit(context.Background(), Event{EventType: "e1"})
	d.Close()
	d.Close()
	d.Emit(context.Background(), Event{EventType: "e2"})
}

func TestJSONWriterSinkWritesJSONLines(t *testing.T) {
	var buf syncBuffer
	sink := NewJSONWriterSink(&buf)
	sink.Emit(context.Background(), Event{
		ID:        42,
		Timestamp: time.Now().UTC(),
		EventType: "login_success",
		UserID:    "7",
		LoginName: "admin",
		IP:        "127.0.0.1",
		Success:   true,
	})

	out := buf.String()
	for _, want := range []string{`"event_type":"login_success"`, `"user_id":"7"`, `"login_name":"admin"`, `"id":42`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in %s", want, out)
		}
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatal("expected newline-terminated JSON line")
	}
}

func TestLogSinkWritesStructuredLine(t *testing.T) {
	var lines []string
	log := funcr.New(func(prefix, args string) {
		lines = append(lines, prefix+" "+args)
	}, funcr.Options{})

	NewLogSink(log).Emit(context.Background(), Event{
		EventType: "account_locked",
		UserID:    "9",
		Error:     "account_locked",
		Metadata:  map[string]string{"failures": "5"},
	})

	if len(lines) != 1 {
		t.Fatalf("expected one log line, got %d", len(lines))
	}
	for _, want := range []string{"audit", `"type"="account_locked"`, `"user"="9"`, `"failures"="5"`} {
		if !strings.Contains(lines[0], want) {
			t.Fatalf("expected %s in %q", want, lines[0])
		}
	}
}
