package goWarden

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// AuditEvent records one token lifecycle decision. Tokens are never part of
// an event.
type AuditEvent struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Scope     string            `json:"scope"`
	SubjectID string            `json:"subject_id,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NoOpSink discards events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, AuditEvent) {}

// ChannelSink forwards events to a buffered channel.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{
		events: make(chan AuditEvent, buffer),
	}
}

func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
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

func (s *JSONWriterSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
}

// ZerologSink logs each event as a structured record at info level, or warn
// for failures.
type ZerologSink struct {
	logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

func (s *ZerologSink) Emit(ctx context.Context, event AuditEvent) {
	if s == nil {
		return
	}
	ev := s.logger.Info()
	if !event.Success {
		ev = s.logger.Warn()
	}
	ev = ev.Str("audit_id", event.ID).
		Time("at", event.Timestamp).
		Str("scope", event.Scope).
		Bool("success", event.Success)
	if event.SubjectID != "" {
		ev = ev.Str("subject_id", event.SubjectID)
	}
	if event.Error != "" {
		ev = ev.Str("error", event.Error)
	}
	if len(event.Metadata) > 0 {
		ev = ev.Interface("metadata", event.Metadata)
	}
	ev.Msg(event.EventType)
}
