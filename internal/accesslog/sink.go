package accesslog

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

const writeTimeout = 5 * time.Second

// Logger defines the logging interface used by the Sink.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Sink records scan decisions and admin outcomes. It implements
// fingerprint.EventSink; mode and registry events are ignored.
type Sink struct {
	repo   Repository
	logger Logger
}

// NewSink returns a Sink writing to repo.
func NewSink(repo Repository) *Sink {
	return &Sink{repo: repo, logger: noopLogger{}}
}

// SetLogger sets the logger for write failures.
func (s *Sink) SetLogger(logger Logger) {
	s.logger = logger
}

func (s *Sink) ModeChanged(fingerprint.Mode) {}

func (s *Sink) TemplatesUpdated([]template.Record) {}

func (s *Sink) ScanMatched(ev fingerprint.ScanEvent) {
	s.write(&Event{
		OccurredAt: ev.Time,
		Kind:       KindMatch,
		Slot:       ev.Slot,
		Label:      ev.Label,
		Action:     string(ev.Action),
		Confidence: ev.Confidence,
		Success:    ev.Action == template.ActionUnlock,
	})
}

func (s *Sink) ScanRejected(ev fingerprint.ScanEvent) {
	rec := &Event{
		OccurredAt: ev.Time,
		Kind:       KindUnauthorized,
		Slot:       ev.Slot,
		Label:      ev.Label,
		Action:     string(ev.Action),
	}
	if ev.Reason != nil {
		rec.Detail = ev.Reason.Error()
	}
	s.write(rec)
}

func (s *Sink) AdminCompleted(ev fingerprint.AdminEvent) {
	rec := &Event{
		OccurredAt: ev.Started.Add(ev.Duration),
		Kind:       Kind(ev.Op.String()),
		Slot:       ev.Slot,
		Action:     ev.Result(),
		Success:    ev.Success(),
	}
	if ev.Err != nil {
		rec.Detail = ev.Err.Error()
	}
	s.write(rec)
}

func (s *Sink) write(ev *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, ev); err != nil {
		s.logger.Error("writing access event", "kind", string(ev.Kind), "error", err)
	}
}
