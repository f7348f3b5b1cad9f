package fingerprint

import (
	"errors"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/sensor"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

// ScanEvent is one access decision from the scan loop.
type ScanEvent struct {
	Slot       int
	Label      string
	Action     template.Action
	Time       time.Time
	Count      int
	Confidence int

	// Reason is the sensor error behind an unauthorized decision.
	Reason error
}

// Authorized reports whether the scan matched an enrolled slot.
func (e ScanEvent) Authorized() bool {
	return e.Slot != template.UnauthorizedID
}

func unauthorizedEvent(at time.Time, reason error) ScanEvent {
	return ScanEvent{
		Slot:   template.UnauthorizedID,
		Label:  string(template.ActionUnauthorized),
		Action: template.ActionUnauthorized,
		Time:   at,
		Reason: reason,
	}
}

// AdminEvent is the outcome of an enroll, delete or empty operation.
type AdminEvent struct {
	Op       Mode
	Slot     int
	Err      error
	Started  time.Time
	Duration time.Duration
}

// Success reports whether the operation completed.
func (e AdminEvent) Success() bool {
	return e.Err == nil
}

// Result is a short outcome label for metrics and logs: "ok", "busy",
// "rejected", "timeout", or the sensor failure class of Err.
func (e AdminEvent) Result() string {
	switch {
	case e.Err == nil:
		return "ok"
	case errors.Is(e.Err, ErrBusy), errors.Is(e.Err, ErrAlreadyInMode):
		return "busy"
	case errors.Is(e.Err, ErrInvalidSlot), errors.Is(e.Err, ErrSlotRequired),
		errors.Is(e.Err, ErrLibraryFull):
		return "rejected"
	case errors.Is(e.Err, ErrCaptureTimeout):
		return "timeout"
	default:
		return string(sensor.Classify(e.Err))
	}
}

// EventSink receives everything the node reports outward.
//
// Methods are called synchronously from the scan loop and admin operations
// and should return promptly.
type EventSink interface {
	ModeChanged(mode Mode)
	ScanMatched(ev ScanEvent)
	ScanRejected(ev ScanEvent)
	TemplatesUpdated(records []template.Record)
	AdminCompleted(ev AdminEvent)
}

// Sinks fans every event out to each member in order.
type Sinks []EventSink

func (s Sinks) ModeChanged(mode Mode) {
	for _, sink := range s {
		sink.ModeChanged(mode)
	}
}

func (s Sinks) ScanMatched(ev ScanEvent) {
	for _, sink := range s {
		sink.ScanMatched(ev)
	}
}

func (s Sinks) ScanRejected(ev ScanEvent) {
	for _, sink := range s {
		sink.ScanRejected(ev)
	}
}

func (s Sinks) TemplatesUpdated(records []template.Record) {
	for _, sink := range s {
		sink.TemplatesUpdated(records)
	}
}

func (s Sinks) AdminCompleted(ev AdminEvent) {
	for _, sink := range s {
		sink.AdminCompleted(ev)
	}
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) ModeChanged(Mode)                  {}
func (NopSink) ScanMatched(ScanEvent)             {}
func (NopSink) ScanRejected(ScanEvent)            {}
func (NopSink) TemplatesUpdated([]template.Record) {}
func (NopSink) AdminCompleted(AdminEvent)         {}
