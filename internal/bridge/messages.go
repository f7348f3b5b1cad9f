package bridge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/accesslog"
	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

// FingerMessage is published on {prefix}/finger for every scan decision.
type FingerMessage struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Action     string `json:"action"`
	Time       int64  `json:"time"`
	Count      int    `json:"count,omitempty"`
	Confidence int    `json:"confidence"`
}

// NewFingerMessage converts a scan event to its wire form.
func NewFingerMessage(ev fingerprint.ScanEvent) FingerMessage {
	return FingerMessage{
		ID:         ev.Slot,
		Name:       ev.Label,
		Action:     string(ev.Action),
		Time:       ev.Time.Unix(),
		Count:      ev.Count,
		Confidence: ev.Confidence,
	}
}

// EventMessage is published on {prefix}/event when an admin operation ends.
type EventMessage struct {
	Op         string    `json:"op"`
	Slot       int       `json:"slot"`
	Success    bool      `json:"success"`
	Result     string    `json:"result"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewEventMessage converts an admin outcome to its wire form.
func NewEventMessage(ev fingerprint.AdminEvent) EventMessage {
	msg := EventMessage{
		Op:         ev.Op.String(),
		Slot:       ev.Slot,
		Success:    ev.Success(),
		Result:     ev.Result(),
		DurationMS: ev.Duration.Milliseconds(),
		Timestamp:  time.Now().UTC(),
	}
	if ev.Err != nil {
		msg.Error = ev.Err.Error()
	}
	return msg
}

// HistoryMessage is published on {prefix}/history in reply to set/history.
type HistoryMessage struct {
	Events []accesslog.Event `json:"events"`
	Count  int               `json:"count"`
}

// templatesPayload keeps an empty registry as [] rather than null.
func templatesPayload(records []template.Record) ([]byte, error) {
	if records == nil {
		records = []template.Record{}
	}
	return json.Marshal(records)
}

// parseSlot reads an optional slot from a command payload. Accepted forms
// are empty, a bare integer, or {"slot": n}.
func parseSlot(payload []byte) (int, error) {
	s := strings.TrimSpace(string(payload))
	if s == "" || s == "null" {
		return fingerprint.AnySlot, nil
	}
	if strings.HasPrefix(s, "{") {
		var body struct {
			Slot *int `json:"slot"`
		}
		if err := json.Unmarshal([]byte(s), &body); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		if body.Slot == nil {
			return fingerprint.AnySlot, nil
		}
		return *body.Slot, nil
	}
	n, err := strconv.Atoi(strings.Trim(s, `"`))
	if err != nil {
		return 0, fmt.Errorf("%w: slot %q", ErrInvalidPayload, s)
	}
	return n, nil
}

// parseLimit reads the optional history limit; zero means the default.
func parseLimit(payload []byte) (int, error) {
	s := strings.TrimSpace(string(payload))
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit %q", ErrInvalidPayload, s)
	}
	return n, nil
}

// parseLabel reads a rename payload: a bare string or a JSON string.
func parseLabel(payload []byte) string {
	s := strings.TrimSpace(string(payload))
	var quoted string
	if strings.HasPrefix(s, `"`) && json.Unmarshal([]byte(s), &quoted) == nil {
		return quoted
	}
	return s
}
