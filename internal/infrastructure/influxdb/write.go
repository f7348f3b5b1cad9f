package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementScan      = "fingerprint_scan"
	MeasurementAdmin     = "fingerprint_admin"
	MeasurementTemplates = "fingerprint_templates"
)

// ScanSample is one access decision.
type ScanSample struct {
	Outcome    string // "unlock", "timeout" or "unauthorized"
	Slot       int    // -1 when unauthorized
	Label      string
	Confidence int
	Time       time.Time
}

// AdminSample is the outcome of one administrative operation.
type AdminSample struct {
	Operation string // "enroll", "delete", "empty"
	Result    string // "ok" or a failure class
	Slot      int
	Duration  time.Duration
	Time      time.Time
}

// WriteScan records an access decision. No-op when not connected.
func (c *Client) WriteScan(s ScanSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(scanPoint(c.node, s))
}

// WriteAdmin records an administrative operation. No-op when not connected.
func (c *Client) WriteAdmin(s AdminSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(adminPoint(c.node, s))
}

// WriteTemplateCount records the size of the template registry.
func (c *Client) WriteTemplateCount(count, capacity int, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(MeasurementTemplates,
		map[string]string{"node": c.node},
		map[string]any{"count": count, "capacity": capacity},
		at))
}

func scanPoint(node string, s ScanSample) *write.Point {
	tags := map[string]string{
		"node":    node,
		"outcome": s.Outcome,
		"slot":    strconv.Itoa(s.Slot),
	}
	fields := map[string]any{
		"confidence": s.Confidence,
	}
	if s.Label != "" {
		fields["label"] = s.Label
	}
	return write.NewPoint(MeasurementScan, tags, fields, s.Time)
}

func adminPoint(node string, s AdminSample) *write.Point {
	return write.NewPoint(MeasurementAdmin,
		map[string]string{
			"node":      node,
			"operation": s.Operation,
			"result":    s.Result,
		},
		map[string]any{
			"slot":        s.Slot,
			"duration_ms": s.Duration.Milliseconds(),
		},
		s.Time)
}
