package main

import (
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// influxSink writes scan and admin events as InfluxDB points.
type influxSink struct {
	client   *influxdb.Client
	capacity int
}

func (s *influxSink) ModeChanged(fingerprint.Mode) {}

func (s *influxSink) ScanMatched(ev fingerprint.ScanEvent) {
	s.client.WriteScan(influxdb.ScanSample{
		Outcome:    string(ev.Action),
		Slot:       ev.Slot,
		Label:      ev.Label,
		Confidence: ev.Confidence,
		Time:       ev.Time,
	})
}

func (s *influxSink) ScanRejected(ev fingerprint.ScanEvent) {
	s.client.WriteScan(influxdb.ScanSample{
		Outcome: string(template.ActionUnauthorized),
		Slot:    ev.Slot,
		Time:    ev.Time,
	})
}

func (s *influxSink) TemplatesUpdated(records []template.Record) {
	s.client.WriteTemplateCount(len(records), s.capacity, time.Now())
}

func (s *influxSink) AdminCompleted(ev fingerprint.AdminEvent) {
	s.client.WriteAdmin(influxdb.AdminSample{
		Operation: ev.Op.String(),
		Result:    ev.Result(),
		Slot:      ev.Slot,
		Duration:  ev.Duration,
		Time:      ev.Started,
	})
}
