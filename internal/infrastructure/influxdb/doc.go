// Package influxdb writes fingerprint access telemetry to InfluxDB v2.
//
// Three measurements are produced, each tagged with the node ID:
//   - fingerprint_scan: one point per access decision (outcome, slot, confidence)
//   - fingerprint_admin: enroll/delete/empty outcomes with duration
//   - fingerprint_templates: registry size after every change
//
// InfluxDB is optional. Connect returns ErrDisabled when influxdb.enabled is
// false and callers carry on without telemetry.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Node.ID)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // telemetry off
//	}
//	defer client.Close()
//
//	client.WriteScan(influxdb.ScanSample{Outcome: "unlock", Slot: 3, Confidence: 120, Time: time.Now()})
package influxdb
