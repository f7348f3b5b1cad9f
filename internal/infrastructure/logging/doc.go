// Package logging provides structured logging for the fingerprint node.
//
// It wraps log/slog so every component logs with the same default fields
// (service, version) and the same level filtering.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version)
//	logger.Component("scan").Info("match", "slot", 3)
//
// # Security
//
// Never log the sensor password or MQTT credentials. Template slots and
// labels are fine; raw sensor frames are logged only at debug level.
package logging
