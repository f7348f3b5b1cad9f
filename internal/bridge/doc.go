// Package bridge exposes the fingerprint node on MQTT.
//
// Inbound, it subscribes to {prefix}/set/# and turns each message into a
// service call:
//
//	{prefix}/set/scan|enroll|delete|empty   optional slot payload
//	{prefix}/set/name_{slot}                new label
//	{prefix}/set/templates                  republish the registry
//	{prefix}/set/history                    optional limit
//
// Outbound, the Bridge is a fingerprint.EventSink publishing to
// {prefix}/mode (retained), {prefix}/finger, {prefix}/templates
// (retained), {prefix}/event and {prefix}/history. A HealthReporter
// publishes {prefix}/health periodically.
//
// Mode requests run on their own goroutine so a long enrollment never
// blocks the MQTT client's message router.
package bridge
