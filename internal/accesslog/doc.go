// Package accesslog keeps a queryable history of access decisions and
// administrative operations in SQLite.
//
// Sink adapts the repository to fingerprint.EventSink so every scan and
// every enroll, delete or empty lands in the access_events table. The
// schema lives in the top-level migrations package.
package accesslog
