// Package template keeps the node's bookkeeping for enrolled fingerprints.
//
// Each occupied sensor slot has a Record: a label (defaulting to the slot
// number), the last access action, the last-seen time and a match count.
// The sensor decides which slots exist; Registry.Reconcile brings the
// records in line after every change on the device.
//
// The registry is persisted through a Store. FileStore writes a YAML list
// compatible with the node's historical devices.yaml format:
//
//	- id: 3
//	  name: alice
//	  action: unlock
//	  time: 1767225600
//	  count: 12
package template
