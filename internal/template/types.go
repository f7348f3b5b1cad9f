package template

import (
	"strconv"
	"time"
)

// Action is the access decision attached to a record.
type Action string

const (
	ActionUnlock       Action = "unlock"
	ActionTimeout      Action = "timeout"
	ActionUnauthorized Action = "unauthorized"
)

// UnauthorizedID is the slot reported for scans that match nothing.
const UnauthorizedID = -1

// Record is the bookkeeping for one occupied sensor slot.
type Record struct {
	ID     int    `yaml:"id" json:"id"`
	Label  string `yaml:"name" json:"name"`
	Action Action `yaml:"action" json:"action"`
	Time   int64  `yaml:"time" json:"time"` // last seen, unix seconds
	Count  int    `yaml:"count" json:"count"`
}

// NewRecord returns the default record for a newly discovered slot.
func NewRecord(id int, now time.Time) Record {
	return Record{
		ID:     id,
		Label:  DefaultLabel(id),
		Action: ActionUnlock,
		Time:   now.Unix(),
		Count:  0,
	}
}

// DefaultLabel is the label a slot carries until it is renamed.
func DefaultLabel(id int) string {
	return strconv.Itoa(id)
}

// Named reports whether the record has been given a label of its own.
func (r Record) Named() bool {
	return r.Label != DefaultLabel(r.ID)
}

// LastSeen returns Time as a time.Time.
func (r Record) LastSeen() time.Time {
	return time.Unix(r.Time, 0)
}

// Diff lists the slots added and removed by a reconciliation.
type Diff struct {
	Added   []int
	Removed []int
}

// Empty reports whether reconciliation changed nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}
