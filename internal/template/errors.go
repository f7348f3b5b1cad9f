package template

import "errors"

var (
	// ErrSlotNotFound is returned when a slot has no record.
	ErrSlotNotFound = errors.New("template: slot not found")

	// ErrInvalidLabel is returned by Rename for an empty label.
	ErrInvalidLabel = errors.New("template: label cannot be empty")

	// ErrCorruptStore is returned when the persisted registry cannot be decoded.
	ErrCorruptStore = errors.New("template: corrupt registry file")
)
