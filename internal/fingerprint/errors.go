package fingerprint

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyInMode is returned when the requested mode is already active.
	ErrAlreadyInMode = errors.New("fingerprint: already in requested mode")

	// ErrBusy is returned when a different administrative operation is in flight.
	ErrBusy = errors.New("fingerprint: another operation is in progress")

	// ErrUnknownMode is returned by ParseMode.
	ErrUnknownMode = errors.New("fingerprint: unknown mode")

	// ErrCaptureTimeout is returned when no finger (or no lift) is seen in time.
	ErrCaptureTimeout = errors.New("fingerprint: capture timed out")

	// ErrInvalidSlot is returned for a slot outside [0, capacity).
	ErrInvalidSlot = errors.New("fingerprint: invalid slot")

	// ErrSlotRequired is returned by the explicit slot policy when no slot is given.
	ErrSlotRequired = errors.New("fingerprint: slot required")

	// ErrLibraryFull is returned when no free slot remains.
	ErrLibraryFull = errors.New("fingerprint: template library full")

	// ErrNotStarted is returned when operations are requested before Start.
	ErrNotStarted = errors.New("fingerprint: service not started")

	// ErrInit wraps failures reading the device snapshot at startup.
	ErrInit = errors.New("fingerprint: initialization failed")
)

// Stage names a step of the enrollment protocol.
type Stage string

const (
	StageSelectSlot  Stage = "select_slot"
	StageCapture1    Stage = "capture_1"
	StageConvert1    Stage = "convert_1"
	StageLift        Stage = "lift"
	StageCapture2    Stage = "capture_2"
	StageConvert2    Stage = "convert_2"
	StageCreateModel Stage = "create_model"
	StageStore       Stage = "store"
	StageRefresh     Stage = "refresh"
)

// EnrollError reports the enrollment step that failed.
type EnrollError struct {
	Slot  int
	Stage Stage
	Err   error
}

func (e *EnrollError) Error() string {
	return fmt.Sprintf("enroll slot %d: %s: %v", e.Slot, e.Stage, e.Err)
}

func (e *EnrollError) Unwrap() error {
	return e.Err
}
