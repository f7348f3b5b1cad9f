package sensor

import (
	"errors"
	"fmt"
)

// Status is the confirmation code returned in every acknowledge packet.
type Status byte

// Confirmation codes from the R30x/ZFM datasheet.
const (
	StatusOK             Status = 0x00
	StatusPacketReceive  Status = 0x01
	StatusNoFinger       Status = 0x02
	StatusImageFail      Status = 0x03
	StatusImageMess      Status = 0x06
	StatusFeatureFail    Status = 0x07
	StatusNoMatch        Status = 0x08
	StatusNotFound       Status = 0x09
	StatusEnrollMismatch Status = 0x0A
	StatusBadLocation    Status = 0x0B
	StatusDBReadFail     Status = 0x0C
	StatusUploadFeature  Status = 0x0D
	StatusDeleteFail     Status = 0x10
	StatusDBClearFail    Status = 0x11
	StatusPassFail       Status = 0x13
	StatusInvalidImage   Status = 0x15
	StatusFlashErr       Status = 0x18
	StatusInvalidReg     Status = 0x1A
)

// Sentinel errors forming the sensor status vocabulary. Every device failure
// unwraps to exactly one of these.
var (
	ErrNoFinger           = errors.New("sensor: no finger present")
	ErrImageCapture       = errors.New("sensor: image capture failed")
	ErrImageMessy         = errors.New("sensor: image too messy")
	ErrFeatureExtraction  = errors.New("sensor: feature extraction failed")
	ErrInvalidImage       = errors.New("sensor: invalid image")
	ErrEnrollMismatch     = errors.New("sensor: enrollment mismatch")
	ErrBadLocation        = errors.New("sensor: bad storage location")
	ErrStorageWrite       = errors.New("sensor: storage write failed")
	ErrNoMatch            = errors.New("sensor: no match")
	ErrDevice             = errors.New("sensor: device error")
	ErrPasswordRejected   = errors.New("sensor: password rejected")
	ErrChecksum           = errors.New("sensor: checksum mismatch")
	ErrUnexpectedResponse = errors.New("sensor: unexpected response")
	ErrTimeout            = errors.New("sensor: read timeout")
	ErrClosed             = errors.New("sensor: port closed")
)

// Err maps a confirmation code to its sentinel. StatusOK maps to nil.
func (s Status) Err() error {
	switch s {
	case StatusOK:
		return nil
	case StatusNoFinger:
		return ErrNoFinger
	case StatusImageFail:
		return ErrImageCapture
	case StatusImageMess:
		return ErrImageMessy
	case StatusFeatureFail:
		return ErrFeatureExtraction
	case StatusInvalidImage:
		return ErrInvalidImage
	case StatusEnrollMismatch:
		return ErrEnrollMismatch
	case StatusBadLocation:
		return ErrBadLocation
	case StatusFlashErr, StatusDeleteFail, StatusDBClearFail:
		return ErrStorageWrite
	case StatusNoMatch, StatusNotFound:
		return ErrNoMatch
	case StatusPassFail:
		return ErrPasswordRejected
	default:
		return ErrDevice
	}
}

func (s Status) String() string {
	return fmt.Sprintf("0x%02X", byte(s))
}

// StatusError records the instruction that produced a non-OK confirmation code.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %s: %v", e.Op, e.Status, e.Status.Err())
}

// Unwrap returns the sentinel for the status code.
func (e *StatusError) Unwrap() error {
	return e.Status.Err()
}

// Class groups sensor failures by how callers react to them.
type Class string

const (
	ClassNone           Class = ""
	ClassTransient      Class = "transient"
	ClassCapture        Class = "capture"
	ClassClassification Class = "classification"
	ClassProtocol       Class = "protocol"
	ClassStorage        Class = "storage"
	ClassNoMatch        Class = "no_match"
	ClassDevice         Class = "device"
)

// Classify returns the failure class of err. A nil error is ClassNone;
// anything outside the vocabulary is ClassDevice.
func Classify(err error) Class {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrNoFinger):
		return ClassTransient
	case errors.Is(err, ErrImageCapture):
		return ClassCapture
	case errors.Is(err, ErrImageMessy),
		errors.Is(err, ErrFeatureExtraction),
		errors.Is(err, ErrInvalidImage):
		return ClassClassification
	case errors.Is(err, ErrEnrollMismatch):
		return ClassProtocol
	case errors.Is(err, ErrBadLocation), errors.Is(err, ErrStorageWrite):
		return ClassStorage
	case errors.Is(err, ErrNoMatch):
		return ClassNoMatch
	default:
		return ClassDevice
	}
}
