package fingerprint

import (
	"fmt"
	"strings"
)

// Mode is the node's operating mode. Exactly one is active at a time.
type Mode int32

const (
	// ModeScan is the resting mode: the scan loop owns the sensor.
	ModeScan Mode = iota
	ModeEnroll
	ModeDelete
	ModeEmpty
)

var modeNames = [...]string{
	ModeScan:   "scan",
	ModeEnroll: "enroll",
	ModeDelete: "delete",
	ModeEmpty:  "empty",
}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("mode(%d)", int32(m))
}

// Admin reports whether m is an exclusive administrative mode.
func (m Mode) Admin() bool {
	return m == ModeEnroll || m == ModeDelete || m == ModeEmpty
}

// ParseMode converts a command name into a Mode.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return Mode(m), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}
