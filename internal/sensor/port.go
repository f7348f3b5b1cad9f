package sensor

import "context"

// Template buffers used by ImageToTemplate and CreateModel.
const (
	BufferOne = 1
	BufferTwo = 2
)

// Color is an aura LED colour.
type Color byte

const (
	ColorRed    Color = 0x01
	ColorBlue   Color = 0x02
	ColorPurple Color = 0x03
)

// LEDMode is an aura LED pattern.
type LEDMode byte

const (
	LEDBreathing LEDMode = 0x01
	LEDFlashing  LEDMode = 0x02
	LEDOn        LEDMode = 0x03
	LEDOff       LEDMode = 0x04
)

// Match is a successful library search.
type Match struct {
	Slot       int
	Confidence int
}

// Port is the set of opaque device operations the node needs.
//
// Every failure is reported as an error that unwraps to one of the package
// sentinels (ErrNoFinger, ErrNoMatch, ...). Implementations are not required
// to be safe for concurrent use; callers serialise access.
type Port interface {
	CaptureImage(ctx context.Context) error
	ImageToTemplate(ctx context.Context, buffer int) error
	CreateModel(ctx context.Context) error
	StoreModel(ctx context.Context, slot int) error
	DeleteModel(ctx context.Context, slot int) error
	EmptyLibrary(ctx context.Context) error
	Search(ctx context.Context) (Match, error)
	ReadTemplateIDs(ctx context.Context) ([]int, error)
	ReadCapacity(ctx context.Context) (int, error)
	SetIndicator(ctx context.Context, color Color, mode LEDMode) error
}
