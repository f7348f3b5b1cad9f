package indicator

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/sensor"
)

// DefaultDwell is how long success and error colours are held.
const DefaultDwell = time.Second

// Signal is a semantic indicator state.
type Signal int

const (
	Idle Signal = iota
	Scanning
	Enrolling
	Success
	Error
)

var signalNames = map[Signal]string{
	Idle:      "idle",
	Scanning:  "scanning",
	Enrolling: "enrolling",
	Success:   "success",
	Error:     "error",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}
	return "unknown"
}

// Transient reports whether the signal reverts to off after the dwell time.
func (s Signal) Transient() bool {
	return s == Success || s == Error
}

type pattern struct {
	color sensor.Color
	mode  sensor.LEDMode
}

var patterns = map[Signal]pattern{
	Idle:      {sensor.ColorPurple, sensor.LEDOff},
	Scanning:  {sensor.ColorPurple, sensor.LEDFlashing},
	Enrolling: {sensor.ColorPurple, sensor.LEDBreathing},
	Success:   {sensor.ColorBlue, sensor.LEDOn},
	Error:     {sensor.ColorRed, sensor.LEDOn},
}

// Setter is the slice of sensor.Port the controller drives.
type Setter interface {
	SetIndicator(ctx context.Context, color sensor.Color, mode sensor.LEDMode) error
}

// Logger is the optional logging dependency.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Controller maps signals onto the sensor's LED ring.
//
// Success and Error hold their colour for the dwell time and then switch the
// ring off; the call blocks for the dwell so the sensor is not touched by
// anything else meanwhile. Steady signals return immediately.
type Controller struct {
	setter Setter
	dwell  time.Duration
	logger Logger

	mu   sync.Mutex
	last Signal
}

// New creates a Controller. A non-positive dwell selects DefaultDwell.
func New(setter Setter, dwell time.Duration) *Controller {
	if dwell <= 0 {
		dwell = DefaultDwell
	}
	return &Controller{setter: setter, dwell: dwell, logger: noopLogger{}, last: Idle}
}

// SetLogger sets the logger used for indicator failures.
func (c *Controller) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	c.logger = logger
}

// Last returns the most recently requested signal.
func (c *Controller) Last() Signal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// Signal shows s on the ring. Failures are logged, never returned.
func (c *Controller) Signal(ctx context.Context, s Signal) {
	c.mu.Lock()
	c.last = s
	c.mu.Unlock()

	p, ok := patterns[s]
	if !ok {
		return
	}
	c.set(ctx, s, p)

	if !s.Transient() {
		return
	}

	timer := time.NewTimer(c.dwell)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
	// Revert even when ctx is done so the ring is not left lit on shutdown.
	c.set(context.WithoutCancel(ctx), Idle, patterns[Idle])
}

func (c *Controller) set(ctx context.Context, s Signal, p pattern) {
	if err := c.setter.SetIndicator(ctx, p.color, p.mode); err != nil {
		c.logger.Warn("indicator update failed", "signal", s.String(), "error", err)
	}
}
