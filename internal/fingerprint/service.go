package fingerprint

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/indicator"
	"github.com/nerrad567/gray-logic-fingerprint/internal/sensor"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

// Default timings.
const (
	DefaultCaptureTimeout = 10 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
	DefaultScanInterval   = 100 * time.Millisecond
)

// Indicator shows a semantic signal on the sensor's LED.
// *indicator.Controller satisfies it.
type Indicator interface {
	Signal(ctx context.Context, s indicator.Signal)
}

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Service. Zero values take the defaults.
type Options struct {
	// CaptureTimeout bounds each wait for a finger during enrollment.
	CaptureTimeout time.Duration
	// PollInterval is the gap between capture attempts while enrolling.
	PollInterval time.Duration
	// ScanInterval is the gap between scan-loop captures.
	ScanInterval time.Duration
	// MatchTimeout marks unnamed slots stale after this long unseen. Zero disables.
	MatchTimeout time.Duration
	SlotPolicy   SlotPolicy

	// Now is the clock used for record timestamps.
	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.CaptureTimeout <= 0 {
		o.CaptureTimeout = DefaultCaptureTimeout
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ScanInterval <= 0 {
		o.ScanInterval = DefaultScanInterval
	}
	if o.SlotPolicy == "" {
		o.SlotPolicy = SlotAuto
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Status is a point-in-time view of the node.
type Status struct {
	Mode     Mode
	Capacity int
	Stored   int
	Running  bool
}

// Service owns the sensor and runs the node's modes.
//
// In scan mode a background loop captures and searches continuously. Enroll,
// delete and empty are exclusive: they claim the mode from scan, hold the
// sensor until done, and always hand it back to scan afterwards.
//
// All public methods are thread-safe.
type Service struct {
	port      sensor.Port
	indicator Indicator
	registry  *template.Registry
	sink      EventSink
	opts      Options
	logger    Logger

	mode   atomic.Int32
	portMu sync.Mutex
	wake   chan struct{}

	snapMu   sync.RWMutex
	capacity int
	occupied []int

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewService wires a Service. A nil sink discards events.
//
// Parameters:
//   - port: Sensor the service takes exclusive ownership of
//   - ind: LED signalling
//   - registry: Slot metadata, reconciled against the sensor on Start
//   - sink: Receiver for mode, scan, template and admin events
//   - opts: Timing and slot policy
//
// Returns:
//   - *Service: Ready to Start
func NewService(port sensor.Port, ind Indicator, registry *template.Registry, sink EventSink, opts Options) *Service {
	opts.applyDefaults()
	if sink == nil {
		sink = NopSink{}
	}
	return &Service{
		port:      port,
		indicator: ind,
		registry:  registry,
		sink:      sink,
		opts:      opts,
		logger:    noopLogger{},
		wake:      make(chan struct{}, 1),
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Start reads the device snapshot, reconciles the registry against it and
// launches the scan loop. A sensor that cannot report its library is fatal.
func (s *Service) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.running {
		return nil
	}

	if err := s.registry.Load(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrInit, err)
	}

	s.portMu.Lock()
	err := s.refresh(ctx)
	s.portMu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInit, err)
	}

	s.mode.Store(int32(ModeScan))
	s.sink.ModeChanged(ModeScan)
	s.indicator.Signal(ctx, indicator.Idle)

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.wg.Add(1)
	go s.scanLoop(loopCtx)

	s.logger.Info("fingerprint service started",
		"capacity", s.Capacity(), "stored", s.registry.Len(), "slot_policy", string(s.opts.SlotPolicy))
	return nil
}

// Stop ends the scan loop and waits for it to exit. In-flight admin
// operations finish on their own contexts.
func (s *Service) Stop() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.runMu.Unlock()

	s.wg.Wait()
	s.logger.Info("fingerprint service stopped")
}

// Mode returns the active mode.
func (s *Service) Mode() Mode {
	return Mode(s.mode.Load())
}

// Capacity returns the library size read from the sensor.
func (s *Service) Capacity() int {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.capacity
}

// Status returns a snapshot for health reporting.
func (s *Service) Status() Status {
	s.runMu.Lock()
	running := s.running
	s.runMu.Unlock()

	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return Status{
		Mode:     s.Mode(),
		Capacity: s.capacity,
		Stored:   len(s.occupied),
		Running:  running,
	}
}

// Templates returns the registry records sorted by slot.
func (s *Service) Templates() []template.Record {
	return s.registry.List()
}

// PublishTemplates re-emits the current registry to the sink.
func (s *Service) PublishTemplates() {
	s.sink.TemplatesUpdated(s.registry.List())
}

// Rename labels an enrolled slot and publishes the updated registry.
func (s *Service) Rename(ctx context.Context, slot int, label string) (template.Record, error) {
	rec, err := s.registry.Rename(ctx, slot, label)
	if err != nil {
		return rec, err
	}
	s.logger.Info("template renamed", "slot", slot, "label", rec.Label)
	s.sink.TemplatesUpdated(s.registry.List())
	return rec, nil
}

// refresh rereads the template index and capacity and reconciles the
// registry. Callers hold portMu.
func (s *Service) refresh(ctx context.Context) error {
	capacity, err := s.port.ReadCapacity(ctx)
	if err != nil {
		return fmt.Errorf("reading capacity: %w", err)
	}
	ids, err := s.port.ReadTemplateIDs(ctx)
	if err != nil {
		return fmt.Errorf("reading template index: %w", err)
	}

	s.snapMu.Lock()
	s.capacity = capacity
	s.occupied = append(s.occupied[:0], ids...)
	s.snapMu.Unlock()

	if _, err := s.registry.Reconcile(ctx, ids, s.opts.Now()); err != nil {
		// In-memory state is already aligned; only persistence failed.
		s.logger.Error("persisting reconciled registry", "error", err)
	}
	s.sink.TemplatesUpdated(s.registry.List())
	return nil
}

func (s *Service) snapshot() (int, []int) {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.capacity, append([]int(nil), s.occupied...)
}

func (s *Service) started() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.running
}

// sleep waits d or until ctx ends.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
