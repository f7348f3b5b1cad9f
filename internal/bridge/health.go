package bridge

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
)

// HealthStatus is the node's operational status.
type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

const defaultHealthInterval = 30 * time.Second

// HealthMessage is published on {prefix}/health.
type HealthMessage struct {
	Node          string       `json:"node"`
	Timestamp     time.Time    `json:"timestamp"`
	Status        HealthStatus `json:"status"`
	Version       string       `json:"version"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Mode          string       `json:"mode,omitempty"`
	Templates     int          `json:"templates"`
	Capacity      int          `json:"capacity"`
	Reason        string       `json:"reason,omitempty"`
}

// HealthPublisher is the interface for publishing health messages.
type HealthPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	IsConnected() bool
}

// StatusSource reports the service state included in health messages.
type StatusSource interface {
	Status() fingerprint.Status
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// NodeID identifies the node in health messages.
	NodeID  string
	Version string

	// Interval is how often to publish. Default: 30 seconds.
	Interval time.Duration

	// Topic receives the retained health messages.
	Topic     string
	Publisher HealthPublisher
}

// HealthReporter publishes health messages at a fixed interval.
type HealthReporter struct {
	nodeID    string
	version   string
	topic     string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher

	source   StatusSource
	sourceMu sync.RWMutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// NewHealthReporter creates a new health reporter.
//
// Parameters:
//   - cfg: Configuration for the health reporter
//
// Returns:
//   - *HealthReporter: Ready to start (call Start to begin reporting)
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultHealthInterval
	}
	return &HealthReporter{
		nodeID:    cfg.NodeID,
		version:   cfg.Version,
		topic:     cfg.Topic,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		done:      make(chan struct{}),
	}
}

// SetSource attaches the service whose status is reported.
func (h *HealthReporter) SetSource(source StatusSource) {
	h.sourceMu.Lock()
	h.source = source
	h.sourceMu.Unlock()
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// Start begins periodic health reporting until ctx ends or Stop is called.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop ends reporting and publishes a final "stopping" status.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown
		h.publishStatus(HealthStopping, "")
	})
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "node starting")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	if err := h.PublishNow(); err != nil {
		h.logError("failed to publish initial health", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

func (h *HealthReporter) status() (fingerprint.Status, bool) {
	h.sourceMu.RLock()
	defer h.sourceMu.RUnlock()
	if h.source == nil {
		return fingerprint.Status{}, false
	}
	return h.source.Status(), true
}

func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	status, ok := h.status()
	if !ok || !status.Running {
		return HealthDegraded, "scanner not running"
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	msg := HealthMessage{
		Node:          h.nodeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Reason:        reason,
	}
	if st, ok := h.status(); ok {
		msg.Mode = st.Mode.String()
		msg.Templates = st.Stored
		msg.Capacity = st.Capacity
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return h.publisher.Publish(h.topic, payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
