package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/accesslog"
	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

// historyTimeout bounds an access log query triggered over MQTT.
const historyTimeout = 5 * time.Second

// Bridge connects the fingerprint service to MQTT.
// It handles:
//   - Receiving {prefix}/set/* commands and dispatching them to the service
//   - Publishing mode, scan, registry and admin events
//   - Health reporting and graceful shutdown
//
// Bridge implements fingerprint.EventSink.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	nodeID string
	topics mqtt.Topics
	qos    byte
	mqtt   MQTTClient
	health *HealthReporter

	history History

	service   Service
	serviceMu sync.RWMutex

	// Shutdown coordination
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// MQTTClient is the interface for MQTT operations.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// Service is the part of fingerprint.Service the bridge drives.
type Service interface {
	Request(ctx context.Context, mode fingerprint.Mode, slot int) error
	Rename(ctx context.Context, slot int, label string) (template.Record, error)
	Templates() []template.Record
	Status() fingerprint.Status
}

// History answers access log queries. It is optional.
type History interface {
	Recent(ctx context.Context, limit int) ([]accesslog.Event, error)
}

// Logger interface for optional logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// NodeID identifies this node in health messages.
	NodeID  string
	Version string

	// Topics is the topic builder for the configured prefix.
	Topics mqtt.Topics

	// QoS is used for every publish and the command subscription.
	QoS byte

	// HealthInterval is how often health is published. Default: 30 seconds.
	HealthInterval time.Duration

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// History is the optional access log for set/history.
	History History

	// Logger is optional structured logger.
	Logger Logger
}

// NewBridge creates a new bridge instance.
// Call Start to begin handling commands.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}
	if opts.Topics.Prefix == "" {
		opts.Topics = mqtt.NewTopics("")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		nodeID:    opts.NodeID,
		topics:    opts.Topics,
		qos:       opts.QoS,
		mqtt:      opts.MQTTClient,
		history:   opts.History,
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		NodeID:    opts.NodeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Topic:     opts.Topics.Health(),
		Publisher: opts.MQTTClient,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start subscribes to the command topics and starts health reporting.
//
// Parameters:
//   - ctx: Lifetime of health reporting
//   - svc: The started fingerprint service commands are dispatched to
//
// Returns:
//   - error: If the command subscription fails
func (b *Bridge) Start(ctx context.Context, svc Service) error {
	b.serviceMu.Lock()
	b.service = svc
	b.serviceMu.Unlock()
	b.health.SetSource(svc)

	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	commandTopic := b.topics.SetWildcard()
	if err := b.mqtt.Subscribe(commandTopic, b.qos, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	b.Resync()
	b.health.Start(ctx)

	b.logInfo("bridge started", "node_id", b.nodeID, "prefix", b.topics.Prefix)
	return nil
}

// Stop cancels in-flight commands and waits for them to finish.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()
		b.health.Stop()
		b.wg.Wait()
		b.logInfo("bridge stopped")
	})
}

// Resync republishes the retained mode and registry. Call it after the
// broker connection is re-established.
func (b *Bridge) Resync() {
	svc := b.currentService()
	if svc == nil {
		return
	}
	b.ModeChanged(svc.Status().Mode)
	b.TemplatesUpdated(svc.Templates())
}

func (b *Bridge) currentService() Service {
	b.serviceMu.RLock()
	defer b.serviceMu.RUnlock()
	return b.service
}

// ============================================================================
// Inbound commands
// ============================================================================

// handleMQTTMessage routes a {prefix}/set/{command} message.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	select {
	case <-b.done:
		return
	default:
	}

	command, ok := b.topics.ParseSet(topic)
	if !ok {
		b.logError("invalid topic format", fmt.Errorf("topic: %s", topic))
		return
	}
	svc := b.currentService()
	if svc == nil {
		b.logWarn("command before start ignored", "command", command)
		return
	}

	b.logInfo("received command", "command", command)

	if rest, ok := strings.CutPrefix(command, mqtt.CommandNamePrefix); ok {
		b.handleRename(svc, rest, payload)
		return
	}

	switch command {
	case mqtt.CommandScan, mqtt.CommandEnroll, mqtt.CommandDelete, mqtt.CommandEmpty:
		b.handleModeRequest(svc, command, payload)
	case mqtt.CommandTemplates:
		b.TemplatesUpdated(svc.Templates())
	case mqtt.CommandHistory:
		b.handleHistory(payload)
	default:
		b.logError("unknown command", fmt.Errorf("%w: %s", ErrUnknownCommand, command))
	}
}

// handleModeRequest runs the request off the MQTT router goroutine:
// an enrollment can take two capture timeouts.
func (b *Bridge) handleModeRequest(svc Service, command string, payload []byte) {
	mode, err := fingerprint.ParseMode(command)
	if err != nil {
		b.logError("invalid mode", err)
		return
	}
	slot, err := parseSlot(payload)
	if err != nil {
		b.logError("invalid mode payload", err)
		return
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		err := svc.Request(b.ctx, mode, slot)
		switch {
		case err == nil:
		case errors.Is(err, fingerprint.ErrBusy), errors.Is(err, fingerprint.ErrAlreadyInMode):
			b.logInfo("mode request ignored", "mode", mode.String(), "reason", err.Error())
		default:
			b.logError("mode request failed", err)
		}
	}()
}

func (b *Bridge) handleRename(svc Service, slotText string, payload []byte) {
	slot, err := strconv.Atoi(slotText)
	if err != nil {
		b.logError("invalid rename slot", fmt.Errorf("%w: %q", ErrInvalidPayload, slotText))
		return
	}
	ctx, cancel := context.WithTimeout(b.ctx, historyTimeout)
	defer cancel()
	if _, err := svc.Rename(ctx, slot, parseLabel(payload)); err != nil {
		b.logError("rename failed", err)
	}
}

func (b *Bridge) handleHistory(payload []byte) {
	if b.history == nil {
		b.logError("history requested", ErrNoHistory)
		return
	}
	limit, err := parseLimit(payload)
	if err != nil {
		b.logError("invalid history payload", err)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, historyTimeout)
	defer cancel()
	events, err := b.history.Recent(ctx, limit)
	if err != nil {
		b.logError("history query failed", err)
		return
	}
	if events == nil {
		events = []accesslog.Event{}
	}
	b.publishJSON(b.topics.History(), HistoryMessage{Events: events, Count: len(events)}, false)
}

// ============================================================================
// Outbound events (fingerprint.EventSink)
// ============================================================================

// ModeChanged publishes the active mode as a plain string (retained).
func (b *Bridge) ModeChanged(mode fingerprint.Mode) {
	if err := b.mqtt.Publish(b.topics.Mode(), []byte(mode.String()), b.qos, true); err != nil {
		b.logError("failed to publish mode", err)
	}
}

// ScanMatched publishes a found finger.
func (b *Bridge) ScanMatched(ev fingerprint.ScanEvent) {
	b.publishJSON(b.topics.Finger(), NewFingerMessage(ev), false)
}

// ScanRejected publishes an unauthorized scan.
func (b *Bridge) ScanRejected(ev fingerprint.ScanEvent) {
	b.publishJSON(b.topics.Finger(), NewFingerMessage(ev), false)
}

// TemplatesUpdated publishes the full registry (retained).
func (b *Bridge) TemplatesUpdated(records []template.Record) {
	payload, err := templatesPayload(records)
	if err != nil {
		b.logError("failed to marshal templates", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.Templates(), payload, b.qos, true); err != nil {
		b.logError("failed to publish templates", err)
	}
}

// AdminCompleted publishes the outcome of an enroll, delete or empty.
func (b *Bridge) AdminCompleted(ev fingerprint.AdminEvent) {
	b.publishJSON(b.topics.Event(), NewEventMessage(ev), false)
}

func (b *Bridge) publishJSON(topic string, v any, retained bool) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logError("failed to marshal message", err)
		return
	}
	if err := b.mqtt.Publish(topic, payload, b.qos, retained); err != nil {
		b.logError("failed to publish", fmt.Errorf("%s: %w", topic, err))
	}
}

// ============================================================================
// Logging
// ============================================================================

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}
