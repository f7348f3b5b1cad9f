package bridge

import (
	"context"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-fingerprint/internal/accesslog"
	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

// MockMQTTClient implements MQTTClient for testing.
type MockMQTTClient struct {
	mu            sync.Mutex
	published     []mockPublish
	subscriptions []mockSubscription
	connected     bool
	handlers      map[string]func(topic string, payload []byte)
}

type mockPublish struct {
	Topic    string
	Payload  []byte
	QoS      byte
	Retained bool
}

type mockSubscription struct {
	Topic string
	QoS   byte
}

func NewMockMQTTClient() *MockMQTTClient {
	return &MockMQTTClient{
		connected: true,
		handlers:  make(map[string]func(topic string, payload []byte)),
	}
}

func (m *MockMQTTClient) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = append(m.published, mockPublish{
		Topic:    topic,
		Payload:  payload,
		QoS:      qos,
		Retained: retained,
	})
	return nil
}

func (m *MockMQTTClient) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions = append(m.subscriptions, mockSubscription{Topic: topic, QoS: qos})
	m.handlers[topic] = handler
	return nil
}

func (m *MockMQTTClient) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

func (m *MockMQTTClient) setConnected(c bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = c
}

func (m *MockMQTTClient) GetPublished() []mockPublish {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mockPublish(nil), m.published...)
}

// PublishedTo returns every payload sent to topic, oldest first.
func (m *MockMQTTClient) PublishedTo(topic string) []mockPublish {
	var out []mockPublish
	for _, p := range m.GetPublished() {
		if p.Topic == topic {
			out = append(out, p)
		}
	}
	return out
}

func (m *MockMQTTClient) GetSubscriptions() []mockSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscriptions
}

func (m *MockMQTTClient) ClearPublished() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
}

// SimulateMessage delivers a message to every handler whose filter matches.
// Only trailing '#' wildcards are supported.
func (m *MockMQTTClient) SimulateMessage(topic string, payload []byte) {
	m.mu.Lock()
	var matched []func(string, []byte)
	for filter, handler := range m.handlers {
		if filter == topic || (strings.HasSuffix(filter, "/#") && strings.HasPrefix(topic, strings.TrimSuffix(filter, "#"))) {
			matched = append(matched, handler)
		}
	}
	m.mu.Unlock()
	for _, handler := range matched {
		handler(topic, payload)
	}
}

type request struct {
	mode fingerprint.Mode
	slot int
}

type rename struct {
	slot  int
	label string
}

// fakeService records the calls the bridge makes.
type fakeService struct {
	mu         sync.Mutex
	requests   []request
	renames    []rename
	requestErr error
	renameErr  error
	records    []template.Record
	status     fingerprint.Status
}

func (f *fakeService) Request(_ context.Context, mode fingerprint.Mode, slot int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request{mode, slot})
	return f.requestErr
}

func (f *fakeService) Rename(_ context.Context, slot int, label string) (template.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.renames = append(f.renames, rename{slot, label})
	return template.Record{ID: slot, Label: label}, f.renameErr
}

func (f *fakeService) Templates() []template.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records
}

func (f *fakeService) Status() fingerprint.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeService) getRequests() []request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]request(nil), f.requests...)
}

type fakeHistory struct {
	events []accesslog.Event
	limit  int
}

func (f *fakeHistory) Recent(_ context.Context, limit int) ([]accesslog.Event, error) {
	f.limit = limit
	return f.events, nil
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *mockLogger) Debug(string, ...any) {}
func (l *mockLogger) Info(string, ...any)  {}
func (l *mockLogger) Warn(string, ...any)  {}
func (l *mockLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *mockLogger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.errors)
}
