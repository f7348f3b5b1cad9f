package fingerprint

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/indicator"
	"github.com/nerrad567/gray-logic-fingerprint/internal/sensor"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
)

// fakePort is a scripted sensor. Captures are served from the captures
// queue, then captureDefault forever.
type fakePort struct {
	mu sync.Mutex

	capacity       int
	ids            map[int]bool
	captures       []error
	captureDefault error
	convertErr     map[int]error
	createErr      error
	storeErr       error
	deleteErr      error
	emptyErr       error
	match          sensor.Match
	searchErr      error
	capacityErr    error

	calls []string
}

func newFakePort(capacity int, ids ...int) *fakePort {
	p := &fakePort{
		capacity:       capacity,
		ids:            make(map[int]bool),
		captureDefault: sensor.ErrNoFinger,
		convertErr:     make(map[int]error),
	}
	for _, id := range ids {
		p.ids[id] = true
	}
	return p
}

func (p *fakePort) record(call string) {
	p.calls = append(p.calls, call)
}

func (p *fakePort) CaptureImage(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("capture")
	if len(p.captures) > 0 {
		err := p.captures[0]
		p.captures = p.captures[1:]
		return err
	}
	return p.captureDefault
}

func (p *fakePort) ImageToTemplate(_ context.Context, buffer int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("convert")
	return p.convertErr[buffer]
}

func (p *fakePort) CreateModel(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("create")
	return p.createErr
}

func (p *fakePort) StoreModel(_ context.Context, slot int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("store")
	if p.storeErr != nil {
		return p.storeErr
	}
	p.ids[slot] = true
	return nil
}

func (p *fakePort) DeleteModel(_ context.Context, slot int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("delete")
	if p.deleteErr != nil {
		return p.deleteErr
	}
	delete(p.ids, slot)
	return nil
}

func (p *fakePort) EmptyLibrary(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("empty")
	if p.emptyErr != nil {
		return p.emptyErr
	}
	p.ids = make(map[int]bool)
	return nil
}

func (p *fakePort) Search(context.Context) (sensor.Match, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record("search")
	return p.match, p.searchErr
}

func (p *fakePort) ReadTemplateIDs(context.Context) ([]int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]int, 0, len(p.ids))
	for id := range p.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (p *fakePort) ReadCapacity(context.Context) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.capacity, p.capacityErr
}

func (p *fakePort) SetIndicator(context.Context, sensor.Color, sensor.LEDMode) error {
	return nil
}

func (p *fakePort) has(call string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.calls {
		if c == call {
			return true
		}
	}
	return false
}

type fakeIndicator struct {
	mu      sync.Mutex
	signals []indicator.Signal
}

func (f *fakeIndicator) Signal(_ context.Context, s indicator.Signal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, s)
}

func (f *fakeIndicator) snapshot() []indicator.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]indicator.Signal(nil), f.signals...)
}

type memoryStore struct {
	mu      sync.Mutex
	records []template.Record
}

func (m *memoryStore) Load(context.Context) ([]template.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]template.Record(nil), m.records...), nil
}

func (m *memoryStore) Save(_ context.Context, records []template.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append([]template.Record(nil), records...)
	return nil
}

type recordingSink struct {
	mu        sync.Mutex
	modes     []Mode
	matched   []ScanEvent
	rejected  []ScanEvent
	templates [][]template.Record
	admin     []AdminEvent
}

func (r *recordingSink) ModeChanged(m Mode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes = append(r.modes, m)
}

func (r *recordingSink) ScanMatched(ev ScanEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matched = append(r.matched, ev)
}

func (r *recordingSink) ScanRejected(ev ScanEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, ev)
}

func (r *recordingSink) TemplatesUpdated(records []template.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates = append(r.templates, records)
}

func (r *recordingSink) AdminCompleted(ev AdminEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admin = append(r.admin, ev)
}

func (r *recordingSink) lastAdmin(t *testing.T) AdminEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.admin) == 0 {
		t.Fatal("no admin event recorded")
	}
	return r.admin[len(r.admin)-1]
}

func (r *recordingSink) modeHistory() []Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Mode(nil), r.modes...)
}

func (r *recordingSink) counts() (matched, rejected int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.matched), len(r.rejected)
}

var t0 = time.Unix(1767225600, 0)

type harness struct {
	svc   *Service
	port  *fakePort
	sink  *recordingSink
	leds  *fakeIndicator
	store *memoryStore
}

func testOptions() Options {
	return Options{
		CaptureTimeout: 50 * time.Millisecond,
		PollInterval:   time.Millisecond,
		ScanInterval:   time.Millisecond,
		Now:            func() time.Time { return t0 },
	}
}

func newHarness(port *fakePort, opts Options) *harness {
	h := &harness{
		port:  port,
		sink:  &recordingSink{},
		leds:  &fakeIndicator{},
		store: &memoryStore{},
	}
	h.svc = NewService(port, h.leds, template.NewRegistry(h.store), h.sink, opts)
	return h
}

// primed returns a harness whose service has read the device snapshot but
// runs no scan loop, so admin operations see a fully scripted port.
func primed(t *testing.T, port *fakePort, opts Options) *harness {
	t.Helper()
	h := newHarness(port, opts)

	h.svc.portMu.Lock()
	err := h.svc.refresh(context.Background())
	h.svc.portMu.Unlock()
	if err != nil {
		t.Fatalf("refresh() error = %v", err)
	}
	h.svc.running = true
	return h
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}
