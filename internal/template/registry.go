package template

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

// Registry maps occupied sensor slots to their metadata.
//
// The sensor is the source of truth for which slots exist: Reconcile makes
// the key set equal to the device's stored IDs. Every mutation is written
// through to the Store before the method returns.
//
// All public methods are thread-safe.
type Registry struct {
	store   Store
	records map[int]Record
	mu      sync.RWMutex
	logger  Logger
}

// NewRegistry creates an empty registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{
		store:   store,
		records: make(map[int]Record),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load replaces the in-memory records with the persisted ones.
// Call Reconcile afterwards to align them with the device.
func (r *Registry) Load(ctx context.Context) error {
	records, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading registry: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = make(map[int]Record, len(records))
	for _, rec := range records {
		r.records[rec.ID] = rec
	}
	r.logger.Info("template registry loaded", "count", len(records))
	return nil
}

// Reconcile aligns the registry with the IDs stored on the device: new IDs
// receive default records, vanished IDs are dropped, the rest are untouched.
// The registry is persisted even when nothing changed.
//
// Parameters:
//   - ctx: Context for the store write
//   - ids: Stored template IDs reported by the sensor
//   - now: Last-seen time for new records
//
// Returns:
//   - Diff: Slots added and removed
//   - error: If persisting fails (memory is already reconciled)
func (r *Registry) Reconcile(ctx context.Context, ids []int, now time.Time) (Diff, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	present := make(map[int]struct{}, len(ids))
	var diff Diff
	for _, id := range ids {
		present[id] = struct{}{}
		if _, ok := r.records[id]; !ok {
			r.records[id] = NewRecord(id, now)
			diff.Added = append(diff.Added, id)
		}
	}
	for id := range r.records {
		if _, ok := present[id]; !ok {
			delete(r.records, id)
			diff.Removed = append(diff.Removed, id)
		}
	}
	sort.Ints(diff.Added)
	sort.Ints(diff.Removed)

	if !diff.Empty() {
		r.logger.Info("template registry reconciled",
			"added", diff.Added, "removed", diff.Removed, "count", len(r.records))
	}
	return diff, r.saveLocked(ctx)
}

// RecordMatch registers a successful scan of slot id at now.
//
// When staleAfter is positive and the record still has its default label,
// a gap longer than staleAfter since the previous sighting turns the action
// into ActionTimeout. The count is incremented and last-seen set to now.
// A slot unknown to the registry gets a default record first.
func (r *Registry) RecordMatch(ctx context.Context, id int, now time.Time, staleAfter time.Duration) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		r.logger.Warn("match for slot missing from registry", "slot", id)
		rec = NewRecord(id, now)
	}

	if staleAfter > 0 && !rec.Named() && now.Sub(rec.LastSeen()) > staleAfter {
		rec.Action = ActionTimeout
	}
	rec.Count++
	rec.Time = now.Unix()
	r.records[id] = rec

	return rec, r.saveLocked(ctx)
}

// Rename sets the label of slot id and resets its action to unlock.
func (r *Registry) Rename(ctx context.Context, id int, label string) (Record, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Record{}, ErrInvalidLabel
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %d", ErrSlotNotFound, id)
	}
	rec.Label = label
	rec.Action = ActionUnlock
	r.records[id] = rec

	return rec, r.saveLocked(ctx)
}

// Get returns the record for slot id.
func (r *Registry) Get(id int) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %d", ErrSlotNotFound, id)
	}
	return rec, nil
}

// List returns all records sorted by ID.
func (r *Registry) List() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

// IDs returns the occupied slots in ascending order.
func (r *Registry) IDs() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *Registry) listLocked() []Record {
	list := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		list = append(list, rec)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *Registry) saveLocked(ctx context.Context) error {
	if err := r.store.Save(ctx, r.listLocked()); err != nil {
		return fmt.Errorf("persisting registry: %w", err)
	}
	return nil
}
