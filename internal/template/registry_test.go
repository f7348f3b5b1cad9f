package template

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

// memoryStore is an in-memory Store recording every save.
type memoryStore struct {
	mu      sync.Mutex
	records []Record
	saves   int
	saveErr error
}

func (m *memoryStore) Load(context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...), nil
}

func (m *memoryStore) Save(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append([]Record(nil), records...)
	return nil
}

var t0 = time.Unix(1767225600, 0)

func TestReconcile_StartupDefaults(t *testing.T) {
	store := &memoryStore{}
	reg := NewRegistry(store)

	diff, err := reg.Reconcile(context.Background(), []int{7, 3}, t0)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if !reflect.DeepEqual(diff.Added, []int{3, 7}) || len(diff.Removed) != 0 {
		t.Errorf("diff = %+v, want added [3 7]", diff)
	}

	want := []Record{
		{ID: 3, Label: "3", Action: ActionUnlock, Time: t0.Unix(), Count: 0},
		{ID: 7, Label: "7", Action: ActionUnlock, Time: t0.Unix(), Count: 0},
	}
	if got := reg.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %+v, want %+v", got, want)
	}
	if !reflect.DeepEqual(store.records, want) {
		t.Errorf("persisted = %+v, want %+v", store.records, want)
	}
}

func TestReconcile_DeleteDropsRecord(t *testing.T) {
	reg := NewRegistry(&memoryStore{})
	ctx := context.Background()

	if _, err := reg.Reconcile(ctx, []int{3, 7}, t0); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if _, err := reg.Rename(ctx, 7, "bob"); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}

	diff, err := reg.Reconcile(ctx, []int{7}, t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if !reflect.DeepEqual(diff.Removed, []int{3}) {
		t.Errorf("Removed = %v, want [3]", diff.Removed)
	}

	list := reg.List()
	if len(list) != 1 || list[0].ID != 7 || list[0].Label != "bob" {
		t.Errorf("List() = %+v, want only the untouched record 7", list)
	}
}

func TestReconcile_KeySetEqualsDeviceIDs(t *testing.T) {
	reg := NewRegistry(&memoryStore{})
	ctx := context.Background()

	snapshots := [][]int{{1, 2, 3}, {2, 3, 9}, {}, {0, 199}}
	for _, ids := range snapshots {
		if _, err := reg.Reconcile(ctx, ids, t0); err != nil {
			t.Fatalf("Reconcile(%v) error = %v", ids, err)
		}
		got := reg.IDs()
		if len(got) != len(ids) {
			t.Fatalf("IDs() = %v after reconciling %v", got, ids)
		}
		for i := range ids {
			if got[i] != ids[i] {
				t.Fatalf("IDs() = %v after reconciling %v", got, ids)
			}
		}
	}
}

func TestRecordMatch(t *testing.T) {
	reg := NewRegistry(&memoryStore{})
	ctx := context.Background()
	if _, err := reg.Reconcile(ctx, []int{7}, t0); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	later := t0.Add(5 * time.Minute)
	rec, err := reg.RecordMatch(ctx, 7, later, 0)
	if err != nil {
		t.Fatalf("RecordMatch() error = %v", err)
	}
	if rec.Count != 1 || rec.Time != later.Unix() || rec.Action != ActionUnlock {
		t.Errorf("RecordMatch() = %+v, want count 1, time updated, unlock", rec)
	}

	stored, _ := reg.Get(7)
	if stored != rec {
		t.Errorf("Get(7) = %+v, want %+v", stored, rec)
	}
}

func TestRecordMatch_StaleIdentity(t *testing.T) {
	tests := []struct {
		name       string
		label      string
		gap        time.Duration
		staleAfter time.Duration
		want       Action
	}{
		{"unnamed and stale", "", 2 * time.Hour, time.Hour, ActionTimeout},
		{"unnamed but recent", "", 30 * time.Minute, time.Hour, ActionUnlock},
		{"named and stale", "alice", 2 * time.Hour, time.Hour, ActionUnlock},
		{"check disabled", "", 48 * time.Hour, 0, ActionUnlock},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry(&memoryStore{})
			ctx := context.Background()
			if _, err := reg.Reconcile(ctx, []int{4}, t0); err != nil {
				t.Fatalf("Reconcile() error = %v", err)
			}
			if tt.label != "" {
				if _, err := reg.Rename(ctx, 4, tt.label); err != nil {
					t.Fatalf("Rename() error = %v", err)
				}
			}

			rec, err := reg.RecordMatch(ctx, 4, t0.Add(tt.gap), tt.staleAfter)
			if err != nil {
				t.Fatalf("RecordMatch() error = %v", err)
			}
			if rec.Action != tt.want {
				t.Errorf("Action = %q, want %q", rec.Action, tt.want)
			}
		})
	}
}

func TestRecordMatch_UnknownSlot(t *testing.T) {
	reg := NewRegistry(&memoryStore{})

	rec, err := reg.RecordMatch(context.Background(), 12, t0, 0)
	if err != nil {
		t.Fatalf("RecordMatch() error = %v", err)
	}
	if rec.ID != 12 || rec.Count != 1 {
		t.Errorf("RecordMatch() = %+v, want new record with count 1", rec)
	}
}

func TestRename(t *testing.T) {
	store := &memoryStore{}
	reg := NewRegistry(store)
	ctx := context.Background()
	if _, err := reg.Reconcile(ctx, []int{2}, t0); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if _, err := reg.RecordMatch(ctx, 2, t0.Add(48*time.Hour), time.Hour); err != nil {
		t.Fatalf("RecordMatch() error = %v", err)
	}

	rec, err := reg.Rename(ctx, 2, "  carol ")
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if rec.Label != "carol" || rec.Action != ActionUnlock {
		t.Errorf("Rename() = %+v, want label carol and action reset", rec)
	}
	if store.records[0].Label != "carol" {
		t.Error("rename not persisted")
	}

	if _, err := reg.Rename(ctx, 99, "x"); !errors.Is(err, ErrSlotNotFound) {
		t.Errorf("Rename(99) error = %v, want ErrSlotNotFound", err)
	}
	if _, err := reg.Rename(ctx, 2, " "); !errors.Is(err, ErrInvalidLabel) {
		t.Errorf("Rename(blank) error = %v, want ErrInvalidLabel", err)
	}
}

func TestLoad(t *testing.T) {
	store := &memoryStore{records: []Record{{ID: 5, Label: "dave", Action: ActionUnlock, Count: 3}}}
	reg := NewRegistry(store)

	if err := reg.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	rec, err := reg.Get(5)
	if err != nil || rec.Label != "dave" || rec.Count != 3 {
		t.Errorf("Get(5) = (%+v, %v), want persisted record", rec, err)
	}
}

func TestSaveFailureIsReturned(t *testing.T) {
	store := &memoryStore{saveErr: errors.New("disk full")}
	reg := NewRegistry(store)

	if _, err := reg.Reconcile(context.Background(), []int{1}, t0); err == nil {
		t.Fatal("Reconcile() expected persistence error")
	}
	if reg.Len() != 1 {
		t.Errorf("Len() = %d, want in-memory state reconciled", reg.Len())
	}
}
