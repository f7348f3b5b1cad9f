package accesslog

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-fingerprint/internal/fingerprint"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-fingerprint/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-fingerprint/internal/sensor"
	"github.com/nerrad567/gray-logic-fingerprint/internal/template"
	"github.com/nerrad567/gray-logic-fingerprint/migrations"
)

func openTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "access.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestCreate_GeneratesIDAndTime(t *testing.T) {
	repo := openTestRepo(t)

	ev := &Event{Kind: KindMatch, Slot: 7, Label: "alice", Action: "unlock", Confidence: 92, Success: true}
	if err := repo.Create(context.Background(), ev); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if !strings.HasPrefix(ev.ID, "evt-") {
		t.Errorf("ID = %q, want evt- prefix", ev.ID)
	}
	if ev.OccurredAt.IsZero() {
		t.Error("OccurredAt not set")
	}

	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 1 || len(res.Events) != 1 {
		t.Fatalf("List() = %+v, want one event", res)
	}
	got := res.Events[0]
	if got.ID != ev.ID || got.Slot != 7 || got.Label != "alice" || got.Confidence != 92 || !got.Success {
		t.Errorf("stored event = %+v", got)
	}
	if res.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", res.Limit, DefaultLimit)
	}
}

func TestList_FiltersAndOrder(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	seed := []Event{
		{OccurredAt: t0, Kind: KindMatch, Slot: 3, Success: true},
		{OccurredAt: t0.Add(time.Minute), Kind: KindUnauthorized, Slot: -1},
		{OccurredAt: t0.Add(2 * time.Minute), Kind: KindMatch, Slot: 7, Success: true},
		{OccurredAt: t0.Add(3 * time.Minute), Kind: KindDelete, Slot: 3, Success: true},
	}
	for i := range seed {
		if err := repo.Create(ctx, &seed[i]); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	slot3 := 3
	tests := []struct {
		name      string
		filter    Filter
		wantSlots []int
		wantTotal int
	}{
		{"all newest first", Filter{}, []int{3, 7, -1, 3}, 4},
		{"by kind", Filter{Kind: KindMatch}, []int{7, 3}, 2},
		{"by slot", Filter{Slot: &slot3}, []int{3, 3}, 2},
		{"since", Filter{Since: t0.Add(2 * time.Minute)}, []int{3, 7}, 2},
		{"paged", Filter{Limit: 2, Offset: 1}, []int{7, -1}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := repo.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if len(res.Events) != len(tt.wantSlots) {
				t.Fatalf("got %d events, want %d", len(res.Events), len(tt.wantSlots))
			}
			for i, ev := range res.Events {
				if ev.Slot != tt.wantSlots[i] {
					t.Errorf("event[%d].Slot = %d, want %d", i, ev.Slot, tt.wantSlots[i])
				}
			}
		})
	}
}

func TestList_ClampsLimit(t *testing.T) {
	repo := openTestRepo(t)

	res, err := repo.List(context.Background(), Filter{Limit: 10000, Offset: -5})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Limit != MaxLimit || res.Offset != 0 {
		t.Errorf("Limit/Offset = %d/%d, want %d/0", res.Limit, res.Offset, MaxLimit)
	}
	if res.Events == nil {
		t.Error("Events = nil, want empty slice")
	}
}

func TestSink_RecordsEvents(t *testing.T) {
	repo := openTestRepo(t)
	sink := NewSink(repo)

	sink.ModeChanged(fingerprint.ModeEnroll)
	sink.ScanMatched(fingerprint.ScanEvent{
		Slot: 7, Label: "7", Action: template.ActionUnlock, Time: t0, Count: 1, Confidence: 92,
	})
	sink.ScanRejected(fingerprint.ScanEvent{
		Slot: -1, Label: "unauthorized", Action: template.ActionUnauthorized,
		Time: t0.Add(time.Second), Reason: sensor.ErrNoMatch,
	})
	sink.AdminCompleted(fingerprint.AdminEvent{
		Op: fingerprint.ModeEnroll, Slot: 0, Started: t0.Add(2 * time.Second), Duration: time.Second,
		Err: &fingerprint.EnrollError{Slot: 0, Stage: fingerprint.StageCreateModel, Err: sensor.ErrEnrollMismatch},
	})

	res, err := repo.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if res.Total != 3 {
		t.Fatalf("Total = %d, want 3", res.Total)
	}

	admin, rejected, matched := res.Events[0], res.Events[1], res.Events[2]
	if admin.Kind != KindEnroll || admin.Success || admin.Action != "protocol" {
		t.Errorf("admin event = %+v", admin)
	}
	if !strings.Contains(admin.Detail, "create_model") {
		t.Errorf("admin Detail = %q, want failing stage", admin.Detail)
	}
	if rejected.Kind != KindUnauthorized || rejected.Slot != -1 || rejected.Detail == "" {
		t.Errorf("rejected event = %+v", rejected)
	}
	if matched.Kind != KindMatch || matched.Confidence != 92 || !matched.Success || !matched.OccurredAt.Equal(t0) {
		t.Errorf("matched event = %+v", matched)
	}
}

type failingRepo struct{}

func (failingRepo) Create(context.Context, *Event) error { return errors.New("disk full") }
func (failingRepo) List(context.Context, Filter) (*ListResult, error) {
	return nil, errors.New("disk full")
}

type countingLogger struct{ errors int }

func (l *countingLogger) Error(string, ...any) { l.errors++ }

func TestSink_LogsWriteFailure(t *testing.T) {
	sink := NewSink(failingRepo{})
	logger := &countingLogger{}
	sink.SetLogger(logger)

	sink.ScanRejected(fingerprint.ScanEvent{Slot: -1, Time: t0})

	if logger.errors != 1 {
		t.Errorf("logged %d errors, want 1", logger.errors)
	}
}
