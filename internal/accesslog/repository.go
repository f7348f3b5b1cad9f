package accesslog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind classifies an access event.
type Kind string

const (
	KindMatch        Kind = "match"
	KindUnauthorized Kind = "unauthorized"
	KindEnroll       Kind = "enroll"
	KindDelete       Kind = "delete"
	KindEmpty        Kind = "empty"
)

// timeLayout is fixed-width so occurred_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Page size bounds for List.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// Event is one row of the access log.
type Event struct {
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Kind       Kind      `json:"kind"`
	Slot       int       `json:"slot"`
	Label      string    `json:"label,omitempty"`
	Action     string    `json:"action,omitempty"`
	Confidence int       `json:"confidence"`
	Success    bool      `json:"success"`
	Detail     string    `json:"detail,omitempty"`
}

// Filter controls which events List returns.
type Filter struct {
	Kind   Kind      // optional
	Slot   *int      // optional
	Since  time.Time // optional: events at or after this instant
	Limit  int       // default 50, max 500
	Offset int
}

// ListResult is one page of events, most recent first.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines the access log operations.
type Repository interface {
	Create(ctx context.Context, ev *Event) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores events in the access_events table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts ev. The ID and OccurredAt are generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, ev *Event) error {
	if ev.ID == "" {
		ev.ID = "evt-" + uuid.NewString()
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now()
	}
	ev.OccurredAt = ev.OccurredAt.UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_events (id, occurred_at, kind, slot, label, action, confidence, success, detail)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.OccurredAt.Format(timeLayout), string(ev.Kind), ev.Slot,
		ev.Label, ev.Action, ev.Confidence, boolToInt(ev.Success), ev.Detail,
	)
	if err != nil {
		return fmt.Errorf("inserting access event: %w", err)
	}
	return nil
}

// List returns events matching filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Slot != nil {
		conditions = append(conditions, "slot = ?")
		args = append(args, *filter.Slot)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "occurred_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM access_events " + where //nolint:gosec // conditions are placeholders only
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting access events: %w", err)
	}

	query := "SELECT id, occurred_at, kind, slot, label, action, confidence, success, detail FROM access_events " + //nolint:gosec // conditions are placeholders only
		where + " ORDER BY occurred_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying access events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		var occurredAt, kind string
		var success int
		if err := rows.Scan(&ev.ID, &occurredAt, &kind, &ev.Slot, &ev.Label,
			&ev.Action, &ev.Confidence, &success, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scanning access event: %w", err)
		}
		t, err := time.Parse(timeLayout, occurredAt)
		if err != nil {
			return nil, fmt.Errorf("parsing access event timestamp %q: %w", occurredAt, err)
		}
		ev.OccurredAt = t
		ev.Kind = Kind(kind)
		ev.Success = success != 0
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating access events: %w", err)
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

// Recent returns the newest limit events.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Event, error) {
	res, err := r.List(ctx, Filter{Limit: limit})
	if err != nil {
		return nil, err
	}
	return res.Events, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
