package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// DefaultStatsWindowDays is used when Stats is asked for a non-positive window.
const DefaultStatsWindowDays = 30

// Entry is one decision to record. Input and Output are snapshotted as JSON.
type Entry struct {
	TenantID     uuid.UUID
	OrderID      string
	Type         models.DecisionType
	Input        any
	Output       any
	Confidence   float64
	FallbackUsed bool
}

// Filter narrows a Query. Zero values mean "any".
type Filter struct {
	Type    models.DecisionType
	OrderID string
	From    time.Time
	To      time.Time
	Limit   int
}

// Log is the query and append facade over the decision store.
type Log struct {
	store  store.Store
	writer *Writer
	now    func() time.Time
}

// NewLog creates a Log. Appends go through writer; reads go to s.
func NewLog(s store.Store, writer *Writer) *Log {
	return &Log{store: s, writer: writer, now: time.Now}
}

// Append snapshots e and queues it for writing. The returned record is what
// will be stored; a full queue drops it without an error.
func (l *Log) Append(e Entry) (*models.AIDecisionLog, error) {
	if !e.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, e.Type)
	}
	input, err := snapshot(e.Input)
	if err != nil {
		return nil, fmt.Errorf("encoding decision input: %w", err)
	}
	output, err := snapshot(e.Output)
	if err != nil {
		return nil, fmt.Errorf("encoding decision output: %w", err)
	}

	rec := &models.AIDecisionLog{
		ID:              uuid.New(),
		TenantID:        e.TenantID,
		Type:            e.Type,
		Input:           input,
		Output:          output,
		ConfidenceScore: e.Confidence,
		FallbackUsed:    e.FallbackUsed,
		CreatedAt:       l.now().UTC(),
	}
	if e.OrderID != "" {
		orderID := e.OrderID
		rec.OrderID = &orderID
	}

	l.writer.Enqueue(rec)
	return rec, nil
}

// Query returns the tenant's decisions matching f, newest first.
func (l *Log) Query(ctx context.Context, tenantID uuid.UUID, f Filter) ([]*models.AIDecisionLog, error) {
	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidType, f.Type)
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.From.After(f.To) {
		return nil, fmt.Errorf("%w: from is after to", ErrInvalidRange)
	}

	logs, err := l.store.ListDecisions(ctx, store.DecisionFilter{
		TenantID: tenantID,
		Type:     f.Type,
		OrderID:  f.OrderID,
		From:     f.From,
		To:       f.To,
		Limit:    store.NormalizeLimit(f.Limit),
	})
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	return logs, nil
}

// Stats aggregates the tenant's decisions of the last windowDays days.
func (l *Log) Stats(ctx context.Context, tenantID uuid.UUID, windowDays int) (*models.DecisionStats, error) {
	if windowDays <= 0 {
		windowDays = DefaultStatsWindowDays
	}
	since := l.now().UTC().AddDate(0, 0, -windowDays)

	stats, err := l.store.DecisionStats(ctx, tenantID, since)
	if err != nil {
		return nil, fmt.Errorf("computing decision stats: %w", err)
	}
	return stats, nil
}

// PruneOlderThan removes the tenant's decisions older than retentionDays and
// returns how many were removed.
func (l *Log) PruneOlderThan(ctx context.Context, tenantID uuid.UUID, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, ErrInvalidRetention
	}
	before := l.now().UTC().AddDate(0, 0, -retentionDays)

	n, err := l.store.DeleteDecisionsBefore(ctx, tenantID, before)
	if err != nil {
		return 0, fmt.Errorf("pruning decisions: %w", err)
	}
	return n, nil
}

// snapshot encodes v as a JSON object; nil becomes {}.
func snapshot(v any) (json.RawMessage, error) {
	switch t := v.(type) {
	case nil:
		return json.RawMessage(`{}`), nil
	case json.RawMessage:
		if len(t) == 0 {
			return json.RawMessage(`{}`), nil
		}
		if !json.Valid(t) {
			return nil, fmt.Errorf("invalid JSON snapshot")
		}
		return t, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return json.RawMessage(`{}`), nil
	}
	return b, nil
}
