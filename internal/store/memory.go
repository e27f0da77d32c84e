package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

// MemoryStore is an in-process Store used by tests and by deployments that
// run without Postgres. Values are copied in and out so callers never share
// memory with the store.
type MemoryStore struct {
	mu          sync.RWMutex
	settings    map[uuid.UUID]models.LogisticsAISettings
	decisions   []models.AIDecisionLog
	alerts      []models.AIAlert
	suggestions []models.RouteSuggestion
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{settings: make(map[uuid.UUID]models.LogisticsAISettings)}
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// --- Settings ---

func (s *MemoryStore) GetOrCreateSettings(_ context.Context, defaults *models.LogisticsAISettings) (*models.LogisticsAISettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.settings[defaults.TenantID]
	if !ok {
		st = *defaults
		s.settings[st.TenantID] = st
	}
	return &st, nil
}

func (s *MemoryStore) UpsertSettings(_ context.Context, st *models.LogisticsAISettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.settings[st.TenantID]; ok {
		updated := *st
		updated.CreatedAt = existing.CreatedAt
		s.settings[st.TenantID] = updated
		return nil
	}
	s.settings[st.TenantID] = *st
	return nil
}

// --- Decision logs ---

func (s *MemoryStore) AppendDecision(_ context.Context, d *models.AIDecisionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, *d)
	return nil
}

func (s *MemoryStore) ListDecisions(_ context.Context, filter DecisionFilter) ([]*models.AIDecisionLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.AIDecisionLog{}
	for i := range s.decisions {
		d := s.decisions[i]
		if d.TenantID != filter.TenantID {
			continue
		}
		if filter.Type != "" && d.Type != filter.Type {
			continue
		}
		if filter.OrderID != "" && (d.OrderID == nil || *d.OrderID != filter.OrderID) {
			continue
		}
		if !filter.From.IsZero() && d.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && d.CreatedAt.After(filter.To) {
			continue
		}
		out = append(out, &d)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := NormalizeLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) DecisionStats(_ context.Context, tenantID uuid.UUID, since time.Time) (*models.DecisionStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[models.DecisionType]int{}
	var confidenceSum float64
	fallbacks := 0
	for _, d := range s.decisions {
		if d.TenantID != tenantID || d.CreatedAt.Before(since) {
			continue
		}
		counts[d.Type]++
		confidenceSum += d.ConfidenceScore
		if d.FallbackUsed {
			fallbacks++
		}
	}
	return newStats(counts, confidenceSum, fallbacks), nil
}

func (s *MemoryStore) DeleteDecisionsBefore(_ context.Context, tenantID uuid.UUID, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.decisions[:0]
	var removed int64
	for _, d := range s.decisions {
		if d.TenantID == tenantID && d.CreatedAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	s.decisions = kept
	return removed, nil
}

func (s *MemoryStore) ListDecisionTenants(_ context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[uuid.UUID]struct{})
	ids := []uuid.UUID{}
	for _, d := range s.decisions {
		if _, ok := seen[d.TenantID]; ok {
			continue
		}
		seen[d.TenantID] = struct{}{}
		ids = append(ids, d.TenantID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

// --- Alerts ---

func (s *MemoryStore) CreateAlert(_ context.Context, a *models.AIAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, *a)
	return nil
}

func (s *MemoryStore) ListAlerts(_ context.Context, filter AlertFilter) ([]*models.AIAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.AIAlert{}
	for i := range s.alerts {
		a := s.alerts[i]
		if a.TenantID != filter.TenantID || (filter.UnreadOnly && a.IsRead) {
			continue
		}
		out = append(out, &a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := NormalizeLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkAlertRead(_ context.Context, id uuid.UUID, tenantID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID == id && s.alerts[i].TenantID == tenantID {
			s.alerts[i].IsRead = true
			return nil
		}
	}
	return ErrNotFound
}

// --- Suggestions ---

func (s *MemoryStore) SaveSuggestions(_ context.Context, suggestions []models.RouteSuggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = append(s.suggestions, suggestions...)
	return nil
}

func (s *MemoryStore) GetSuggestion(_ context.Context, id uuid.UUID, tenantID uuid.UUID) (*models.RouteSuggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sg := range s.suggestions {
		if sg.ID == id && sg.TenantID == tenantID {
			return &sg, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListSuggestions(_ context.Context, filter SuggestionFilter) ([]*models.RouteSuggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.RouteSuggestion{}
	for i := range s.suggestions {
		sg := s.suggestions[i]
		if sg.TenantID != filter.TenantID {
			continue
		}
		if filter.DriverID != "" && sg.DriverID != filter.DriverID {
			continue
		}
		if filter.Status != "" && suggestionStatusAt(sg, filter.AsOf) != filter.Status {
			continue
		}
		out = append(out, &sg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := NormalizeLimit(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) TransitionSuggestion(_ context.Context, id uuid.UUID, tenantID uuid.UUID, status models.SuggestionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.suggestions {
		sg := &s.suggestions[i]
		if sg.ID != id || sg.TenantID != tenantID {
			continue
		}
		if sg.Status != models.SuggestionPending {
			return ErrStatusConflict
		}
		sg.Status = status
		return nil
	}
	return ErrNotFound
}

func (s *MemoryStore) ExpireSuggestions(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for i := range s.suggestions {
		if s.suggestions[i].Expire(now) {
			n++
		}
	}
	return n, nil
}

func suggestionStatusAt(sg models.RouteSuggestion, asOf time.Time) models.SuggestionStatus {
	if asOf.IsZero() {
		return sg.Status
	}
	return sg.EffectiveStatus(asOf)
}
