// Package alerts stores tenant alerts and forwards them to an optional sink.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
	"github.com/rs/zerolog"
)

var ErrInvalidAlert = errors.New("invalid alert")

// Service creates, lists and acknowledges alerts.
type Service struct {
	store  store.Store
	sink   models.AlertSink
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a Service. sink may be nil.
func NewService(s store.Store, sink models.AlertSink, logger zerolog.Logger) *Service {
	return &Service{
		store:  s,
		sink:   sink,
		logger: logger.With().Str("component", "alerts").Logger(),
		now:    time.Now,
	}
}

// Create assigns an id and timestamp to alert, stores it, then publishes it
// to the sink. A sink failure is logged and does not fail the call.
func (s *Service) Create(ctx context.Context, alert models.AIAlert) (*models.AIAlert, error) {
	if err := validate(alert); err != nil {
		return nil, err
	}

	alert.ID = uuid.New()
	alert.CreatedAt = s.now().UTC()
	alert.IsRead = false

	if err := s.store.CreateAlert(ctx, &alert); err != nil {
		return nil, fmt.Errorf("creating alert: %w", err)
	}

	if s.sink != nil {
		if err := s.sink.Publish(ctx, alert); err != nil {
			s.logger.Warn().Err(err).
				Str("tenant_id", alert.TenantID.String()).
				Str("alert_id", alert.ID.String()).
				Msg("failed to publish alert")
		}
	}
	return &alert, nil
}

// List returns the tenant's alerts, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, unreadOnly bool, limit int) ([]*models.AIAlert, error) {
	alerts, err := s.store.ListAlerts(ctx, store.AlertFilter{
		TenantID:   tenantID,
		UnreadOnly: unreadOnly,
		Limit:      store.NormalizeLimit(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	return alerts, nil
}

// MarkRead flags one of the tenant's alerts as read.
func (s *Service) MarkRead(ctx context.Context, tenantID, alertID uuid.UUID) error {
	if err := s.store.MarkAlertRead(ctx, alertID, tenantID); err != nil {
		return fmt.Errorf("marking alert read: %w", err)
	}
	return nil
}

func validate(a models.AIAlert) error {
	if a.TenantID == uuid.Nil {
		return fmt.Errorf("%w: tenant id is required", ErrInvalidAlert)
	}
	if a.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidAlert)
	}
	if a.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidAlert)
	}
	switch a.Severity {
	case models.SeverityInfo, models.SeverityWarning, models.SeverityCritical:
	default:
		return fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, a.Severity)
	}
	return nil
}
