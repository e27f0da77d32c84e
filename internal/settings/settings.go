// Package settings manages the per-tenant engine toggles.
package settings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/dispatchiq/internal/store"
	"github.com/kiranshivaraju/dispatchiq/pkg/models"
)

var ErrInvalidSettings = errors.New("invalid settings")

// Service reads and updates tenant settings. Reads create the default row
// on first access; updates are last-writer-wins.
type Service struct {
	store    store.Store
	validate *validator.Validate
	now      func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{
		store:    s,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Get returns the tenant's settings, creating the defaults if needed.
func (s *Service) Get(ctx context.Context, tenantID uuid.UUID) (*models.LogisticsAISettings, error) {
	defaults := models.DefaultSettings(tenantID, s.now().UTC())
	st, err := s.store.GetOrCreateSettings(ctx, &defaults)
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return st, nil
}

// Update applies patch to the tenant's settings and returns the result.
func (s *Service) Update(ctx context.Context, tenantID uuid.UUID, patch models.SettingsPatch) (*models.LogisticsAISettings, error) {
	if err := s.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSettings, describe(err))
	}

	current, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	updated := patch.Apply(*current, s.now().UTC())
	if err := s.store.UpsertSettings(ctx, &updated); err != nil {
		return nil, fmt.Errorf("saving settings: %w", err)
	}
	return &updated, nil
}

// describe flattens validator errors into "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += ", "
		}
		msg += fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag())
	}
	return msg
}
