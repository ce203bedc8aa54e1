package fraud

import (
	"context"
	"fmt"

	"github.com/sgolovin/ecommerce-events/internal/models"
)

// AlertRepository is the alert store contract used by the lifecycle service.
type AlertRepository interface {
	GetByID(ctx context.Context, id int64) (*models.FraudAlert, error)
	GetAll(ctx context.Context) ([]models.FraudAlert, error)
	GetByInvestigationStatus(ctx context.Context, status string) ([]models.FraudAlert, error)
	GetByUserID(ctx context.Context, userID int) ([]models.FraudAlert, error)
	UpdateInvestigationStatus(ctx context.Context, id int64, status string) (*models.FraudAlert, error)
	Stats(ctx context.Context) (*models.FraudStats, error)
}

// Service owns the alert investigation lifecycle.
type Service struct {
	repo AlertRepository
}

func NewService(repo AlertRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*models.FraudAlert, error) {
	return s.repo.GetByID(ctx, id)
}

// ListFilter narrows List results. Status takes precedence over UserID
// when both are set.
type ListFilter struct {
	Status string
	UserID *int
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]models.FraudAlert, error) {
	if filter.Status != "" {
		status, err := ParseInvestigationStatus(filter.Status)
		if err != nil {
			return nil, err
		}
		return s.repo.GetByInvestigationStatus(ctx, status)
	}
	if filter.UserID != nil {
		return s.repo.GetByUserID(ctx, *filter.UserID)
	}
	return s.repo.GetAll(ctx)
}

// PatchStatus validates the requested status against the transition table
// before mutating. Unknown statuses and illegal transitions leave the
// stored alert unchanged.
func (s *Service) PatchStatus(ctx context.Context, id int64, newStatus string) (*models.FraudAlert, error) {
	status, err := ParseInvestigationStatus(newStatus)
	if err != nil {
		return nil, err
	}

	alert, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !CanTransition(alert.InvestigationStatus, status) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrIllegalTransition, alert.InvestigationStatus, status)
	}

	return s.repo.UpdateInvestigationStatus(ctx, id, status)
}

func (s *Service) Stats(ctx context.Context) (*models.FraudStats, error) {
	return s.repo.Stats(ctx)
}
