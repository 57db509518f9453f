package client

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	"github.com/bildout/bildout-api/internal/service/billing"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/logger"
)

// Input is the create/update payload for a client
type Input struct {
	Name         string  `json:"name" binding:"required"`
	Email        *string `json:"email" binding:"omitempty,email"`
	Phone        *string `json:"phone"`
	Company      *string `json:"company"`
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         *string `json:"city"`
	PostalCode   *string `json:"postal_code"`
	Country      *string `json:"country"`
	Notes        *string `json:"notes"`
}

type ClientServicer interface {
	Create(ctx context.Context, orgID uuid.UUID, input *Input) (*model.Client, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*model.Client, error)
	Update(ctx context.Context, orgID, id uuid.UUID, input *Input) (*model.Client, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, filter *model.ClientFilter) ([]*model.Client, error)
}

type Service struct {
	repo    repository.ClientRepository
	billing billing.BillingServicer
	log     *logger.Logger
}

func NewService(repo repository.ClientRepository, billingSvc billing.BillingServicer, log *logger.Logger) *Service {
	return &Service{repo: repo, billing: billingSvc, log: log}
}

func (s *Service) Create(ctx context.Context, orgID uuid.UUID, input *Input) (*model.Client, error) {
	limit, err := s.billing.CheckClientLimit(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !limit.Allowed {
		return nil, apperrors.LimitExceeded(fmt.Sprintf(
			"active client limit reached (%d of %d on the %s plan); upgrade to add more clients",
			limit.Current, *limit.Limit, limit.Plan,
		))
	}

	c := &model.Client{
		OrganizationID: orgID,
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		Company:        input.Company,
		AddressLine1:   input.AddressLine1,
		AddressLine2:   input.AddressLine2,
		City:           input.City,
		PostalCode:     input.PostalCode,
		Country:        input.Country,
		Notes:          input.Notes,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*model.Client, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, input *Input) (*model.Client, error) {
	c, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	c.Name = input.Name
	c.Email = input.Email
	c.Phone = input.Phone
	c.Company = input.Company
	c.AddressLine1 = input.AddressLine1
	c.AddressLine2 = input.AddressLine2
	c.City = input.City
	c.PostalCode = input.PostalCode
	c.Country = input.Country
	c.Notes = input.Notes

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter *model.ClientFilter) ([]*model.Client, error) {
	return s.repo.List(ctx, orgID, filter)
}
