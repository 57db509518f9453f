package item

import (
	"context"

	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
)

// Input is the create/update payload for a catalog item
type Input struct {
	Name           string  `json:"name" binding:"required"`
	Description    *string `json:"description"`
	UnitPriceCents int64   `json:"unit_price_cents" binding:"gte=0"`
	TaxRateBPS     int64   `json:"tax_rate_bps" binding:"gte=0"`
}

type ItemServicer interface {
	Create(ctx context.Context, orgID uuid.UUID, input *Input) (*model.Item, error)
	Get(ctx context.Context, orgID, id uuid.UUID) (*model.Item, error)
	Update(ctx context.Context, orgID, id uuid.UUID, input *Input) (*model.Item, error)
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	List(ctx context.Context, orgID uuid.UUID, p model.Pagination) ([]*model.Item, error)
}

type Service struct {
	repo repository.ItemRepository
}

func NewService(repo repository.ItemRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, orgID uuid.UUID, input *Input) (*model.Item, error) {
	it := &model.Item{
		OrganizationID: orgID,
		Name:           input.Name,
		Description:    input.Description,
		UnitPriceCents: input.UnitPriceCents,
		TaxRateBPS:     input.TaxRateBPS,
	}
	if err := s.repo.Create(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*model.Item, error) {
	return s.repo.Get(ctx, orgID, id)
}

func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, input *Input) (*model.Item, error) {
	it, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	it.Name = input.Name
	it.Description = input.Description
	it.UnitPriceCents = input.UnitPriceCents
	it.TaxRateBPS = input.TaxRateBPS

	if err := s.repo.Update(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *Service) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return s.repo.SoftDelete(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, p model.Pagination) ([]*model.Item, error) {
	return s.repo.List(ctx, orgID, p)
}
