package organization

import (
	"context"

	"github.com/google/uuid"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/validator"
)

// UpdateInput covers profile fields editable by the organization itself
type UpdateInput struct {
	Name         string  `json:"name" validate:"required"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        *string `json:"phone"`
	AddressLine1 *string `json:"address_line1"`
	AddressLine2 *string `json:"address_line2"`
	City         *string `json:"city"`
	PostalCode   *string `json:"postal_code"`
	Country      *string `json:"country"`
}

// BrandingInput covers invoice presentation settings
type BrandingInput struct {
	LogoURL           *string `json:"logo_url"`
	BrandColor        *string `json:"brand_color" validate:"omitempty,hexcolor"`
	InvoicePrefix     string  `json:"invoice_prefix" validate:"required,max=10"`
	DefaultTaxRateBPS int64   `json:"default_tax_rate_bps" validate:"gte=0,lte=10000"`
	Currency          string  `json:"currency" validate:"required,len=3"`
}

type OrganizationServicer interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	Update(ctx context.Context, id uuid.UUID, input *UpdateInput) (*model.Organization, error)
	UpdateBranding(ctx context.Context, id uuid.UUID, input *BrandingInput) (*model.Organization, error)
}

type Service struct {
	repo     repository.OrganizationRepository
	validate *validator.Validator
}

func NewService(repo repository.OrganizationRepository, validate *validator.Validator) *Service {
	return &Service{repo: repo, validate: validate}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, input *UpdateInput) (*model.Organization, error) {
	if err := s.validate.Validate(input); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	org, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	org.Name = input.Name
	org.Email = input.Email
	org.Phone = input.Phone
	org.AddressLine1 = input.AddressLine1
	org.AddressLine2 = input.AddressLine2
	org.City = input.City
	org.PostalCode = input.PostalCode
	org.Country = input.Country

	if err := s.repo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Service) UpdateBranding(ctx context.Context, id uuid.UUID, input *BrandingInput) (*model.Organization, error) {
	if err := s.validate.Validate(input); err != nil {
		return nil, apperrors.BadRequest(err.Error(), err)
	}

	org, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	org.LogoURL = input.LogoURL
	org.BrandColor = input.BrandColor
	org.InvoicePrefix = input.InvoicePrefix
	org.DefaultTaxRateBPS = input.DefaultTaxRateBPS
	org.Currency = input.Currency

	if err := s.repo.UpdateBranding(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}
