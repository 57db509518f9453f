package organization

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/validator"
)

type fakeOrgRepo struct {
	repository.OrganizationRepository
	org *model.Organization
}

func (f *fakeOrgRepo) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	if f.org == nil || f.org.ID != id {
		return nil, apperrors.NotFound("organization", nil)
	}
	return f.org, nil
}

func (f *fakeOrgRepo) Update(ctx context.Context, org *model.Organization) error {
	f.org = org
	return nil
}

func (f *fakeOrgRepo) UpdateBranding(ctx context.Context, org *model.Organization) error {
	f.org = org
	return nil
}

func newTestService() (*Service, *fakeOrgRepo, uuid.UUID) {
	id := uuid.New()
	repo := &fakeOrgRepo{org: &model.Organization{
		Base:          model.Base{ID: id},
		Name:          "Acme Studio",
		Email:         "owner@acme.test",
		InvoicePrefix: "INV",
		Currency:      "usd",
	}}
	return NewService(repo, validator.New()), repo, id
}

func TestUpdateProfile(t *testing.T) {
	svc, repo, id := newTestService()

	phone := "+1 555 0100"
	org, err := svc.Update(context.Background(), id, &UpdateInput{
		Name:  "Acme Design Studio",
		Email: "billing@acme.test",
		Phone: &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Design Studio", org.Name)
	assert.Equal(t, "billing@acme.test", org.Email)
	assert.Equal(t, "Acme Design Studio", repo.org.Name)
}

func TestUpdateRejectsInvalidEmail(t *testing.T) {
	svc, _, id := newTestService()

	_, err := svc.Update(context.Background(), id, &UpdateInput{
		Name:  "Acme",
		Email: "not-an-email",
	})
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
	assert.Contains(t, appErr.Message, "Email")
}

func TestUpdateBranding(t *testing.T) {
	svc, repo, id := newTestService()

	color := "#1a2b3c"
	org, err := svc.UpdateBranding(context.Background(), id, &BrandingInput{
		BrandColor:        &color,
		InvoicePrefix:     "ACME",
		DefaultTaxRateBPS: 825,
		Currency:          "eur",
	})
	require.NoError(t, err)
	assert.Equal(t, "ACME", org.InvoicePrefix)
	assert.Equal(t, int64(825), org.DefaultTaxRateBPS)
	assert.Equal(t, "eur", repo.org.Currency)
}

func TestUpdateBrandingValidation(t *testing.T) {
	svc, _, id := newTestService()

	tests := []struct {
		name  string
		input BrandingInput
	}{
		{
			name: "prefix too long",
			input: BrandingInput{
				InvoicePrefix: "VERYLONGPREFIX",
				Currency:      "usd",
			},
		},
		{
			name: "tax rate above 100 percent",
			input: BrandingInput{
				InvoicePrefix:     "INV",
				DefaultTaxRateBPS: 10001,
				Currency:          "usd",
			},
		},
		{
			name: "bad currency length",
			input: BrandingInput{
				InvoicePrefix: "INV",
				Currency:      "dollars",
			},
		},
		{
			name: "bad brand color",
			input: BrandingInput{
				InvoicePrefix: "INV",
				Currency:      "usd",
				BrandColor:    strPtr("blue"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdateBranding(context.Background(), id, &tt.input)
			require.Error(t, err)
			appErr, ok := err.(*apperrors.AppError)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)
		})
	}
}

func strPtr(s string) *string { return &s }
