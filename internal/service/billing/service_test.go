package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	"github.com/bildout/bildout-api/pkg/logger"
)

func planPtr(p model.Plan) *model.Plan { return &p }

type fakeOrgRepo struct {
	repository.OrganizationRepository
	org  *model.Organization
	gets int
}

func (f *fakeOrgRepo) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	f.gets++
	return f.org, nil
}

type fakeInvoiceRepo struct {
	repository.InvoiceRepository
	count int
}

func (f *fakeInvoiceRepo) CountCreatedSince(ctx context.Context, orgID uuid.UUID, since time.Time) (int, error) {
	return f.count, nil
}

type fakeClientRepo struct {
	repository.ClientRepository
	count int
}

func (f *fakeClientRepo) CountActive(ctx context.Context, orgID uuid.UUID) (int, error) {
	return f.count, nil
}

func newTestService(org *model.Organization, invoices, clients int) (*Service, *fakeOrgRepo) {
	orgRepo := &fakeOrgRepo{org: org}
	return NewService(
		orgRepo,
		nil,
		&fakeClientRepo{count: clients},
		&fakeInvoiceRepo{count: invoices},
		nil,
		"https://app.example.com",
		logger.NewLogger(nil),
	), orgRepo
}

func TestEffectivePlanAt(t *testing.T) {
	now := time.Now()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	tests := []struct {
		name string
		org  model.Organization
		want model.Plan
	}{
		{
			name: "no subscription and no override defaults to free",
			org:  model.Organization{},
			want: model.PlanFree,
		},
		{
			name: "subscription plan wins over default",
			org:  model.Organization{SubscriptionPlan: planPtr(model.PlanPro)},
			want: model.PlanPro,
		},
		{
			name: "unexpired override beats subscription",
			org: model.Organization{
				SubscriptionPlan:  planPtr(model.PlanFree),
				OverridePlan:      planPtr(model.PlanAgency),
				OverrideExpiresAt: &future,
			},
			want: model.PlanAgency,
		},
		{
			name: "permanent override beats subscription",
			org: model.Organization{
				SubscriptionPlan: planPtr(model.PlanPro),
				OverridePlan:     planPtr(model.PlanAgency),
			},
			want: model.PlanAgency,
		},
		{
			name: "expired override falls back to subscription",
			org: model.Organization{
				SubscriptionPlan:  planPtr(model.PlanPro),
				OverridePlan:      planPtr(model.PlanAgency),
				OverrideExpiresAt: &past,
			},
			want: model.PlanPro,
		},
		{
			name: "expired override with no subscription falls back to free",
			org: model.Organization{
				OverridePlan:      planPtr(model.PlanPro),
				OverrideExpiresAt: &past,
			},
			want: model.PlanFree,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, effectivePlanAt(&tt.org, now))
		})
	}
}

func TestEffectivePlanByIDCaches(t *testing.T) {
	org := &model.Organization{SubscriptionPlan: planPtr(model.PlanPro)}
	org.ID = uuid.New()
	svc, orgRepo := newTestService(org, 0, 0)

	plan, err := svc.EffectivePlanByID(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PlanPro, plan)

	_, err = svc.EffectivePlanByID(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, orgRepo.gets, "second resolve should hit the cache")

	svc.InvalidatePlan(org.ID)
	_, err = svc.EffectivePlanByID(context.Background(), org.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, orgRepo.gets, "invalidation should force a reload")
}

func TestCheckInvoiceLimit(t *testing.T) {
	orgID := uuid.New()

	t.Run("free plan under the cap", func(t *testing.T) {
		org := &model.Organization{}
		org.ID = orgID
		svc, _ := newTestService(org, 9, 0)

		result, err := svc.CheckInvoiceLimit(context.Background(), orgID)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 9, result.Current)
		require.NotNil(t, result.Limit)
		assert.Equal(t, 10, *result.Limit)
	})

	t.Run("free plan at the cap", func(t *testing.T) {
		org := &model.Organization{}
		org.ID = orgID
		svc, _ := newTestService(org, 10, 0)

		result, err := svc.CheckInvoiceLimit(context.Background(), orgID)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		assert.Equal(t, model.PlanFree, result.Plan)
	})

	t.Run("pro plan is unlimited", func(t *testing.T) {
		org := &model.Organization{SubscriptionPlan: planPtr(model.PlanPro)}
		org.ID = orgID
		svc, _ := newTestService(org, 5000, 0)

		result, err := svc.CheckInvoiceLimit(context.Background(), orgID)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Nil(t, result.Limit)
	})
}

func TestCheckClientLimit(t *testing.T) {
	orgID := uuid.New()

	t.Run("free plan at the cap", func(t *testing.T) {
		org := &model.Organization{}
		org.ID = orgID
		svc, _ := newTestService(org, 0, 5)

		result, err := svc.CheckClientLimit(context.Background(), orgID)
		require.NoError(t, err)
		assert.False(t, result.Allowed)
		require.NotNil(t, result.Limit)
		assert.Equal(t, 5, *result.Limit)
	})

	t.Run("override lifts the cap immediately", func(t *testing.T) {
		org := &model.Organization{OverridePlan: planPtr(model.PlanAgency)}
		org.ID = orgID
		svc, _ := newTestService(org, 0, 500)

		result, err := svc.CheckClientLimit(context.Background(), orgID)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	})
}
