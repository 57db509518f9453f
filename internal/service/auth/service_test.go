package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/bildout/bildout-api/config"
	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/logger"
)

type fakeUserRepo struct {
	repository.UserRepository
	byEmail map[string]*model.User
	byID    map[uuid.UUID]*model.User
	created []*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byEmail: make(map[string]*model.User),
		byID:    make(map[uuid.UUID]*model.User),
	}
}

func (f *fakeUserRepo) add(u *model.User) {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	f.byEmail[u.Email] = u
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) Create(ctx context.Context, u *model.User) error {
	f.add(u)
	f.created = append(f.created, u)
	return nil
}

func (f *fakeUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return u, nil
}

func (f *fakeUserRepo) RecordLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

type fakeOrgRepo struct {
	repository.OrganizationRepository
	orgs    map[uuid.UUID]*model.Organization
	created []*model.Organization
}

func newFakeOrgRepo() *fakeOrgRepo {
	return &fakeOrgRepo{orgs: make(map[uuid.UUID]*model.Organization)}
}

func (f *fakeOrgRepo) Create(ctx context.Context, org *model.Organization) error {
	if org.ID == uuid.Nil {
		org.ID = uuid.New()
	}
	f.orgs[org.ID] = org
	f.created = append(f.created, org)
	return nil
}

func (f *fakeOrgRepo) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	org, ok := f.orgs[id]
	if !ok {
		return nil, apperrors.NotFound("organization", nil)
	}
	return org, nil
}

var testJWTConfig = config.JWTConfig{
	Secret:             "access-secret",
	RefreshSecret:      "refresh-secret",
	ExpiryHours:        1,
	RefreshExpiryHours: 168,
}

func newTestService() (*Service, *fakeUserRepo, *fakeOrgRepo) {
	users := newFakeUserRepo()
	orgs := newFakeOrgRepo()
	svc := NewService(users, orgs, testJWTConfig, logger.NewLogger(nil))
	return svc, users, orgs
}

func seedUser(t *testing.T, users *fakeUserRepo, orgs *fakeOrgRepo, password string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	org := &model.Organization{Name: "Acme"}
	require.NoError(t, orgs.Create(context.Background(), org))

	u := &model.User{
		OrganizationID: org.ID,
		Email:          "owner@acme.test",
		PasswordHash:   string(hash),
		Name:           "Owner",
	}
	users.add(u)
	return u
}

func TestRegisterCreatesOrgAndOwner(t *testing.T) {
	svc, users, orgs := newTestService()

	user, tokens, err := svc.Register(context.Background(), &RegisterInput{
		OrganizationName: "Acme",
		Name:             "Jo",
		Email:            "jo@acme.test",
		Password:         "hunter2hunter2",
	})
	require.NoError(t, err)

	require.Len(t, orgs.created, 1)
	require.Len(t, users.created, 1)
	assert.Equal(t, orgs.created[0].ID, user.OrganizationID)
	assert.Equal(t, "INV", orgs.created[0].InvoicePrefix)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, users, orgs := newTestService()
	seedUser(t, users, orgs, "password123")

	_, _, err := svc.Register(context.Background(), &RegisterInput{
		OrganizationName: "Other",
		Name:             "Jo",
		Email:            "owner@acme.test",
		Password:         "password123",
	})
	require.Error(t, err)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestLoginRoundTrip(t *testing.T) {
	svc, users, orgs := newTestService()
	u := seedUser(t, users, orgs, "password123")

	user, tokens, err := svc.Login(context.Background(), "owner@acme.test", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, user.ID)

	claims, err := svc.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, u.OrganizationID, claims.OrganizationID)
	assert.False(t, claims.IsAdmin)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, users, orgs := newTestService()
	seedUser(t, users, orgs, "password123")

	_, _, err := svc.Login(context.Background(), "owner@acme.test", "wrong")
	require.Error(t, err)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestLoginUnknownEmailSameError(t *testing.T) {
	svc, users, orgs := newTestService()
	seedUser(t, users, orgs, "password123")

	_, _, wrongPass := svc.Login(context.Background(), "owner@acme.test", "wrong")
	_, _, unknown := svc.Login(context.Background(), "nobody@acme.test", "wrong")

	wrongErr, _ := apperrors.As(wrongPass)
	unknownErr, _ := apperrors.As(unknown)
	assert.Equal(t, wrongErr.Message, unknownErr.Message)
}

func TestLoginSuspendedOrganization(t *testing.T) {
	svc, users, orgs := newTestService()
	u := seedUser(t, users, orgs, "password123")
	now := time.Now()
	orgs.orgs[u.OrganizationID].SuspendedAt = &now

	_, _, err := svc.Login(context.Background(), "owner@acme.test", "password123")
	require.Error(t, err)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
}

func TestRefreshTokenTypeEnforced(t *testing.T) {
	svc, users, orgs := newTestService()
	seedUser(t, users, orgs, "password123")

	_, tokens, err := svc.Login(context.Background(), "owner@acme.test", "password123")
	require.NoError(t, err)

	// An access token is not accepted as a refresh token.
	_, err = svc.Refresh(context.Background(), tokens.AccessToken)
	require.Error(t, err)

	pair, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	// And a refresh token is not accepted as an access token.
	_, err = svc.ValidateToken(tokens.RefreshToken)
	require.Error(t, err)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ValidateToken("not-a-jwt")
	require.Error(t, err)
	appErr, _ := apperrors.As(err)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}
