package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bildout/bildout-api/config"
	"github.com/bildout/bildout-api/internal/model"
	"github.com/bildout/bildout-api/internal/repository"
	apperrors "github.com/bildout/bildout-api/pkg/errors"
	"github.com/bildout/bildout-api/pkg/logger"
)

// RegisterInput creates an organization and its owner in one step
type RegisterInput struct {
	OrganizationName string `json:"organization_name" binding:"required"`
	Name             string `json:"name" binding:"required"`
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required,min=8"`
}

// TokenPair is the login/refresh response
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type AuthServicer interface {
	Register(ctx context.Context, input *RegisterInput) (*model.User, *TokenPair, error)
	Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	ValidateToken(tokenString string) (*model.TokenClaims, error)
	Me(ctx context.Context, userID uuid.UUID) (*model.User, *model.Organization, error)
}

type Service struct {
	userRepo repository.UserRepository
	orgRepo  repository.OrganizationRepository
	cfg      config.JWTConfig
	log      *logger.Logger
}

func NewService(userRepo repository.UserRepository, orgRepo repository.OrganizationRepository, cfg config.JWTConfig, log *logger.Logger) *Service {
	return &Service{userRepo: userRepo, orgRepo: orgRepo, cfg: cfg, log: log}
}

type jwtClaims struct {
	UserID         string `json:"user_id"`
	OrganizationID string `json:"organization_id"`
	Email          string `json:"email"`
	IsAdmin        bool   `json:"is_admin"`
	TokenType      string `json:"token_type"`
	jwt.RegisteredClaims
}

func (s *Service) Register(ctx context.Context, input *RegisterInput) (*model.User, *TokenPair, error) {
	if existing, err := s.userRepo.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, nil, apperrors.Conflict("an account with this email already exists", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, apperrors.Internal(err)
	}

	org := &model.Organization{
		Name:          input.OrganizationName,
		Email:         input.Email,
		InvoicePrefix: "INV",
		Currency:      "usd",
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, nil, err
	}

	user := &model.User{
		OrganizationID: org.ID,
		Email:          input.Email,
		PasswordHash:   string(hash),
		Name:           input.Name,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, nil, err
	}

	s.log.Info("organization registered", "organization_id", org.ID, "user_id", user.ID)

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*model.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		// Same error for unknown email and bad password.
		return nil, nil, apperrors.Unauthorized(nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apperrors.Unauthorized(nil)
	}

	org, err := s.orgRepo.Get(ctx, user.OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	if org.Suspended() {
		return nil, nil, apperrors.Forbidden("this organization is suspended", nil)
	}

	if err := s.userRepo.RecordLogin(ctx, user.ID, time.Now()); err != nil {
		s.log.Error(err, "failed to record login", "user_id", user.ID)
	}

	pair, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parseToken(refreshToken, s.cfg.RefreshSecret, "refresh")
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized(nil)
	}
	return s.issueTokens(user)
}

// Me returns the authenticated user together with their organization.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*model.User, *model.Organization, error) {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	org, err := s.orgRepo.Get(ctx, user.OrganizationID)
	if err != nil {
		return nil, nil, err
	}
	return user, org, nil
}

// ValidateToken parses and verifies an access token.
func (s *Service) ValidateToken(tokenString string) (*model.TokenClaims, error) {
	return s.parseToken(tokenString, s.cfg.Secret, "access")
}

func (s *Service) issueTokens(user *model.User) (*TokenPair, error) {
	accessTTL := time.Duration(s.cfg.ExpiryHours) * time.Hour
	access, err := s.signToken(user, s.cfg.Secret, "access", accessTTL)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.signToken(user, s.cfg.RefreshSecret, "refresh",
		time.Duration(s.cfg.RefreshExpiryHours)*time.Hour)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(accessTTL.Seconds()),
	}, nil
}

func (s *Service) signToken(user *model.User, secret, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwtClaims{
		UserID:         user.ID.String(),
		OrganizationID: user.OrganizationID.String(),
		Email:          user.Email,
		IsAdmin:        user.IsAdmin,
		TokenType:      tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func (s *Service) parseToken(tokenString, secret, wantType string) (*model.TokenClaims, error) {
	var claims jwtClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Unauthorized(err)
	}
	if claims.TokenType != wantType {
		return nil, apperrors.Unauthorized(nil)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	orgID, err := uuid.Parse(claims.OrganizationID)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return &model.TokenClaims{
		UserID:         userID,
		OrganizationID: orgID,
		Email:          claims.Email,
		IsAdmin:        claims.IsAdmin,
	}, nil
}
