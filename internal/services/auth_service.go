package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/config"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/dto"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/models"
	"github.com/ahmetcoskunkizilkaya/tg-storefront/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	store      repository.Store
	cfg        *config.Config
	roles      *RoleSynchronizer
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(store repository.Store, cfg *config.Config, roles *RoleSynchronizer) *AuthService {
	return &AuthService{
		store:      store,
		cfg:        cfg,
		roles:      roles,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegistration, err)
	}
	if strings.HasSuffix(req.Email, "@"+pseudoEmailDomain) {
		return nil, fmt.Errorf("%w: email domain %s is reserved", ErrInvalidRegistration, pseudoEmailDomain)
	}

	if _, err := s.store.Credentials().FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	cred := &models.AuthCredential{
		ID:           uuid.New(),
		Email:        req.Email,
		SecretHash:   string(hash),
		Provider:     models.ProviderEmail,
		LastSignInAt: &now,
	}
	user := &models.PlatformUser{
		ID:        cred.ID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.Tx(ctx, func(tx repository.Store) error {
		if err := tx.Credentials().Create(ctx, cred); err != nil {
			if errors.Is(err, repository.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		return tx.Roles().Assign(ctx, &models.UserRole{
			ID:     uuid.New(),
			UserID: user.ID,
			RoleID: models.BaselineRoleID,
		})
	})
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.generateTokenPair(ctx, user, models.RoleUser)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	cred, err := s.store.Credentials().FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if cred.Provider != models.ProviderEmail {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.Users().FindByID(ctx, cred.ID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}
	if err := s.store.Credentials().TouchSignIn(ctx, cred.ID, s.now()); err != nil {
		slog.Warn("credential sign-in timestamp not updated", "action", "login", "user_id", cred.ID.String(), "error", err)
	}

	return s.generateTokenPair(ctx, user, s.roles.RoleOf(ctx, user.ID))
}

func (s *AuthService) Refresh(ctx context.Context, req *dto.RefreshRequest) (*dto.AuthResponse, error) {
	tokenHash := hashToken(req.RefreshToken)

	stored, err := s.store.RefreshTokens().FindActive(ctx, tokenHash)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if err := s.store.RefreshTokens().Revoke(ctx, tokenHash); err != nil {
		return nil, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if s.now().After(stored.ExpiresAt) {
		return nil, ErrInvalidToken
	}

	user, err := s.store.Users().FindByID(ctx, stored.UserID)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	return s.generateTokenPair(ctx, user, s.roles.RoleOf(ctx, user.ID))
}

// Logout revokes a refresh token owned by userID. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, req *dto.LogoutRequest) error {
	tokenHash := hashToken(req.RefreshToken)
	stored, err := s.store.RefreshTokens().FindActive(ctx, tokenHash)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if stored.UserID != userID {
		return ErrInvalidToken
	}
	return s.store.RefreshTokens().Revoke(ctx, tokenHash)
}

// Session returns the profile and current role for an authenticated identity.
func (s *AuthService) Session(ctx context.Context, userID uuid.UUID) (*dto.SessionResponse, error) {
	user, err := s.store.Users().FindByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dto.SessionResponse{
		User: dto.NewUserResponse(user),
		Role: s.roles.RoleOf(ctx, userID),
	}, nil
}

// IssueTokens mints a session for an identity that was authenticated elsewhere.
func (s *AuthService) IssueTokens(ctx context.Context, user *models.PlatformUser, role string) (*dto.AuthResponse, error) {
	return s.generateTokenPair(ctx, user, role)
}

func (s *AuthService) generateTokenPair(ctx context.Context, user *models.PlatformUser, role string) (*dto.AuthResponse, error) {
	expiresAt := s.now().Add(s.cfg.JWTAccessExpiry)
	accessToken, err := s.generateAccessToken(user, role, expiresAt)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.generateRefreshToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
		User:         dto.NewUserResponse(user),
		Role:         role,
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.PlatformUser, role string, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"role":  role,
		"iat":   s.now().Unix(),
		"exp":   expiresAt.Unix(),
	}
	if user.TelegramID != nil {
		claims["tg_id"] = *user.TelegramID
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) generateRefreshToken(ctx context.Context, user *models.PlatformUser) (string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rawToken := base64.URLEncoding.EncodeToString(rawBytes)

	record := models.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(rawToken),
		ExpiresAt: s.now().Add(s.cfg.JWTRefreshExpiry),
	}

	if err := s.store.RefreshTokens().Create(ctx, &record); err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return rawToken, nil
}

func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return fmt.Sprintf("%x", h)
}
