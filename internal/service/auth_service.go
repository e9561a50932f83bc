package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"techstore/internal/domain"
	"techstore/internal/notify"
	"techstore/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10

	MinPasswordLength = 6

	// ResetTokenTTL is how long a password reset link stays valid
	ResetTokenTTL = 30 * time.Minute
)

// AuthService covers registration, login, token refresh and user administration
type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Me(ctx context.Context, userID uuid.UUID) (*domain.User, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	ChangeRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type authService struct {
	userRepo   repository.UserRepository
	resetRepo  repository.ResetTokenRepository
	tokens     *TokenIssuer
	dispatcher *notify.Dispatcher
	now        func() time.Time
}

// NewAuthService creates a new instance of AuthService
func NewAuthService(
	userRepo repository.UserRepository,
	resetRepo repository.ResetTokenRepository,
	tokens *TokenIssuer,
	dispatcher *notify.Dispatcher,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		resetRepo:  resetRepo,
		tokens:     tokens,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a customer account, or an admin one for the admin email domain
func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	if len(password) < MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	email = normalizeEmail(email)

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(name),
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         domain.RoleForEmail(email),
		CreatedAt:    s.now().UTC(),
	}

	// The unique index decides races between concurrent registrations
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.dispatcher.Dispatch(ctx, notify.UserRegistered{User: user})
	return user, nil
}

// Login verifies credentials and issues a token pair
func (s *authService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.tokens.IssuePair(user)
}

// Refresh exchanges a refresh token for a new pair carrying the current role
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.tokens.IssuePair(user)
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.findUser(ctx, userID)
}

func (s *authService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ChangeRole assigns a new tier to a user
func (s *authService) ChangeRole(ctx context.Context, userID uuid.UUID, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole.WithDetails(map[string]interface{}{
			"allowed": []domain.Role{domain.RoleCustomer, domain.RoleModerator, domain.RoleAdmin},
		})
	}

	if err := s.userRepo.UpdateRole(ctx, userID, role); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	return s.findUser(ctx, userID)
}

func (s *authService) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// ForgotPassword issues a reset token when the email is registered. Unknown
// emails succeed silently so callers cannot discover which accounts exist.
func (s *authService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return ErrEmailRequired
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	token, err := newResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	reset := &domain.ResetToken{
		Email:     email,
		Token:     token,
		ExpiresAt: s.now().UTC().Add(ResetTokenTTL),
	}
	if err := s.resetRepo.Upsert(ctx, reset); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	s.dispatcher.Dispatch(ctx, notify.PasswordResetRequested{
		Email:     email,
		Name:      user.Name,
		Token:     token,
		ExpiresAt: reset.ExpiresAt,
	})
	return nil
}

// ResetPassword replaces the password of the token's owner and burns the token
func (s *authService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrPasswordTooShort
	}

	reset, err := s.resetRepo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrResetTokenNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to find reset token: %w", err)
	}
	if reset.Used {
		return ErrResetTokenUsed
	}
	if !reset.Usable(s.now()) {
		return ErrResetTokenExpired
	}

	hashedPassword, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.userRepo.UpdatePasswordHash(ctx, reset.Email, hashedPassword); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.resetRepo.MarkUsed(ctx, token); err != nil {
		return fmt.Errorf("failed to mark reset token used: %w", err)
	}
	return nil
}

func (s *authService) findUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func hashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// newResetToken returns 32 random bytes encoded URL-safe.
func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
