package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/otprent/rental-gateway/internal/user/domain"
	"github.com/otprent/rental-gateway/internal/user/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
)

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthConfig carries JWT signing parameters.
type AuthConfig struct {
	JWTSecret      string
	JWTExpiryHours int
}

// AuthService implements register, login and profile operations over
// the user-record repository.
type AuthService struct {
	userRepo repository.UserRepository
	config   AuthConfig
	logger   *slog.Logger
}

func NewAuthService(userRepo repository.UserRepository, config AuthConfig, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		config:   config,
		logger:   logger.With("component", "auth_service"),
	}
}

// Register creates a new account. New users start with the "user"
// role, zero balance and zero quota, and a generated avatar.
func (s *AuthService) Register(ctx context.Context, username, password, fullName string) (*domain.User, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:       username,
		FullName:       fullName,
		Avatar:         "https://i.pravatar.cc/150?u=" + username,
		Role:           "user",
		Balance:        0,
		Quota:          0,
		HashedPassword: hashed,
	}

	created, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUsernameExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", created.ID, "username", created.Username)
	return created, nil
}

// Login verifies credentials and returns a signed access token with
// the user record.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	if !CheckPasswordHash(password, user.HashedPassword) {
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.signToken(user)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID, "username", user.Username)
	return token, user, nil
}

func (s *AuthService) signToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"role":     user.Role,
		"iat":      now.Unix(),
		"exp":      now.Add(time.Duration(s.config.JWTExpiryHours) * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// Profile fetches the current record for a user id.
func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// UpdateQuota sets a user's rental quota.
func (s *AuthService) UpdateQuota(ctx context.Context, userID string, quota int64) (*domain.User, error) {
	user, err := s.userRepo.UpdateQuota(ctx, userID, quota)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("update quota: %w", err)
	}
	s.logger.InfoContext(ctx, "quota updated", "user_id", userID, "quota", quota)
	return user, nil
}
