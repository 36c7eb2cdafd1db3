package repository

import (
	"context"
	"errors"

	"github.com/otprent/rental-gateway/internal/user/domain"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateUser = errors.New("username already exists")
)

// UserRepository is the persistence contract for user records.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateQuota(ctx context.Context, id string, quota int64) (*domain.User, error)
}
