package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/otprent/rental-gateway/internal/user/domain"
	"github.com/otprent/rental-gateway/internal/user/repository"
)

// PGXQuerier is the slice of pgxpool.Pool this repository uses; the
// pgxmock pool satisfies it in tests.
type PGXQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgUserRepository struct {
	db     PGXQuerier
	logger *slog.Logger
}

func NewPgUserRepository(db PGXQuerier, logger *slog.Logger) repository.UserRepository {
	return &pgUserRepository{db: db, logger: logger.With("component", "user_repository_pg")}
}

const userColumns = `id, username, fullname, avatar, role, balance, quota, hashed_password, created_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.FullName,
		&u.Avatar,
		&u.Role,
		&u.Balance,
		&u.Quota,
		&u.HashedPassword,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO users (id, username, fullname, avatar, role, balance, quota, hashed_password, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.FullName, user.Avatar, user.Role,
		user.Balance, user.Quota, user.HashedPassword, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, repository.ErrDuplicateUser
		}
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(ctx, query, id))
}

func (r *pgUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.db.QueryRow(ctx, query, username))
}

func (r *pgUserRepository) UpdateQuota(ctx context.Context, id string, quota int64) (*domain.User, error) {
	query := `UPDATE users SET quota = $2 WHERE id = $1 RETURNING ` + userColumns
	return scanUser(r.db.QueryRow(ctx, query, id, quota))
}
