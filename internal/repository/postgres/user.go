package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/database"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with its password hash.
func (r *UserRepository) Create(ctx context.Context, u *domain.User, passwordHash []byte) error {
	query := `
		INSERT INTO users (id, username, email, phone, password_hash, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`

	ctx, end := database.TraceQuery(ctx, "insert user", query)
	_, err := r.db.Exec(ctx, query,
		u.ID,
		u.Username,
		u.Email,
		u.Phone,
		passwordHash,
		u.IsAdmin,
		u.CreatedAt,
	)
	end(err)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetByID retrieves a profile by its ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, username, email, phone, is_admin, created_at
		FROM users
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "get user", query)
	var u domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Phone,
		&u.IsAdmin,
		&u.CreatedAt,
	)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &u, nil
}

// GetCredentialsByEmail retrieves the password hash stored for email.
func (r *UserRepository) GetCredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error) {
	query := `
		SELECT id, email, password_hash
		FROM users
		WHERE LOWER(email) = LOWER($1)`

	ctx, end := database.TraceQuery(ctx, "get credentials", query)
	var c domain.Credentials
	err := r.db.QueryRow(ctx, query, email).Scan(&c.UserID, &c.Email, &c.PasswordHash)
	end(err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", email)
		}
		return nil, fmt.Errorf("scan credentials: %w", err)
	}

	return &c, nil
}

// SetAdmin grants or revokes the admin flag.
func (r *UserRepository) SetAdmin(ctx context.Context, id string, isAdmin bool) error {
	query := `UPDATE users SET is_admin = $1, updated_at = NOW() WHERE id = $2`

	ctx, end := database.TraceQuery(ctx, "set admin", query)
	ct, err := r.db.Exec(ctx, query, isAdmin, id)
	end(err)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
