package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
)

func newUserTestFixture(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserRepository(mock), mock
}

func sampleUser() *domain.User {
	return &domain.User{
		ID:        "0b6f1c1e-8a51-4a5e-9d6e-6f1f5c1b2a10",
		Username:  "ana",
		Email:     "ana@example.com",
		Phone:     "841234567",
		IsAdmin:   false,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// ---------------------------------------------------------------------------
// Create
// ---------------------------------------------------------------------------

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	u := sampleUser()
	hash := []byte("$2a$10$hash")

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.Username, u.Email, u.Phone, hash, u.IsAdmin, u.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), u, hash))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), u, []byte("h"))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_OtherError(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectExec("INSERT INTO users").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), sampleUser(), []byte("h"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Contains(t, err.Error(), "insert user")
}

// ---------------------------------------------------------------------------
// GetByID
// ---------------------------------------------------------------------------

func TestUserRepository_GetByID_Success(t *testing.T) {
	repo, mock := newUserTestFixture(t)
	u := sampleUser()
	u.IsAdmin = true

	rows := pgxmock.NewRows([]string{"id", "username", "email", "phone", "is_admin", "created_at"}).
		AddRow(u.ID, u.Username, u.Email, u.Phone, u.IsAdmin, u.CreatedAt)
	mock.ExpectQuery("SELECT id, username, email, phone, is_admin, created_at").
		WithArgs(u.ID).
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectQuery("SELECT id, username").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// GetCredentialsByEmail
// ---------------------------------------------------------------------------

func TestUserRepository_GetCredentialsByEmail(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	rows := pgxmock.NewRows([]string{"id", "email", "password_hash"}).
		AddRow("u-1", "ana@example.com", []byte("secret-hash"))
	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("ana@example.com").
		WillReturnRows(rows)

	got, err := repo.GetCredentialsByEmail(context.Background(), "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, &domain.Credentials{UserID: "u-1", Email: "ana@example.com", PasswordHash: []byte("secret-hash")}, got)
}

func TestUserRepository_GetCredentialsByEmail_NotFound(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectQuery("SELECT id, email, password_hash").
		WithArgs("x@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetCredentialsByEmail(context.Background(), "x@example.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// SetAdmin
// ---------------------------------------------------------------------------

func TestUserRepository_SetAdmin(t *testing.T) {
	repo, mock := newUserTestFixture(t)

	mock.ExpectExec("UPDATE users SET is_admin").
		WithArgs(true, "u-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE users SET is_admin").
		WithArgs(true, "u-2").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	require.NoError(t, repo.SetAdmin(context.Background(), "u-1", true))
	assert.ErrorIs(t, repo.SetAdmin(context.Background(), "u-2", true), apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
