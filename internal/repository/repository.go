package repository

import (
	"context"
	"io"
	"time"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
)

// UserRepository persists profiles and their login credentials.
type UserRepository interface {
	// Create inserts a user with its password hash. A duplicate email yields
	// an error wrapping apperrors.ErrAlreadyExists.
	Create(ctx context.Context, user *domain.User, passwordHash []byte) error

	// GetByID retrieves a profile by its identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetCredentialsByEmail retrieves the login secret for an email.
	GetCredentialsByEmail(ctx context.Context, email string) (*domain.Credentials, error)

	// SetAdmin grants or revokes the admin flag.
	SetAdmin(ctx context.Context, id string, isAdmin bool) error
}

// RevocationRepository remembers signed-out session tokens until they expire.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// ProductFilter narrows a product listing.
type ProductFilter struct {
	CategoryID     string
	OnlyDiscounted bool
	Offset         int
	Limit          int
}

// ProductRepository is the write side of the product catalog.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
}

// CategoryRepository is the write side of the category list.
type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Category, error)
}

// BannerRepository is the write side of the landing page banners.
type BannerRepository interface {
	Create(ctx context.Context, b *domain.Banner) error
	Update(ctx context.Context, b *domain.Banner) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Banner, error)
}

// SupportRepository stores contact form submissions.
type SupportRepository interface {
	Create(ctx context.Context, m *domain.SupportMessage) error
	List(ctx context.Context, offset, limit int) ([]domain.SupportMessage, int, error)
	MarkRead(ctx context.Context, id string) error
}

// MediaStorage stores uploaded images.
type MediaStorage interface {
	// Upload stores the content and returns its identifier.
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error)

	// Open returns the content and its content type.
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}
