package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/repository"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/pagination"
	"github.com/Jis87-63/moz-digital-store/pkg/slug"
	"github.com/Jis87-63/moz-digital-store/pkg/validator"
)

// MediaPath is the public path uploaded images are served under.
const MediaPath = "/media/"

// MaxImageSize bounds an uploaded image.
const MaxImageSize = 5 << 20

// ProfileRefresher drops cached profiles after an admin changes them.
type ProfileRefresher interface {
	Refresh(userID string)
}

// ProductInput holds the admin product form.
type ProductInput struct {
	Name               string           `json:"name" validate:"required,min=2,max=200"`
	Description        string           `json:"description" validate:"max=5000"`
	Price              decimal.Decimal  `json:"price" validate:"gt=0"`
	CategoryID         string           `json:"category_id" validate:"required"`
	ImageURL           string           `json:"image_url" validate:"omitempty,url"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage" validate:"omitempty,gte=0,lte=100"`
	IsNew              bool             `json:"is_new"`
	DownloadLink       string           `json:"download_link" validate:"omitempty,url"`
	RedirectLink       string           `json:"redirect_link" validate:"omitempty,url"`
}

// CategoryInput holds the admin category form. An empty slug is derived
// from the name.
type CategoryInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Slug        string `json:"slug" validate:"omitempty,slug"`
	Description string `json:"description" validate:"max=1000"`
	Icon        string `json:"icon" validate:"max=100"`
	Order       int    `json:"order" validate:"gte=0"`
}

// BannerInput holds the admin banner form.
type BannerInput struct {
	Title    string `json:"title" validate:"required,max=200"`
	ImageURL string `json:"image_url" validate:"required,url"`
	Link     string `json:"link" validate:"omitempty,max=500"`
	Order    int    `json:"order" validate:"gte=0"`
	IsActive bool   `json:"is_active"`
}

// AdminService implements the catalog management panel.
type AdminService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	banners    repository.BannerRepository
	support    repository.SupportRepository
	media      repository.MediaStorage
	users      repository.UserRepository
	profiles   ProfileRefresher
	logger     *slog.Logger
	baseURL    string
}

// AdminDeps groups the collaborators of AdminService.
type AdminDeps struct {
	Products   repository.ProductRepository
	Categories repository.CategoryRepository
	Banners    repository.BannerRepository
	Support    repository.SupportRepository
	Media      repository.MediaStorage
	Users      repository.UserRepository
	Profiles   ProfileRefresher
}

func NewAdminService(deps AdminDeps, publicBaseURL string, logger *slog.Logger) *AdminService {
	return &AdminService{
		products:   deps.Products,
		categories: deps.Categories,
		banners:    deps.Banners,
		support:    deps.Support,
		media:      deps.Media,
		users:      deps.Users,
		profiles:   deps.Profiles,
		logger:     logger,
		baseURL:    strings.TrimRight(publicBaseURL, "/"),
	}
}

// --- Products ---

// ListProducts returns one page of products, optionally within a category.
func (s *AdminService) ListProducts(ctx context.Context, categoryID string, params pagination.Params) (pagination.Result[domain.Product], error) {
	items, total, err := s.products.List(ctx, repository.ProductFilter{
		CategoryID: categoryID,
		Offset:     params.Offset,
		Limit:      params.PerPage,
	})
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(items, total, params), nil
}

func (s *AdminService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := s.checkProduct(ctx, in); err != nil {
		return nil, err
	}

	p := &domain.Product{}
	applyProductInput(p, in)
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created", slog.String("product_id", p.ID), slog.String("slug", p.Slug))
	return p, nil
}

func (s *AdminService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkProduct(ctx, in); err != nil {
		return nil, err
	}

	applyProductInput(p, in)
	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", p.ID))
	return p, nil
}

func (s *AdminService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

func (s *AdminService) checkProduct(ctx context.Context, in ProductInput) error {
	if err := validator.Validate(in); err != nil {
		return err
	}
	if in.DownloadLink != "" && in.RedirectLink != "" {
		return apperrors.InvalidInput("a product has either a download link or a redirect link, not both")
	}
	if _, err := s.categories.GetByID(ctx, in.CategoryID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.InvalidInput(fmt.Sprintf("category %s does not exist", in.CategoryID))
		}
		return fmt.Errorf("get category: %w", err)
	}
	return nil
}

func applyProductInput(p *domain.Product, in ProductInput) {
	p.Name = strings.TrimSpace(in.Name)
	p.Slug = slug.Generate(p.Name)
	p.Description = in.Description
	p.Price = in.Price
	p.CategoryID = in.CategoryID
	p.ImageURL = in.ImageURL
	p.DiscountPercentage = in.DiscountPercentage
	if p.DiscountPercentage != nil && p.DiscountPercentage.IsZero() {
		p.DiscountPercentage = nil
	}
	p.IsNew = in.IsNew
	p.DownloadLink = in.DownloadLink
	p.RedirectLink = in.RedirectLink
}

// --- Categories ---

func (s *AdminService) CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error) {
	c := &domain.Category{}
	if err := s.applyCategoryInput(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created", slog.String("category_id", c.ID), slog.String("slug", c.Slug))
	return c, nil
}

func (s *AdminService) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*domain.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.applyCategoryInput(ctx, c, in); err != nil {
		return nil, err
	}
	if err := s.categories.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes an empty category.
func (s *AdminService) DeleteCategory(ctx context.Context, id string) error {
	_, total, err := s.products.List(ctx, repository.ProductFilter{CategoryID: id, Limit: 1})
	if err != nil {
		return fmt.Errorf("count category products: %w", err)
	}
	if total > 0 {
		return apperrors.Conflict(fmt.Sprintf("category still has %d products", total))
	}
	return s.categories.Delete(ctx, id)
}

func (s *AdminService) applyCategoryInput(ctx context.Context, c *domain.Category, in CategoryInput) error {
	if err := validator.Validate(in); err != nil {
		return err
	}

	sl := in.Slug
	if sl == "" {
		sl = slug.Generate(in.Name)
	}
	if sl == "" {
		return apperrors.InvalidInput("category name must contain letters or digits")
	}

	existing, err := s.categories.GetBySlug(ctx, sl)
	switch {
	case err == nil && existing.ID != c.ID:
		return apperrors.AlreadyExists("category", "slug", sl)
	case err != nil && !errors.Is(err, apperrors.ErrNotFound):
		return fmt.Errorf("get category by slug: %w", err)
	}

	c.Name = strings.TrimSpace(in.Name)
	c.Slug = sl
	c.Description = in.Description
	c.Icon = in.Icon
	c.Order = in.Order
	return nil
}

// --- Banners ---

func (s *AdminService) CreateBanner(ctx context.Context, in BannerInput) (*domain.Banner, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	b := &domain.Banner{}
	applyBannerInput(b, in)
	if err := s.banners.Create(ctx, b); err != nil {
		return nil, fmt.Errorf("create banner: %w", err)
	}
	return b, nil
}

func (s *AdminService) UpdateBanner(ctx context.Context, id string, in BannerInput) (*domain.Banner, error) {
	if err := validator.Validate(in); err != nil {
		return nil, err
	}
	b, err := s.banners.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyBannerInput(b, in)
	if err := s.banners.Update(ctx, b); err != nil {
		return nil, fmt.Errorf("update banner: %w", err)
	}
	return b, nil
}

func (s *AdminService) DeleteBanner(ctx context.Context, id string) error {
	return s.banners.Delete(ctx, id)
}

func applyBannerInput(b *domain.Banner, in BannerInput) {
	b.Title = strings.TrimSpace(in.Title)
	b.ImageURL = in.ImageURL
	b.Link = in.Link
	b.Order = in.Order
	b.IsActive = in.IsActive
}

// --- Support inbox ---

func (s *AdminService) ListSupportMessages(ctx context.Context, params pagination.Params) (pagination.Result[domain.SupportMessage], error) {
	items, total, err := s.support.List(ctx, params.Offset, params.PerPage)
	if err != nil {
		return pagination.Result[domain.SupportMessage]{}, fmt.Errorf("list support messages: %w", err)
	}
	return pagination.NewResult(items, total, params), nil
}

func (s *AdminService) MarkSupportMessageRead(ctx context.Context, id string) error {
	return s.support.MarkRead(ctx, id)
}

// --- Users ---

// SetAdmin grants or revokes the admin flag of a user.
func (s *AdminService) SetAdmin(ctx context.Context, userID string, isAdmin bool) error {
	if err := s.users.SetAdmin(ctx, userID, isAdmin); err != nil {
		return err
	}
	if s.profiles != nil {
		s.profiles.Refresh(userID)
	}
	s.logger.InfoContext(ctx, "admin flag changed",
		slog.String("user_id", userID),
		slog.Bool("is_admin", isAdmin),
	)
	return nil
}

// --- Media ---

// UploadImage stores an image and returns its public URL.
func (s *AdminService) UploadImage(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return "", apperrors.InvalidInput("only images can be uploaded")
	}

	id, err := s.media.Upload(ctx, filename, contentType, io.LimitReader(r, MaxImageSize))
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}

	s.logger.InfoContext(ctx, "image uploaded", slog.String("media_id", id), slog.String("filename", filename))
	return s.baseURL + MediaPath + id, nil
}

// OpenImage returns a stored image and its content type.
func (s *AdminService) OpenImage(ctx context.Context, id string) (io.ReadCloser, string, error) {
	return s.media.Open(ctx, id)
}
