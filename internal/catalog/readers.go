package catalog

import (
	"context"
	"log/slog"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
)

// Catalog bundles the readers the storefront serves.
type Catalog struct {
	Products   *Reader[domain.Product]
	Categories *Reader[domain.Category]
	Banners    *Reader[domain.Banner]
}

func New(products Collection[domain.Product], categories Collection[domain.Category], banners Collection[domain.Banner], logger *slog.Logger) *Catalog {
	return &Catalog{
		Products:   NewReader(products, logger),
		Categories: NewReader(categories, logger),
		Banners:    NewReader(banners, logger),
	}
}

// Product fetches one product by id.
func (c *Catalog) Product(ctx context.Context, id string) (*domain.Product, error) {
	return c.Products.Get(ctx, id)
}

// CategoryProducts lists the products of a category, newest first. An empty
// id lists every product.
func (c *Catalog) CategoryProducts(ctx context.Context, categoryID string) ([]domain.Product, error) {
	return c.Products.List(ctx, ProductsQuery(categoryID))
}

// Promotions lists discounted products, newest first.
func (c *Catalog) Promotions(ctx context.Context) ([]domain.Product, error) {
	return c.Products.List(ctx, PromotionsQuery())
}

// AllCategories lists categories in display order.
func (c *Catalog) AllCategories(ctx context.Context) ([]domain.Category, error) {
	return c.Categories.List(ctx, CategoriesQuery())
}

// ActiveBanners lists active banners in display order.
func (c *Catalog) ActiveBanners(ctx context.Context) ([]domain.Banner, error) {
	return c.Banners.List(ctx, ActiveBannersQuery())
}
