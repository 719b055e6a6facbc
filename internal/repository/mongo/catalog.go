package mongo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Jis87-63/moz-digital-store/internal/catalog"
	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/repository"
)

// ProductRepository serves the products collection to catalog readers and
// admin writes.
type ProductRepository struct {
	c *collection[domain.Product, productDoc]
}

func NewProductRepository(db *mongo.Database, opts Options) *ProductRepository {
	return &ProductRepository{c: newCollection[domain.Product, productDoc](db.Collection(ProductsCollection), "product", opts)}
}

func productFilter(categoryID string, onlyDiscounted bool) bson.M {
	filter := bson.M{}
	if categoryID != "" {
		filter["categoryId"] = categoryID
	}
	if onlyDiscounted {
		filter["discountPercentage"] = bson.M{"$gt": 0}
	}
	return filter
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}}

// Find lists products newest first, filtered by category or discount.
func (r *ProductRepository) Find(ctx context.Context, q catalog.Query) ([]domain.Product, error) {
	return r.c.find(ctx, productFilter(q.CategoryID, q.OnlyDiscounted), options.Find().SetSort(newestFirst))
}

func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.c.findByID(ctx, id)
}

func (r *ProductRepository) Changes(ctx context.Context) (<-chan struct{}, error) {
	return r.c.changes(ctx)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.c.findByID(ctx, id)
}

// List returns one page of products and the total matching count.
func (r *ProductRepository) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, int, error) {
	filter := productFilter(f.CategoryID, f.OnlyDiscounted)

	total, err := r.c.count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(newestFirst).SetSkip(int64(f.Offset))
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	items, err := r.c.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Create inserts p, assigning an id and timestamps when missing.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := r.c.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	return r.c.insert(ctx, productFromDomain(p), p.ID)
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = r.c.now()
	return r.c.replace(ctx, p.ID, productFromDomain(p))
}

func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, id)
}

// CategoryRepository serves the categories collection.
type CategoryRepository struct {
	c *collection[domain.Category, categoryDoc]
}

func NewCategoryRepository(db *mongo.Database, opts Options) *CategoryRepository {
	return &CategoryRepository{c: newCollection[domain.Category, categoryDoc](db.Collection(CategoriesCollection), "category", opts)}
}

var displayOrder = bson.D{{Key: "order", Value: 1}}

// Find lists categories in display order.
func (r *CategoryRepository) Find(ctx context.Context, _ catalog.Query) ([]domain.Category, error) {
	return r.c.find(ctx, bson.M{}, options.Find().SetSort(displayOrder))
}

func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.c.findByID(ctx, id)
}

func (r *CategoryRepository) Changes(ctx context.Context) (<-chan struct{}, error) {
	return r.c.changes(ctx)
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.c.findByID(ctx, id)
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.c.findOne(ctx, bson.M{"slug": slug}, slug)
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return r.c.insert(ctx, categoryFromDomain(c), c.Slug)
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) error {
	return r.c.replace(ctx, c.ID, categoryFromDomain(c))
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, id)
}

// BannerRepository serves the banners collection.
type BannerRepository struct {
	c *collection[domain.Banner, bannerDoc]
}

func NewBannerRepository(db *mongo.Database, opts Options) *BannerRepository {
	return &BannerRepository{c: newCollection[domain.Banner, bannerDoc](db.Collection(BannersCollection), "banner", opts)}
}

// Find lists banners in display order, only active ones when q asks so.
func (r *BannerRepository) Find(ctx context.Context, q catalog.Query) ([]domain.Banner, error) {
	filter := bson.M{}
	if q.OnlyActive {
		filter["isActive"] = true
	}
	return r.c.find(ctx, filter, options.Find().SetSort(displayOrder))
}

func (r *BannerRepository) FindByID(ctx context.Context, id string) (*domain.Banner, error) {
	return r.c.findByID(ctx, id)
}

func (r *BannerRepository) Changes(ctx context.Context) (<-chan struct{}, error) {
	return r.c.changes(ctx)
}

func (r *BannerRepository) GetByID(ctx context.Context, id string) (*domain.Banner, error) {
	return r.c.findByID(ctx, id)
}

func (r *BannerRepository) Create(ctx context.Context, b *domain.Banner) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = r.c.now()
	}
	return r.c.insert(ctx, bannerFromDomain(b), b.ID)
}

func (r *BannerRepository) Update(ctx context.Context, b *domain.Banner) error {
	return r.c.replace(ctx, b.ID, bannerFromDomain(b))
}

func (r *BannerRepository) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, id)
}

// EnsureIndexes creates the indexes the fixed catalog queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		ProductsCollection: {
			{Keys: bson.D{{Key: "categoryId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		CategoriesCollection: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "order", Value: 1}}},
		},
		BannersCollection: {
			{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "order", Value: 1}}},
		},
		SupportMessagesCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}
