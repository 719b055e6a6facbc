// Package main populates the catalog with demo categories, products and
// banners. Categories are matched by slug, so running it twice leaves the
// catalog unchanged.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Jis87-63/moz-digital-store/internal/config"
	"github.com/Jis87-63/moz-digital-store/internal/domain"
	"github.com/Jis87-63/moz-digital-store/internal/repository"
	mongorepo "github.com/Jis87-63/moz-digital-store/internal/repository/mongo"
	"github.com/Jis87-63/moz-digital-store/pkg/database"
	apperrors "github.com/Jis87-63/moz-digital-store/pkg/errors"
	"github.com/Jis87-63/moz-digital-store/pkg/logger"
	"github.com/Jis87-63/moz-digital-store/pkg/slug"
)

// --------------------------------------------------------------------------
// Seed data
// --------------------------------------------------------------------------

type productDef struct {
	name     string
	price    string
	discount string
	isNew    bool
	download string
	redirect string
}

type categoryDef struct {
	name     string
	icon     string
	products []productDef
}

var categories = []categoryDef{
	{name: "Ebooks", icon: "book", products: []productDef{
		{name: "Guia de Marketing Digital", price: "450", discount: "10", download: "https://files.example.com/ebooks/marketing.pdf"},
		{name: "Finanças Pessoais para Iniciantes", price: "300", isNew: true, download: "https://files.example.com/ebooks/financas.pdf"},
	}},
	{name: "Cursos", icon: "graduation-cap", products: []productDef{
		{name: "Curso de Go do Zero", price: "1500", discount: "25", redirect: "https://cursos.example.com/go"},
		{name: "Design Gráfico com Canva", price: "800", redirect: "https://cursos.example.com/canva"},
	}},
	{name: "Jogos", icon: "gamepad", products: []productDef{
		{name: "Aventura na Savana", price: "650", isNew: true, download: "https://files.example.com/jogos/savana.zip"},
	}},
	{name: "Software", icon: "laptop", products: []productDef{
		{name: "Pacote de Templates para Lojas", price: "1200", discount: "15", download: "https://files.example.com/software/templates.zip"},
	}},
}

var banners = []domain.Banner{
	{Title: "Promoções da semana", ImageURL: "https://cdn.example.com/banners/promocoes.jpg", Link: "/promocoes", Order: 1, IsActive: true},
	{Title: "Novos cursos", ImageURL: "https://cdn.example.com/banners/cursos.jpg", Link: "/categoria/cursos", Order: 2, IsActive: true},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.New("seed", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.ConnectMongo(ctx, database.MongoConfig{
		URI:         cfg.MongoURI,
		Database:    cfg.MongoDatabase,
		MaxPoolSize: 5,
	}, log)
	if err != nil {
		log.Error("failed to connect to mongodb", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Client().Disconnect(context.Background()) }()

	if err := run(ctx, db, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed complete")
}

func run(ctx context.Context, db *mongo.Database, log *slog.Logger) error {
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	opts := mongorepo.Options{Logger: log}
	s := &seeder{
		products:   mongorepo.NewProductRepository(db, opts),
		categories: mongorepo.NewCategoryRepository(db, opts),
		banners:    mongorepo.NewBannerRepository(db, opts),
		log:        log,
	}

	created := 0
	for i, def := range categories {
		fresh, err := s.seedCategory(ctx, i+1, def)
		if err != nil {
			return err
		}
		if fresh {
			created++
		}
	}

	// Banners have no natural key, so they only go in alongside a fresh catalog.
	if created == len(categories) {
		for i := range banners {
			b := banners[i]
			if err := s.banners.Create(ctx, &b); err != nil {
				return err
			}
			log.Info("banner created", slog.String("title", b.Title))
		}
	}
	return nil
}

type seeder struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	banners    repository.BannerRepository
	log        *slog.Logger
}

// seedCategory creates the category and its products unless a category with
// the same slug exists. It reports whether anything was created.
func (s *seeder) seedCategory(ctx context.Context, order int, def categoryDef) (bool, error) {
	key := slug.Generate(def.name)
	existing, err := s.categories.GetBySlug(ctx, key)
	switch {
	case err == nil:
		s.log.Info("category exists, skipping", slog.String("slug", key), slog.String("id", existing.ID))
		return false, nil
	case !errors.Is(err, apperrors.ErrNotFound):
		return false, err
	}

	c := &domain.Category{Name: def.name, Slug: key, Icon: def.icon, Order: order}
	if err := s.categories.Create(ctx, c); err != nil {
		return false, err
	}
	s.log.Info("category created", slog.String("slug", key), slog.String("id", c.ID))

	for _, pd := range def.products {
		p := &domain.Product{
			Name:         pd.name,
			Slug:         slug.Generate(pd.name),
			Description:  pd.name,
			Price:        decimal.RequireFromString(pd.price),
			CategoryID:   c.ID,
			IsNew:        pd.isNew,
			DownloadLink: pd.download,
			RedirectLink: pd.redirect,
		}
		if pd.discount != "" {
			d := decimal.RequireFromString(pd.discount)
			p.DiscountPercentage = &d
		}
		if err := s.products.Create(ctx, p); err != nil {
			return false, err
		}
		s.log.Info("product created", slog.String("name", p.Name), slog.String("id", p.ID))
	}
	return true, nil
}
