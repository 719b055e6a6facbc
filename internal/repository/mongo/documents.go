package mongo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Jis87-63/moz-digital-store/internal/domain"
)

// Collection names.
const (
	ProductsCollection        = "products"
	CategoriesCollection      = "categories"
	BannersCollection         = "banners"
	SupportMessagesCollection = "support_messages"
)

// Documents keep the camelCase field names the storefront data was created
// with. Timestamps may be absent on documents written by hand.

type productDoc struct {
	ID                 string     `bson:"_id"`
	Name               string     `bson:"name"`
	Slug               string     `bson:"slug,omitempty"`
	Description        string     `bson:"description"`
	Price              float64    `bson:"price"`
	CategoryID         string     `bson:"categoryId"`
	ImageURL           string     `bson:"imageUrl"`
	DiscountPercentage *float64   `bson:"discountPercentage,omitempty"`
	IsNew              bool       `bson:"isNew,omitempty"`
	DownloadLink       string     `bson:"downloadLink,omitempty"`
	RedirectLink       string     `bson:"redirectLink,omitempty"`
	CreatedAt          *time.Time `bson:"createdAt,omitempty"`
	UpdatedAt          *time.Time `bson:"updatedAt,omitempty"`
}

func productFromDomain(p *domain.Product) productDoc {
	doc := productDoc{
		ID:           p.ID,
		Name:         p.Name,
		Slug:         p.Slug,
		Description:  p.Description,
		Price:        p.Price.InexactFloat64(),
		CategoryID:   p.CategoryID,
		ImageURL:     p.ImageURL,
		IsNew:        p.IsNew,
		DownloadLink: p.DownloadLink,
		RedirectLink: p.RedirectLink,
		CreatedAt:    timePtr(p.CreatedAt),
		UpdatedAt:    timePtr(p.UpdatedAt),
	}
	if p.DiscountPercentage != nil {
		v := p.DiscountPercentage.InexactFloat64()
		doc.DiscountPercentage = &v
	}
	return doc
}

func (d productDoc) key() string { return d.ID }

func (d productDoc) stamped() bool {
	return d.CreatedAt != nil && !d.CreatedAt.IsZero()
}

func (d productDoc) toDomain(now time.Time) domain.Product {
	p := domain.Product{
		ID:           d.ID,
		Name:         d.Name,
		Slug:         d.Slug,
		Description:  d.Description,
		Price:        decimal.NewFromFloat(d.Price),
		CategoryID:   d.CategoryID,
		ImageURL:     d.ImageURL,
		IsNew:        d.IsNew,
		DownloadLink: d.DownloadLink,
		RedirectLink: d.RedirectLink,
		CreatedAt:    timeOr(d.CreatedAt, now),
	}
	p.UpdatedAt = timeOr(d.UpdatedAt, p.CreatedAt)
	if d.DiscountPercentage != nil {
		v := decimal.NewFromFloat(*d.DiscountPercentage)
		p.DiscountPercentage = &v
	}
	return p
}

type categoryDoc struct {
	ID          string `bson:"_id"`
	Name        string `bson:"name"`
	Slug        string `bson:"slug"`
	Description string `bson:"description,omitempty"`
	Icon        string `bson:"icon,omitempty"`
	Order       int    `bson:"order"`
}

func categoryFromDomain(c *domain.Category) categoryDoc {
	return categoryDoc{
		ID:          c.ID,
		Name:        c.Name,
		Slug:        c.Slug,
		Description: c.Description,
		Icon:        c.Icon,
		Order:       c.Order,
	}
}

func (d categoryDoc) key() string { return d.ID }

func (d categoryDoc) stamped() bool { return true }

func (d categoryDoc) toDomain(time.Time) domain.Category {
	return domain.Category{
		ID:          d.ID,
		Name:        d.Name,
		Slug:        d.Slug,
		Description: d.Description,
		Icon:        d.Icon,
		Order:       d.Order,
	}
}

type bannerDoc struct {
	ID        string     `bson:"_id"`
	Title     string     `bson:"title"`
	ImageURL  string     `bson:"imageUrl"`
	Link      string     `bson:"link,omitempty"`
	Order     int        `bson:"order"`
	IsActive  bool       `bson:"isActive"`
	CreatedAt *time.Time `bson:"createdAt,omitempty"`
}

func bannerFromDomain(b *domain.Banner) bannerDoc {
	return bannerDoc{
		ID:        b.ID,
		Title:     b.Title,
		ImageURL:  b.ImageURL,
		Link:      b.Link,
		Order:     b.Order,
		IsActive:  b.IsActive,
		CreatedAt: timePtr(b.CreatedAt),
	}
}

func (d bannerDoc) key() string { return d.ID }

func (d bannerDoc) stamped() bool {
	return d.CreatedAt != nil && !d.CreatedAt.IsZero()
}

func (d bannerDoc) toDomain(now time.Time) domain.Banner {
	return domain.Banner{
		ID:        d.ID,
		Title:     d.Title,
		ImageURL:  d.ImageURL,
		Link:      d.Link,
		Order:     d.Order,
		IsActive:  d.IsActive,
		CreatedAt: timeOr(d.CreatedAt, now),
	}
}

type supportDoc struct {
	ID        string     `bson:"_id"`
	Name      string     `bson:"name"`
	Email     string     `bson:"email"`
	Message   string     `bson:"message"`
	UserID    *string    `bson:"userId"`
	IsRead    bool       `bson:"isRead"`
	CreatedAt *time.Time `bson:"createdAt,omitempty"`
}

func supportFromDomain(m *domain.SupportMessage) supportDoc {
	return supportDoc{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Message:   m.Message,
		UserID:    m.UserID,
		IsRead:    m.IsRead,
		CreatedAt: timePtr(m.CreatedAt),
	}
}

func (d supportDoc) key() string { return d.ID }

func (d supportDoc) stamped() bool {
	return d.CreatedAt != nil && !d.CreatedAt.IsZero()
}

func (d supportDoc) toDomain(now time.Time) domain.SupportMessage {
	return domain.SupportMessage{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Message:   d.Message,
		UserID:    d.UserID,
		IsRead:    d.IsRead,
		CreatedAt: timeOr(d.CreatedAt, now),
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	t = t.UTC()
	return &t
}

func timeOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.UTC()
}
