package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is the store's operating currency.
const Currency = "MZN"

var hundred = decimal.NewFromInt(100)

// Product is a digital good sold by the store.
type Product struct {
	ID                 string           `json:"id"`
	Name               string           `json:"name"`
	Slug               string           `json:"slug,omitempty"`
	Description        string           `json:"description"`
	Price              decimal.Decimal  `json:"price"`
	CategoryID         string           `json:"category_id"`
	ImageURL           string           `json:"image_url"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	IsNew              bool             `json:"is_new,omitempty"`
	DownloadLink       string           `json:"download_link,omitempty"`
	RedirectLink       string           `json:"redirect_link,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

// HasDiscount reports whether a positive discount percentage is set.
func (p *Product) HasDiscount() bool {
	return p.DiscountPercentage != nil && p.DiscountPercentage.IsPositive()
}

// UnitPrice is the price after the discount percentage, if any.
func (p *Product) UnitPrice() decimal.Decimal {
	if !p.HasDiscount() {
		return p.Price
	}
	factor := decimal.NewFromInt(1).Sub(p.DiscountPercentage.Div(hundred))
	return p.Price.Mul(factor)
}

// FulfillmentLink returns where the buyer gets the product: the download link
// for ebooks and games, else the redirect link.
func (p *Product) FulfillmentLink() string {
	if p.DownloadLink != "" {
		return p.DownloadLink
	}
	return p.RedirectLink
}
