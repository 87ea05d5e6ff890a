package models

import (
	"github.com/shopspring/decimal"
)

// FulfillmentMode says who ships an order.
type FulfillmentMode string

const (
	SellerFulfilled   FulfillmentMode = "SELLER_FULFILLED"
	PlatformFulfilled FulfillmentMode = "PLATFORM_FULFILLED"
)

// ProductStatus controls catalog visibility.
type ProductStatus string

const (
	ProductActive   ProductStatus = "active"
	ProductDraft    ProductStatus = "draft"
	ProductArchived ProductStatus = "archived"
)

// Product is a catalog entry.
type Product struct {
	ID              string           `json:"id"`
	SKU             string           `json:"sku,omitempty"`
	Brand           string           `json:"brand,omitempty"`
	Title           Localized        `json:"title"`
	Description     Localized        `json:"description,omitempty"`
	Price           decimal.Decimal  `json:"price"`
	DiscountPrice   *decimal.Decimal `json:"discountPrice,omitempty"`
	DiscountPercent *int             `json:"discountPercent,omitempty"`
	Image           string           `json:"image"`
	Category        string           `json:"category"`
	Stock           int              `json:"stock"`
	Rating          float64          `json:"rating"`
	Reviews         []Review         `json:"reviews"`
	MerchantID      string           `json:"merchantId"`
	FulfillmentMode FulfillmentMode  `json:"fulfillmentMode,omitempty"`
	Status          ProductStatus    `json:"status,omitempty"`
	Variants        []Variant        `json:"variants,omitempty"`
}

func (p *Product) GetID() string   { return p.ID }
func (p *Product) SetID(id string) { p.ID = id }

// Variant is a purchasable option of a product with its own stock.
type Variant struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Value      string          `json:"value"`
	PriceDelta decimal.Decimal `json:"priceDelta"`
	Stock      int             `json:"stock"`
	SKU        string          `json:"sku,omitempty"`
}

// Review is a customer review.
type Review struct {
	ID       string  `json:"id"`
	UserID   string  `json:"userId"`
	UserName string  `json:"userName"`
	Rating   float64 `json:"rating"`
	Comment  string  `json:"comment"`
	Date     string  `json:"date"`
}

// Variant returns the variant with id, or nil.
func (p *Product) Variant(id string) *Variant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

// UnitPrice is the price a customer pays for one unit, optionally of a variant.
func (p *Product) UnitPrice(variantID string) decimal.Decimal {
	price := p.Price
	if p.DiscountPrice != nil {
		price = *p.DiscountPrice
	}
	if v := p.Variant(variantID); v != nil {
		price = price.Add(v.PriceDelta)
	}
	return price
}

// Available reports the stock for the product or one of its variants.
func (p *Product) Available(variantID string) int {
	if variantID != "" {
		if v := p.Variant(variantID); v != nil {
			return v.Stock
		}
	}
	return p.Stock
}

// ProductPatch changes selected product fields. Nil fields are left unchanged.
type ProductPatch struct {
	SKU             *string          `json:"sku,omitempty"`
	Brand           *string          `json:"brand,omitempty"`
	Title           Localized        `json:"title,omitempty"`
	Description     Localized        `json:"description,omitempty"`
	Price           *decimal.Decimal `json:"price,omitempty"`
	DiscountPrice   *decimal.Decimal `json:"discountPrice,omitempty"`
	Image           *string          `json:"image,omitempty"`
	Category        *string          `json:"category,omitempty"`
	Stock           *int             `json:"stock,omitempty"`
	FulfillmentMode *FulfillmentMode `json:"fulfillmentMode,omitempty"`
	Status          *ProductStatus   `json:"status,omitempty"`
	Variants        []Variant        `json:"variants,omitempty"`
}

// Apply merges the patch into p. Title, Description and Variants replace whole
// values when present.
func (patch ProductPatch) Apply(p *Product) {
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	if patch.Brand != nil {
		p.Brand = *patch.Brand
	}
	if patch.Title != nil {
		p.Title = patch.Title.Normalize()
	}
	if patch.Description != nil {
		p.Description = patch.Description.Normalize()
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.DiscountPrice != nil {
		d := *patch.DiscountPrice
		p.DiscountPrice = &d
	}
	if patch.Image != nil {
		p.Image = *patch.Image
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.FulfillmentMode != nil {
		p.FulfillmentMode = *patch.FulfillmentMode
	}
	if patch.Status != nil {
		p.Status = *patch.Status
	}
	if patch.Variants != nil {
		p.Variants = append([]Variant(nil), patch.Variants...)
	}
}
