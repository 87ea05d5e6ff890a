// Package catalog holds the default storefront data and writes it on startup.
package catalog

import (
	_ "embed"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/roach88/vaniya/internal/models"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultSize is the number of products in the default catalog.
const DefaultSize = 120

// Catalog is a complete set of default records.
type Catalog struct {
	Products  []models.Product
	Merchants []models.Merchant
}

type document struct {
	Merchants []models.Merchant `yaml:"merchants"`
	Products  []baseProduct     `yaml:"products"`
}

type baseProduct struct {
	Key           string           `yaml:"key"`
	SKU           string           `yaml:"sku"`
	Brand         string           `yaml:"brand"`
	Merchant      string           `yaml:"merchant"`
	Category      string           `yaml:"category"`
	Price         string           `yaml:"price"`
	DiscountPrice string           `yaml:"discount_price"`
	Stock         int              `yaml:"stock"`
	Rating        float64          `yaml:"rating"`
	Title         models.Localized `yaml:"title"`
	Description   models.Localized `yaml:"description"`
	Variants      []baseVariant    `yaml:"variants"`
}

type baseVariant struct {
	ID         string `yaml:"id"`
	Type       string `yaml:"type"`
	Value      string `yaml:"value"`
	PriceDelta string `yaml:"price_delta"`
	Stock      int    `yaml:"stock"`
}

// Defaults parses the embedded defaults and expands them to DefaultSize products.
// Every call returns fresh slices.
func Defaults() (Catalog, error) {
	return parse(defaultsYAML, DefaultSize)
}

func parse(data []byte, size int) (Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Catalog{}, fmt.Errorf("parse defaults: %w", err)
	}
	if len(doc.Products) == 0 {
		return Catalog{}, fmt.Errorf("parse defaults: no products")
	}

	perBase := int(math.Ceil(float64(size) / float64(len(doc.Products))))
	products := make([]models.Product, 0, size)
	for n := 1; n <= perBase && len(products) < size; n++ {
		for _, base := range doc.Products {
			if len(products) == size {
				break
			}
			p, err := base.expand(n)
			if err != nil {
				return Catalog{}, err
			}
			products = append(products, p)
		}
	}
	return Catalog{Products: products, Merchants: doc.Merchants}, nil
}

// expand builds the nth product of a family. The first keeps the base stock.
func (b baseProduct) expand(n int) (models.Product, error) {
	price, err := decimal.NewFromString(b.Price)
	if err != nil {
		return models.Product{}, fmt.Errorf("product %s: price: %w", b.Key, err)
	}

	id := fmt.Sprintf("p-%s-%02d", b.Key, n)
	p := models.Product{
		ID:              id,
		SKU:             fmt.Sprintf("SKU_%s%03d", b.SKU, n),
		Brand:           b.Brand,
		Title:           edition(b.Title, n),
		Description:     b.Description.Normalize(),
		Price:           price,
		Image:           fmt.Sprintf("https://picsum.photos/seed/%s%d/400/400", b.Key, n),
		Category:        b.Category,
		Stock:           b.Stock + ((n-1)*7)%23,
		Rating:          b.Rating,
		Reviews:         []models.Review{},
		MerchantID:      b.Merchant,
		FulfillmentMode: models.SellerFulfilled,
		Status:          models.ProductActive,
	}

	if b.DiscountPrice != "" {
		d, err := decimal.NewFromString(b.DiscountPrice)
		if err != nil {
			return models.Product{}, fmt.Errorf("product %s: discount price: %w", b.Key, err)
		}
		p.DiscountPrice = &d
		if price.IsPositive() {
			pct := int(price.Sub(d).Div(price).Mul(decimal.NewFromInt(100)).IntPart())
			p.DiscountPercent = &pct
		}
	}

	for _, bv := range b.Variants {
		delta, err := decimal.NewFromString(bv.PriceDelta)
		if err != nil {
			return models.Product{}, fmt.Errorf("product %s variant %s: %w", b.Key, bv.ID, err)
		}
		p.Variants = append(p.Variants, models.Variant{
			ID:         id + "-" + bv.ID,
			Type:       bv.Type,
			Value:      bv.Value,
			PriceDelta: delta,
			Stock:      bv.Stock,
			SKU:        fmt.Sprintf("%s-%s", p.SKU, bv.ID),
		})
	}
	return p, nil
}

// edition numbers every family member after the first.
func edition(title models.Localized, n int) models.Localized {
	out := title.Normalize()
	if n == 1 {
		return out
	}
	for k, v := range out {
		out[k] = fmt.Sprintf("%s #%d", v, n)
	}
	return out
}
