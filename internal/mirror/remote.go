package mirror

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/shopspring/decimal"

	"github.com/roach88/vaniya/internal/models"
)

// Remote records use snake_case attribute names.

type remoteVariant struct {
	ID         string                `dynamodbav:"id"`
	Type       string                `dynamodbav:"type"`
	Value      string                `dynamodbav:"value"`
	PriceDelta attributevalue.Number `dynamodbav:"price_delta"`
	Stock      int                   `dynamodbav:"stock"`
	SKU        string                `dynamodbav:"sku,omitempty"`
}

type remoteProduct struct {
	ID              string                 `dynamodbav:"id"`
	SKU             string                 `dynamodbav:"sku,omitempty"`
	Brand           string                 `dynamodbav:"brand,omitempty"`
	Title           map[string]string      `dynamodbav:"title"`
	Description     map[string]string      `dynamodbav:"description,omitempty"`
	Price           attributevalue.Number  `dynamodbav:"price"`
	DiscountPrice   *attributevalue.Number `dynamodbav:"discount_price,omitempty"`
	Image           string                 `dynamodbav:"image,omitempty"`
	Category        string                 `dynamodbav:"category,omitempty"`
	Stock           int                    `dynamodbav:"stock"`
	Rating          float64                `dynamodbav:"rating"`
	MerchantID      string                 `dynamodbav:"merchant_id"`
	FulfillmentMode string                 `dynamodbav:"fulfillment_mode,omitempty"`
	Status          string                 `dynamodbav:"status,omitempty"`
	Variants        []remoteVariant        `dynamodbav:"variants,omitempty"`
	UpdatedAt       string                 `dynamodbav:"updated_at"`
}

type remoteCustomer struct {
	ID                string `dynamodbav:"id"`
	Name              string `dynamodbav:"name"`
	Email             string `dynamodbav:"email"`
	Role              string `dynamodbav:"role"`
	PreferredLanguage string `dynamodbav:"preferred_language"`
	LastActive        string `dynamodbav:"last_active"`
}

type remoteLineItem struct {
	ProductID string                `dynamodbav:"product_id"`
	VariantID string                `dynamodbav:"variant_id,omitempty"`
	Quantity  int                   `dynamodbav:"quantity"`
	Price     attributevalue.Number `dynamodbav:"price"`
}

type remoteAddress struct {
	Name   string `dynamodbav:"name"`
	Street string `dynamodbav:"street"`
	City   string `dynamodbav:"city"`
	Zip    string `dynamodbav:"zip"`
}

type remoteOrder struct {
	ID              string                `dynamodbav:"id"`
	CustomerID      string                `dynamodbav:"customer_id"`
	MerchantID      string                `dynamodbav:"merchant_id"`
	Items           []remoteLineItem      `dynamodbav:"items"`
	Subtotal        attributevalue.Number `dynamodbav:"subtotal"`
	Commission      attributevalue.Number `dynamodbav:"commission"`
	Tax             attributevalue.Number `dynamodbav:"tax"`
	Total           attributevalue.Number `dynamodbav:"total"`
	Status          string                `dynamodbav:"status"`
	Date            string                `dynamodbav:"date"`
	Address         remoteAddress         `dynamodbav:"address"`
	FulfillmentMode string                `dynamodbav:"fulfillment_mode,omitempty"`
	UpdatedAt       string                `dynamodbav:"updated_at"`
}

type remoteMerchant struct {
	ID        string  `dynamodbav:"id"`
	Name      string  `dynamodbav:"name"`
	Owner     string  `dynamodbav:"owner,omitempty"`
	Email     string  `dynamodbav:"email,omitempty"`
	Phone     string  `dynamodbav:"phone,omitempty"`
	City      string  `dynamodbav:"city,omitempty"`
	GSTIN     string  `dynamodbav:"gstin,omitempty"`
	Verified  bool    `dynamodbav:"verified"`
	Rating    float64 `dynamodbav:"rating"`
	UpdatedAt string  `dynamodbav:"updated_at"`
}

func number(d decimal.Decimal) attributevalue.Number {
	return attributevalue.Number(d.String())
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func toRemoteProduct(p models.Product, now time.Time) remoteProduct {
	r := remoteProduct{
		ID:              p.ID,
		SKU:             p.SKU,
		Brand:           p.Brand,
		Title:           p.Title,
		Description:     p.Description,
		Price:           number(p.Price),
		Image:           p.Image,
		Category:        p.Category,
		Stock:           p.Stock,
		Rating:          p.Rating,
		MerchantID:      p.MerchantID,
		FulfillmentMode: string(p.FulfillmentMode),
		Status:          string(p.Status),
		UpdatedAt:       stamp(now),
	}
	if r.Title == nil {
		r.Title = map[string]string{}
	}
	if p.DiscountPrice != nil {
		d := number(*p.DiscountPrice)
		r.DiscountPrice = &d
	}
	for _, v := range p.Variants {
		r.Variants = append(r.Variants, remoteVariant{
			ID:         v.ID,
			Type:       v.Type,
			Value:      v.Value,
			PriceDelta: number(v.PriceDelta),
			Stock:      v.Stock,
			SKU:        v.SKU,
		})
	}
	return r
}

func fromRemoteProduct(r remoteProduct) (models.Product, error) {
	price, err := decimal.NewFromString(string(r.Price))
	if err != nil {
		return models.Product{}, fmt.Errorf("product %s: price: %w", r.ID, err)
	}
	p := models.Product{
		ID:              r.ID,
		SKU:             r.SKU,
		Brand:           r.Brand,
		Title:           models.Localized(r.Title).Normalize(),
		Description:     models.Localized(r.Description).Normalize(),
		Price:           price,
		Image:           r.Image,
		Category:        r.Category,
		Stock:           r.Stock,
		Rating:          r.Rating,
		Reviews:         []models.Review{},
		MerchantID:      r.MerchantID,
		FulfillmentMode: models.FulfillmentMode(r.FulfillmentMode),
		Status:          models.ProductStatus(r.Status),
	}
	if r.DiscountPrice != nil {
		d, err := decimal.NewFromString(string(*r.DiscountPrice))
		if err != nil {
			return models.Product{}, fmt.Errorf("product %s: discount price: %w", r.ID, err)
		}
		p.DiscountPrice = &d
	}
	for _, rv := range r.Variants {
		delta, err := decimal.NewFromString(string(rv.PriceDelta))
		if err != nil {
			return models.Product{}, fmt.Errorf("product %s variant %s: %w", r.ID, rv.ID, err)
		}
		p.Variants = append(p.Variants, models.Variant{
			ID:         rv.ID,
			Type:       rv.Type,
			Value:      rv.Value,
			PriceDelta: delta,
			Stock:      rv.Stock,
			SKU:        rv.SKU,
		})
	}
	return p, nil
}

func toRemoteCustomer(c models.Customer, now time.Time) remoteCustomer {
	lang := c.Language
	if lang == "" {
		lang = models.English
	}
	return remoteCustomer{
		ID:                c.ID,
		Name:              c.Name,
		Email:             c.Email,
		Role:              string(c.Role),
		PreferredLanguage: lang,
		LastActive:        stamp(now),
	}
}

func toRemoteOrder(o models.Order, now time.Time) remoteOrder {
	r := remoteOrder{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		MerchantID: o.MerchantID,
		Items:      make([]remoteLineItem, 0, len(o.Items)),
		Subtotal:   number(o.Subtotal),
		Commission: number(o.Commission),
		Tax:        number(o.Tax),
		Total:      number(o.Total),
		Status:     string(o.Status),
		Date:       stamp(o.Date),
		Address: remoteAddress{
			Name:   o.Address.Name,
			Street: o.Address.Street,
			City:   o.Address.City,
			Zip:    o.Address.Zip,
		},
		FulfillmentMode: string(o.FulfillmentMode),
		UpdatedAt:       stamp(now),
	}
	for _, li := range o.Items {
		r.Items = append(r.Items, remoteLineItem{
			ProductID: li.ProductID,
			VariantID: li.VariantID,
			Quantity:  li.Quantity,
			Price:     number(li.Price),
		})
	}
	return r
}

func toRemoteMerchant(m models.Merchant, now time.Time) remoteMerchant {
	return remoteMerchant{
		ID:        m.ID,
		Name:      m.Name,
		Owner:     m.Owner,
		Email:     m.Email,
		Phone:     m.Phone,
		City:      m.City,
		GSTIN:     m.GSTIN,
		Verified:  m.Verified,
		Rating:    m.Rating,
		UpdatedAt: stamp(now),
	}
}
