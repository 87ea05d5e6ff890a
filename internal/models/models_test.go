package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusShipped, false},
		{StatusConfirmed, StatusShipped, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusCancelled, false},
		{StatusDelivered, StatusReturned, true},
		{StatusDelivered, StatusPending, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusReturned, StatusDisputed, false},
		{StatusConfirmed, StatusDisputed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestOrderStatus_Valid(t *testing.T) {
	assert.True(t, StatusDisputed.Valid())
	assert.False(t, OrderStatus("lost").Valid())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, OrderStatus("lost").Terminal())
}

func TestComputeTotals_TaxRoundsDown(t *testing.T) {
	items := []LineItem{
		{ProductID: "1", Quantity: 1, Price: dec("3999")},
		{ProductID: "2", Quantity: 2, Price: dec("350")},
	}
	got := ComputeTotals(items)

	// 4699 * 5% = 234.95
	assert.True(t, dec("4699").Equal(got.Subtotal), "subtotal %s", got.Subtotal)
	assert.True(t, dec("234").Equal(got.Tax), "tax %s", got.Tax)
	assert.True(t, dec("4933").Equal(got.Total), "total %s", got.Total)
}

func TestComputeTotals_Empty(t *testing.T) {
	got := ComputeTotals(nil)
	assert.True(t, got.Total.IsZero())
}

func TestProduct_UnitPriceAndStock(t *testing.T) {
	discount := dec("3999")
	p := Product{
		Price:         dec("4500"),
		DiscountPrice: &discount,
		Stock:         5,
		Variants: []Variant{
			{ID: "v-xl", Type: "Size", Value: "XL", PriceDelta: dec("200"), Stock: 2},
		},
	}

	assert.True(t, dec("3999").Equal(p.UnitPrice("")))
	assert.True(t, dec("4199").Equal(p.UnitPrice("v-xl")))
	assert.Equal(t, 2, p.Available("v-xl"))
	assert.Equal(t, 5, p.Available("missing"))
	assert.Nil(t, p.Variant("missing"))
}

func TestProductPatch_Apply(t *testing.T) {
	p := Product{ID: "p1", Brand: "Patan", Stock: 5, Title: Localized{English: "Saree"}}
	stock := 3
	status := ProductArchived

	ProductPatch{Stock: &stock, Status: &status}.Apply(&p)

	assert.Equal(t, 3, p.Stock)
	assert.Equal(t, ProductArchived, p.Status)
	assert.Equal(t, "Patan", p.Brand, "unset fields unchanged")
	assert.Equal(t, "Saree", p.Title[English])
}

func TestCustomerPatch_NormalizesLanguage(t *testing.T) {
	c := Customer{ID: "u1", Language: English}
	lang := "gu-IN"
	CustomerPatch{Language: &lang}.Apply(&c)
	assert.Equal(t, Gujarati, c.Language)
}

func TestProduct_JSONMoneyIsNumber(t *testing.T) {
	p := Product{ID: "p1", Price: dec("350.50"), Title: Localized{English: "Oil"}}

	data, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"price":350.5`)
	assert.NotContains(t, string(data), `"discountPrice"`)

	var back Product
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, p.Price.Equal(back.Price))
}
