package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
	StatusReturned  OrderStatus = "returned"
	StatusDisputed  OrderStatus = "disputed"
)

// transitions lists the statuses reachable from each status.
// Cancelled, returned and disputed are terminal.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled, StatusDisputed},
	StatusConfirmed: {StatusShipped, StatusCancelled, StatusDisputed},
	StatusShipped:   {StatusDelivered, StatusReturned, StatusDisputed},
	StatusDelivered: {StatusReturned, StatusDisputed},
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusDelivered,
		StatusCancelled, StatusReturned, StatusDisputed:
		return true
	}
	return false
}

// CanTransition reports whether an order may move from s to next.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Order is a placed order.
type Order struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customerId" validate:"required"`
	MerchantID      string          `json:"merchantId" validate:"required"`
	Items           []LineItem      `json:"items" validate:"required,min=1,dive"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Commission      decimal.Decimal `json:"commission"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	Date            time.Time       `json:"date"`
	Address         Address         `json:"address"`
	FulfillmentMode FulfillmentMode `json:"fulfillmentMode,omitempty"`
	TrackingSteps   []TrackingStep  `json:"trackingSteps,omitempty"`
}

func (o *Order) GetID() string   { return o.ID }
func (o *Order) SetID(id string) { o.ID = id }

// LineItem is one product (or variant) in an order.
type LineItem struct {
	ProductID string          `json:"productId" validate:"required"`
	VariantID string          `json:"variantId,omitempty"`
	Quantity  int             `json:"quantity" validate:"required,min=1"`
	Price     decimal.Decimal `json:"price"`
	SKU       string          `json:"sku,omitempty"`
}

// LineTotal is Price times Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Address is a delivery address.
type Address struct {
	ID     string `json:"id,omitempty"`
	Type   string `json:"type,omitempty"`
	Name   string `json:"name"`
	Street string `json:"street"`
	City   string `json:"city"`
	Zip    string `json:"zip"`
}

// TrackingStep is one milestone shown on the order tracking screen.
type TrackingStep struct {
	Status    OrderStatus `json:"status"`
	Label     string      `json:"label"`
	Date      *time.Time  `json:"date,omitempty"`
	Completed bool        `json:"completed"`
}

// OrderPatch changes selected order fields. Nil fields are left unchanged.
type OrderPatch struct {
	Status        *OrderStatus   `json:"status,omitempty"`
	Address       *Address       `json:"address,omitempty"`
	TrackingSteps []TrackingStep `json:"trackingSteps,omitempty"`
}

// Apply merges the patch into o.
func (patch OrderPatch) Apply(o *Order) {
	if patch.Status != nil {
		o.Status = *patch.Status
	}
	if patch.Address != nil {
		o.Address = *patch.Address
	}
	if patch.TrackingSteps != nil {
		o.TrackingSteps = append([]TrackingStep(nil), patch.TrackingSteps...)
	}
}
