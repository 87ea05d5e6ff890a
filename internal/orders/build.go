package orders

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/vaniya/internal/models"
)

// Draft is an order as the checkout screen assembles it, before totals.
type Draft struct {
	ID              string                 `json:"id,omitempty"`
	CustomerID      string                 `json:"customerId"`
	MerchantID      string                 `json:"merchantId"`
	Items           []models.LineItem      `json:"items"`
	Address         models.Address         `json:"address"`
	Commission      decimal.Decimal        `json:"commission"`
	FulfillmentMode models.FulfillmentMode `json:"fulfillmentMode,omitempty"`
}

var stepLabels = map[models.OrderStatus]string{
	models.StatusPending:   "Order placed",
	models.StatusConfirmed: "Confirmed by seller",
	models.StatusShipped:   "Shipped",
	models.StatusDelivered: "Delivered",
	models.StatusCancelled: "Cancelled",
	models.StatusReturned:  "Returned",
	models.StatusDisputed:  "Dispute opened",
}

// Build turns a draft into a pending order with totals and tracking steps.
func Build(d Draft, now time.Time) models.Order {
	totals := models.ComputeTotals(d.Items)
	mode := d.FulfillmentMode
	if mode == "" {
		mode = models.SellerFulfilled
	}
	placed := now.UTC()

	return models.Order{
		ID:              d.ID,
		CustomerID:      d.CustomerID,
		MerchantID:      d.MerchantID,
		Items:           append([]models.LineItem(nil), d.Items...),
		Subtotal:        totals.Subtotal,
		Commission:      d.Commission,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Status:          models.StatusPending,
		Date:            placed,
		Address:         d.Address,
		FulfillmentMode: mode,
		TrackingSteps: []models.TrackingStep{
			{Status: models.StatusPending, Label: stepLabels[models.StatusPending], Date: &placed, Completed: true},
			{Status: models.StatusConfirmed, Label: stepLabels[models.StatusConfirmed]},
			{Status: models.StatusShipped, Label: stepLabels[models.StatusShipped]},
			{Status: models.StatusDelivered, Label: stepLabels[models.StatusDelivered]},
		},
	}
}

// advance marks the tracking step for status done, adding it when missing.
func advance(steps []models.TrackingStep, status models.OrderStatus, at time.Time) []models.TrackingStep {
	at = at.UTC()
	out := append([]models.TrackingStep(nil), steps...)
	for i := range out {
		if out[i].Status == status {
			out[i].Completed = true
			out[i].Date = &at
			return out
		}
	}
	return append(out, models.TrackingStep{
		Status:    status,
		Label:     stepLabels[status],
		Date:      &at,
		Completed: true,
	})
}
