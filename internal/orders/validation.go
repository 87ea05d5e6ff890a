package orders

import (
	"fmt"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/roach88/vaniya/internal/models"
)

// NewValidator returns a validator with the order struct-level checks registered.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()

	// Totals must be consistent with the line items.
	v.RegisterStructValidation(orderStructValidation, models.Order{})

	return v
}

func orderStructValidation(sl validatorv10.StructLevel) {
	o := sl.Current().Interface().(models.Order)

	if !o.Status.Valid() {
		sl.ReportError(o.Status, "status", "Status", "order_status", string(o.Status))
	}

	for i, li := range o.Items {
		if li.Price.IsNegative() {
			sl.ReportError(li.Price, fmt.Sprintf("items[%d].price", i), "Price", "gte_zero", li.Price.String())
		}
	}

	totals := models.ComputeTotals(o.Items)
	if !totals.Subtotal.Equal(o.Subtotal) {
		sl.ReportError(o.Subtotal, "subtotal", "Subtotal", "subtotal_match_items",
			fmt.Sprintf("items sum %s != subtotal %s", totals.Subtotal, o.Subtotal))
	}
	if !o.Subtotal.Add(o.Tax).Equal(o.Total) {
		sl.ReportError(o.Total, "total", "Total", "total_match_subtotal",
			fmt.Sprintf("subtotal %s + tax %s != total %s", o.Subtotal, o.Tax, o.Total))
	}
}
