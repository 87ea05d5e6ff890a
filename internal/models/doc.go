// Package models defines the records stored in the storefront tables.
//
// Records serialize to camelCase JSON, the layout the view layer reads. Money is
// held as decimal.Decimal and encoded as a bare JSON number.
package models

import "github.com/shopspring/decimal"

// Table names.
const (
	TableProducts  = "products"
	TableOrders    = "orders"
	TableCustomers = "customers"
	TableMerchants = "merchants"
	TableCoupons   = "coupons"
	TablePayouts   = "payouts"
)

// AllTables lists every table the storefront knows about.
var AllTables = []string{
	TableProducts,
	TableOrders,
	TableCustomers,
	TableMerchants,
	TableCoupons,
	TablePayouts,
}

func init() {
	// Prices are numbers in stored tables and on the wire.
	decimal.MarshalJSONWithoutQuotes = true
}
