package persistence

import (
	"strings"
)

// orderColumns maps API sort keys to purchase_orders columns. Anything not
// listed falls back to the default so user input never reaches ORDER BY.
var orderColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"order_number":  "order_number",
	"supplier_name": "supplier_name",
	"status":        "status",
	"total":         "total_amount",
	"total_amount":  "total_amount",
	"sent_at":       "sent_at",
	"confirmed_at":  "confirmed_at",
}

const defaultOrderColumn = "created_at"

// orderClause builds the ORDER BY expression for an order listing.
// Direction defaults to DESC.
func orderClause(field, dir string) string {
	column, ok := orderColumns[strings.TrimSpace(field)]
	if !ok {
		column = defaultOrderColumn
	}
	if strings.EqualFold(strings.TrimSpace(dir), "asc") {
		return column + " ASC"
	}
	return column + " DESC"
}
