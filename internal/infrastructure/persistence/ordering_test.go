package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderClause(t *testing.T) {
	cases := []struct {
		field, dir, want string
	}{
		{"", "", "created_at DESC"},
		{"order_number", "asc", "order_number ASC"},
		{" supplier_name ", " ASC ", "supplier_name ASC"},
		{"total", "desc", "total_amount DESC"},
		{"ORDER_NUMBER", "asc", "created_at ASC"},
		{"lines", "asc", "created_at ASC"},
		{"status; DROP TABLE purchase_orders;--", "asc", "created_at ASC"},
		{"sent_at", "asc, id", "sent_at DESC"},
	}
	for _, tc := range cases {
		t.Run(tc.field+"/"+tc.dir, func(t *testing.T) {
			assert.Equal(t, tc.want, orderClause(tc.field, tc.dir))
		})
	}
}
