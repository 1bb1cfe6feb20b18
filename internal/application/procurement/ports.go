package procurement

import (
	"context"

	"github.com/erp/purchasing/internal/domain/procurement"
)

// RenderedDocument is a printable purchase order document
type RenderedDocument struct {
	FileName    string
	ContentType string
	HTML        string
	Content     []byte
}

// DocumentRenderer renders a purchase order to PDF
type DocumentRenderer interface {
	Render(ctx context.Context, order *procurement.PurchaseOrder) (*RenderedDocument, error)
}

// DocumentStore keeps rendered documents and returns a download link
type DocumentStore interface {
	Put(ctx context.Context, key string, doc *RenderedDocument) (string, error)
}

// OrderExporter writes a purchase order as a spreadsheet
type OrderExporter interface {
	Export(order *procurement.PurchaseOrder, adjustments []procurement.StockAdjustment) ([]byte, error)
}

// Notification is a message to the supplier of a purchase order
type Notification struct {
	To          string
	Subject     string
	Body        string
	Attachment  *RenderedDocument
	DocumentURL string
	OrderID     string
	OrderNumber string
	Status      string
}

// NotificationSender delivers supplier notifications. Sends are fire-and-forget
// from the order's point of view: a failed send never rolls back a state change.
type NotificationSender interface {
	// SendPurchaseOrder sends the order document to the supplier
	SendPurchaseOrder(ctx context.Context, n Notification) error
	// SendStatusChange tells the supplier about a status change
	SendStatusChange(ctx context.Context, n Notification) error
}
