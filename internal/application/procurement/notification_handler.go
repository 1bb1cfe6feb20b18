package procurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"go.uber.org/zap"
)

// NotificationHandler tells suppliers about their purchase orders. It runs
// after the order change has committed; a failure here never touches the order.
type NotificationHandler struct {
	orderRepo procurement.PurchaseOrderRepository
	renderer  DocumentRenderer
	store     DocumentStore
	sender    NotificationSender
	logger    *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler. renderer and
// store may be nil, in which case the order is sent without a document.
func NewNotificationHandler(
	orderRepo procurement.PurchaseOrderRepository,
	renderer DocumentRenderer,
	store DocumentStore,
	sender NotificationSender,
	logger *zap.Logger,
) *NotificationHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationHandler{
		orderRepo: orderRepo,
		renderer:  renderer,
		store:     store,
		sender:    sender,
		logger:    logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *NotificationHandler) EventTypes() []string {
	return []string{
		procurement.EventTypePurchaseOrderSent,
		procurement.EventTypePurchaseOrderConfirmed,
		procurement.EventTypePurchaseOrderItemsReceived,
		procurement.EventTypePurchaseOrderCanceled,
	}
}

// Handle loads the order named by the event and notifies its supplier
func (h *NotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	order, err := h.orderRepo.FindByID(ctx, event.AggregateID())
	if err != nil {
		if shared.IsDomainError(err, shared.CodeNotFound) {
			h.logger.Warn("purchase order gone before notification",
				zap.String("order_id", event.AggregateID().String()),
				zap.String("event_type", event.EventType()),
			)
			return nil
		}
		return fmt.Errorf("load purchase order for notification: %w", err)
	}

	if strings.TrimSpace(order.SupplierEmail) == "" {
		h.logger.Info("supplier has no email address, skipping notification",
			zap.String("order_number", order.OrderNumber),
			zap.String("event_type", event.EventType()),
		)
		return nil
	}

	n := Notification{
		To:          order.SupplierEmail,
		OrderID:     order.ID.String(),
		OrderNumber: order.OrderNumber,
		Status:      order.Status.String(),
	}

	switch event.EventType() {
	case procurement.EventTypePurchaseOrderSent:
		n.Subject = fmt.Sprintf("Purchase order %s", order.OrderNumber)
		n.Body = fmt.Sprintf("Dear %s,\n\nplease find attached purchase order %s with %d line(s), total %s.\n",
			order.SupplierName, order.OrderNumber, len(order.Lines), order.TotalAmount.StringFixed(2))
		h.attachDocument(ctx, order, &n)
		err = h.sender.SendPurchaseOrder(ctx, n)
	default:
		n.Subject = fmt.Sprintf("Purchase order %s is now %s", order.OrderNumber, humanStatus(order.Status))
		n.Body = statusBody(order)
		err = h.sender.SendStatusChange(ctx, n)
	}

	if err != nil {
		h.logger.Error("failed to notify supplier",
			zap.String("order_number", order.OrderNumber),
			zap.String("event_type", event.EventType()),
			zap.String("to", n.To),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("supplier notified",
		zap.String("order_number", order.OrderNumber),
		zap.String("event_type", event.EventType()),
	)
	return nil
}

// attachDocument renders and stores the order document. Failures only drop the attachment.
func (h *NotificationHandler) attachDocument(ctx context.Context, order *procurement.PurchaseOrder, n *Notification) {
	if h.renderer == nil {
		return
	}
	doc, err := h.renderer.Render(ctx, order)
	if err != nil {
		h.logger.Warn("failed to render purchase order document",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
		return
	}
	n.Attachment = doc

	if h.store == nil {
		return
	}
	key := fmt.Sprintf("purchase-orders/%s/%s", order.ID, doc.FileName)
	url, err := h.store.Put(ctx, key, doc)
	if err != nil {
		h.logger.Warn("failed to store purchase order document",
			zap.String("order_number", order.OrderNumber),
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	n.DocumentURL = url
}

func humanStatus(s procurement.Status) string {
	return strings.ReplaceAll(s.String(), "_", " ")
}

func statusBody(order *procurement.PurchaseOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\npurchase order %s is now %s.\n", order.SupplierName, order.OrderNumber, humanStatus(order.Status))
	if order.Status == procurement.StatusCanceled && order.CancellationReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", order.CancellationReason)
	}
	if order.Status != procurement.StatusCanceled {
		b.WriteString("\nReceived so far:\n")
		for _, line := range order.Lines {
			fmt.Fprintf(&b, "  %d. %s: %d of %d\n", line.LineNo, line.ProductName, line.ReceivedQuantity, line.OrderedQuantity)
		}
	}
	return b.String()
}

var _ shared.EventHandler = (*NotificationHandler)(nil)
