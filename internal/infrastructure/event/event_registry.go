package event

import "github.com/erp/purchasing/internal/domain/procurement"

// RegisterAllEvents registers the purchase-order events so the outbox
// processor can decode them
func RegisterAllEvents(serializer *EventSerializer) {
	serializer.Register(procurement.EventTypePurchaseOrderCreated, &procurement.PurchaseOrderCreatedEvent{})
	serializer.Register(procurement.EventTypePurchaseOrderSubmitted, &procurement.PurchaseOrderSubmittedEvent{})
	serializer.Register(procurement.EventTypePurchaseOrderSent, &procurement.PurchaseOrderSentEvent{})
	serializer.Register(procurement.EventTypePurchaseOrderConfirmed, &procurement.PurchaseOrderConfirmedEvent{})
	serializer.Register(procurement.EventTypePurchaseOrderItemsReceived, &procurement.PurchaseOrderItemsReceivedEvent{})
	serializer.Register(procurement.EventTypePurchaseOrderCanceled, &procurement.PurchaseOrderCanceledEvent{})
}
