package models

import (
	"time"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
type PurchaseOrderModel struct {
	AggregateModel
	OrderNumber        string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierID         uuid.UUID                `gorm:"type:uuid;not null;index"`
	SupplierName       string                   `gorm:"type:varchar(200);not null"`
	SupplierEmail      string                   `gorm:"type:varchar(320)"`
	Status             procurement.Status       `gorm:"type:varchar(30);not null;index"`
	Lines              []PurchaseOrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
	PaymentTerms       string                   `gorm:"type:varchar(200)"`
	Notes              string                   `gorm:"type:text"`
	CancellationReason string                   `gorm:"type:varchar(500)"`
	TotalAmount        decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	SentAt             *time.Time
	ConfirmedAt        *time.Time
	CanceledAt         *time.Time
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the persistence model to a domain PurchaseOrder.
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	order := &procurement.PurchaseOrder{
		BaseAggregateRoot:  m.toRoot(),
		OrderNumber:        m.OrderNumber,
		SupplierID:         m.SupplierID,
		SupplierName:       m.SupplierName,
		SupplierEmail:      m.SupplierEmail,
		Status:             m.Status,
		PaymentTerms:       m.PaymentTerms,
		Notes:              m.Notes,
		CancellationReason: m.CancellationReason,
		TotalAmount:        m.TotalAmount,
		SentAt:             m.SentAt,
		ConfirmedAt:        m.ConfirmedAt,
		CanceledAt:         m.CanceledAt,
		Lines:              make([]procurement.PurchaseOrderLine, len(m.Lines)),
	}
	for i := range m.Lines {
		order.Lines[i] = m.Lines[i].ToDomain()
	}
	return order
}

// PurchaseOrderModelFromDomain creates a persistence model from a domain
// PurchaseOrder. Lines are converted separately by the repository.
func PurchaseOrderModelFromDomain(o *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{
		OrderNumber:        o.OrderNumber,
		SupplierID:         o.SupplierID,
		SupplierName:       o.SupplierName,
		SupplierEmail:      o.SupplierEmail,
		Status:             o.Status,
		PaymentTerms:       o.PaymentTerms,
		Notes:              o.Notes,
		CancellationReason: o.CancellationReason,
		TotalAmount:        o.TotalAmount,
		SentAt:             o.SentAt,
		ConfirmedAt:        o.ConfirmedAt,
		CanceledAt:         o.CanceledAt,
	}
	m.fromRoot(o.BaseAggregateRoot)
	return m
}

// PurchaseOrderLineModel is the persistence model for a purchase order line.
type PurchaseOrderLineModel struct {
	BaseModel
	OrderID          uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_po_line_no,priority:1"`
	LineNo           int             `gorm:"not null;uniqueIndex:idx_po_line_no,priority:2"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductCode      string          `gorm:"type:varchar(50)"`
	ProductName      string          `gorm:"type:varchar(200)"`
	OrderedQuantity  int64           `gorm:"not null;check:ordered_quantity >= 0"`
	ReceivedQuantity int64           `gorm:"not null;default:0;check:received_quantity >= 0"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

// TableName returns the table name for GORM
func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the persistence model to a domain PurchaseOrderLine.
func (m *PurchaseOrderLineModel) ToDomain() procurement.PurchaseOrderLine {
	return procurement.PurchaseOrderLine{
		ID:               m.ID,
		OrderID:          m.OrderID,
		LineNo:           m.LineNo,
		ProductID:        m.ProductID,
		ProductCode:      m.ProductCode,
		ProductName:      m.ProductName,
		OrderedQuantity:  m.OrderedQuantity,
		ReceivedQuantity: m.ReceivedQuantity,
		UnitPrice:        m.UnitPrice,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

// PurchaseOrderLineModelFromDomain creates a persistence model from a domain line.
func PurchaseOrderLineModelFromDomain(l *procurement.PurchaseOrderLine) *PurchaseOrderLineModel {
	return &PurchaseOrderLineModel{
		BaseModel: BaseModel{
			ID:        l.ID,
			CreatedAt: l.CreatedAt,
			UpdatedAt: l.UpdatedAt,
		},
		OrderID:          l.OrderID,
		LineNo:           l.LineNo,
		ProductID:        l.ProductID,
		ProductCode:      l.ProductCode,
		ProductName:      l.ProductName,
		OrderedQuantity:  l.OrderedQuantity,
		ReceivedQuantity: l.ReceivedQuantity,
		UnitPrice:        l.UnitPrice,
	}
}

// StockAdjustmentModel is the persistence model for the stock adjustment ledger.
type StockAdjustmentModel struct {
	BaseModel
	PurchaseOrderID uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_stock_adjustment_step,priority:1"`
	LineID          uuid.UUID                    `gorm:"type:uuid;not null;uniqueIndex:idx_stock_adjustment_step,priority:2"`
	Sequence        int                          `gorm:"not null;uniqueIndex:idx_stock_adjustment_step,priority:3"`
	ProductID       uuid.UUID                    `gorm:"type:uuid;not null;index"`
	Delta           int64                        `gorm:"not null"`
	OrderedQuantity int64                        `gorm:"not null"`
	ReceivedTotal   int64                        `gorm:"not null"`
	Mode            procurement.AdjustmentMode   `gorm:"type:varchar(10);not null"`
	Status          procurement.AdjustmentStatus `gorm:"type:varchar(10);not null;index"`
	Attempts        int                          `gorm:"not null;default:0"`
	MaxAttempts     int                          `gorm:"not null;default:8"`
	LastError       string                       `gorm:"type:text"`
	NextAttemptAt   *time.Time                   `gorm:"index"`
	AppliedAt       *time.Time
}

// TableName returns the table name for GORM
func (StockAdjustmentModel) TableName() string {
	return "stock_adjustments"
}

// ToDomain converts the persistence model to a domain StockAdjustment.
func (m *StockAdjustmentModel) ToDomain() procurement.StockAdjustment {
	return procurement.StockAdjustment{
		ID:              m.ID,
		PurchaseOrderID: m.PurchaseOrderID,
		LineID:          m.LineID,
		ProductID:       m.ProductID,
		Sequence:        m.Sequence,
		Delta:           m.Delta,
		OrderedQuantity: m.OrderedQuantity,
		ReceivedTotal:   m.ReceivedTotal,
		Mode:            m.Mode,
		Status:          m.Status,
		Attempts:        m.Attempts,
		MaxAttempts:     m.MaxAttempts,
		LastError:       m.LastError,
		NextAttemptAt:   m.NextAttemptAt,
		AppliedAt:       m.AppliedAt,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

// StockAdjustmentModelFromDomain creates a persistence model from a domain StockAdjustment.
func StockAdjustmentModelFromDomain(a *procurement.StockAdjustment) *StockAdjustmentModel {
	return &StockAdjustmentModel{
		BaseModel: BaseModel{
			ID:        a.ID,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		},
		PurchaseOrderID: a.PurchaseOrderID,
		LineID:          a.LineID,
		Sequence:        a.Sequence,
		ProductID:       a.ProductID,
		Delta:           a.Delta,
		OrderedQuantity: a.OrderedQuantity,
		ReceivedTotal:   a.ReceivedTotal,
		Mode:            a.Mode,
		Status:          a.Status,
		Attempts:        a.Attempts,
		MaxAttempts:     a.MaxAttempts,
		LastError:       a.LastError,
		NextAttemptAt:   a.NextAttemptAt,
		AppliedAt:       a.AppliedAt,
	}
}
