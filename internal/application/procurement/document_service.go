package procurement

import (
	"context"
	"fmt"

	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrDocumentsDisabled is returned when no renderer or exporter is configured
var ErrDocumentsDisabled = shared.NewDomainError("DOCUMENTS_DISABLED", "Document generation is not configured")

// DocumentService produces printable and spreadsheet versions of purchase orders
type DocumentService struct {
	orderRepo      procurement.PurchaseOrderRepository
	adjustmentRepo procurement.StockAdjustmentRepository
	renderer       DocumentRenderer
	exporter       OrderExporter
}

// NewDocumentService creates a new DocumentService. renderer and exporter may be nil.
func NewDocumentService(
	orderRepo procurement.PurchaseOrderRepository,
	adjustmentRepo procurement.StockAdjustmentRepository,
	renderer DocumentRenderer,
	exporter OrderExporter,
) *DocumentService {
	return &DocumentService{
		orderRepo:      orderRepo,
		adjustmentRepo: adjustmentRepo,
		renderer:       renderer,
		exporter:       exporter,
	}
}

// RenderOrderPDF renders the purchase order as a PDF document
func (s *DocumentService) RenderOrderPDF(ctx context.Context, orderID uuid.UUID) (*RenderedDocument, error) {
	if s.renderer == nil {
		return nil, ErrDocumentsDisabled
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(ctx, order)
}

// ExportOrder writes the purchase order, its lines and its stock adjustments
// as an XLSX workbook
func (s *DocumentService) ExportOrder(ctx context.Context, orderID uuid.UUID) (*RenderedDocument, error) {
	if s.exporter == nil {
		return nil, ErrDocumentsDisabled
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	adjustments, err := s.adjustmentRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	content, err := s.exporter.Export(order, adjustments)
	if err != nil {
		return nil, fmt.Errorf("export purchase order %s: %w", order.OrderNumber, err)
	}
	return &RenderedDocument{
		FileName:    order.OrderNumber + ".xlsx",
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     content,
	}, nil
}
