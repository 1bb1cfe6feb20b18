// Package export writes purchase orders as XLSX workbooks.
package export

import (
	"fmt"
	"time"

	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/domain/procurement"
	"github.com/xuri/excelize/v2"
)

const (
	orderSheet      = "Order"
	adjustmentSheet = "Adjustments"
	timeLayout      = "2006-01-02 15:04:05"
)

var lineHeaders = []string{
	"Line", "Product ID", "Code", "Product", "Ordered", "Received", "Remaining",
	"Outcome", "Unit Price", "Amount", "Received Amount",
}

var adjustmentHeaders = []string{
	"Line ID", "Product ID", "Sequence", "Delta", "Ordered", "Received Total",
	"Mode", "Status", "Attempts", "Last Error", "Applied At", "Created At",
}

// XLSXExporter renders a purchase order with its lines and stock adjustments
type XLSXExporter struct{}

// NewXLSXExporter creates an XLSXExporter
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Export returns the workbook bytes
func (e *XLSXExporter) Export(order *procurement.PurchaseOrder, adjustments []procurement.StockAdjustment) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", orderSheet); err != nil {
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		return nil, err
	}

	if err := writeOrderSheet(f, st, order); err != nil {
		return nil, fmt.Errorf("write order sheet: %w", err)
	}
	if _, err := f.NewSheet(adjustmentSheet); err != nil {
		return nil, err
	}
	if err := writeAdjustmentSheet(f, st, adjustments); err != nil {
		return nil, fmt.Errorf("write adjustment sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type styles struct {
	header int
	bold   int
	money  int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error
	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return s, err
	}
	s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return s, err
	}
	numFmt := "#,##0.00"
	s.money, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	return s, err
}

func writeOrderSheet(f *excelize.File, st styles, order *procurement.PurchaseOrder) error {
	summary := [][2]any{
		{"Order Number", order.OrderNumber},
		{"Status", order.Status.String()},
		{"Supplier", order.SupplierName},
		{"Supplier Email", order.SupplierEmail},
		{"Payment Terms", order.PaymentTerms},
		{"Created At", order.CreatedAt.UTC().Format(timeLayout)},
		{"Sent At", formatTime(order.SentAt)},
		{"Confirmed At", formatTime(order.ConfirmedAt)},
		{"Total Amount", order.TotalAmount.InexactFloat64()},
		{"Received Amount", order.ReceivedAmount().InexactFloat64()},
	}
	if order.CancellationReason != "" {
		summary = append(summary, [2]any{"Cancellation Reason", order.CancellationReason})
	}
	for i, kv := range summary {
		row := i + 1
		if err := f.SetCellValue(orderSheet, cell(1, row), kv[0]); err != nil {
			return err
		}
		if err := f.SetCellValue(orderSheet, cell(2, row), kv[1]); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(orderSheet, cell(1, 1), cell(1, len(summary)), st.bold); err != nil {
		return err
	}

	headerRow := len(summary) + 2
	if err := writeHeader(f, orderSheet, headerRow, lineHeaders, st.header); err != nil {
		return err
	}
	for i := range order.Lines {
		line := &order.Lines[i]
		row := headerRow + 1 + i
		values := []any{
			line.LineNo,
			line.ProductID.String(),
			line.ProductCode,
			line.ProductName,
			line.OrderedQuantity,
			line.ReceivedQuantity,
			line.Remaining(),
			string(line.Outcome().Status),
			line.UnitPrice.InexactFloat64(),
			line.Amount().InexactFloat64(),
			line.ReceivedAmount().InexactFloat64(),
		}
		if err := f.SetSheetRow(orderSheet, cell(1, row), &values); err != nil {
			return err
		}
	}
	if n := len(order.Lines); n > 0 {
		first, last := headerRow+1, headerRow+n
		if err := f.SetCellStyle(orderSheet, cell(9, first), cell(11, last), st.money); err != nil {
			return err
		}
	}

	widths := []float64{20, 38, 14, 30, 10, 10, 10, 14, 12, 14, 16}
	return setWidths(f, orderSheet, widths)
}

func writeAdjustmentSheet(f *excelize.File, st styles, adjustments []procurement.StockAdjustment) error {
	if err := writeHeader(f, adjustmentSheet, 1, adjustmentHeaders, st.header); err != nil {
		return err
	}
	for i := range adjustments {
		a := &adjustments[i]
		values := []any{
			a.LineID.String(),
			a.ProductID.String(),
			a.Sequence,
			a.Delta,
			a.OrderedQuantity,
			a.ReceivedTotal,
			string(a.Mode),
			string(a.Status),
			a.Attempts,
			a.LastError,
			formatTime(a.AppliedAt),
			a.CreatedAt.UTC().Format(timeLayout),
		}
		if err := f.SetSheetRow(adjustmentSheet, cell(1, i+2), &values); err != nil {
			return err
		}
	}
	widths := []float64{38, 38, 10, 10, 10, 14, 10, 10, 10, 40, 20, 20}
	return setWidths(f, adjustmentSheet, widths)
}

func writeHeader(f *excelize.File, sheet string, row int, headers []string, style int) error {
	if err := f.SetSheetRow(sheet, cell(1, row), &headers); err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell(1, row), cell(len(headers), row), style)
}

func setWidths(f *excelize.File, sheet string, widths []float64) error {
	for i, w := range widths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}

func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

var _ appprocurement.OrderExporter = (*XLSXExporter)(nil)
