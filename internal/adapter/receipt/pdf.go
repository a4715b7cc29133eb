// Package receipt renders customer receipts as PDF documents.
package receipt

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	domain "github.com/BotCoder254/projects254/internal/entity"
)

type Renderer struct {
	currency string
	compress bool
}

func NewRenderer(currency string) *Renderer {
	if currency == "" {
		currency = "KES"
	}
	return &Renderer{currency: currency, compress: true}
}

// column widths in mm; they add up to the printable width of an A4 page
var cols = [4]float64{90, 30, 30, 40}

func (r *Renderer) Render(o *domain.Order) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(r.compress)
	pdf.SetTitle("Receipt "+o.OrderNumber, false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Arial", "B", 20)
		pdf.Cell(80, 10, "")
		pdf.CellFormat(30, 10, "Food Order Receipt", "", 0, "C", false, 0, "")
		pdf.Ln(20)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, "Page "+strconv.Itoa(pdf.PageNo())+"/{nb}", "", 0, "C", false, 0, "")
	})
	pdf.AliasNbPages("")
	pdf.AddPage()

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, "Order: "+o.OrderNumber, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, "Date: "+o.CreatedAt.Format("2006-01-02 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, "Status: "+string(o.Status), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	for i, h := range []string{"Item", "Qty", "Unit Price", "Total"} {
		pdf.CellFormat(cols[i], 10, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 12)
	for _, it := range o.Items {
		pdf.CellFormat(cols[0], 10, tr(it.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], 10, strconv.Itoa(it.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(cols[2], 10, r.money(it.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], 10, r.money(it.LineTotal()), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(cols[0]+cols[1]+cols[2], 10, "Grand Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(cols[3], 10, r.money(o.Total), "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, "Payment: "+o.Payment.Method, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, "Transaction ID: "+o.Payment.TransactionID, "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", o.OrderNumber, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) money(d decimal.Decimal) string {
	return r.currency + " " + d.StringFixed(2)
}
