package pdf

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/nurpe/contracts-service/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// Generate renders the contract statement: the engagement header, its current
// lifecycle state, and every negotiation thread with its outcome.
func (g *Generator) Generate(statement model.ContractStatement) ([]byte, error) {
	contract := statement.Contract

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 14)
	pdf.CellFormat(0, 10, "Service Engagement Statement", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Contract %s", contract.ID), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated %s", formatTime(statement.GeneratedAt)), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Parties", "", 1, "L", false, 0, "")
	labelValue(pdf, g.fontName, "Buyer", contract.BuyerID.String())
	labelValue(pdf, g.fontName, "Provider", contract.ProviderID.String())
	labelValue(pdf, g.fontName, "Offer", contract.OfferID.String())
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Engagement", "", 1, "L", false, 0, "")
	labelValue(pdf, g.fontName, "Status", string(contract.Status))
	labelValue(pdf, g.fontName, "Total value", formatAmount(contract.TotalValue))
	labelValue(pdf, g.fontName, "Service deadline", formatOptionalTime(contract.ServiceDeadline))
	labelValue(pdf, g.fontName, "Service started", formatOptionalTime(contract.ServiceStartedAt))
	labelValue(pdf, g.fontName, "Service ended", formatOptionalTime(contract.ServiceEndedAt))
	labelValue(pdf, g.fontName, "Created", formatTime(contract.CreatedAt))
	pdf.Ln(2)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Negotiations", "", 1, "L", false, 0, "")

	if len(statement.Negotiations) == 0 {
		pdf.SetFont(g.fontName, "", 10)
		pdf.CellFormat(0, 6, "No negotiations recorded.", "", 1, "L", false, 0, "")
	} else {
		headers := []string{"Opened", "Status", "Entries", "Final price", "Final deadline"}
		widths := []float64{40, 40, 20, 35, 45}
		drawTableRow(pdf, g.fontName, headers, widths, true)

		for _, negotiation := range statement.Negotiations {
			finalPrice := "-"
			if negotiation.FinalPrice != nil {
				finalPrice = formatAmount(*negotiation.FinalPrice)
			}
			row := []string{
				formatTime(negotiation.CreatedAt),
				string(negotiation.Status),
				fmt.Sprintf("%d", len(negotiation.Entries)),
				finalPrice,
				formatOptionalTime(negotiation.FinalDeadline),
			}
			drawTableRow(pdf, g.fontName, row, widths, false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func labelValue(pdf *gofpdf.Fpdf, fontName, label, value string) {
	pdf.SetFont(fontName, "B", 10)
	pdf.CellFormat(45, 6, label, "", 0, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i >= 2 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04")
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}
