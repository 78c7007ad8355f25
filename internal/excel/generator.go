package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/nurpe/contracts-service/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate builds the engagement workbook: a summary sheet with per-status
// counts and a detail sheet listing every engagement in the period.
func (g *Generator) Generate(export model.EngagementExport) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, export); err != nil {
		return nil, err
	}

	detailSheet := "Engagements"
	file.NewSheet(detailSheet)
	if err := g.writeDetail(file, detailSheet, export); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, export model.EngagementExport) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	totalValue := 0.0
	byStatus := map[model.ContractStatus]int{}
	for _, contract := range export.Contracts {
		byStatus[contract.Status]++
		totalValue += contract.TotalValue
	}

	set("A1", "Participant")
	set("B1", export.UserID.String())
	set("A2", "Role")
	set("B2", string(export.Role))
	set("A3", "Period start")
	set("B3", formatDate(export.PeriodStart))
	set("A4", "Period end")
	set("B4", formatDate(export.PeriodEnd))
	set("A5", "Engagements")
	set("B5", len(export.Contracts))
	set("A6", "Total value")
	set("B6", fmt.Sprintf("%.2f", totalValue))

	tableRow := 8
	set(fmt.Sprintf("A%d", tableRow), "Status")
	set(fmt.Sprintf("B%d", tableRow), "Count")

	statuses := []model.ContractStatus{
		model.ContractStatusPending,
		model.ContractStatusAccepted,
		model.ContractStatusInProgress,
		model.ContractStatusCompleted,
		model.ContractStatusCancelledByBuyer,
		model.ContractStatusCancelledByProvider,
		model.ContractStatusDisputed,
	}
	for i, status := range statuses {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), string(status))
		set(fmt.Sprintf("B%d", row), byStatus[status])
	}

	_ = file.SetColWidth(sheet, "A", "A", 28)
	_ = file.SetColWidth(sheet, "B", "B", 40)
	return nil
}

func (g *Generator) writeDetail(file *excelize.File, sheet string, export model.EngagementExport) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Contract",
		"Buyer",
		"Provider",
		"Offer",
		"Status",
		"Total value",
		"Service started",
		"Service ended",
		"Created",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, contract := range export.Contracts {
		row := 2 + i
		set(fmt.Sprintf("A%d", row), contract.ID.String())
		set(fmt.Sprintf("B%d", row), contract.BuyerID.String())
		set(fmt.Sprintf("C%d", row), contract.ProviderID.String())
		set(fmt.Sprintf("D%d", row), contract.OfferID.String())
		set(fmt.Sprintf("E%d", row), string(contract.Status))
		set(fmt.Sprintf("F%d", row), fmt.Sprintf("%.2f", contract.TotalValue))
		set(fmt.Sprintf("G%d", row), formatOptionalDateTime(contract.ServiceStartedAt))
		set(fmt.Sprintf("H%d", row), formatOptionalDateTime(contract.ServiceEndedAt))
		set(fmt.Sprintf("I%d", row), formatDateTime(contract.CreatedAt))
	}

	_ = file.SetColWidth(sheet, "A", "D", 38)
	_ = file.SetColWidth(sheet, "E", "E", 24)
	_ = file.SetColWidth(sheet, "F", "I", 20)
	return nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatOptionalDateTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatDateTime(*t)
}
