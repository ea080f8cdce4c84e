package export

import (
	"fmt"
	"io"

	"ledger/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName   = "Payments"
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var headers = []string{
	"ID", "Date", "Type", "Amount", "Category", "Article", "Cashbox", "Project", "Contractor",
	"Comment", "Deal", "Contact", "Company", "CRM project",
}

// Payments writes items as a single-sheet workbook.
func Payments(w io.Writer, items []models.Payment) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	header := make([]interface{}, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, bold)
	}

	for i, p := range items {
		row := []interface{}{
			p.ID, p.Date.String(), p.OperationType, p.Amount.InexactFloat64(), p.Category, p.Article,
			p.Cashbox, p.Project, p.Contractor, p.Comment,
			deref(p.DealName), deref(p.ContactName), deref(p.CompanyName), deref(p.ProjectName),
		}
		if err := f.SetSheetRow(SheetName, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return err
		}
	}
	return f.Write(w)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
