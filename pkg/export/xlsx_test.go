package export

import (
	"bytes"
	"testing"

	"ledger/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func TestPaymentsWorkbook(t *testing.T) {
	d, _ := models.ParseDate("2025-03-02")
	deal := "Website redesign"
	items := []models.Payment{
		{ID: 7, Date: d, OperationType: "income", Amount: decimal.RequireFromString("1250.50"), Category: "Sales", DealName: &deal},
	}
	var buf bytes.Buffer
	if err := Payments(&buf, items); err != nil {
		t.Fatalf("Payments: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header plus one", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][3] != "Amount" {
		t.Fatalf("header = %v", rows[0])
	}
	got := rows[1]
	if got[0] != "7" || got[1] != "2025-03-02" || got[3] != "1250.5" || got[10] != "Website redesign" {
		t.Fatalf("row = %v", got)
	}
}
