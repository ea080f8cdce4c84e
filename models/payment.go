package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OperationIncome  = "income"
	OperationExpense = "expense"
)

// Cashboxes lists the accepted settlement channels.
var Cashboxes = []string{"cash", "card", "bank", "robokassa"}

// Payment is one ledger entry. The CRM columns are optional links to a
// Bitrix24 deal, contact, company and project together with their display
// names, filled by enrichment or edited by hand.
type Payment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Date          Date            `gorm:"type:date;not null;index" json:"date"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	OperationType string          `gorm:"size:16;index" json:"operation_type"`
	Category      string          `gorm:"size:255" json:"category"`
	Article       string          `gorm:"size:255" json:"article"`
	Cashbox       string          `gorm:"size:32" json:"cashbox"`
	Project       string          `gorm:"size:255" json:"project"`
	Contractor    string          `gorm:"size:255" json:"contractor"`
	Comment       string          `gorm:"type:text" json:"comment"`
	PlanDate      *Date           `gorm:"type:date;index" json:"plan_date"`
	FactDate      *Date           `gorm:"type:date" json:"fact_date"`

	DealID      *int64  `gorm:"index" json:"deal_id"`
	ContactID   *int64  `gorm:"index" json:"contact_id"`
	CompanyID   *int64  `gorm:"index" json:"company_id"`
	ProjectID   *int64  `gorm:"index" json:"project_id"`
	DealName    *string `gorm:"size:255" json:"deal_name"`
	ContactName *string `gorm:"size:255" json:"contact_name"`
	CompanyName *string `gorm:"size:255" json:"company_name"`
	ProjectName *string `gorm:"size:255" json:"project_name"`
}
