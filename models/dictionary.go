package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is an income or expense article of the ledger, unrelated to CRM
// deal categories.
type Category struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null" json:"name" binding:"required"`
	Type string `gorm:"size:16" json:"type" binding:"omitempty,oneof=income expense"`
}

type Project struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null" json:"name" binding:"required"`
}

type Account struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null" json:"name" binding:"required"`
}

type Contractor struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null" json:"name" binding:"required"`
}

// Transfer moves money between two accounts.
type Transfer struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time       `json:"created_at"`
	Date          Date            `gorm:"type:date;not null" json:"date"`
	FromAccountID uint            `gorm:"index;not null" json:"from_account_id" binding:"required"`
	ToAccountID   uint            `gorm:"index;not null" json:"to_account_id" binding:"required,nefield=FromAccountID"`
	Amount        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Note          string          `gorm:"type:text" json:"note"`
}
