package store

import (
	"context"
	"errors"

	"ledger/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PaymentFilter narrows List, Balance and exports. Empty fields do not filter.
type PaymentFilter struct {
	Project       string
	Contractor    string
	Category      string
	Cashbox       string
	OperationType string
	DateFrom      *models.Date
	DateTo        *models.Date
	// SortByDate orders by date (newest first) instead of insertion order.
	SortByDate bool
}

// Totals is the income/expense summary of a filtered set of payments.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Payments is the gorm backed payment repository.
type Payments struct {
	db *gorm.DB
}

func NewPayments(db *gorm.DB) *Payments {
	return &Payments{db: db}
}

func (r *Payments) scoped(ctx context.Context, f PaymentFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Payment{})
	for col, val := range map[string]string{
		"project":        f.Project,
		"contractor":     f.Contractor,
		"category":       f.Category,
		"cashbox":        f.Cashbox,
		"operation_type": f.OperationType,
	} {
		if val != "" {
			q = q.Where(col+" = ?", val)
		}
	}
	if f.DateFrom != nil {
		q = q.Where("date >= ?", *f.DateFrom)
	}
	if f.DateTo != nil {
		q = q.Where("date <= ?", *f.DateTo)
	}
	return q
}

func (r *Payments) List(ctx context.Context, f PaymentFilter) ([]models.Payment, error) {
	q := r.scoped(ctx, f)
	if f.SortByDate {
		q = q.Order("date desc")
	}
	var items []models.Payment
	if err := q.Order("id desc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Get returns gorm.ErrRecordNotFound for an unknown id.
func (r *Payments) Get(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Payments) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update writes columns in a single UPDATE and returns the reloaded payment.
// Nothing is written when the payment does not exist.
func (r *Payments) Update(ctx context.Context, id uint, columns map[string]any) (*models.Payment, error) {
	if len(columns) == 0 {
		return r.Get(ctx, id)
	}
	res := r.db.WithContext(ctx).Model(&models.Payment{ID: id}).Updates(columns)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes the payment and returns it as it was.
func (r *Payments) Delete(ctx context.Context, id uint) (*models.Payment, error) {
	var deleted models.Payment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, id).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Payment{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &deleted, nil
}

func (r *Payments) Balance(ctx context.Context, f PaymentFilter) (Totals, error) {
	var row struct {
		Income  decimal.NullDecimal
		Expense decimal.NullDecimal
	}
	err := r.scoped(ctx, f).Select(
		"SUM(CASE WHEN operation_type = ? THEN amount ELSE 0 END) AS income, "+
			"SUM(CASE WHEN operation_type = ? THEN amount ELSE 0 END) AS expense",
		models.OperationIncome, models.OperationExpense,
	).Scan(&row).Error
	if err != nil {
		return Totals{}, err
	}
	t := Totals{Income: row.Income.Decimal, Expense: row.Expense.Decimal}
	t.Balance = t.Income.Sub(t.Expense)
	return t, nil
}

// Pending lists payments planned for day that have not been settled yet.
func (r *Payments) Pending(ctx context.Context, day models.Date) ([]models.Payment, error) {
	var items []models.Payment
	err := r.db.WithContext(ctx).
		Where("plan_date = ? AND fact_date IS NULL", day).
		Order("id").
		Find(&items).Error
	return items, err
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
