package main

import (
	"math"
	"strings"

	"ledger/models"
	"ledger/pkg/apperrors"
	"ledger/pkg/enrich"
	"ledger/pkg/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// LinkFields are the manually editable CRM columns of a payment.
type LinkFields struct {
	DealID      *int64  `json:"deal_id" binding:"omitempty,gt=0"`
	ContactID   *int64  `json:"contact_id" binding:"omitempty,gt=0"`
	CompanyID   *int64  `json:"company_id" binding:"omitempty,gt=0"`
	ProjectID   *int64  `json:"project_id" binding:"omitempty,gt=0"`
	DealName    *string `json:"deal_name"`
	ContactName *string `json:"contact_name"`
	CompanyName *string `json:"company_name"`
	ProjectName *string `json:"project_name"`
}

func (l LinkFields) addColumns(cols map[string]any) {
	for col, v := range map[string]*int64{
		"deal_id": l.DealID, "contact_id": l.ContactID, "company_id": l.CompanyID, "project_id": l.ProjectID,
	} {
		if v != nil {
			cols[col] = *v
		}
	}
	for col, v := range map[string]*string{
		"deal_name": l.DealName, "contact_name": l.ContactName, "company_name": l.CompanyName, "project_name": l.ProjectName,
	} {
		if v != nil {
			cols[col] = *v
		}
	}
}

type paymentRequest struct {
	Date          *string          `json:"date"`
	Amount        *decimal.Decimal `json:"amount"`
	OperationType *string          `json:"operation_type" binding:"omitempty,oneof=income expense"`
	Category      *string          `json:"category"`
	Article       *string          `json:"article"`
	Cashbox       *string          `json:"cashbox" binding:"omitempty,oneof=cash card bank robokassa"`
	Project       *string          `json:"project"`
	Contractor    *string          `json:"contractor"`
	Comment       *string          `json:"comment"`
	PlanDate      *string          `json:"plan_date"`
	FactDate      *string          `json:"fact_date"`
	LinkFields
}

func (r paymentRequest) toPayment() (*models.Payment, error) {
	if r.Date == nil || strings.TrimSpace(*r.Date) == "" {
		return nil, apperrors.NewValidationError("date", "is required")
	}
	if r.Amount == nil {
		return nil, apperrors.NewValidationError("amount", "is required")
	}
	date, err := models.ParseDate(*r.Date)
	if err != nil {
		return nil, apperrors.NewValidationError("date", err.Error())
	}
	p := &models.Payment{
		Date:          date,
		Amount:        *r.Amount,
		OperationType: text(r.OperationType),
		Category:      text(r.Category),
		Article:       text(r.Article),
		Cashbox:       text(r.Cashbox),
		Project:       text(r.Project),
		Contractor:    text(r.Contractor),
		Comment:       text(r.Comment),
		DealID:        r.DealID,
		ContactID:     r.ContactID,
		CompanyID:     r.CompanyID,
		ProjectID:     r.ProjectID,
		DealName:      r.DealName,
		ContactName:   r.ContactName,
		CompanyName:   r.CompanyName,
		ProjectName:   r.ProjectName,
	}
	if p.PlanDate, err = optionalDate("plan_date", r.PlanDate); err != nil {
		return nil, err
	}
	if p.FactDate, err = optionalDate("fact_date", r.FactDate); err != nil {
		return nil, err
	}
	return p, nil
}

// columns returns only the fields present in the request.
func (r paymentRequest) columns() (map[string]any, error) {
	cols := map[string]any{}
	if r.Date != nil {
		d, err := models.ParseDate(*r.Date)
		if err != nil {
			return nil, apperrors.NewValidationError("date", err.Error())
		}
		cols["date"] = d
	}
	if r.Amount != nil {
		cols["amount"] = *r.Amount
	}
	for col, v := range map[string]*string{
		"operation_type": r.OperationType, "category": r.Category, "article": r.Article,
		"cashbox": r.Cashbox, "project": r.Project, "contractor": r.Contractor, "comment": r.Comment,
	} {
		if v != nil {
			cols[col] = *v
		}
	}
	for col, v := range map[string]*string{"plan_date": r.PlanDate, "fact_date": r.FactDate} {
		if v == nil {
			continue
		}
		d, err := optionalDate(col, v)
		if err != nil {
			return nil, err
		}
		if d == nil {
			cols[col] = nil
		} else {
			cols[col] = *d
		}
	}
	r.LinkFields.addColumns(cols)
	return cols, nil
}

func optionalDate(field string, s *string) (*models.Date, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	d, err := models.ParseDate(*s)
	if err != nil {
		return nil, apperrors.NewValidationError(field, err.Error())
	}
	return &d, nil
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// bitrixLinkRequest accepts ids as numbers or strings; dealId is the legacy
// spelling of deal_id.
type bitrixLinkRequest struct {
	DealID    any `json:"deal_id"`
	DealIDAlt any `json:"dealId"`
	ContactID any `json:"contact_id"`
	CompanyID any `json:"company_id"`
	ProjectID any `json:"project_id"`
}

func (r bitrixLinkRequest) links() (enrich.Links, error) {
	var (
		l   enrich.Links
		err error
	)
	deal := r.DealID
	if deal == nil {
		deal = r.DealIDAlt
	}
	if l.DealID, err = optionalID("deal_id", deal); err != nil {
		return l, err
	}
	if l.ContactID, err = optionalID("contact_id", r.ContactID); err != nil {
		return l, err
	}
	if l.CompanyID, err = optionalID("company_id", r.CompanyID); err != nil {
		return l, err
	}
	if l.ProjectID, err = optionalID("project_id", r.ProjectID); err != nil {
		return l, err
	}
	return l, nil
}

// optionalID treats nil, "" and non-positive ids as absent.
func optionalID(field string, v any) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return nil, nil
	}
	if f, ok := v.(float64); ok && f != math.Trunc(f) {
		return nil, apperrors.NewValidationError(field, "must be an integer id")
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil, apperrors.NewValidationError(field, "must be an integer id")
	}
	if n <= 0 {
		return nil, nil
	}
	return &n, nil
}

func paymentFilter(c *gin.Context) (store.PaymentFilter, error) {
	f := store.PaymentFilter{
		Project:       c.Query("project"),
		Contractor:    c.Query("contractor"),
		Category:      c.Query("category"),
		Cashbox:       c.Query("cashbox"),
		OperationType: c.Query("operation_type"),
		SortByDate:    c.Query("sort") == "date",
	}
	var err error
	if f.DateFrom, err = optionalDate("dateFrom", queryPtr(c, "dateFrom")); err != nil {
		return f, err
	}
	if f.DateTo, err = optionalDate("dateTo", queryPtr(c, "dateTo")); err != nil {
		return f, err
	}
	return f, nil
}

func queryPtr(c *gin.Context, key string) *string {
	v, ok := c.GetQuery(key)
	if !ok {
		return nil
	}
	return &v
}
