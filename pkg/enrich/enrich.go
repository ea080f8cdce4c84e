// Package enrich fills the CRM name columns of a payment from Bitrix24.
package enrich

import (
	"context"
	"fmt"

	"ledger/models"
	"ledger/pkg/bitrix"
	"ledger/pkg/logger"

	"go.uber.org/zap"
)

// Directory fetches CRM entities. Deal, Contact and Company fail loudly;
// the Find variants are best-effort.
type Directory interface {
	Deal(ctx context.Context, id int64) (bitrix.Record, error)
	Contact(ctx context.Context, id int64) (bitrix.Record, error)
	Company(ctx context.Context, id int64) (bitrix.Record, error)
	FindContact(ctx context.Context, id int64) bitrix.Optional[bitrix.Record]
	FindCompany(ctx context.Context, id int64) bitrix.Optional[bitrix.Record]
}

type ProjectNamer interface {
	ProjectName(ctx context.Context, deal bitrix.Record) bitrix.Optional[string]
}

type CategoryNamer interface {
	CategoryName(ctx context.Context, id any) bitrix.Optional[string]
}

type Store interface {
	Get(ctx context.Context, id uint) (*models.Payment, error)
	Update(ctx context.Context, id uint, columns map[string]any) (*models.Payment, error)
}

// Links are the CRM ids supplied with an enrichment request. Nil means
// "not supplied".
type Links struct {
	DealID    *int64
	ContactID *int64
	CompanyID *int64
	ProjectID *int64
}

func (l Links) Empty() bool {
	return l.DealID == nil && l.ContactID == nil && l.CompanyID == nil && l.ProjectID == nil
}

// Patch holds the columns one enrichment run resolved. Nil fields are left
// untouched in storage.
type Patch struct {
	DealID      *int64
	ContactID   *int64
	CompanyID   *int64
	ProjectID   *int64
	DealName    *string
	ContactName *string
	CompanyName *string
	ProjectName *string
}

func (p Patch) Empty() bool {
	return len(p.Columns()) == 0
}

// Columns returns the column map for a single UPDATE.
func (p Patch) Columns() map[string]any {
	cols := map[string]any{}
	for col, v := range map[string]*int64{
		"deal_id": p.DealID, "contact_id": p.ContactID, "company_id": p.CompanyID, "project_id": p.ProjectID,
	} {
		if v != nil {
			cols[col] = *v
		}
	}
	for col, v := range map[string]*string{
		"deal_name": p.DealName, "contact_name": p.ContactName, "company_name": p.CompanyName, "project_name": p.ProjectName,
	} {
		if v != nil {
			cols[col] = *v
		}
	}
	return cols
}

type Enricher struct {
	crm        Directory
	projects   ProjectNamer
	categories CategoryNamer
	store      Store
}

func New(crm Directory, projects ProjectNamer, categories CategoryNamer, store Store) *Enricher {
	return &Enricher{crm: crm, projects: projects, categories: categories, store: store}
}

// Enrich resolves names for payment id and persists them. When nothing
// resolves the stored payment is returned unchanged and nothing is written.
func (e *Enricher) Enrich(ctx context.Context, id uint, links Links) (*models.Payment, error) {
	stored, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	patch, err := e.Resolve(ctx, stored, links)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		logger.FromContext(ctx).Info("enrichment resolved nothing", zap.Uint("payment_id", id))
		return stored, nil
	}
	updated, err := e.store.Update(ctx, id, patch.Columns())
	if err != nil {
		return nil, fmt.Errorf("save enrichment: %w", err)
	}
	return updated, nil
}

// Resolve builds the patch without touching storage. The deal lookup and
// lookups of ids supplied in links are required; everything else is
// best-effort.
func (e *Enricher) Resolve(ctx context.Context, stored *models.Payment, links Links) (Patch, error) {
	patch := Patch{
		DealID:    links.DealID,
		ContactID: links.ContactID,
		CompanyID: links.CompanyID,
		ProjectID: links.ProjectID,
	}

	dealID := firstID(links.DealID, stored.DealID)
	contactID, companyID := links.ContactID, links.CompanyID

	if dealID != nil {
		deal, err := e.crm.Deal(ctx, *dealID)
		if err != nil {
			return Patch{}, fmt.Errorf("load deal %d: %w", *dealID, err)
		}
		if title := deal.String("TITLE"); title != "" {
			patch.DealName = &title
		}
		if contactID == nil {
			if id, ok := deal.ID("CONTACT_ID"); ok {
				contactID, patch.ContactID = &id, &id
			}
		}
		if companyID == nil {
			if id, ok := deal.ID("COMPANY_ID"); ok {
				companyID, patch.CompanyID = &id, &id
			}
		}
		patch.ProjectName = e.dealProject(ctx, deal)
	}

	if contactID == nil {
		contactID = stored.ContactID
	}
	if contactID != nil {
		contact, err := e.lookup(ctx, *contactID, links.ContactID != nil, e.crm.Contact, e.crm.FindContact)
		if err != nil {
			return Patch{}, fmt.Errorf("load contact %d: %w", *contactID, err)
		}
		patch.ContactName = nonEmpty(bitrix.ContactName(contact))
	}

	if companyID == nil {
		companyID = stored.CompanyID
	}
	if companyID != nil {
		company, err := e.lookup(ctx, *companyID, links.CompanyID != nil, e.crm.Company, e.crm.FindCompany)
		if err != nil {
			return Patch{}, fmt.Errorf("load company %d: %w", *companyID, err)
		}
		patch.CompanyName = nonEmpty(bitrix.CompanyTitle(company))
	}

	if projectID := firstID(links.ProjectID, stored.ProjectID); patch.ProjectName == nil && projectID != nil {
		if name, ok := e.categories.CategoryName(ctx, *projectID).Get(); ok {
			patch.ProjectName = &name
		}
	}
	return patch, nil
}

func (e *Enricher) dealProject(ctx context.Context, deal bitrix.Record) *string {
	if name, ok := e.projects.ProjectName(ctx, deal).Get(); ok {
		return &name
	}
	if name, ok := e.categories.CategoryName(ctx, deal["CATEGORY_ID"]).Get(); ok {
		return &name
	}
	return nil
}

type fetchFn func(context.Context, int64) (bitrix.Record, error)
type findFn func(context.Context, int64) bitrix.Optional[bitrix.Record]

// lookup returns a nil record when a best-effort lookup finds nothing.
func (e *Enricher) lookup(ctx context.Context, id int64, required bool, fetch fetchFn, find findFn) (bitrix.Record, error) {
	if required {
		return fetch(ctx, id)
	}
	rec, _ := find(ctx, id).Get()
	return rec, nil
}

func firstID(ids ...*int64) *int64 {
	for _, id := range ids {
		if id != nil {
			return id
		}
	}
	return nil
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
