package bitrix

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Record is a CRM entity as returned by *.get methods. Values are loosely
// typed: ids may arrive as strings or numbers.
type Record map[string]any

// String returns the trimmed text form of key, or "".
func (r Record) String(key string) string {
	if r == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(r[key]))
}

// ID returns the positive id stored under key. Bitrix uses "0", 0 and ""
// for "not linked", all of which report false.
func (r Record) ID(key string) (int64, bool) {
	if r == nil {
		return 0, false
	}
	n, err := cast.ToInt64E(r[key])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func decodeRecord(method string, raw json.RawMessage) (Record, error) {
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("bitrix24 %s: unexpected result: %w", method, err)
	}
	return rec, nil
}

func (c *Client) getRecord(ctx context.Context, method string, id int64) (Record, error) {
	raw, err := c.Call(ctx, method, Params{"ID": id})
	if err != nil {
		return nil, err
	}
	return decodeRecord(method, raw)
}

func (c *Client) findRecord(ctx context.Context, method string, id int64) Optional[Record] {
	raw, ok := c.SafeCall(ctx, method, Params{"ID": id}).Get()
	if !ok {
		return None[Record]()
	}
	rec, err := decodeRecord(method, raw)
	if err != nil || len(rec) == 0 {
		return None[Record]()
	}
	return Some(rec)
}

// Deal fetches a deal. Failure is an error.
func (c *Client) Deal(ctx context.Context, id int64) (Record, error) {
	return c.getRecord(ctx, "crm.deal.get", id)
}

// Contact fetches a contact. Failure is an error.
func (c *Client) Contact(ctx context.Context, id int64) (Record, error) {
	return c.getRecord(ctx, "crm.contact.get", id)
}

// Company fetches a company. Failure is an error.
func (c *Client) Company(ctx context.Context, id int64) (Record, error) {
	return c.getRecord(ctx, "crm.company.get", id)
}

// FindContact is the best-effort variant of Contact.
func (c *Client) FindContact(ctx context.Context, id int64) Optional[Record] {
	return c.findRecord(ctx, "crm.contact.get", id)
}

// FindCompany is the best-effort variant of Company.
func (c *Client) FindCompany(ctx context.Context, id int64) Optional[Record] {
	return c.findRecord(ctx, "crm.company.get", id)
}

// ContactName joins the name parts of a contact, falling back to HONORIFIC.
func ContactName(contact Record) string {
	if full := contact.String("FULL_NAME"); full != "" {
		return full
	}
	parts := make([]string, 0, 3)
	for _, key := range []string{"NAME", "SECOND_NAME", "LAST_NAME"} {
		if s := contact.String(key); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return contact.String("HONORIFIC")
}

// CompanyTitle returns the display title of a company.
func CompanyTitle(company Record) string {
	if t := company.String("TITLE"); t != "" {
		return t
	}
	return company.String("COMPANY_TITLE")
}
