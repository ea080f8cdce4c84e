package bitrix

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
)

func TestCallReturnsResult(t *testing.T) {
	p := newPortal(t, map[string]route{
		"crm.deal.get": ok(`{"ID":"5","TITLE":"Website redesign"}`),
	})
	deal, err := p.client().Deal(context.Background(), 5)
	if err != nil {
		t.Fatalf("Deal: %v", err)
	}
	if got := deal.String("TITLE"); got != "Website redesign" {
		t.Fatalf("TITLE = %q", got)
	}
	if got := p.lastQuery("crm.deal.get").Get("ID"); got != "5" {
		t.Fatalf("ID param = %q, want 5", got)
	}
}

func TestCallRemoteErrorCarriesDescription(t *testing.T) {
	p := newPortal(t, map[string]route{
		"crm.deal.get": fail(http.StatusUnauthorized, `{"error":"invalid_token","error_description":"bad token"}`),
	})
	_, err := p.client().Call(context.Background(), "crm.deal.get", Params{"ID": 1})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsCrmError(err) {
		t.Fatalf("expected CrmError, got %T", err)
	}
	if !strings.Contains(err.Error(), "bad token") {
		t.Fatalf("error %q does not carry the remote description", err)
	}
	if !strings.Contains(err.Error(), "crm.deal.get") {
		t.Fatalf("error %q does not name the method", err)
	}
}

func TestCallErrorFieldOn200(t *testing.T) {
	p := newPortal(t, map[string]route{
		"crm.contact.get": fail(http.StatusOK, `{"error":"NOT_FOUND"}`),
	})
	_, err := p.client().Contact(context.Background(), 9)
	var ce *CrmError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CrmError, got %v", err)
	}
	if ce.Detail() != "NOT_FOUND" {
		t.Fatalf("Detail = %q, want NOT_FOUND", ce.Detail())
	}
}

func TestCallStructuredErrorFieldOn200(t *testing.T) {
	p := newPortal(t, map[string]route{
		"crm.deal.get": fail(http.StatusOK, `{"result":{"ID":"5"},"error":{"code":"INVALID","message":"denied"}}`),
	})
	_, err := p.client().Call(context.Background(), "crm.deal.get", Params{"ID": 5})
	var ce *CrmError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CrmError, got %v", err)
	}
	if ce.Code != `{"code":"INVALID","message":"denied"}` {
		t.Fatalf("Code = %q", ce.Code)
	}
}

func TestErrorCode(t *testing.T) {
	cases := []struct {
		in     any
		code   string
		failed bool
	}{
		{nil, "", false},
		{false, "false", false},
		{"", "", false},
		{"NOT_FOUND", "NOT_FOUND", true},
		{true, "true", true},
		{float64(401), "401", true},
		{[]any{"a"}, `["a"]`, true},
	}
	for _, tc := range cases {
		code, failed := errorCode(tc.in)
		if code != tc.code || failed != tc.failed {
			t.Errorf("errorCode(%#v) = %q, %v; want %q, %v", tc.in, code, failed, tc.code, tc.failed)
		}
	}
}

func TestCallFallsBackToStatus(t *testing.T) {
	p := newPortal(t, map[string]route{
		"crm.company.get": fail(http.StatusInternalServerError, `oops`),
	})
	_, err := p.client().Company(context.Background(), 3)
	if err == nil || !strings.Contains(err.Error(), "HTTP 500") {
		t.Fatalf("err = %v, want HTTP 500 detail", err)
	}
}

func TestCallOmitsEmptyParams(t *testing.T) {
	p := newPortal(t, map[string]route{"crm.deal.get": ok(`{}`)})
	_, err := p.client().Call(context.Background(), "crm.deal.get", Params{
		"ID": 7, "empty": "", "nil": nil,
	})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	q := p.lastQuery("crm.deal.get")
	if len(q) != 1 || q.Get("ID") != "7" {
		t.Fatalf("query = %v, want only ID=7", q)
	}
}

func TestCallNotConfigured(t *testing.T) {
	c := NewClient("  ")
	if c.Ready() {
		t.Fatal("client without url reports ready")
	}
	if _, err := c.Call(context.Background(), "crm.deal.get", nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v, want ErrNotConfigured", err)
	}
	if c.SafeCall(context.Background(), "crm.deal.get", nil).Present() {
		t.Fatal("SafeCall on unconfigured client returned a value")
	}
}

func TestSafeCallSwallowsFailure(t *testing.T) {
	p := newPortal(t, map[string]route{
		"crm.contact.get": fail(http.StatusForbidden, `{"error":"ACCESS_DENIED"}`),
	})
	if p.client().FindContact(context.Background(), 4).Present() {
		t.Fatal("FindContact returned a value for a failed call")
	}
	if p.count("crm.contact.get") != 1 {
		t.Fatalf("calls = %d, want exactly one (no retries)", p.count("crm.contact.get"))
	}
}

func TestCanceledContextSkipsNetwork(t *testing.T) {
	p := newPortal(t, map[string]route{"crm.deal.get": ok(`{}`)})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.client().Deal(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if p.total() != 0 {
		t.Fatalf("network calls = %d, want 0", p.total())
	}
}

func TestRecordID(t *testing.T) {
	rec := Record{"a": "12", "b": float64(34), "zero": "0", "num0": float64(0), "blank": "", "junk": "x"}
	cases := map[string]int64{"a": 12, "b": 34}
	for key, want := range cases {
		got, ok := rec.ID(key)
		if !ok || got != want {
			t.Errorf("ID(%q) = %d, %v; want %d", key, got, ok, want)
		}
	}
	for _, key := range []string{"zero", "num0", "blank", "junk", "absent"} {
		if _, ok := rec.ID(key); ok {
			t.Errorf("ID(%q) reported present", key)
		}
	}
}

func TestContactName(t *testing.T) {
	cases := []struct {
		rec  Record
		want string
	}{
		{Record{"NAME": "Anna", "SECOND_NAME": "", "LAST_NAME": "Petrova"}, "Anna Petrova"},
		{Record{"NAME": "Ivan", "SECOND_NAME": "S.", "LAST_NAME": "Orlov"}, "Ivan S. Orlov"},
		{Record{"HONORIFIC": "Dr"}, "Dr"},
		{Record{}, ""},
	}
	for _, tc := range cases {
		if got := ContactName(tc.rec); got != tc.want {
			t.Errorf("ContactName(%v) = %q, want %q", tc.rec, got, tc.want)
		}
	}
}

func TestCompanyTitle(t *testing.T) {
	if got := CompanyTitle(Record{"TITLE": "Acme"}); got != "Acme" {
		t.Fatalf("got %q", got)
	}
	if got := CompanyTitle(Record{"COMPANY_TITLE": "Globex"}); got != "Globex" {
		t.Fatalf("got %q", got)
	}
}
