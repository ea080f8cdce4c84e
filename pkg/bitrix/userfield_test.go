package bitrix

import (
	"context"
	"net/http"
	"testing"
)

const projectField = FieldCode("UF_CRM_1737000000")

func enumPortal(t *testing.T) *portal {
	return newPortal(t, map[string]route{
		"crm.deal.userfield.list": ok(`[{"FIELD_NAME":"uf_crm_1737000000","LIST":[
			{"ID":"41","VALUE":"Beta"},
			{"ID":"42","VALUE":"Alpha"}
		]}]`),
	})
}

func TestProjectNameDisabledWithoutField(t *testing.T) {
	p := enumPortal(t)
	r := NewProjectFieldResolver(p.client(), "")
	if r.ProjectName(context.Background(), Record{"UF_CRM_1737000000": "42"}).Present() {
		t.Fatal("resolver without field returned a value")
	}
	if p.total() != 0 {
		t.Fatalf("network calls = %d, want 0", p.total())
	}
}

func TestProjectNamePlainText(t *testing.T) {
	p := enumPortal(t)
	r := NewProjectFieldResolver(p.client(), projectField)
	got := r.ProjectName(context.Background(), Record{string(projectField): "  Alpha launch "}).OrElse("")
	if got != "Alpha launch" {
		t.Fatalf("got %q", got)
	}
	if p.total() != 0 {
		t.Fatalf("network calls = %d, want 0", p.total())
	}
}

func TestProjectNameEnumOption(t *testing.T) {
	p := enumPortal(t)
	r := NewProjectFieldResolver(p.client(), projectField)
	ctx := context.Background()

	for _, raw := range []any{"42", float64(42), []any{"42", "41"}} {
		if got := r.ProjectName(ctx, Record{string(projectField): raw}).OrElse(""); got != "Alpha" {
			t.Errorf("ProjectName(%#v) = %q, want Alpha", raw, got)
		}
	}
	if q := p.lastQuery("crm.deal.userfield.list"); q.Get("filter[FIELD_NAME]") != string(projectField) {
		t.Fatalf("userfield filter = %v", q)
	}
}

func TestProjectNameNoMatchReturnsRaw(t *testing.T) {
	p := enumPortal(t)
	r := NewProjectFieldResolver(p.client(), projectField)
	if got := r.ProjectName(context.Background(), Record{string(projectField): "99"}).OrElse(""); got != "99" {
		t.Fatalf("got %q, want 99", got)
	}
}

func TestProjectNameListUnavailableReturnsRaw(t *testing.T) {
	p := newPortal(t, map[string]route{
		"crm.deal.userfield.list": fail(http.StatusForbidden, `{"error":"ACCESS_DENIED"}`),
	})
	r := NewProjectFieldResolver(p.client(), projectField)
	if got := r.ProjectName(context.Background(), Record{string(projectField): "42"}).OrElse(""); got != "42" {
		t.Fatalf("got %q, want 42", got)
	}
}

func TestProjectNameEnumKeyAliases(t *testing.T) {
	p := newPortal(t, map[string]route{
		"crm.deal.userfield.list": ok(`[
			{"FIELD_NAME":"UF_CRM_OTHER","LIST":[{"ID":"42","VALUE":"Wrong"}]},
			{"FIELD_NAME":"UF_CRM_1737000000","ENUM":[{"ID":"42","VALUE":"Gamma"}]}
		]`),
	})
	r := NewProjectFieldResolver(p.client(), projectField)
	if got := r.ProjectName(context.Background(), Record{string(projectField): "42"}).OrElse(""); got != "Gamma" {
		t.Fatalf("got %q, want Gamma", got)
	}
}

func TestProjectNameAbsentValues(t *testing.T) {
	p := enumPortal(t)
	r := NewProjectFieldResolver(p.client(), projectField)
	for _, raw := range []any{nil, "", []any{}, "   "} {
		if r.ProjectName(context.Background(), Record{string(projectField): raw}).Present() {
			t.Errorf("ProjectName(%#v) returned a value", raw)
		}
	}
	if r.ProjectName(context.Background(), Record{"TITLE": "no field"}).Present() {
		t.Error("deal without the field returned a value")
	}
}
