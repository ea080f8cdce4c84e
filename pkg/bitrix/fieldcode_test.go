package bitrix

import "testing"

func TestNormalizeFieldCode(t *testing.T) {
	cases := []struct {
		in   string
		want FieldCode
	}{
		{"UF_CRM_1737000000", "UF_CRM_1737000000"},
		{"  uf_crm_123 ", "UF_CRM_123"},
		{"ufCrm1737000000", "UF_CRM_1737000000"},
		{"UfCrm55", "UF_CRM_55"},
		{"project field (UF_CRM_77)", "UF_CRM_77"},
		{"custom_project", "CUSTOM_PROJECT"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		if got := NormalizeFieldCode(tc.in); got != tc.want {
			t.Errorf("NormalizeFieldCode(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if !NormalizeFieldCode(" ").IsZero() {
		t.Error("blank input is not the zero code")
	}
}
