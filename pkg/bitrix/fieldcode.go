package bitrix

import (
	"regexp"
	"strings"
)

// FieldCode is a canonical deal user-field code, e.g. UF_CRM_1737000000.
type FieldCode string

var (
	canonicalFieldRE = regexp.MustCompile(`(?i)UF_CRM_\d+`)
	camelFieldRE     = regexp.MustCompile(`(?i)UfCrm(\d+)`)
)

// NormalizeFieldCode accepts the forms operators paste from the portal
// (canonical, camelCase, or either embedded in surrounding text) and returns
// the canonical upper-case code. Anything else is trimmed and upper-cased.
func NormalizeFieldCode(raw string) FieldCode {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if m := canonicalFieldRE.FindString(s); m != "" {
		return FieldCode(strings.ToUpper(m))
	}
	if m := camelFieldRE.FindStringSubmatch(s); m != nil {
		return FieldCode("UF_CRM_" + m[1])
	}
	return FieldCode(strings.ToUpper(s))
}

func (f FieldCode) IsZero() bool { return f == "" }

func (f FieldCode) String() string { return string(f) }
