package bitrix

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cast"
)

// ProjectFieldResolver reads the project name from a configured deal user
// field. List fields store an option id; the option's VALUE is the name.
type ProjectFieldResolver struct {
	caller Caller
	field  FieldCode
}

// NewProjectFieldResolver returns a resolver for field. A zero field code
// disables it.
func NewProjectFieldResolver(caller Caller, field FieldCode) *ProjectFieldResolver {
	return &ProjectFieldResolver{caller: caller, field: field}
}

func (r *ProjectFieldResolver) Field() FieldCode { return r.field }

func (r *ProjectFieldResolver) ProjectName(ctx context.Context, deal Record) Optional[string] {
	if r == nil || r.field.IsZero() || deal == nil {
		return None[string]()
	}
	raw, ok := firstValue(deal[string(r.field)])
	if !ok {
		return None[string]()
	}
	if s, isText := raw.(string); isText {
		if t := strings.TrimSpace(s); t != "" && !isDigits(t) {
			return Some(t)
		}
	}
	value := strings.TrimSpace(cast.ToString(raw))
	if value == "" {
		return None[string]()
	}
	for _, opt := range r.options(ctx) {
		if cast.ToString(opt["ID"]) != value && cast.ToString(opt["VALUE"]) != value {
			continue
		}
		if name := opt.String("VALUE"); name != "" {
			return Some(name)
		}
		break
	}
	return Some(value)
}

func (r *ProjectFieldResolver) options(ctx context.Context) []Record {
	raw, ok := r.caller.SafeCall(ctx, "crm.deal.userfield.list",
		Params{"filter[FIELD_NAME]": string(r.field)}).Get()
	if !ok {
		return nil
	}
	var fields []Record
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	for _, f := range fields {
		if !strings.EqualFold(f.String("FIELD_NAME"), string(r.field)) {
			continue
		}
		for _, key := range []string{"LIST", "ENUM", "list"} {
			if opts := recordList(f[key]); len(opts) > 0 {
				return opts
			}
		}
		return nil
	}
	return nil
}

// firstValue unwraps multi-value fields and reports absence for nil and "".
func firstValue(v any) (any, bool) {
	if list, ok := v.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		v = list[0]
	}
	if v == nil {
		return nil, false
	}
	if s, ok := v.(string); ok && s == "" {
		return nil, false
	}
	return v, true
}

func recordList(v any) []Record {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Record(m))
		}
	}
	return out
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
