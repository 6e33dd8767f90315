// Package extradoc assembles the schema-validated "extra" documents attached
// to canonical entities: empty-value pruning, schema-driven field projection
// and the coercion rules for legacy decimals, dates and enums.
package extradoc

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// Doc is a nested extra document under construction.
type Doc = map[string]any

// salaryMaxDigits caps the significant digits a migrated salary may carry.
// Values beyond it are garbage in the old data and are stored as zero.
const salaryMaxDigits = 10

var emailValidator = validator.New()

// Prune returns a copy of doc with all falsy leaves removed, recursing into
// nested maps and slices. Empty containers left behind by pruning are
// dropped too. Prune(Prune(d)) == Prune(d).
func Prune(doc Doc) Doc {
	out := make(Doc, len(doc))
	for k, v := range doc {
		if pv, keep := pruneValue(v); keep {
			out[k] = pv
		}
	}
	return out
}

func pruneList(list []any) []any {
	out := make([]any, 0, len(list))
	for _, v := range list {
		if pv, keep := pruneValue(v); keep {
			out = append(out, pv)
		}
	}
	return out
}

func pruneValue(v any) (any, bool) {
	switch val := v.(type) {
	case Doc:
		pruned := Prune(val)
		return pruned, len(pruned) > 0
	case []any:
		pruned := pruneList(val)
		return pruned, len(pruned) > 0
	case nil:
		return nil, false
	case string:
		return val, val != ""
	case bool:
		return val, val
	case int:
		return val, val != 0
	case int64:
		return val, val != 0
	case float64:
		return val, val != 0
	default:
		return val, true
	}
}

// ProjectFields keeps exactly the keys of fields that appear in the declared
// property set. Unmodeled legacy fields are dropped, never stored.
func ProjectFields(fields map[string]any, declared map[string]struct{}) Doc {
	out := make(Doc)
	for k, v := range fields {
		if _, ok := declared[k]; ok {
			out[k] = v
		}
	}
	return out
}

// Salary coerces a legacy salary string to a decimal. Thousands separators
// are stripped first. Unparsable or missing input yields zero, as does a
// value with more than ten significant digits.
func Salary(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	if d.NumDigits() > salaryMaxDigits {
		return decimal.Zero
	}
	return d
}

// DateISO parses a loosely formatted legacy date string and renders its date
// part as ISO-8601. The second return is false when the input is absent or
// unparsable; callers omit the field in that case.
func DateISO(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// timeOnlyLayouts cover the bare clock values the old system stored for
// working hours; dateparse only understands values with a date part.
var timeOnlyLayouts = []string{"15:04:05", "15:04", "3:04 PM", "3:04PM", "3 PM"}

// TimeISO parses a loose date/time or bare clock string and renders its
// time-of-day part as ISO-8601.
func TimeISO(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	for _, layout := range timeOnlyLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05"), true
		}
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return "", false
	}
	return t.Format("15:04:05"), true
}

// EmailOrEmpty keeps a personal email only when it is format-valid,
// otherwise the field is stored empty rather than failing the record.
func EmailOrEmpty(email string) string {
	if email == "" {
		return ""
	}
	if err := emailValidator.Var(email, "email"); err != nil {
		return ""
	}
	return email
}

// Languages splits a comma-separated legacy language list into trimmed
// entries.
func Languages(s string) []any {
	if s == "" {
		return []any{}
	}
	parts := strings.Split(s, ",")
	out := make([]any, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// MaritalStatus remaps the legacy free-text value onto the canonical enum.
func MaritalStatus(s string) string {
	switch s {
	case "Married":
		return "married"
	case "Single":
		return "unmarried"
	default:
		return "other"
	}
}

// Religion remaps the legacy free-text value onto the canonical enum.
func Religion(s string) string {
	switch s {
	case "Christianity":
		return "Christian"
	case "Islam":
		return "Muslim"
	default:
		return "Other"
	}
}

// Gender is carried over lower-cased verbatim.
func Gender(s string) string {
	return strings.ToLower(s)
}

// Relation normalizes a dependant relation: absent values and the literal
// placeholder "None" become "Other".
func Relation(s string) string {
	if s == "" || s == "None" {
		return "Other"
	}
	return s
}
