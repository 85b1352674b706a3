package assessment

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Flattened search-index field names read by the rules.
const (
	FieldIdentifier             = "iati-identifier"
	FieldHierarchy              = "hierarchy"
	FieldTitle                  = "title.narrative"
	FieldDescription            = "description.narrative"
	FieldStatusCode             = "activity-status.code"
	FieldReportingOrg           = "reporting-org.ref"
	FieldParticipatingOrgRef    = "participating-org.ref"
	FieldParticipatingOrgJSON   = "json.participating-org"
	FieldStartActual            = "activity-date.start-actual"
	FieldEndActual              = "activity-date.end-actual"
	FieldEndPlanned             = "activity-date.end-planned"
	FieldCountryCode            = "recipient-country.code"
	FieldCountryPercentage      = "recipient-country.percentage"
	FieldRegionCode             = "recipient-region.code"
	FieldRegionPercentage       = "recipient-region.percentage"
	FieldTransactionCountryCode = "transaction.recipient-country.code"
	FieldTransactionRegionCode  = "transaction.recipient-region.code"
	FieldSectorCode             = "sector.code"
	FieldSectorPercentage       = "sector.percentage"
	FieldTransactionSectorCode  = "transaction.sector.code"
	FieldBudgetPeriodStart      = "budget.period-start.iso-date"
	FieldBudgetValue            = "budget.value"
	FieldDocumentTitle          = "document-link.title.narrative"
	FieldBudgetJSON             = "json.budget"
)

const (
	defaultHierarchy   = 2
	programmeHierarchy = 1
)

// Record is one activity as returned by the search index: flattened field
// names mapped to a scalar or a list.
type Record map[string]any

// AsList normalises a field value to an ordered sequence. A bare scalar
// becomes a single-element list; nil and "" are the empty list.
func AsList(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case string:
		if t == "" {
			return nil
		}
		return []any{t}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := range rv.Len() {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{v}
}

// List returns the normalised values of a field.
func (r Record) List(field string) []any {
	return AsList(r[field])
}

// Strings returns the normalised values of a field rendered as text.
func (r Record) Strings(field string) []string {
	values := r.List(field)
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = text(v)
	}
	return out
}

// First returns the first value of a field as text, or "" when absent.
func (r Record) First(field string) string {
	values := r.List(field)
	if len(values) == 0 {
		return ""
	}
	return text(values[0])
}

// Identifier returns the record's IATI identifier.
func (r Record) Identifier() string {
	return r.First(FieldIdentifier)
}

// Hierarchy returns 1 for programmes and 2 for anything else, including a
// missing or malformed value.
func (r Record) Hierarchy() int {
	values := r.List(FieldHierarchy)
	if len(values) == 0 {
		return defaultHierarchy
	}
	if n, ok := number(values[0]); ok && n == programmeHierarchy {
		return programmeHierarchy
	}
	return defaultHierarchy
}

// text renders a scalar the way it would read in the source document:
// whole numbers lose their trailing ".0".
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	default:
		return fmt.Sprint(t)
	}
}

// number converts JSON-ish scalars to float64. Numeric strings are accepted;
// booleans are not numbers.
func number(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// truthy mirrors "has a meaningful value" for list entries.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	}
	if n, ok := number(v); ok {
		return n != 0
	}
	return true
}
