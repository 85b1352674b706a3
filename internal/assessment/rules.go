package assessment

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const minTitleLength = 60

// attributeRule evaluates one attribute of a record. Attribute rules only
// ever pass or fail.
type attributeRule func(r Record, cfg Config) AttributeResult

// attributeRules run for every record, in this order.
var attributeRules = []attributeRule{
	checkTitle,
	checkDescription,
	checkStartDate,
	checkEndDate,
	checkSector,
	checkLocation,
	checkParticipatingOrg,
}

var hundred = decimal.NewFromInt(100)

func pass(attribute string, details map[string]any) AttributeResult {
	return AttributeResult{Attribute: attribute, Status: StatusPass, Details: details}
}

func fail(attribute, message string, details map[string]any) AttributeResult {
	if details == nil {
		details = map[string]any{detailPercentage: 0.0}
	}
	return AttributeResult{Attribute: attribute, Status: StatusFail, Message: message, Details: details}
}

func checkTitle(r Record, cfg Config) AttributeResult {
	if len(r.List(FieldTitle)) == 0 {
		return fail(AttributeTitle, "Title is missing", nil)
	}
	title := r.First(FieldTitle)
	length := utf8.RuneCountInString(title)

	if length < minTitleLength {
		return fail(AttributeTitle,
			fmt.Sprintf("Title is too short (%d characters, minimum %d required)", length, minTitleLength),
			map[string]any{
				"length":         length,
				"title":          title,
				detailPercentage: ratio(length, minTitleLength),
			})
	}

	if acronyms := FindAcronyms(title, cfg.isNonAcronym); len(acronyms) > 0 {
		covered := 0
		for _, a := range acronyms {
			covered += utf8.RuneCountInString(a)
		}
		return fail(AttributeTitle,
			"Title contains potential acronyms that should be expanded: "+strings.Join(acronyms, ", "),
			map[string]any{
				"acronyms":       acronyms,
				detailPercentage: ratio(length-covered, length),
			})
	}

	return pass(AttributeTitle, map[string]any{"length": length, detailPercentage: 100.0})
}

func checkDescription(r Record, _ Config) AttributeResult {
	description := r.First(FieldDescription)
	if description == "" {
		return fail(AttributeDescription, "Description is missing", nil)
	}
	title := r.First(FieldTitle)

	if strings.EqualFold(strings.TrimSpace(description), strings.TrimSpace(title)) {
		return fail(AttributeDescription, "Description is a repeat of the title", nil)
	}

	descLength := utf8.RuneCountInString(description)
	titleLength := utf8.RuneCountInString(title)
	if descLength <= titleLength {
		return fail(AttributeDescription, "Description must be longer than title", map[string]any{
			"desc_length":    descLength,
			"title_length":   titleLength,
			detailPercentage: ratio(descLength, titleLength),
		})
	}

	return pass(AttributeDescription, map[string]any{"length": descLength, detailPercentage: 100.0})
}

func checkStartDate(r Record, cfg Config) AttributeResult {
	raw := r.First(FieldStartActual)
	if raw == "" {
		return fail(AttributeStartDate, "Start date is missing", nil)
	}
	start, err := ParseISODate(raw)
	if err != nil {
		return fail(AttributeStartDate, "Invalid start date format: "+raw, nil)
	}

	day := start.Format("2006-01-02")
	if cfg.isDefaultDate(start) {
		return fail(AttributeStartDate, "Start date is a default system date: "+day, map[string]any{
			"date":           day,
			detailPercentage: 0.0,
		})
	}
	return pass(AttributeStartDate, map[string]any{"date": day, detailPercentage: 100.0})
}

// checkEndDate prefers the actual end date over the planned one. A start
// date that is present but unparsable fails the rule.
func checkEndDate(r Record, _ Config) AttributeResult {
	raw := r.First(FieldEndActual)
	if raw == "" {
		raw = r.First(FieldEndPlanned)
	}
	if raw == "" {
		return fail(AttributeEndDate, "End date is missing", nil)
	}
	end, err := ParseISODate(raw)
	if err != nil {
		return fail(AttributeEndDate, "Invalid end date format: "+raw, nil)
	}

	rawStart := r.First(FieldStartActual)
	if rawStart == "" {
		return pass(AttributeEndDate, map[string]any{"date": end.Format("2006-01-02"), detailPercentage: 100.0})
	}
	start, err := ParseISODate(rawStart)
	if err != nil {
		return fail(AttributeEndDate, "Invalid end date format: "+raw, nil)
	}
	if !end.After(start) {
		return fail(AttributeEndDate, "End date must be after start date", map[string]any{
			"start_date":     start.Format("2006-01-02"),
			"end_date":       end.Format("2006-01-02"),
			detailPercentage: 0.0,
		})
	}
	return pass(AttributeEndDate, map[string]any{"date": end.Format("2006-01-02"), detailPercentage: 100.0})
}

func checkSector(r Record, cfg Config) AttributeResult {
	codes := r.Strings(FieldSectorCode)
	if len(codes) == 0 {
		if len(r.List(FieldTransactionSectorCode)) == 0 {
			return fail(AttributeSector, "No sectors defined", nil)
		}
		result := pass(AttributeSector, map[string]any{detailPercentage: 100.0})
		result.Message = "No activity-level sectors defined, only transaction-level sectors"
		return result
	}

	var invalid []string
	for _, code := range codes {
		if !isDACCode(code) {
			invalid = append(invalid, code)
		}
	}
	if len(invalid) > 0 {
		return fail(AttributeSector, "All sectors must use 5-digit DAC CRS codes", map[string]any{
			"invalid_codes":  invalid,
			detailPercentage: ratio(len(invalid), len(codes)),
		})
	}

	if percentages := r.List(FieldSectorPercentage); len(percentages) > 0 {
		total := sumPercentages(percentages)
		if !withinTolerance(total, cfg.SectorTolerance) {
			return fail(AttributeSector,
				fmt.Sprintf("Sector percentages must sum to 100%% (got %s%%)", total.String()),
				toleranceDetails(total, cfg.SectorTolerance))
		}
	}

	return pass(AttributeSector, map[string]any{"count": len(codes), detailPercentage: 100.0})
}

func checkLocation(r Record, cfg Config) AttributeResult {
	percentages := append(append([]any(nil), r.List(FieldCountryPercentage)...), r.List(FieldRegionPercentage)...)
	transactional := len(r.List(FieldTransactionCountryCode))+len(r.List(FieldTransactionRegionCode)) > 0

	switch {
	case len(percentages) == 0 && !transactional:
		locations := len(r.List(FieldCountryCode)) + len(r.List(FieldRegionCode))
		switch locations {
		case 0:
			return fail(AttributeLocation, "No location (country or region) specified", nil)
		case 1:
			return pass(AttributeLocation, map[string]any{"single_location": true, detailPercentage: 100.0})
		default:
			return fail(AttributeLocation, "Multiple locations specified without percentages", nil)
		}
	case len(percentages) == 0:
		result := pass(AttributeLocation, map[string]any{detailPercentage: 100.0})
		result.Message = "No activity-level locations defined, only transaction-level locations"
		return result
	}

	total := sumPercentages(percentages)
	if !withinTolerance(total, cfg.LocationTolerance) {
		return fail(AttributeLocation,
			fmt.Sprintf("Location percentages must sum to 100%% (got %s%%)", total.String()),
			toleranceDetails(total, cfg.LocationTolerance))
	}
	return pass(AttributeLocation, map[string]any{
		"total":          total.InexactFloat64(),
		detailPercentage: clampPercentage(total.InexactFloat64()),
	})
}

func checkParticipatingOrg(r Record, _ Config) AttributeResult {
	refs := r.List(FieldParticipatingOrgRef)
	for _, ref := range refs {
		if truthy(ref) {
			return pass(AttributeParticipatingOrg, map[string]any{"count": len(refs), detailPercentage: 100.0})
		}
	}
	return fail(AttributeParticipatingOrg, "No participating organisations defined", nil)
}

// isDACCode reports whether code is a full five-digit DAC CRS purpose code.
func isDACCode(code string) bool {
	if len(code) != 5 {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// sumPercentages adds the numeric entries exactly, so the total does not
// depend on their order. Blank and non-numeric entries are ignored.
func sumPercentages(values []any) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		if n, ok := number(v); ok {
			total = total.Add(decimal.NewFromFloat(n))
		}
	}
	return total
}

func withinTolerance(total decimal.Decimal, tolerance float64) bool {
	return !total.Sub(hundred).Abs().GreaterThan(decimal.NewFromFloat(tolerance))
}

func toleranceDetails(total decimal.Decimal, tolerance float64) map[string]any {
	return map[string]any{
		"total":          total.InexactFloat64(),
		"tolerance":      tolerance,
		detailPercentage: clampPercentage(total.InexactFloat64()),
	}
}

// ratio returns part/whole as a percentage in [0,100], or 0 for an empty whole.
func ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return clampPercentage(float64(part) / float64(whole) * 100)
}

func clampPercentage(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	default:
		return p
	}
}
