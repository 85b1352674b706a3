package assessment

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FinancialYear is an inclusive window of calendar dates.
type FinancialYear struct {
	Start time.Time
	End   time.Time
}

// NewFinancialYear returns the financial year containing now for a year
// that begins on the first day of startMonth.
func NewFinancialYear(now time.Time, startMonth time.Month) FinancialYear {
	year := now.Year()
	if now.Month() < startMonth {
		year--
	}
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	return FinancialYear{Start: start, End: start.AddDate(1, 0, -1)}
}

// Label renders the year as "<start year>-<end year>".
func (fy FinancialYear) Label() string {
	return fmt.Sprintf("%d-%d", fy.Start.Year(), fy.End.Year())
}

// Contains reports whether t's calendar date falls inside the window.
func (fy FinancialYear) Contains(t time.Time) bool {
	day := dateOnly(t)
	return !day.Before(dateOnly(fy.Start)) && !day.After(dateOnly(fy.End))
}

// BudgetForFinancialYear sums the budget entries of every record whose
// period starts inside fy. Entries without a parsable period start or with a
// non-numeric value are skipped.
func BudgetForFinancialYear(records []Record, fy FinancialYear) float64 {
	total := decimal.Zero
	for _, r := range records {
		for _, raw := range r.List(FieldBudgetJSON) {
			entry, ok := budgetEntry(raw)
			if !ok {
				continue
			}
			start, ok := periodStart(entry)
			if !ok || !fy.Contains(start) {
				continue
			}
			if value, ok := budgetValue(entry["value"]); ok {
				total = total.Add(value)
			}
		}
	}
	return total.InexactFloat64()
}

// budgetEntry accepts an entry either as its JSON text or already decoded.
func budgetEntry(raw any) (map[string]any, bool) {
	switch t := raw.(type) {
	case map[string]any:
		return t, true
	case string:
		var entry map[string]any
		if err := json.Unmarshal([]byte(t), &entry); err != nil {
			return nil, false
		}
		return entry, entry != nil
	default:
		return nil, false
	}
}

// periodStart reads the single period-start date of a budget entry.
func periodStart(entry map[string]any) (time.Time, bool) {
	periods := AsList(entry["period-start"])
	if len(periods) == 0 {
		return time.Time{}, false
	}
	period, ok := periods[0].(map[string]any)
	if !ok {
		return time.Time{}, false
	}
	isoDate, ok := period["iso-date"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := ParseISODate(isoDate)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// budgetValue accepts JSON numbers only. Values given as text are skipped.
func budgetValue(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		return d, err == nil
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int64:
		return decimal.NewFromInt(t), true
	default:
		return decimal.Zero, false
	}
}
