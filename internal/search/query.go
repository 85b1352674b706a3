// Package search builds scoped activity queries and runs them against the
// Solr activity core.
package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"dqa/internal/assessment"
)

// Activity status codes used by the scope clause.
const (
	StatusImplementation = "2"
	StatusClosed         = "4"
)

// DefaultClosedWithinMonths bounds how long a closed activity stays in scope.
const DefaultClosedWithinMonths = 18

const (
	and = " AND "
	or  = " OR "

	solrDateLayout = "2006-01-02T15:04:05Z"
	daysPerMonth   = 30
)

// Filters narrows a query to recipient countries, regions and DAC sectors.
// Empty lists add no clause.
type Filters struct {
	Countries []string `json:"countries,omitempty"`
	Regions   []string `json:"regions,omitempty"`
	Sectors   []string `json:"sectors,omitempty"`
}

// QueryBuilder composes the boolean query for one organisation's in-scope
// activities.
type QueryBuilder struct {
	closedWithinMonths int
}

// NewQueryBuilder returns a builder keeping closed activities in scope for
// the given number of 30-day months.
func NewQueryBuilder(closedWithinMonths int) QueryBuilder {
	if closedWithinMonths <= 0 {
		closedWithinMonths = DefaultClosedWithinMonths
	}
	return QueryBuilder{closedWithinMonths: closedWithinMonths}
}

// Build returns
//
//	organisation AND status-scope [AND hierarchy] [AND country] [AND region] [AND sector]
//
// hierarchy 0 matches every level.
func (b QueryBuilder) Build(organisation string, hierarchy int, filters Filters, now time.Time) string {
	parts := []string{
		fieldEquals(assessment.FieldReportingOrg, organisation),
		b.statusScope(now),
	}
	if hierarchy > 0 {
		parts = append(parts, assessment.FieldHierarchy+":"+strconv.Itoa(hierarchy))
	}
	if clause := codeClause(filters.Countries, assessment.FieldCountryCode, assessment.FieldTransactionCountryCode); clause != "" {
		parts = append(parts, clause)
	}
	if clause := codeClause(filters.Regions, assessment.FieldRegionCode, assessment.FieldTransactionRegionCode); clause != "" {
		parts = append(parts, clause)
	}
	if clause := sectorClause(filters.Sectors); clause != "" {
		parts = append(parts, clause)
	}
	return strings.Join(parts, and)
}

// statusScope keeps activities in implementation, plus closed ones whose
// actual end falls inside the window ending now.
func (b QueryBuilder) statusScope(now time.Time) string {
	cutoff := now.UTC().AddDate(0, 0, -daysPerMonth*b.closedWithinMonths).Format(solrDateLayout)
	return fmt.Sprintf("(%s:%s OR (%s:%s AND %s:[%s TO NOW]))",
		assessment.FieldStatusCode, StatusImplementation,
		assessment.FieldStatusCode, StatusClosed,
		assessment.FieldEndActual, cutoff)
}

func codeClause(codes []string, activityField, transactionField string) string {
	if len(codes) == 0 {
		return ""
	}
	activity := make([]string, len(codes))
	transaction := make([]string, len(codes))
	for i, code := range codes {
		activity[i] = fieldEquals(activityField, code)
		transaction[i] = fieldEquals(transactionField, code)
	}
	return "(" + strings.Join(activity, or) + or + strings.Join(transaction, or) + ")"
}

// sectorClause matches a three digit group code as a prefix of the five
// digit codes and anything else exactly.
func sectorClause(codes []string) string {
	if len(codes) == 0 {
		return ""
	}
	activity := make([]string, len(codes))
	transaction := make([]string, len(codes))
	for i, code := range codes {
		if IsSectorGroup(code) {
			activity[i] = assessment.FieldSectorCode + ":" + code + "*"
			transaction[i] = assessment.FieldTransactionSectorCode + ":" + code + "*"
			continue
		}
		activity[i] = fieldEquals(assessment.FieldSectorCode, code)
		transaction[i] = fieldEquals(assessment.FieldTransactionSectorCode, code)
	}
	return "(" + strings.Join(activity, or) + or + strings.Join(transaction, or) + ")"
}

// IsSectorGroup reports whether code is a three digit DAC group code.
func IsSectorGroup(code string) bool {
	return len(code) == 3 && digits(code)
}

// IsSectorCode reports whether code is a full five digit DAC purpose code.
func IsSectorCode(code string) bool {
	return len(code) == 5 && digits(code)
}

func digits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

func fieldEquals(field, value string) string {
	return field + `:"` + escape(value) + `"`
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escape(value string) string {
	return quoteEscaper.Replace(value)
}

// Fields is the field list requested for every activity.
var Fields = []string{
	assessment.FieldIdentifier,
	assessment.FieldHierarchy,
	assessment.FieldTitle,
	assessment.FieldDescription,
	assessment.FieldStatusCode,
	assessment.FieldReportingOrg,
	assessment.FieldParticipatingOrgRef,
	assessment.FieldParticipatingOrgJSON,
	assessment.FieldStartActual,
	assessment.FieldEndActual,
	assessment.FieldEndPlanned,
	assessment.FieldCountryCode,
	assessment.FieldCountryPercentage,
	assessment.FieldRegionCode,
	assessment.FieldRegionPercentage,
	assessment.FieldTransactionCountryCode,
	assessment.FieldTransactionRegionCode,
	assessment.FieldSectorCode,
	assessment.FieldTransactionSectorCode,
	assessment.FieldSectorPercentage,
	assessment.FieldBudgetPeriodStart,
	assessment.FieldBudgetValue,
	assessment.FieldDocumentTitle,
	assessment.FieldBudgetJSON,
}
