package assessment

import (
	"time"

	"github.com/shopspring/decimal"
)

// BuildReport folds evaluated records into the organisation report.
// assessments must be in input order; records feed the budget rollup only.
func BuildReport(organisation string, records []Record, assessments []RecordAssessment, fy FinancialYear, generatedAt time.Time) Report {
	report := Report{
		Summary: OrganisationSummary{
			Organisation:  organisation,
			TotalBudget:   BudgetForFinancialYear(records, fy),
			FinancialYear: fy.Label(),
		},
		FailedActivities: make([]RecordAssessment, 0),
		GeneratedAt:      generatedAt,
	}

	for _, a := range assessments {
		if a.Hierarchy == programmeHierarchy {
			report.Summary.TotalProgrammes++
		} else {
			report.Summary.TotalProjects++
		}
		if a.Failed() {
			report.FailedActivities = append(report.FailedActivities, a)
			report.FailCount++
		} else {
			report.PassCount++
		}
		report.NotApplicableCount += a.NotApplicables
	}

	report.Percentages = CalculatePercentages(len(assessments), report.Summary.TotalProgrammes, report.FailedActivities)
	return report
}

// CalculatePercentages computes the ten quality metrics from the number of
// evaluated records, the number of programmes among them and the failing
// assessments.
func CalculatePercentages(evaluated, programmes int, failed []RecordAssessment) Percentages {
	attr := func(name string) int { return attributePercentage(evaluated, failed, name) }
	doc := func(docType string) int { return documentPercentage(programmes, failed, docType) }

	return Percentages{
		Title:               attr(AttributeTitle),
		Description:         attr(AttributeDescription),
		StartDate:           attr(AttributeStartDate),
		EndDate:             attr(AttributeEndDate),
		Sector:              attr(AttributeSector),
		LocationData:        attr(AttributeLocation),
		ParticipatingOrgs:   attr(AttributeParticipatingOrg),
		BusinessCaseDoc:     doc(DocumentBusinessCase),
		LogicalFrameworkDoc: doc(DocumentLogicalFramework),
		AnnualReviewDoc:     doc(DocumentAnnualReview),
	}
}

// attributePercentage averages 100 for every passing record with the stored
// percentage of every failing one. With no failures at all the metric is 100,
// even when nothing was evaluated.
func attributePercentage(evaluated int, failed []RecordAssessment, attribute string) int {
	if len(failed) == 0 {
		return 100
	}
	passing := max(evaluated-len(failed), 0)
	sum := hundred.Mul(decimal.NewFromInt(int64(passing)))
	count := int64(passing)

	for _, a := range failed {
		result, ok := a.Attribute(attribute)
		if !ok {
			continue
		}
		switch result.Status {
		case StatusNotApplicable:
			continue
		case StatusPass, StatusFail:
			sum = sum.Add(decimal.NewFromFloat(result.Percentage()))
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return roundBank(sum.Div(decimal.NewFromInt(count)))
}

// documentPercentage is the share of programmes not failing docType.
func documentPercentage(programmes int, failed []RecordAssessment, docType string) int {
	if programmes <= 0 {
		return 100
	}
	failing := 0
	for _, a := range failed {
		if a.Hierarchy != programmeHierarchy {
			continue
		}
		if d, ok := a.Document(docType); ok && d.Status == StatusFail {
			failing++
		}
	}
	success := decimal.NewFromInt(int64(programmes - failing))
	return roundBank(success.Mul(hundred).Div(decimal.NewFromInt(int64(programmes))))
}

// RoundHalfEven rounds v to the nearest integer, sending ties to the even
// neighbour: 0.5 → 0, 1.5 → 2, 2.5 → 2.
func RoundHalfEven(v float64) int {
	return roundBank(decimal.NewFromFloat(v))
}

func roundBank(d decimal.Decimal) int {
	return int(d.RoundBank(0).IntPart())
}
