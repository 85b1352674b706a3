package assessment

import (
	"fmt"
	"time"
)

const (
	reasonExempt      = "Activity is exempt from document requirements"
	reasonNoStartDate = "No start date available"
	reasonTooEarly    = "Activity started before 2011-01-01"
)

// daysPerMonth is the month length used by every exemption window.
const daysPerMonth = 30

// businessCaseFloor is the earliest start date for which a business case
// can be required.
var businessCaseFloor = time.Date(2011, time.January, 1, 0, 0, 0, 0, time.UTC)

// documentRule describes the gating for one document type.
type documentRule struct {
	docType string
	months  func(Config) int
	floor   time.Time
}

// documentRules run for programme records only, in this order.
var documentRules = []documentRule{
	{docType: DocumentBusinessCase, months: func(c Config) int { return c.BusinessCaseMonths }, floor: businessCaseFloor},
	{docType: DocumentLogicalFramework, months: func(c Config) int { return c.LogicalFrameworkMonths }},
	{docType: DocumentAnnualReview, months: func(c Config) int { return c.AnnualReviewMonths }},
}

// evaluate walks the document state machine. Exemption wins over every
// other condition, then a missing start date, then the date gates.
func (d documentRule) evaluate(r Record, cfg Config) DocumentResult {
	published := DocumentPublished(d.docType, r.Strings(FieldDocumentTitle))
	notApplicable := func(reason string) DocumentResult {
		return DocumentResult{
			DocumentType:    d.docType,
			Status:          StatusNotApplicable,
			Published:       published,
			ExemptionReason: reason,
		}
	}

	if cfg.IsExempt(r.Identifier()) {
		return notApplicable(reasonExempt)
	}
	start, err := ParseISODate(r.First(FieldStartActual))
	if err != nil {
		return notApplicable(reasonNoStartDate)
	}
	if !d.floor.IsZero() && start.Before(d.floor) {
		return notApplicable(reasonTooEarly)
	}
	months := d.months(cfg)
	threshold := cfg.Now.AddDate(0, 0, -daysPerMonth*months)
	if start.After(threshold) {
		return notApplicable(fmt.Sprintf("Activity started less than %d months ago", months))
	}

	if published {
		return DocumentResult{DocumentType: d.docType, Status: StatusPass, Published: true}
	}
	return DocumentResult{
		DocumentType: d.docType,
		Status:       StatusFail,
		Message:      documentLabels[d.docType] + " document not published",
	}
}
