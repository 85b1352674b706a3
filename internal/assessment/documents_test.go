package assessment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// =============================================================================
// Document Rule Test Suite
// =============================================================================
// Justification for unit tests: the document state machine is time gated.
// Pinning the evaluation instant lets every window boundary be exercised
// deterministically.

type DocumentRuleSuite struct {
	suite.Suite
	now time.Time
	cfg Config
}

func TestDocumentRuleSuite(t *testing.T) {
	suite.Run(t, new(DocumentRuleSuite))
}

func (s *DocumentRuleSuite) SetupTest() {
	s.now = time.Date(2024, time.June, 15, 12, 0, 0, 0, time.UTC)
	s.cfg = DefaultConfig(s.now)
}

func (s *DocumentRuleSuite) evaluate(r Record, cfg Config) map[string]DocumentResult {
	out := make(map[string]DocumentResult, len(documentRules))
	for _, rule := range documentRules {
		out[rule.docType] = rule.evaluate(r, cfg)
	}
	return out
}

func (s *DocumentRuleSuite) daysAgo(days int) string {
	return s.now.AddDate(0, 0, -days).Format(time.RFC3339)
}

func (s *DocumentRuleSuite) TestUnpublishedBusinessCaseFails() {
	r := Record{FieldIdentifier: "GB-1-100", FieldStartActual: "2011-06-01"}

	result := documentRules[0].evaluate(r, s.cfg)

	s.Equal(DocumentBusinessCase, result.DocumentType)
	s.Equal(StatusFail, result.Status)
	s.Equal("Business Case document not published", result.Message)
	s.False(result.Published)
}

func (s *DocumentRuleSuite) TestExemptionOverridesEverything() {
	cfg := s.cfg.WithExemptions([]string{"GB-1-100"})
	records := []Record{
		{FieldIdentifier: "GB-1-100", FieldStartActual: "2011-06-01"},
		{FieldIdentifier: "GB-1-100"},
		{FieldIdentifier: "GB-1-100", FieldStartActual: "2001-01-01"},
		{FieldIdentifier: "GB-1-100", FieldStartActual: "2015-01-01", FieldDocumentTitle: "Annual Review Published"},
	}

	for _, r := range records {
		for docType, result := range s.evaluate(r, cfg) {
			s.Equal(StatusNotApplicable, result.Status, docType)
			s.Contains(result.ExemptionReason, "exempt")
		}
	}
}

func (s *DocumentRuleSuite) TestExemptRecordStillReportsPublication() {
	cfg := s.cfg.WithExemptions([]string{"GB-1-100"})
	r := Record{FieldIdentifier: "GB-1-100", FieldDocumentTitle: "Business Case Published"}

	result := documentRules[0].evaluate(r, cfg)
	s.Equal(StatusNotApplicable, result.Status)
	s.True(result.Published)
}

func (s *DocumentRuleSuite) TestMissingOrInvalidStartDate() {
	for _, start := range []any{nil, "", "sometime"} {
		r := Record{FieldIdentifier: "GB-1-100"}
		if start != nil {
			r[FieldStartActual] = start
		}
		for docType, result := range s.evaluate(r, s.cfg) {
			s.Equal(StatusNotApplicable, result.Status, docType)
			s.Equal("No start date available", result.ExemptionReason)
		}
	}
}

func (s *DocumentRuleSuite) TestBusinessCaseFloorOnlyAppliesToBusinessCase() {
	r := Record{FieldIdentifier: "GB-1-100", FieldStartActual: "2010-12-31"}
	results := s.evaluate(r, s.cfg)

	s.Equal(StatusNotApplicable, results[DocumentBusinessCase].Status)
	s.Equal("Activity started before 2011-01-01", results[DocumentBusinessCase].ExemptionReason)
	s.Equal(StatusFail, results[DocumentLogicalFramework].Status)
	s.Equal(StatusFail, results[DocumentAnnualReview].Status)
}

func (s *DocumentRuleSuite) TestBusinessCaseFloorIsInclusive() {
	r := Record{FieldIdentifier: "GB-1-100", FieldStartActual: "2011-01-01T00:00:00Z"}
	s.Equal(StatusFail, documentRules[0].evaluate(r, s.cfg).Status)
}

func (s *DocumentRuleSuite) TestAgeWindows() {
	tests := []struct {
		name    string
		docType string
		ageDays int
		status  Status
		reason  string
	}{
		{name: "business case too recent", docType: DocumentBusinessCase, ageDays: 89, status: StatusNotApplicable, reason: "Activity started less than 3 months ago"},
		{name: "business case at threshold", docType: DocumentBusinessCase, ageDays: 90, status: StatusFail},
		{name: "logical framework too recent", docType: DocumentLogicalFramework, ageDays: 30, status: StatusNotApplicable, reason: "Activity started less than 3 months ago"},
		{name: "logical framework at threshold", docType: DocumentLogicalFramework, ageDays: 90, status: StatusFail},
		{name: "annual review too recent", docType: DocumentAnnualReview, ageDays: 569, status: StatusNotApplicable, reason: "Activity started less than 19 months ago"},
		{name: "annual review at threshold", docType: DocumentAnnualReview, ageDays: 570, status: StatusFail},
		{name: "future start", docType: DocumentAnnualReview, ageDays: -10, status: StatusNotApplicable, reason: "Activity started less than 19 months ago"},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			r := Record{FieldIdentifier: "GB-1-100", FieldStartActual: s.daysAgo(tt.ageDays)}
			result := s.evaluate(r, s.cfg)[tt.docType]
			s.Equal(tt.status, result.Status)
			s.Equal(tt.reason, result.ExemptionReason)
		})
	}
}

func (s *DocumentRuleSuite) TestConfiguredWindows() {
	cfg := s.cfg
	cfg.AnnualReviewMonths = 6
	r := Record{FieldIdentifier: "GB-1-100", FieldStartActual: s.daysAgo(200)}

	s.Equal(StatusFail, s.evaluate(r, cfg)[DocumentAnnualReview].Status)
	s.Equal(StatusNotApplicable, s.evaluate(r, s.cfg)[DocumentAnnualReview].Status)
}

func (s *DocumentRuleSuite) TestPublishedDocumentsPass() {
	r := Record{
		FieldIdentifier:  "GB-1-100",
		FieldStartActual: "2015-01-01",
		FieldDocumentTitle: []any{
			"Business Case and Summary Published",
			"logical framework - published",
			"Annual Review 2016",
		},
	}
	results := s.evaluate(r, s.cfg)

	s.Equal(StatusPass, results[DocumentBusinessCase].Status)
	s.True(results[DocumentBusinessCase].Published)
	s.Equal(StatusPass, results[DocumentLogicalFramework].Status)
	s.Equal(StatusFail, results[DocumentAnnualReview].Status)
	s.Equal("Annual Review document not published", results[DocumentAnnualReview].Message)
}
