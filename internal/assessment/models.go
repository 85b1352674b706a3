package assessment

import "time"

// Status is the outcome of a single rule.
type Status string

const (
	StatusPass          Status = "pass"
	StatusFail          Status = "fail"
	StatusNotApplicable Status = "not_applicable"
)

// Attribute names, in evaluation order.
const (
	AttributeTitle            = "title"
	AttributeDescription      = "description"
	AttributeStartDate        = "start_date"
	AttributeEndDate          = "end_date"
	AttributeSector           = "sector"
	AttributeLocation         = "location"
	AttributeParticipatingOrg = "participating_org"
)

// Document types, in evaluation order.
const (
	DocumentBusinessCase     = "business_case"
	DocumentLogicalFramework = "logical_framework"
	DocumentAnnualReview     = "annual_review"
)

// detailPercentage is the details key every attribute rule populates.
const detailPercentage = "percentage"

// AttributeResult is the outcome of one attribute rule.
type AttributeResult struct {
	Attribute string         `json:"attribute"`
	Status    Status         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Percentage returns the stored percentage detail, or 0 when absent.
func (a AttributeResult) Percentage() float64 {
	if a.Details == nil {
		return 0
	}
	if n, ok := number(a.Details[detailPercentage]); ok {
		return n
	}
	return 0
}

// DocumentResult is the outcome of one document-publication rule.
type DocumentResult struct {
	DocumentType    string `json:"document_type"`
	Status          Status `json:"status"`
	Message         string `json:"message,omitempty"`
	Published       bool   `json:"published"`
	ExemptionReason string `json:"exemption_reason,omitempty"`
}

// RecordAssessment holds every rule outcome for one activity.
type RecordAssessment struct {
	Identifier     string            `json:"iati_identifier"`
	Hierarchy      int               `json:"hierarchy"`
	Title          string            `json:"title"`
	StatusCode     *string           `json:"activity_status"`
	Attributes     []AttributeResult `json:"attributes"`
	Documents      []DocumentResult  `json:"documents"`
	OverallStatus  Status            `json:"overall_status"`
	FailureCount   int               `json:"failure_count"`
	NotApplicables int               `json:"-"`
}

// Failed reports whether any rule failed for the record.
func (r RecordAssessment) Failed() bool {
	return r.FailureCount > 0
}

// Attribute returns the named attribute result.
func (r RecordAssessment) Attribute(name string) (AttributeResult, bool) {
	for _, a := range r.Attributes {
		if a.Attribute == name {
			return a, true
		}
	}
	return AttributeResult{}, false
}

// Document returns the named document result.
func (r RecordAssessment) Document(docType string) (DocumentResult, bool) {
	for _, d := range r.Documents {
		if d.DocumentType == docType {
			return d, true
		}
	}
	return DocumentResult{}, false
}

// OrganisationSummary describes the assessed portfolio.
type OrganisationSummary struct {
	Organisation    string  `json:"organisation"`
	TotalProgrammes int     `json:"total_programmes"`
	TotalProjects   int     `json:"total_projects"`
	TotalBudget     float64 `json:"total_budget"`
	FinancialYear   string  `json:"financial_year"`
}

// Percentages are the ten organisation-level quality metrics.
type Percentages struct {
	Title               int `json:"title_percentage"`
	Description         int `json:"description_percentage"`
	StartDate           int `json:"start_date_percentage"`
	EndDate             int `json:"end_date_percentage"`
	Sector              int `json:"sector_percentage"`
	LocationData        int `json:"location_data_percentage"`
	ParticipatingOrgs   int `json:"participating_organisations_percentage"`
	BusinessCaseDoc     int `json:"document_business_case_percentage"`
	LogicalFrameworkDoc int `json:"document_logical_framework_percentage"`
	AnnualReviewDoc     int `json:"document_annual_review_percentage"`
}

// Report is the organisation-level assessment returned to callers.
type Report struct {
	Summary            OrganisationSummary `json:"summary"`
	FailedActivities   []RecordAssessment  `json:"failed_activities"`
	PassCount          int                 `json:"pass_count"`
	FailCount          int                 `json:"fail_count"`
	NotApplicableCount int                 `json:"not_applicable_count"`
	GeneratedAt        time.Time           `json:"generated_at"`
	Percentages        Percentages         `json:"percentages"`
}
