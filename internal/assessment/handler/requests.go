package handler

import (
	"dqa/internal/assessment/service"
	"dqa/internal/search"
)

// Segmentation narrows an assessment to recipient locations and sectors.
type Segmentation struct {
	Countries []string `json:"countries,omitempty" doc:"ISO 3166-1 alpha-2 recipient country codes"`
	Regions   []string `json:"regions,omitempty" doc:"Recipient region codes"`
	Sectors   []string `json:"sectors,omitempty" doc:"DAC sector codes (5 digits) or groups (3 digits)"`
}

// AssessRequest is the POST /dqa body.
type AssessRequest struct {
	Organisation                 string        `json:"organisation" minLength:"1" doc:"Reporting organisation reference" example:"GB-GOV-1"`
	Segmentation                 *Segmentation `json:"segmentation,omitempty"`
	RequireFundingAndAccountable bool          `json:"require_funding_and_accountable,omitempty" doc:"Keep only activities the organisation both funds and is accountable for"`
	IncludeExemptions            *bool         `json:"include_exemptions,omitempty" doc:"Apply the document exemption list (default true)"`
}

func (r AssessRequest) toService() service.Request {
	req := service.Request{
		Organisation:                 r.Organisation,
		RequireFundingAndAccountable: r.RequireFundingAndAccountable,
		IncludeExemptions:            r.IncludeExemptions == nil || *r.IncludeExemptions,
	}
	if r.Segmentation != nil {
		req.Filters = search.Filters{
			Countries: r.Segmentation.Countries,
			Regions:   r.Segmentation.Regions,
			Sectors:   r.Segmentation.Sectors,
		}
	}
	return req
}
