package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Assessor

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dqa/internal/assessment"
	"dqa/internal/assessment/handler/mocks"
	"dqa/internal/assessment/service"
	"dqa/internal/search"
	"dqa/pkg/platform/httputil"
	"dqa/pkg/platform/sentinel"
)

// =============================================================================
// Assessment Handler Test Suite
// =============================================================================
// Justification for unit tests: the handler owns the request body contract
// (segmentation, defaults for the exemption switch) and the error envelope.

type HandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	assessor *mocks.MockAssessor
	api      humatest.TestAPI
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	httputil.InstallErrorEnvelope()
	s.ctrl = gomock.NewController(s.T())
	s.assessor = mocks.NewMockAssessor(s.ctrl)

	_, api := humatest.New(s.T(), httputil.APIConfig("DQA", "test"))
	New(s.assessor, nil).Register(api, "/dqa")
	s.api = api
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) TestAssessDefaults() {
	report := &assessment.Report{
		Summary:          assessment.OrganisationSummary{Organisation: "GB-GOV-1", FinancialYear: "2024-2025"},
		FailedActivities: []assessment.RecordAssessment{},
		PassCount:        3,
	}
	s.assessor.EXPECT().
		Assess(gomock.Any(), service.Request{Organisation: "GB-GOV-1", IncludeExemptions: true}).
		Return(report, nil)

	resp := s.api.Post("/dqa", map[string]any{"organisation": "GB-GOV-1"})

	s.Require().Equal(http.StatusOK, resp.Code, resp.Body.String())
	var body map[string]any
	s.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &body))
	s.Equal(3.0, body["pass_count"])
	s.Equal([]any{}, body["failed_activities"])
	s.Equal("2024-2025", body["summary"].(map[string]any)["financial_year"])
}

func (s *HandlerSuite) TestAssessSegmentationAndFlags() {
	want := service.Request{
		Organisation: "GB-GOV-1",
		Filters: search.Filters{
			Countries: []string{"KE"},
			Sectors:   []string{"151", "11110"},
		},
		RequireFundingAndAccountable: true,
		IncludeExemptions:            false,
	}
	s.assessor.EXPECT().Assess(gomock.Any(), want).Return(&assessment.Report{}, nil)

	resp := s.api.Post("/dqa", map[string]any{
		"organisation": "GB-GOV-1",
		"segmentation": map[string]any{
			"countries": []string{"KE"},
			"sectors":   []string{"151", "11110"},
		},
		"require_funding_and_accountable": true,
		"include_exemptions":              false,
	})

	s.Equal(http.StatusOK, resp.Code, resp.Body.String())
}

func (s *HandlerSuite) TestAssessErrors() {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{
			name:   "invalid sector",
			err:    fmt.Errorf("sector code '15' must be 3 or 5 digits: %w", sentinel.ErrInvalidInput),
			status: http.StatusBadRequest,
			body:   `{"error":"Sector code '15' must be 3 or 5 digits"}`,
		},
		{
			name:   "unexpected failure",
			err:    errors.New("evaluate records: boom"),
			status: http.StatusInternalServerError,
			body:   `{"error":"internal error"}`,
		},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.assessor.EXPECT().Assess(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			resp := s.api.Post("/dqa", map[string]any{"organisation": "GB-GOV-1"})

			s.Equal(tt.status, resp.Code)
			s.JSONEq(tt.body, resp.Body.String())
		})
	}
}

func (s *HandlerSuite) TestAssessMissingOrganisation() {
	resp := s.api.Post("/dqa", map[string]any{"segmentation": map[string]any{}})

	s.Equal(http.StatusBadRequest, resp.Code)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &body))
	s.NotEmpty(body["error"])
}

func (s *HandlerSuite) TestHealth() {
	ts := time.Date(2024, time.June, 15, 9, 30, 0, 0, time.UTC)
	s.assessor.EXPECT().Health(gomock.Any()).Return(service.Health{
		Status:    service.StatusDegraded,
		Redis:     service.StatusDisconnected,
		Search:    service.StatusConnected,
		Timestamp: ts,
	})

	resp := s.api.Get("/dqa/health")

	s.Equal(http.StatusOK, resp.Code)
	s.JSONEq(`{"status":"degraded","redis":"disconnected","search":"connected","timestamp":"2024-06-15T09:30:00Z"}`, resp.Body.String())
}

func (s *HandlerSuite) TestClearCache() {
	s.Run("default pattern", func() {
		s.assessor.EXPECT().ClearCache(gomock.Any(), "*").Return(5)

		resp := s.api.Post("/dqa/cache/clear")

		s.Equal(http.StatusOK, resp.Code)
		s.JSONEq(`{"cleared":5,"pattern":"*"}`, resp.Body.String())
	})

	s.Run("explicit pattern", func() {
		s.assessor.EXPECT().ClearCache(gomock.Any(), "dqa:GB-GOV-1*").Return(1)

		resp := s.api.Post("/dqa/cache/clear?pattern=dqa:GB-GOV-1*")

		s.Equal(http.StatusOK, resp.Code)
		s.JSONEq(`{"cleared":1,"pattern":"dqa:GB-GOV-1*"}`, resp.Body.String())
	})
}
