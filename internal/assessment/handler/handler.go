package handler

import (
	"context"
	"log/slog"
	"net/http"
	"path"

	"github.com/danielgtaylor/huma/v2"

	"dqa/internal/assessment"
	"dqa/internal/assessment/service"
	"dqa/pkg/platform/httputil"
	"dqa/pkg/requestcontext"
)

// Assessor defines the assessment operations exposed over HTTP.
type Assessor interface {
	Assess(ctx context.Context, req service.Request) (*assessment.Report, error)
	ClearCache(ctx context.Context, pattern string) int
	Health(ctx context.Context) service.Health
}

// Handler serves the assessment endpoints.
type Handler struct {
	assessor Assessor
	logger   *slog.Logger
}

// New creates a new assessment Handler.
func New(assessor Assessor, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{assessor: assessor, logger: logger}
}

type AssessInput struct {
	Body AssessRequest
}

type ReportResponse struct {
	Body *assessment.Report
}

type HealthResponse struct {
	Body service.Health
}

type ClearCacheInput struct {
	Pattern string `query:"pattern" default:"*" doc:"Redis key pattern to evict" example:"dqa:GB-GOV-1*"`
}

type ClearCacheResponse struct {
	Body struct {
		Cleared int    `json:"cleared" doc:"Number of evicted keys"`
		Pattern string `json:"pattern"`
	}
}

// Register adds the assessment operations to api under basePath. The
// assessment itself is served at basePath.
func (h *Handler) Register(api huma.API, basePath string) {
	huma.Register(api, huma.Operation{
		OperationID: "assess-organisation",
		Method:      http.MethodPost,
		Path:        basePath,
		Summary:     "Assess the data quality of an organisation's activities",
		Tags:        []string{"Assessment"},
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, h.assess)

	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        path.Join(basePath, "health"),
		Summary:     "Report cache and search backend reachability",
		Tags:        []string{"Health"},
	}, h.health)

	huma.Register(api, huma.Operation{
		OperationID: "clear-cache",
		Method:      http.MethodPost,
		Path:        path.Join(basePath, "cache/clear"),
		Summary:     "Evict cached assessment reports",
		Tags:        []string{"Cache"},
		Errors:      []int{http.StatusUnauthorized},
	}, h.clearCache)
}

func (h *Handler) assess(ctx context.Context, in *AssessInput) (*ReportResponse, error) {
	report, err := h.assessor.Assess(ctx, in.Body.toService())
	if err != nil {
		apiErr := httputil.FromError(err)
		level := slog.LevelWarn
		if apiErr.GetStatus() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		h.logger.Log(ctx, level, "assessment failed",
			"organisation", in.Body.Organisation,
			"error", err,
			"status", apiErr.GetStatus(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, apiErr
	}
	return &ReportResponse{Body: report}, nil
}

func (h *Handler) health(ctx context.Context, _ *struct{}) (*HealthResponse, error) {
	return &HealthResponse{Body: h.assessor.Health(ctx)}, nil
}

func (h *Handler) clearCache(ctx context.Context, in *ClearCacheInput) (*ClearCacheResponse, error) {
	resp := &ClearCacheResponse{}
	resp.Body.Cleared = h.assessor.ClearCache(ctx, in.Pattern)
	resp.Body.Pattern = in.Pattern
	if resp.Body.Pattern == "" {
		resp.Body.Pattern = "*"
	}
	return resp, nil
}
