package handler

import (
	"context"
	"log/slog"
	"net/http"
	"path"

	"github.com/danielgtaylor/huma/v2"

	"dqa/internal/configlists"
	"dqa/pkg/platform/httputil"
	"dqa/pkg/requestcontext"
)

// Store defines the list operations exposed over HTTP.
type Store interface {
	Names(ctx context.Context) ([]string, error)
	Values(ctx context.Context, name string) ([]string, error)
	Apply(ctx context.Context, name string, edit configlists.Edit) ([]string, error)
}

// Handler serves the config list endpoints.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// New creates a new config list Handler.
func New(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

type ListNamesResponse struct {
	Body struct {
		Configs []string `json:"configs" doc:"Sorted list names"`
	}
}

type ListInput struct {
	Name string `path:"config_name" doc:"List name" example:"non_acronyms"`
}

type ListResponse struct {
	Body ListBody
}

type ListBody struct {
	ConfigName string   `json:"config_name"`
	Values     []string `json:"values"`
}

type EditInput struct {
	Name string `path:"config_name" doc:"List name" example:"non_acronyms"`
	Body configlists.Edit
}

// Register adds the config list operations to api under basePath.
func (h *Handler) Register(api huma.API, basePath string) {
	huma.Register(api, huma.Operation{
		OperationID: "list-configs",
		Method:      http.MethodGet,
		Path:        path.Join(basePath, "config"),
		Summary:     "List editable config lists",
		Tags:        []string{"Config"},
	}, h.listNames)

	huma.Register(api, huma.Operation{
		OperationID: "get-config",
		Method:      http.MethodGet,
		Path:        path.Join(basePath, "config/{config_name}"),
		Summary:     "Return every value stored in a named config list",
		Tags:        []string{"Config"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, h.getList)

	huma.Register(api, huma.Operation{
		OperationID: "edit-config",
		Method:      http.MethodPatch,
		Path:        path.Join(basePath, "config/{config_name}"),
		Summary:     "Add, remove or update a value in a config list",
		Tags:        []string{"Config"},
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusConflict},
	}, h.editList)
}

func (h *Handler) listNames(ctx context.Context, _ *struct{}) (*ListNamesResponse, error) {
	names, err := h.store.Names(ctx)
	if err != nil {
		return nil, h.fail(ctx, "list config names failed", err)
	}
	resp := &ListNamesResponse{}
	resp.Body.Configs = names
	return resp, nil
}

func (h *Handler) getList(ctx context.Context, in *ListInput) (*ListResponse, error) {
	values, err := h.store.Values(ctx, in.Name)
	if err != nil {
		return nil, h.fail(ctx, "read config failed", err)
	}
	return &ListResponse{Body: ListBody{ConfigName: in.Name, Values: values}}, nil
}

func (h *Handler) editList(ctx context.Context, in *EditInput) (*ListResponse, error) {
	values, err := h.store.Apply(ctx, in.Name, in.Body)
	if err != nil {
		return nil, h.fail(ctx, "edit config failed", err)
	}
	return &ListResponse{Body: ListBody{ConfigName: in.Name, Values: values}}, nil
}

func (h *Handler) fail(ctx context.Context, msg string, err error) error {
	apiErr := httputil.FromError(err)
	level := slog.LevelWarn
	if apiErr.GetStatus() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"error", err,
		"status", apiErr.GetStatus(),
		"request_id", requestcontext.RequestID(ctx),
	)
	return apiErr
}
