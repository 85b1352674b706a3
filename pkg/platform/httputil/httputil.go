// Package httputil holds the JSON error envelope shared by the huma
// operations and the plain chi middleware.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"

	"dqa/pkg/platform/sentinel"
)

// APIError is the error body every endpoint returns: {"error": "..."}.
type APIError struct {
	status  int
	Message string   `json:"error" example:"Invalid config name"`
	Details []string `json:"details,omitempty"`
}

func (e *APIError) GetStatus() int { return e.status }
func (e *APIError) Error() string  { return e.Message }

// NewError builds an APIError with the given status.
func NewError(status int, message string, details ...string) *APIError {
	return &APIError{status: status, Message: message, Details: details}
}

var installOnce sync.Once

// APIConfig returns the huma configuration shared by the server and the
// handler tests. Response bodies carry no $schema link.
func APIConfig(title, version string) huma.Config {
	cfg := huma.DefaultConfig(title, version)
	cfg.CreateHooks = nil
	return cfg
}

// InstallErrorEnvelope makes huma render its own errors with APIError.
// Request validation failures are reported as 400 rather than 422.
func InstallErrorEnvelope() {
	installOnce.Do(func() {
		huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
			if status == http.StatusUnprocessableEntity {
				status = http.StatusBadRequest
			}
			return NewError(status, msg, messages(errs)...)
		}
		huma.NewErrorWithContext = func(_ huma.Context, status int, msg string, errs ...error) huma.StatusError {
			if status == http.StatusUnprocessableEntity {
				status = http.StatusBadRequest
			}
			return NewError(status, msg, messages(errs)...)
		}
	})
}

func messages(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err.Error())
		}
	}
	return out
}

// StatusFor maps sentinel errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, sentinel.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, sentinel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sentinel.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromError converts err into an APIError. Internal errors never leak their
// message.
func FromError(err error) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return NewError(status, "internal error")
	}
	return NewError(status, publicMessage(err))
}

// publicMessage strips the trailing sentinel text added by %w wrapping.
func publicMessage(err error) string {
	msg := err.Error()
	for _, s := range []error{sentinel.ErrInvalidInput, sentinel.ErrNotFound, sentinel.ErrConflict} {
		if trimmed, ok := strings.CutSuffix(msg, ": "+s.Error()); ok {
			msg = trimmed
			break
		}
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes err as an APIError envelope.
func WriteError(w http.ResponseWriter, err error) {
	apiErr := FromError(err)
	if apiErr == nil {
		apiErr = NewError(http.StatusInternalServerError, "internal error")
	}
	WriteJSON(w, apiErr.GetStatus(), apiErr)
}
