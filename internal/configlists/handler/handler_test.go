package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"dqa/internal/configlists"
	"dqa/pkg/platform/httputil"
)

// =============================================================================
// Config List Handler Test Suite
// =============================================================================
// Justification for unit tests: the HTTP layer owns name validation, the
// 400/404/409 mapping and the response envelope.

type HandlerSuite struct {
	suite.Suite
	dir string
	api humatest.TestAPI
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	httputil.InstallErrorEnvelope()
	s.dir = s.T().TempDir()
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "non_acronyms.json"), []byte(`["AIDS","HIV"]`), 0o644))
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "default_dates.json"), []byte(`["1900-01-01"]`), 0o644))

	_, api := humatest.New(s.T(), httputil.APIConfig("DQA", "test"))
	New(configlists.NewStore(s.dir), nil).Register(api, "/dqa")
	s.api = api
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

type listBody struct {
	ConfigName string   `json:"config_name"`
	Values     []string `json:"values"`
}

func (s *HandlerSuite) TestListNames() {
	resp := s.api.Get("/dqa/config")

	s.Require().Equal(http.StatusOK, resp.Code)
	body := decode[map[string][]string](s.T(), resp.Body.Bytes())
	s.Equal([]string{"default_dates", "non_acronyms"}, body["configs"])
}

func (s *HandlerSuite) TestGetList() {
	resp := s.api.Get("/dqa/config/non_acronyms")

	s.Require().Equal(http.StatusOK, resp.Code)
	body := decode[listBody](s.T(), resp.Body.Bytes())
	s.Equal("non_acronyms", body.ConfigName)
	s.Equal([]string{"AIDS", "HIV"}, body.Values)
}

func (s *HandlerSuite) TestGetListErrors() {
	resp := s.api.Get("/dqa/config/bad-name")
	s.Equal(http.StatusBadRequest, resp.Code)
	s.JSONEq(`{"error":"Invalid config name"}`, resp.Body.String())

	resp = s.api.Get("/dqa/config/unknown")
	s.Equal(http.StatusNotFound, resp.Code)
	s.JSONEq(`{"error":"Config 'unknown' not found"}`, resp.Body.String())
}

func (s *HandlerSuite) TestEditList() {
	resp := s.api.Patch("/dqa/config/non_acronyms", map[string]any{"action": "add", "value": "DFID"})

	s.Require().Equal(http.StatusOK, resp.Code)
	body := decode[listBody](s.T(), resp.Body.Bytes())
	s.Equal([]string{"AIDS", "DFID", "HIV"}, body.Values)
}

func (s *HandlerSuite) TestEditListErrors() {
	tests := []struct {
		name   string
		path   string
		body   map[string]any
		status int
	}{
		{name: "duplicate add", path: "/dqa/config/non_acronyms", body: map[string]any{"action": "add", "value": "HIV"}, status: http.StatusConflict},
		{name: "missing remove", path: "/dqa/config/non_acronyms", body: map[string]any{"action": "remove", "value": "X"}, status: http.StatusNotFound},
		{name: "update onto existing", path: "/dqa/config/non_acronyms", body: map[string]any{"action": "update", "old_value": "AIDS", "new_value": "HIV"}, status: http.StatusConflict},
		{name: "missing value", path: "/dqa/config/non_acronyms", body: map[string]any{"action": "add"}, status: http.StatusBadRequest},
		{name: "missing new value", path: "/dqa/config/non_acronyms", body: map[string]any{"action": "update", "old_value": "AIDS"}, status: http.StatusBadRequest},
		{name: "unknown action", path: "/dqa/config/non_acronyms", body: map[string]any{"action": "rename", "value": "X"}, status: http.StatusBadRequest},
		{name: "unknown list", path: "/dqa/config/unknown", body: map[string]any{"action": "add", "value": "X"}, status: http.StatusNotFound},
		{name: "invalid name", path: "/dqa/config/bad-name", body: map[string]any{"action": "add", "value": "X"}, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			resp := s.api.Patch(tt.path, tt.body)

			s.Equal(tt.status, resp.Code, resp.Body.String())
			body := decode[map[string]any](s.T(), resp.Body.Bytes())
			s.NotEmpty(body["error"])
		})
	}

	resp := s.api.Get("/dqa/config/non_acronyms")
	s.Equal([]string{"AIDS", "HIV"}, decode[listBody](s.T(), resp.Body.Bytes()).Values)
}

func TestNewDefaultsLogger(t *testing.T) {
	h := New(configlists.NewStore(t.TempDir()), nil)
	assert.NotNil(t, h.logger)
}
