package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
)

// SolrCorePath is the core path the stub serves.
const SolrCorePath = "/solr/activity"

// SolrStub is a fake Solr core answering select and ping requests.
type SolrStub struct {
	*httptest.Server

	mu      sync.Mutex
	queries []url.Values
	methods []string
	respond func(params url.Values) (int, any)
	ping    int
}

// NewSolrStub starts a stub that returns no documents until Respond is set.
// The server is closed when the test ends.
func NewSolrStub(t *testing.T) *SolrStub {
	t.Helper()
	s := &SolrStub{
		respond: func(url.Values) (int, any) { return http.StatusOK, SelectBody() },
		ping:    http.StatusOK,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// CoreURL is the base URL a search client should be configured with.
func (s *SolrStub) CoreURL() string {
	return s.URL + SolrCorePath
}

// Respond replaces the select handler.
func (s *SolrStub) Respond(fn func(params url.Values) (int, any)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = fn
}

// PingStatus sets the status returned by the ping handler.
func (s *SolrStub) PingStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ping = status
}

// Methods returns the HTTP method of every select request received so far.
func (s *SolrStub) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.methods...)
}

// Queries returns the parameters of every select request received so far,
// whether sent in the URL or as a form body.
func (s *SolrStub) Queries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.queries...)
}

func (s *SolrStub) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	respond, ping := s.respond, s.ping
	s.mu.Unlock()

	switch {
	case strings.HasSuffix(r.URL.Path, SolrCorePath+"/select"):
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		params := r.Form
		s.mu.Lock()
		s.queries = append(s.queries, params)
		s.methods = append(s.methods, r.Method)
		s.mu.Unlock()
		status, body := respond(params)
		writeJSON(w, status, body)
	case strings.HasSuffix(r.URL.Path, SolrCorePath+"/admin/ping"):
		if ping != http.StatusOK {
			writeJSON(w, ping, map[string]string{"status": "ERROR"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if s, ok := body.(string); ok {
		_, _ = w.Write([]byte(s))
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// SelectBody wraps docs in a Solr select response envelope.
func SelectBody(docs ...map[string]any) map[string]any {
	if docs == nil {
		docs = []map[string]any{}
	}
	return map[string]any{
		"responseHeader": map[string]any{"status": 0},
		"response": map[string]any{
			"numFound": len(docs),
			"start":    0,
			"docs":     docs,
		},
	}
}
