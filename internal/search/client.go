package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dqa/internal/assessment"
	"dqa/internal/assessment/metrics"
	"dqa/pkg/platform/circuit"
	"dqa/pkg/requestcontext"
)

const (
	// DefaultRows fetches every matching activity in one page.
	DefaultRows    = 999999
	defaultTimeout = 10 * time.Second

	// maxGETParamsLength is the encoded parameter size at which requests
	// switch to a form POST.
	maxGETParamsLength = 1024
)

// Participating organisation roles.
const (
	roleFunding     = 1
	roleAccountable = 2
)

// Request selects one organisation's in-scope activities.
type Request struct {
	Organisation string
	// Hierarchy 0 matches every level.
	Hierarchy int
	Filters   Filters
	// FundingAndAccountable keeps only activities in which the organisation
	// is both the funding and the accountable participant.
	FundingAndAccountable bool
}

// Client queries the Solr activity core.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	rows       int
	builder    QueryBuilder
	breaker    *circuit.Breaker
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Client) {
		if c != nil {
			s.httpClient = c
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Client) {
		if d > 0 {
			s.httpClient.Timeout = d
		}
	}
}

func WithRows(rows int) Option {
	return func(s *Client) {
		if rows > 0 {
			s.rows = rows
		}
	}
}

func WithQueryBuilder(b QueryBuilder) Option {
	return func(s *Client) {
		s.builder = b
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Client) {
		s.breaker = b
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Client) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Client) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewClient returns a client for the core at baseURL, for example
// http://localhost:8983/solr/activity.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid search URL %q", baseURL)
	}
	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: defaultTimeout},
		rows:       DefaultRows,
		builder:    NewQueryBuilder(DefaultClosedWithinMonths),
		breaker:    circuit.New("search"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Activities returns the records matching req. Backend failures are logged
// and yield an empty result.
func (c *Client) Activities(ctx context.Context, req Request) []assessment.Record {
	query := c.builder.Build(req.Organisation, req.Hierarchy, req.Filters, requestcontext.Now(ctx))
	hierarchy := "all"
	if req.Hierarchy > 0 {
		hierarchy = strconv.Itoa(req.Hierarchy)
	}

	start := time.Now()
	records, err := c.Search(ctx, query)
	c.metrics.ObserveSearchLatency(hierarchy, time.Since(start))
	if err != nil {
		c.metrics.IncrementSearchFailure(string(Category(err)))
		c.logger.ErrorContext(ctx, "activity search failed",
			"organisation", req.Organisation,
			"hierarchy", hierarchy,
			"query", query,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return []assessment.Record{}
	}

	c.logger.InfoContext(ctx, "activity search completed",
		"organisation", req.Organisation,
		"hierarchy", hierarchy,
		"results", len(records),
		"request_id", requestcontext.RequestID(ctx),
	)
	if req.FundingAndAccountable {
		return FundingAndAccountable(records, req.Organisation)
	}
	return records
}

// Search runs a raw query and returns the matching records.
func (c *Client) Search(ctx context.Context, query string) ([]assessment.Record, error) {
	if !c.breaker.Allow() {
		return nil, newError(ErrorCircuitOpen, "search backend marked unavailable", nil)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("fl", strings.Join(Fields, ","))
	params.Set("rows", strconv.Itoa(c.rows))
	params.Set("wt", "json")

	body, err := c.call(ctx, "select", params)
	if err != nil {
		c.recordFailure(ctx)
		return nil, err
	}

	records, err := parseSelectResponse(body)
	if err != nil {
		c.recordFailure(ctx)
		return nil, err
	}
	c.recordSuccess(ctx)
	return records, nil
}

// Ping checks that the core answers its ping handler. While the breaker is
// open searches are short-circuited, so the backend counts as unreachable.
func (c *Client) Ping(ctx context.Context) error {
	if !c.Healthy() {
		return newError(ErrorCircuitOpen, "circuit open", nil)
	}
	params := url.Values{}
	params.Set("wt", "json")
	body, err := c.call(ctx, "admin/ping", params)
	if err != nil {
		return err
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return newError(ErrorBadData, "decode ping response", err)
	}
	if !strings.EqualFold(resp.Status, "OK") {
		return newError(ErrorOutage, "ping status "+resp.Status, nil)
	}
	return nil
}

// Healthy reports whether the breaker currently lets searches through.
func (c *Client) Healthy() bool {
	return !c.breaker.IsOpen()
}

// call sends params as a GET query, or as a form POST once the encoded
// parameters would make the request line too long for the server.
func (c *Client) call(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + path
	encoded := params.Encode()

	var (
		req *http.Request
		err error
	)
	if len(encoded) >= maxGETParamsLength {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(encoded))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		u.RawQuery = encoded
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}
	if err != nil {
		return nil, newError(ErrorOutage, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return nil, newError(ErrorTimeout, "request timed out", err)
		}
		return nil, newError(ErrorOutage, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(ErrorOutage, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		e := newError(ErrorOutage, fmt.Sprintf("status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
		e.StatusCode = resp.StatusCode
		return nil, e
	}
	return body, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) recordFailure(ctx context.Context) {
	if _, change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "search circuit opened", "breaker", c.breaker.Name())
	}
}

func (c *Client) recordSuccess(ctx context.Context) {
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.logger.InfoContext(ctx, "search circuit closed", "breaker", c.breaker.Name())
	}
}

type selectResponse struct {
	Response *struct {
		NumFound int              `json:"numFound"`
		Docs     []map[string]any `json:"docs"`
	} `json:"response"`
}

func parseSelectResponse(body []byte) ([]assessment.Record, error) {
	var resp selectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, newError(ErrorBadData, "decode select response", err)
	}
	if resp.Response == nil {
		return nil, newError(ErrorBadData, "select response has no result set", nil)
	}
	records := make([]assessment.Record, len(resp.Response.Docs))
	for i, doc := range resp.Response.Docs {
		records[i] = assessment.Record(doc)
	}
	return records, nil
}

type participatingOrg struct {
	Ref  string `json:"ref"`
	Role any    `json:"role"`
}

// FundingAndAccountable keeps records whose participating organisations
// list organisation as both funder and accountable party.
func FundingAndAccountable(records []assessment.Record, organisation string) []assessment.Record {
	out := make([]assessment.Record, 0, len(records))
	for _, r := range records {
		var funding, accountable bool
		for _, raw := range r.List(assessment.FieldParticipatingOrgJSON) {
			org, ok := decodeParticipatingOrg(raw)
			if !ok || org.Ref != organisation {
				continue
			}
			switch roleCode(org.Role) {
			case roleFunding:
				funding = true
			case roleAccountable:
				accountable = true
			}
		}
		if funding && accountable {
			out = append(out, r)
		}
	}
	return out
}

func decodeParticipatingOrg(raw any) (participatingOrg, bool) {
	var org participatingOrg
	switch t := raw.(type) {
	case string:
		if err := json.Unmarshal([]byte(t), &org); err != nil {
			return org, false
		}
	case map[string]any:
		org.Ref, _ = t["ref"].(string)
		org.Role = t["role"]
	default:
		return org, false
	}
	return org, true
}

func roleCode(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
