// Package httprunner implements the HTTP/OpenAPI runner: per-page request
// assembly, authentication binding, pagination parameter application,
// send+log, result extraction, stop condition, and accumulation across
// pages.
package httprunner

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-openapi/jsonpointer"
	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/engine"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
	"github.com/madcok-co/conduit/core/pkg/connector/trie"
	"github.com/madcok-co/conduit/core/pkg/resilience"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// responseBodyPrefix is the sentinel resultsPath is stripped of before JSON
// pointer resolution.
const responseBodyPrefix = "$response.body"

// DefaultLimit is the total limit applied when RunService's caller supplies
// no options["limit"]. A limit of 0 means no limit.
const DefaultLimit = 20

// UserAgent is always set on outbound requests.
const UserAgent = "APICLI/1.0"

// Runner implements engine.DataConnectionRunner.
type Runner struct {
	client *http.Client
	logger *zap.Logger
	cb     *resilience.CircuitBreaker
	retry  *resilience.Retryer
}

// Option configures a Runner.
type Option func(*Runner)

// WithHTTPClient overrides the default client (used by tests to inject a
// transport pointed at httptest servers).
func WithHTTPClient(client *http.Client) Option {
	return func(r *Runner) { r.client = client }
}

// New builds an HTTP runner. Every outbound request is wrapped with a
// circuit breaker and bounded retry from core/pkg/resilience.
func New(logger *zap.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger,
		cb:     resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
		retry:  resilience.NewRetryer(resilience.DefaultRetryConfig()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// requestState accumulates one page's outgoing request.
type requestState struct {
	method  string
	base    string
	path    string
	query   map[string]any
	header  map[string]any
	pathVar map[string]any
	body    any
	hasBody bool
}

func newRequestState() *requestState {
	return &requestState{
		query:   map[string]any{},
		header:  map[string]any{},
		pathVar: map[string]any{},
	}
}

// Run implements engine.DataConnectionRunner.
func (r *Runner) Run(name, operationName string, bundle *engine.DataConnectorBundle, params, options any, ctx *engine.ExecutionContext) (any, error) {
	identifier := name + "." + operationName

	op, ok := bundle.API.Operations[operationName]
	if !ok {
		return nil, connectorerr.New(connectorerr.ErrNotFound, identifier, "operation")
	}

	paramsMap, _ := params.(map[string]any)
	totalLimit := extractLimit(options, DefaultLimit)

	var total int
	var currentPage int
	var pageResponses []any

	for {
		state := newRequestState()
		if body, ok := paramsMap["$body"]; ok {
			state.setBody(body)
		}
		if err := state.collectParams(paramsMap, op.Parameters, currentPage == 0); err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrMissingRequiredParam, identifier, err)
		}
		if err := r.handleAuth(state, bundle.Manifest, bundle.Creds, identifier); err != nil {
			return nil, err
		}
		method, err := httpMethod(op.Method)
		if err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrInvalidMethod, identifier, err)
		}
		state.method = method
		state.setEndpoint(bundle.API.BasePath, op.PathTemplate)

		var lastResponse any
		if len(pageResponses) > 0 {
			lastResponse = pageResponses[len(pageResponses)-1]
		}
		requested, err := handlePagination(state, op.Pagination, lastResponse, currentPage, op.Parameters)
		if err != nil {
			var typed *connectorerr.Error
			if errors.As(err, &typed) {
				return nil, err
			}
			return nil, connectorerr.Wrap(connectorerr.ErrPagingOverflow, identifier, err)
		}

		result, err := r.send(identifier, state, op.Responses)
		if err != nil {
			return nil, err
		}

		if ctx.RawResponse {
			return result, nil
		}

		segment, err := findResults(result, op.Pagination)
		if err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrNotFound, identifier, err)
		}
		currentSize := segmentLength(segment)

		pageResponses = append(pageResponses, result)
		currentPage++
		total += currentSize

		if requested == 0 || totalLimit == 0 || currentSize < requested || total >= totalLimit {
			break
		}
	}

	var flattened []any
	for _, response := range pageResponses {
		segment, err := findResults(response, op.Pagination)
		if err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrNotFound, identifier, err)
		}
		if arr, ok := segment.([]any); ok {
			flattened = append(flattened, arr...)
		} else {
			flattened = append(flattened, segment)
		}
	}

	if totalLimit > 0 && len(flattened) > totalLimit {
		flattened = flattened[:totalLimit]
	}
	if flattened == nil {
		flattened = []any{}
	}
	return flattened, nil
}

func extractLimit(options any, def int) int {
	opts, ok := options.(map[string]any)
	if !ok {
		return def
	}
	raw, ok := opts["limit"]
	if !ok {
		return def
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return def
		}
		return int(n)
	default:
		return def
	}
}

func httpMethod(m schema.HTTPMethod) (string, error) {
	switch m {
	case schema.HTTPMethodGet:
		return http.MethodGet, nil
	case schema.HTTPMethodPost:
		return http.MethodPost, nil
	case schema.HTTPMethodPut:
		return http.MethodPut, nil
	case schema.HTTPMethodPatch:
		return http.MethodPatch, nil
	case schema.HTTPMethodDelete:
		return http.MethodDelete, nil
	case schema.HTTPMethodHead:
		return http.MethodHead, nil
	default:
		return "", fmt.Errorf("httprunner: method %q is unset or unrecognized", m)
	}
}

func (s *requestState) setBody(body any) {
	s.body = body
	s.hasBody = true
	s.header["Content-Type"] = "application/json"
}

func (s *requestState) setEndpoint(base, path string) {
	s.base = strings.TrimSuffix(base, "/")
	s.path = strings.TrimPrefix(path, "/")
}

// collectParams routes each declared parameter present in params by its
// `in`; a missing required parameter is only fatal on the first pagination
// iteration (failOnRequired).
func (s *requestState) collectParams(params map[string]any, parameters []*schema.Parameter, failOnRequired bool) error {
	for _, p := range parameters {
		value, present := params[p.Name]
		if p.Required && !present && failOnRequired {
			return fmt.Errorf("missing required parameter %q", p.Name)
		}
		if !present {
			continue
		}
		switch p.In {
		case schema.ParamLocationQuery:
			s.query[p.Name] = value
		case schema.ParamLocationHeader:
			s.header[p.Name] = value
		case schema.ParamLocationPath:
			s.pathVar[p.Name] = value
		case schema.ParamLocationCookie:
			return fmt.Errorf("cookie parameters are unimplemented: %w", connectorerr.ErrUnimplemented)
		default:
			return fmt.Errorf("unrecognized parameter location %q", p.In)
		}
	}
	s.header["User-Agent"] = UserAgent
	return nil
}

func (r *Runner) handleAuth(s *requestState, manifest *schema.HTTPManifest, creds *schema.Authentication, identifier string) error {
	if manifest == nil || manifest.Auth == nil {
		return nil
	}
	auth := manifest.Auth

	switch auth.Type {
	case schema.AuthTypeHeader:
		if auth.HeaderName == "" {
			return connectorerr.New(connectorerr.ErrInvalidAuthParameter, identifier, "header")
		}
		if creds == nil || creds.Header == nil {
			return connectorerr.New(connectorerr.ErrNotFound, identifier, "credentials")
		}
		s.header[auth.HeaderName] = creds.Header.Value

	case schema.AuthTypeQuery:
		if auth.QueryName == "" {
			return connectorerr.New(connectorerr.ErrInvalidAuthParameter, identifier, "name")
		}
		if creds == nil || creds.Query == nil {
			return connectorerr.New(connectorerr.ErrNotFound, identifier, "credentials")
		}
		s.query[auth.QueryName] = creds.Query.Value

	case schema.AuthTypePath:
		if auth.PathName == "" {
			return connectorerr.New(connectorerr.ErrInvalidAuthParameter, identifier, "path")
		}
		if creds == nil || creds.Path == nil {
			return connectorerr.New(connectorerr.ErrNotFound, identifier, "credentials")
		}
		s.pathVar[auth.PathName] = creds.Path.Value

	case schema.AuthTypeBasic:
		if creds == nil || creds.Basic == nil {
			return connectorerr.New(connectorerr.ErrNotFound, identifier, "credentials")
		}
		encoded := base64.StdEncoding.EncodeToString([]byte(creds.Basic.Username + ":" + creds.Basic.Password))
		s.header["Authorization"] = "Basic " + encoded

	case schema.AuthTypeOAuth:
		if auth.OAuth == nil || auth.OAuth.HeaderName == "" {
			return connectorerr.New(connectorerr.ErrInvalidAuthParameter, identifier, "header")
		}
		if creds == nil || creds.OAuth == nil || creds.OAuth.AccessToken == "" {
			return connectorerr.New(connectorerr.ErrNotFound, identifier, "access token")
		}
		token := &oauth2.Token{
			AccessToken:  creds.OAuth.AccessToken,
			RefreshToken: creds.OAuth.RefreshToken,
		}
		if creds.OAuth.ExpiryUnix > 0 {
			token.Expiry = time.Unix(creds.OAuth.ExpiryUnix, 0)
		}
		tokenType := auth.OAuth.TokenType
		if tokenType == "" {
			tokenType = "Bearer"
		}
		s.header[auth.OAuth.HeaderName] = tokenType + " " + token.AccessToken

	case schema.AuthTypeMultiHeader:
		if creds == nil || creds.MultiHeader == nil {
			return connectorerr.New(connectorerr.ErrNotFound, identifier, "credentials")
		}
		for _, name := range auth.MultiHeaderNames {
			value, ok := creds.MultiHeader.Values[name]
			if !ok {
				return connectorerr.New(connectorerr.ErrMissingRequiredParam, identifier, name)
			}
			s.header[name] = value
		}
	}
	return nil
}

// handlePagination sets this page's pagination parameters and returns the
// requested page size (0 for non-paginated strategies).
func handlePagination(s *requestState, p schema.Pagination, previous any, currentPage int, parameters []*schema.Parameter) (int, error) {
	switch p.Kind {
	case schema.PaginationKindPageOffset:
		cfg := p.PageOffset
		page := cfg.StartPage + currentPage
		if err := applyRuntimeExpression(s, cfg.PageParam, page, parameters); err != nil {
			return 0, err
		}
		if err := applyRuntimeExpression(s, cfg.LimitParam, cfg.MaxLimit, parameters); err != nil {
			return 0, err
		}
		return cfg.MaxLimit, nil

	case schema.PaginationKindOffset:
		cfg := p.Offset
		if err := applyRuntimeExpression(s, cfg.OffsetParam, currentPage, parameters); err != nil {
			return 0, err
		}
		if err := applyRuntimeExpression(s, cfg.LimitParam, cfg.MaxLimit, parameters); err != nil {
			return 0, err
		}
		return cfg.MaxLimit, nil

	case schema.PaginationKindMultiCursor:
		cfg := p.MultiCursor
		if err := applyRuntimeExpression(s, cfg.LimitParam, cfg.MaxLimit, parameters); err != nil {
			return 0, err
		}
		if previous != nil && len(cfg.CursorsPath) > 0 && len(cfg.CursorsParam) > 0 {
			cursor, err := extractPath(previous, cfg.CursorsPath[0])
			if err != nil {
				return 0, err
			}
			if err := applyRuntimeExpression(s, cfg.CursorsParam[0], cursor, parameters); err != nil {
				return 0, err
			}
		}
		return cfg.MaxLimit, nil

	case schema.PaginationKindNextURL, schema.PaginationKindUnpaginated:
		// schema.Connector.Validate rejects PaginationKindNextURL at load
		// time, so this case is only ever reached for Unpaginated.
		return 0, nil

	default:
		return 0, nil
	}
}

// applyRuntimeExpression writes value into the outgoing request per the
// runtime-expression grammar ($request.{query|path|header|body#ptr}.name),
// or, if expression is not a "$request...." form, looks it up as a
// declared parameter and routes by its `in`.
func applyRuntimeExpression(s *requestState, expression string, value any, parameters []*schema.Parameter) error {
	if !strings.HasPrefix(expression, "$request.") {
		params := map[string]any{expression: value}
		return s.collectParams(params, parameters, false)
	}

	rest := strings.TrimPrefix(expression, "$request.")
	switch {
	case strings.HasPrefix(rest, "query."):
		s.query[strings.TrimPrefix(rest, "query.")] = value
	case strings.HasPrefix(rest, "path."):
		s.pathVar[strings.TrimPrefix(rest, "path.")] = value
	case strings.HasPrefix(rest, "header."):
		s.header[strings.TrimPrefix(rest, "header.")] = value
	case strings.HasPrefix(rest, "body#"):
		if !s.hasBody {
			return connectorerr.New(connectorerr.ErrInvalidRuntimeExpr, expression, "no body present")
		}
		ptrPath := strings.TrimPrefix(rest, "body#")
		ptr, err := jsonpointer.New(ptrPath)
		if err != nil {
			return connectorerr.Wrap(connectorerr.ErrInvalidRuntimeExpr, expression, err)
		}
		updated, err := ptr.Set(s.body, value)
		if err != nil {
			return connectorerr.Wrap(connectorerr.ErrInvalidRuntimeExpr, expression, err)
		}
		s.body = updated
	default:
		return connectorerr.New(connectorerr.ErrInvalidRuntimeExpr, expression, "")
	}
	return nil
}

func extractPath(document any, path string) (any, error) {
	ptrPath := stripResponseBodyPrefix(path)
	if ptrPath == "" || ptrPath == "/" {
		return document, nil
	}
	ptr, err := jsonpointer.New(ptrPath)
	if err != nil {
		return nil, err
	}
	value, _, err := ptr.Get(document)
	return value, err
}

func stripResponseBodyPrefix(path string) string {
	path = strings.TrimPrefix(path, responseBodyPrefix)
	if path == "" {
		return ""
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// findResults applies the pagination-specific resultsPath to the response
// body, first stripping the response-body sentinel prefix. An empty path
// means the whole body.
func findResults(response any, p schema.Pagination) (any, error) {
	path := resultsPathOf(p)
	if path == "" {
		return response, nil
	}
	return extractPath(response, path)
}

func resultsPathOf(p schema.Pagination) string {
	switch p.Kind {
	case schema.PaginationKindPageOffset:
		return p.PageOffset.ResultsPath
	case schema.PaginationKindOffset:
		return p.Offset.ResultsPath
	case schema.PaginationKindNextURL:
		return p.NextURL.ResultsPath
	case schema.PaginationKindMultiCursor:
		return p.MultiCursor.ResultsPath
	case schema.PaginationKindUnpaginated:
		return p.Unpaginated.ResultsPath
	default:
		return ""
	}
}

func segmentLength(segment any) int {
	if arr, ok := segment.([]any); ok {
		return len(arr)
	}
	return 1
}

// send performs the HTTP request, logging request and response, wrapped in
// the circuit breaker and retryer. responses is consulted against the
// response status code to detect a declared error response, matching
// "200"/"2xx"/"*"-style patterns.
func (r *Runner) send(identifier string, s *requestState, responses map[string]*schema.Schema) (any, error) {
	var result any
	err := r.cb.Execute(func() error {
		return r.retry.Do(func() error {
			res, status, sendErr := r.sendOnce(identifier, s)
			if sendErr != nil {
				return sendErr
			}
			if errSchema, ok := matchResponseSchema(responses, status); ok && status >= 400 {
				return connectorerr.New(connectorerr.ErrNetwork, identifier, responseErrorDetail(errSchema, status, res))
			}
			result = res
			return nil
		})
	})
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrNetwork, identifier, err)
	}
	return result, nil
}

// matchResponseSchema looks up the schema declared for status among
// responses, matching "2xx"/"*"-style patterns via a byte-wildcard trie
// (exact code beats a single-digit wildcard class).
func matchResponseSchema(responses map[string]*schema.Schema, status int) (*schema.Schema, bool) {
	if len(responses) == 0 || status == 0 {
		return nil, false
	}
	t := trie.New[*schema.Schema](nil)
	for pattern, s := range responses {
		t.Insert(pattern, s)
	}
	return t.Find(strconv.Itoa(status))
}

func responseErrorDetail(s *schema.Schema, status int, body any) string {
	detail := fmt.Sprintf("status %d", status)
	if s != nil && s.Kind != "" {
		detail += fmt.Sprintf(" (declared response kind %q)", s.Kind)
	}
	if raw, err := json.Marshal(body); err == nil {
		detail += " body=" + string(raw)
	}
	return detail
}

func (r *Runner) sendOnce(identifier string, s *requestState) (any, int, error) {
	endpoint, err := s.resolveEndpoint()
	if err != nil {
		return nil, 0, connectorerr.Wrap(connectorerr.ErrURLParse, identifier, err)
	}

	var bodyReader io.Reader
	if s.hasBody {
		raw, err := json.Marshal(s.body)
		if err != nil {
			return nil, 0, connectorerr.Wrap(connectorerr.ErrJSON, identifier, err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(s.method, endpoint, bodyReader)
	if err != nil {
		return nil, 0, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}
	for key, value := range s.header {
		simple, err := simplifyValue(value)
		if err != nil {
			return nil, 0, connectorerr.Wrap(connectorerr.ErrHeader, identifier, err)
		}
		req.Header.Set(key, simple)
	}

	r.logger.Info("http request",
		zap.String("identifier", identifier),
		zap.String("method", s.method),
		zap.String("url", endpoint),
		zap.Any("headers", redactedHeaders(s.header)),
	)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, connectorerr.Wrap(connectorerr.ErrNetwork, identifier, err)
	}
	defer resp.Body.Close()

	raw, err := decodeBody(resp)
	if err != nil {
		return nil, 0, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}

	r.logger.Info("http response",
		zap.String("identifier", identifier),
		zap.Int("status", resp.StatusCode),
	)

	if len(raw) == 0 {
		return nil, resp.StatusCode, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Non-JSON responses are preserved as a string value.
		return string(raw), resp.StatusCode, nil
	}
	return decoded, resp.StatusCode, nil
}

func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}
	return io.ReadAll(reader)
}

func redactedHeaders(headers map[string]any) map[string]any {
	redacted := make(map[string]any, len(headers))
	for k, v := range headers {
		if strings.EqualFold(k, "Authorization") {
			redacted[k] = "***"
			continue
		}
		redacted[k] = v
	}
	return redacted
}

func (s *requestState) resolveEndpoint() (string, error) {
	endpoint := s.base
	if s.path != "" {
		endpoint = s.base + "/" + s.path
	}
	for key, value := range s.pathVar {
		simple, err := simplifyValue(value)
		if err != nil {
			return "", err
		}
		endpoint = strings.ReplaceAll(endpoint, "{"+key+"}", url.PathEscape(simple))
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if len(s.query) > 0 {
		q := u.Query()
		for key, value := range s.query {
			simple, err := simplifyValue(value)
			if err != nil {
				return "", err
			}
			q.Set(key, simple)
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// simplifyValue renders a scalar parameter value as a string for
// header/query/path placement; arrays and objects cannot be simplified
// this way.
func simplifyValue(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case nil:
		return "null", nil
	default:
		return "", fmt.Errorf("httprunner: cannot simplify %T to a scalar value", value)
	}
}
