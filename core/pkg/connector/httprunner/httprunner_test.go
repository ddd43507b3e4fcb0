package httprunner

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/madcok-co/conduit/core/pkg/connector/engine"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

func newTestServer(t *testing.T, pages [][]int) *httptest.Server {
	t.Helper()
	call := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if call >= len(pages) {
			http.Error(w, "no more pages", http.StatusInternalServerError)
			return
		}
		body := map[string]any{"items": pages[call]}
		call++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
}

func TestRun_PageOffsetPagination(t *testing.T) {
	server := newTestServer(t, [][]int{{1, 2}, {3}})
	defer server.Close()

	bundle := &engine.DataConnectorBundle{
		Manifest: &schema.HTTPManifest{Source: "swagger.yaml"},
		API: &schema.CommonAPI{
			BasePath: server.URL,
			Operations: map[string]*schema.Operation{
				"list": {
					Name:   "list",
					Method: schema.HTTPMethodGet,
					PathTemplate: "/items",
					Pagination: schema.Pagination{
						Kind: schema.PaginationKindPageOffset,
						PageOffset: &schema.PageOffsetPagination{
							PageParam:   "page",
							StartPage:   1,
							LimitParam:  "limit",
							MaxLimit:    2,
							ResultsPath: "$response.body#/items",
						},
					},
				},
			},
		},
	}

	r := New(nil)
	ctx := &engine.ExecutionContext{ExecutionID: "exec-1"}
	result, err := r.Run("svc", "list", bundle, map[string]any{}, map[string]any{"limit": 10}, ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	items, ok := result.([]any)
	if !ok {
		t.Fatalf("expected []any result, got %T", result)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 flattened items, got %d: %v", len(items), items)
	}
}

func TestRun_RawResponseSkipsFlattening(t *testing.T) {
	server := newTestServer(t, [][]int{{1, 2}})
	defer server.Close()

	bundle := &engine.DataConnectorBundle{
		Manifest: &schema.HTTPManifest{Source: "swagger.yaml"},
		API: &schema.CommonAPI{
			BasePath: server.URL,
			Operations: map[string]*schema.Operation{
				"list": {
					Name:         "list",
					Method:       schema.HTTPMethodGet,
					PathTemplate: "/items",
					Pagination: schema.Pagination{
						Kind:        schema.PaginationKindUnpaginated,
						Unpaginated: &schema.UnpaginatedPagination{ResultsPath: "$response.body#/items"},
					},
				},
			},
		},
	}

	r := New(nil)
	ctx := &engine.ExecutionContext{ExecutionID: "exec-2", RawResponse: true}
	result, err := r.Run("svc", "list", bundle, map[string]any{}, nil, ctx)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected raw map[string]any result, got %T", result)
	}
	if _, ok := m["items"]; !ok {
		t.Fatalf("expected raw response to retain 'items' key, got %v", m)
	}
}

func TestRun_CookieParameterUnimplemented(t *testing.T) {
	bundle := &engine.DataConnectorBundle{
		Manifest: &schema.HTTPManifest{Source: "swagger.yaml"},
		API: &schema.CommonAPI{
			BasePath: "http://example.invalid",
			Operations: map[string]*schema.Operation{
				"list": {
					Name:         "list",
					Method:       schema.HTTPMethodGet,
					PathTemplate: "/items",
					Parameters: []*schema.Parameter{
						{Name: "session", In: schema.ParamLocationCookie, Required: false},
					},
					Pagination: schema.Pagination{
						Kind:        schema.PaginationKindUnpaginated,
						Unpaginated: &schema.UnpaginatedPagination{ResultsPath: ""},
					},
				},
			},
		},
	}

	r := New(nil)
	ctx := &engine.ExecutionContext{ExecutionID: "exec-3"}
	_, err := r.Run("svc", "list", bundle, map[string]any{"session": "abc"}, nil, ctx)
	if err == nil {
		t.Fatal("expected an error for a cookie-location parameter")
	}
}

func TestRun_DeclaredErrorResponseStatusMatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"message": "missing"})
	}))
	defer server.Close()

	bundle := &engine.DataConnectorBundle{
		Manifest: &schema.HTTPManifest{Source: "swagger.yaml"},
		API: &schema.CommonAPI{
			BasePath: server.URL,
			Operations: map[string]*schema.Operation{
				"get": {
					Name:         "get",
					Method:       schema.HTTPMethodGet,
					PathTemplate: "/items/1",
					Responses: map[string]*schema.Schema{
						"4xx": {Kind: schema.SchemaKindObject},
					},
					Pagination: schema.Pagination{
						Kind:        schema.PaginationKindUnpaginated,
						Unpaginated: &schema.UnpaginatedPagination{ResultsPath: ""},
					},
				},
			},
		},
	}

	r := New(nil)
	ctx := &engine.ExecutionContext{ExecutionID: "exec-4"}
	_, err := r.Run("svc", "get", bundle, map[string]any{}, nil, ctx)
	if err == nil {
		t.Fatal("expected a declared 4xx response to surface as an error")
	}
}

func TestHandleAuth_HeaderBinding(t *testing.T) {
	r := New(nil)
	state := newRequestState()
	manifest := &schema.HTTPManifest{
		Auth: &schema.AuthConfig{Type: schema.AuthTypeHeader, HeaderName: "X-Api-Key"},
	}
	creds := &schema.Authentication{
		Kind:   schema.AuthenticationHeader,
		Header: &schema.ValueCredential{Value: "secret"},
	}
	if err := r.handleAuth(state, manifest, creds, "svc.op"); err != nil {
		t.Fatalf("handleAuth returned error: %v", err)
	}
	if state.header["X-Api-Key"] != "secret" {
		t.Fatalf("expected header to be bound, got %v", state.header)
	}
}
