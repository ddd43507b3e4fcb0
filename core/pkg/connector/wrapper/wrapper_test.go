package wrapper

import (
	"testing"

	"github.com/madcok-co/conduit/core/pkg/connector/engine"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

type fakeDispatcher struct {
	gotID     string
	gotParams any
	gotCtx    *engine.ExecutionContext
	ret       any
}

func (f *fakeDispatcher) Run(id string, params, options any, ctx *engine.ExecutionContext) (any, error) {
	f.gotID = id
	f.gotParams = params
	f.gotCtx = ctx
	return f.ret, nil
}

func TestWrapperPathPlacement(t *testing.T) {
	dispatcher := &fakeDispatcher{ret: map[string]any{"id": float64(42)}}
	r := New(dispatcher)

	manifest := &schema.WrapperManifest{
		ConnectorID:        "grp/app:v1",
		ConnectorOperation: "createUser",
		Inputs: []*schema.InputMapping{
			{SourceName: "user", APIParamName: "body.user.id"},
		},
		OutputSelectors: []*schema.OutputSelector{
			{Name: "userId", JMESPathSelector: "id"},
		},
	}

	result, err := r.Run("wrapperName", "op", manifest, map[string]any{"user": float64(42)}, &engine.ExecutionContext{ExecutionID: "exec-1"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if dispatcher.gotID != "app.createUser" {
		t.Fatalf("wrapped id = %q, want %q", dispatcher.gotID, "app.createUser")
	}
	body, ok := dispatcher.gotParams.(map[string]any)
	if !ok {
		t.Fatalf("expected map input, got %#v", dispatcher.gotParams)
	}
	bodyField, ok := body["body"].(map[string]any)
	if !ok {
		t.Fatalf("expected body.user.id placement, got %#v", body)
	}
	userField := bodyField["user"].(map[string]any)
	if userField["id"] != float64(42) {
		t.Fatalf("expected id=42, got %#v", userField)
	}
	if !dispatcher.gotCtx.RawResponse {
		t.Fatal("wrapped call must set raw_response=true")
	}
	if dispatcher.gotCtx.Parent != "wrapperName" {
		t.Fatalf("expected parent=wrapperName, got %q", dispatcher.gotCtx.Parent)
	}

	out, ok := result.(map[string]any)
	if !ok || out["userId"] != float64(42) {
		t.Fatalf("expected output selector userId=42, got %#v", result)
	}
}

func TestExtractConnectorID(t *testing.T) {
	app, err := extractConnectorID("myteam/slack:v2")
	if err != nil || app != "slack" {
		t.Fatalf("extractConnectorID = (%q, %v), want (\"slack\", nil)", app, err)
	}

	if _, err := extractConnectorID("not-a-valid-id"); err == nil {
		t.Fatal("expected error for malformed connector id")
	}
}

func TestTraverseConflict(t *testing.T) {
	current := map[string]any{"body": "not-an-object"}
	err := traverse(current, []string{"body", "user", "id"}, 1)
	if err == nil {
		t.Fatal("expected conflict error when intermediate path segment is not an object")
	}
}
