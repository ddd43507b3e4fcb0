package engine

import (
	"errors"
	"testing"

	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

type fakeLookup struct {
	services    map[string]*schema.Connector
	credentials map[string]*schema.Authentication
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{services: map[string]*schema.Connector{}, credentials: map[string]*schema.Authentication{}}
}

func (l *fakeLookup) GetService(name string) (*schema.Connector, bool) {
	s, ok := l.services[name]
	return s, ok
}

func (l *fakeLookup) GetCredentials(name string) (*schema.Authentication, bool) {
	c, ok := l.credentials[name]
	return c, ok
}

type fakeHTTPRunner struct {
	calls []string
	ret   any
	err   error
}

func (f *fakeHTTPRunner) Run(name, op string, bundle *DataConnectorBundle, params, options any, ctx *ExecutionContext) (any, error) {
	f.calls = append(f.calls, name+"."+op)
	return f.ret, f.err
}

type reentrantCodeRunner struct {
	engine *Engine
}

func (r *reentrantCodeRunner) Run(name, op, source string, params any, ctx *ExecutionContext) (any, error) {
	// Simulates `def execute(x): return api.run("this.inner", x)`.
	child := ctx.ChildFor(name, false)
	return r.engine.Run("this.inner", params, nil, child)
}

func TestRunHTTPManifestWrapsResultInArray(t *testing.T) {
	lookup := newFakeLookup()
	lookup.services["github"] = &schema.Connector{
		Name:      "github",
		Manifest:  &schema.Manifest{Kind: schema.ManifestHTTP, HTTP: &schema.HTTPManifest{}},
		CommonAPI: &schema.CommonAPI{},
	}
	e := New(lookup, nil)
	httpRunner := &fakeHTTPRunner{ret: "hello"}
	e.RegisterHTTPRunner(httpRunner)

	result, err := e.Run("github.listRepos", map[string]any{}, nil, &ExecutionContext{ExecutionID: "exec-1"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	arr, ok := result.([]any)
	if !ok || len(arr) != 1 || arr[0] != "hello" {
		t.Fatalf("Run result = %#v, want [\"hello\"]", result)
	}
	if len(httpRunner.calls) != 1 || httpRunner.calls[0] != "github.listRepos" {
		t.Fatalf("unexpected runner calls: %v", httpRunner.calls)
	}
}

func TestRunRawResponseSkipsWrapping(t *testing.T) {
	lookup := newFakeLookup()
	lookup.services["github"] = &schema.Connector{
		Name:      "github",
		Manifest:  &schema.Manifest{Kind: schema.ManifestHTTP, HTTP: &schema.HTTPManifest{}},
		CommonAPI: &schema.CommonAPI{},
	}
	e := New(lookup, nil)
	e.RegisterHTTPRunner(&fakeHTTPRunner{ret: map[string]any{"raw": true}})

	result, err := e.Run("github.op", nil, nil, &ExecutionContext{RawResponse: true})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if m, ok := result.(map[string]any); !ok || m["raw"] != true {
		t.Fatalf("expected raw map passthrough, got %#v", result)
	}
}

func TestRunAlreadyArrayIsNotDoubleWrapped(t *testing.T) {
	lookup := newFakeLookup()
	lookup.services["svc"] = &schema.Connector{
		Name:      "svc",
		Manifest:  &schema.Manifest{Kind: schema.ManifestHTTP, HTTP: &schema.HTTPManifest{}},
		CommonAPI: &schema.CommonAPI{},
	}
	e := New(lookup, nil)
	e.RegisterHTTPRunner(&fakeHTTPRunner{ret: []any{"a", "b"}})

	result, err := e.Run("svc.op", nil, nil, &ExecutionContext{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	arr := result.([]any)
	if len(arr) != 2 {
		t.Fatalf("expected pass-through array of len 2, got %v", arr)
	}
}

func TestRunInvalidIdentifier(t *testing.T) {
	e := New(newFakeLookup(), nil)
	if _, err := e.Run("nodot", nil, nil, &ExecutionContext{}); err == nil {
		t.Fatal("expected error for malformed identifier")
	}
}

func TestRunUnknownServiceIsNotFound(t *testing.T) {
	e := New(newFakeLookup(), nil)
	_, err := e.Run("missing.op", nil, nil, &ExecutionContext{})
	if err == nil {
		t.Fatal("expected NotFound error")
	}
}

func TestThisSubstitutionMatchesExplicitName(t *testing.T) {
	lookup := newFakeLookup()
	lookup.services["connector"] = &schema.Connector{
		Name:      "connector",
		Manifest:  &schema.Manifest{Kind: schema.ManifestHTTP, HTTP: &schema.HTTPManifest{}},
		CommonAPI: &schema.CommonAPI{},
	}
	e := New(lookup, nil)
	runner := &fakeHTTPRunner{ret: "x"}
	e.RegisterHTTPRunner(runner)

	if _, err := e.Run("connector.op", nil, nil, &ExecutionContext{Parent: "connector"}); err != nil {
		t.Fatalf("connector.op failed: %v", err)
	}
	if _, err := e.Run("this.op", nil, nil, &ExecutionContext{Parent: "connector"}); err != nil {
		t.Fatalf("this.op failed: %v", err)
	}
	if len(runner.calls) != 2 || runner.calls[0] != runner.calls[1] {
		t.Fatalf("run(\"connector.op\") and run(\"this.op\") should be equivalent, got %v", runner.calls)
	}
}

func TestReentrantActionCall(t *testing.T) {
	lookup := newFakeLookup()
	lookup.services["mailer"] = &schema.Connector{
		Name: "mailer",
		Manifest: &schema.Manifest{
			Kind: schema.ManifestAction,
			Action: &schema.ActionManifest{
				Source: "src",
				Operations: map[string]*schema.CodeOp{
					"outer": {Language: schema.LanguagePython, File: "outer.py"},
					"inner": {Language: schema.LanguagePython, File: "inner.py"},
				},
			},
		},
		Sources: map[string]string{
			"src/outer.py": "def execute(x): return api.run('this.inner', x)",
			"src/inner.py": "def execute(x): return x",
		},
	}
	e := New(lookup, nil)
	e.RegisterCodeRunner(schema.LanguagePython, &reentrantCodeRunner{engine: e})

	result, err := e.Run("mailer.outer", "hi", nil, &ExecutionContext{ExecutionID: "exec-9"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	arr, ok := result.([]any)
	if !ok || len(arr) != 1 {
		t.Fatalf("unexpected shape: %#v", result)
	}
	inner := arr[0].([]any)
	if len(inner) != 1 || inner[0] != "hi" {
		t.Fatalf("expected nested call result [\"hi\"], got %#v", inner)
	}
}

func TestRunResultLifecycle(t *testing.T) {
	e := New(newFakeLookup(), nil)
	e.StartRun("exec-1")
	if got := e.GetRunResult("exec-1").Status; got != RunStatusRunning {
		t.Fatalf("expected Running, got %v", got)
	}
	e.CompleteRun("exec-1", map[string]any{"ok": true})
	if got := e.GetRunResult("exec-1").Status; got != RunStatusCompleted {
		t.Fatalf("expected Completed, got %v", got)
	}
	e.FailRun("exec-2", errors.New("boom"))
	result := e.GetRunResult("exec-2")
	if result.Status != RunStatusError || result.Output == "" {
		t.Fatalf("expected Error status with output, got %+v", result)
	}
	if got := e.GetRunResult("exec-unknown").Status; got != RunStatusNotFound {
		t.Fatalf("expected NotFound for unknown execution id, got %v", got)
	}
}
