package javascript

import (
	"testing"

	"github.com/madcok-co/conduit/core/pkg/connector/engine"
)

type stubDispatcher struct {
	fn func(identifier string, params, options any, ctx *engine.ExecutionContext) (any, error)
}

func (s *stubDispatcher) Run(identifier string, params, options any, ctx *engine.ExecutionContext) (any, error) {
	return s.fn(identifier, params, options, ctx)
}

func TestRun_ArrowFunction(t *testing.T) {
	source := `(params) => {
		return params.x + 1;
	}`
	r := New(&stubDispatcher{}, nil)
	result, err := r.Run("svc", "op", source, map[string]any{"x": 1.0}, &engine.ExecutionContext{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	got, ok := result.(int64)
	if !ok {
		f, isFloat := result.(float64)
		if !isFloat {
			t.Fatalf("expected numeric result, got %T (%v)", result, result)
		}
		got = int64(f)
	}
	if got != 2 {
		t.Fatalf("expected 2, got %v", result)
	}
}

func TestRun_NamedFunction(t *testing.T) {
	source := `function execute(params) {
		return { doubled: params.n * 2 };
	}`
	r := New(&stubDispatcher{}, nil)
	result, err := r.Run("svc", "op", source, map[string]any{"n": 3.0}, &engine.ExecutionContext{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("expected map result, got %T", result)
	}
	if m["doubled"] != int64(6) && m["doubled"] != float64(6) {
		t.Fatalf("expected doubled=6, got %v", m["doubled"])
	}
}

func TestRun_ReentrantAPICall(t *testing.T) {
	var sawIdentifier string
	var sawRawResponse bool
	dispatcher := &stubDispatcher{
		fn: func(identifier string, params, options any, ctx *engine.ExecutionContext) (any, error) {
			sawIdentifier = identifier
			sawRawResponse = ctx.RawResponse
			return map[string]any{"echo": params}, nil
		},
	}
	source := `(params) => {
		return api.run("other.op", params);
	}`
	r := New(dispatcher, nil)
	_, err := r.Run("svc", "op", source, map[string]any{"a": 1.0}, &engine.ExecutionContext{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sawIdentifier != "other.op" {
		t.Fatalf("expected reentrant call to other.op, got %q", sawIdentifier)
	}
	if sawRawResponse {
		t.Fatal("expected api.run's child context to force raw_response=false")
	}
}

func TestWrapSource_UnrecognizedSourceIsFatal(t *testing.T) {
	if _, err := wrapSource("return 1;"); err == nil {
		t.Fatal("expected an error for source that is neither an arrow nor a named function")
	}
}

func TestRun_WorkflowDoneOverridesReturnValue(t *testing.T) {
	source := `(params) => {
		workflow.log.done("finished", params.std, params.custom);
		return "function-return";
	}`
	r := New(&stubDispatcher{}, nil)

	result, err := r.Run("svc", "op", source, map[string]any{
		"std":    "std-out",
		"custom": map[string]any{"picked": true},
	}, &engine.ExecutionContext{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	m, ok := result.(map[string]any)
	if !ok || m["picked"] != true {
		t.Fatalf("expected custom output to win, got %#v", result)
	}

	result, err = r.Run("svc", "op", `(params) => {
		workflow.log.done("finished", params.std);
		return "function-return";
	}`, map[string]any{"std": "std-out"}, &engine.ExecutionContext{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	m, ok = result.(map[string]any)
	if !ok || m["standard"] != "std-out" {
		t.Fatalf("expected standard output under \"standard\", got %#v", result)
	}
}
