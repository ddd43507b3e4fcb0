// Package javascript implements the embedded JavaScript code runner:
// source wrapping/discovery, the api/workflow/action/task capability
// object, and boundary value conversion, run on goja (a pure-Go
// ECMAScript VM). Both language runners expose the same capability
// surface.
package javascript

import (
	"fmt"
	"regexp"
	"time"

	"github.com/dop251/goja"
	"github.com/madcok-co/conduit/core/pkg/connector/coderunner"
	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/engine"
)

// arrowFunctionPattern matches `(params) => { ... }` or `params => { ... }`.
var arrowFunctionPattern = regexp.MustCompile(`(?s)^\s*\(?\s*(?P<params>[\w\s,]*)\s*\)?\s*=>\s*\{(?P<body>.*)\}\s*$`)

// namedFunctionPattern matches `function name(params) { ... }`.
var namedFunctionPattern = regexp.MustCompile(`(?s)^\s*function\s+(?P<name>\w+)\s*\(\s*(?P<params>[\w\s,]*)\s*\)\s*\{(?P<body>.*)\}\s*$`)

// Dispatcher is the narrow reentrant-call slice of the engine.
type Dispatcher interface {
	Run(identifier string, params, options any, ctx *engine.ExecutionContext) (any, error)
}

// Runner implements engine.CodeRunner for JavaScript.
type Runner struct {
	engine Dispatcher
	logger *coderunner.Logger
}

// New builds a JavaScript code runner.
func New(engine Dispatcher, logger *coderunner.Logger) *Runner {
	if logger == nil {
		logger = coderunner.NewLogger(nil, nil)
	}
	return &Runner{engine: engine, logger: logger}
}

// Run implements engine.CodeRunner.
func (r *Runner) Run(name, operationName, sourceCode string, params any, ctx *engine.ExecutionContext) (any, error) {
	identifier := name + "." + operationName

	wrapped, err := wrapSource(sourceCode)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrInvalidRuntimeExpr, identifier, err)
	}

	vm := goja.New()
	rt := &runtime{vm: vm, engine: r.engine, logger: r.logger, self: name, ctx: ctx, identifier: identifier}

	if err := vm.Set("api", rt.apiObject()); err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}
	if err := vm.Set("workflow", rt.workflowObject()); err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}
	if err := vm.Set("action", rt.actionObject()); err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}
	if err := vm.Set("task", rt.taskObject()); err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}

	value, err := vm.RunString(wrapped)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}
	fn, ok := goja.AssertFunction(value)
	if !ok {
		return nil, connectorerr.New(connectorerr.ErrInvalidRuntimeExpr, identifier, "source did not produce a callable function")
	}

	result, err := fn(goja.Undefined(), vm.ToValue(params))
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}

	fnResult := result.Export()
	return rt.output.Resolve(fnResult), nil
}

// wrapSource rewrites the source into a single `function(params) { ... }`
// callable, matching arrow or named-function declarations. Source that is
// neither is fatal.
func wrapSource(source string) (string, error) {
	if match := arrowFunctionPattern.FindStringSubmatch(source); match != nil {
		params := submatch(arrowFunctionPattern, match, "params")
		body := submatch(arrowFunctionPattern, match, "body")
		return fmt.Sprintf("(function(%s) {%s})", params, body), nil
	}
	if match := namedFunctionPattern.FindStringSubmatch(source); match != nil {
		params := submatch(namedFunctionPattern, match, "params")
		body := submatch(namedFunctionPattern, match, "body")
		return fmt.Sprintf("(function(%s) {%s})", params, body), nil
	}
	return "", connectorerr.New(connectorerr.ErrInvalidRuntimeExpr, "", "source declares neither an arrow function nor a named function")
}

// exportValue unwraps a goja argument, mapping an omitted/undefined/null
// argument to nil.
func exportValue(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}

func exportMap(v goja.Value) map[string]any {
	m, _ := exportValue(v).(map[string]any)
	return m
}

func submatch(re *regexp.Regexp, match []string, name string) string {
	for i, n := range re.SubexpNames() {
		if n == name {
			return match[i]
		}
	}
	return ""
}

// runtime holds the per-invocation state the capability objects close over.
type runtime struct {
	vm         *goja.Runtime
	engine     Dispatcher
	logger     *coderunner.Logger
	self       string
	ctx        *engine.ExecutionContext
	identifier string
	output     *coderunner.WorkflowOutput
}

// apiObject implements `api.run(id, params, options?)`, a reentrant call
// forced to raw_response=false.
func (rt *runtime) apiObject() map[string]any {
	return map[string]any{
		"run": func(id string, params any, options goja.Value) (any, error) {
			var opts any
			if options != nil && !goja.IsUndefined(options) {
				opts = options.Export()
			}
			childCtx := rt.ctx.ChildFor(rt.self, false)
			return rt.engine.Run(id, params, opts, childCtx)
		},
	}
}

// workflowObject implements workflow.log.{info,warn,fail,done,status}.
func (rt *runtime) workflowObject() map[string]any {
	logMap := map[string]any{
		"info": func(msg string) { rt.logger.Workflow.Info(msg) },
		"warn": func(msg string) { rt.logger.Workflow.Warn(msg) },
		"fail": func(msg string, standard, custom goja.Value) {
			rt.logger.Workflow.Error(msg)
			rt.output = &coderunner.WorkflowOutput{Standard: exportValue(standard), Custom: exportMap(custom)}
		},
		"done": func(msg string, standard, custom goja.Value) {
			rt.logger.Workflow.Info(msg)
			rt.output = &coderunner.WorkflowOutput{Standard: exportValue(standard), Custom: exportMap(custom)}
		},
		"status": func(msg string) { rt.logger.Workflow.Info(msg) },
	}
	return map[string]any{"log": logMap}
}

// actionObject implements action.log.{info,warn,error,post}.
func (rt *runtime) actionObject() map[string]any {
	logMap := map[string]any{
		"info":  func(msg string) { rt.logger.Action.Info(msg) },
		"warn":  func(msg string) { rt.logger.Action.Warn(msg) },
		"error": func(msg string) { rt.logger.Action.Error(msg) },
		"post":  func(msg string) { rt.logger.Action.Info(msg) },
	}
	return map[string]any{"log": logMap}
}

// taskObject implements task.create(id, params), returning a handle with
// continueAfter/continueAfterUserInput.
func (rt *runtime) taskObject() map[string]any {
	return map[string]any{
		"create": func(id string, params any) map[string]any {
			return rt.taskHandle(id, params)
		},
	}
}

func (rt *runtime) taskHandle(id string, params any) map[string]any {
	return map[string]any{
		"continueAfter": func(delay int64, unit string) (any, error) {
			nanos, err := coderunner.DelayNanos(delay, coderunner.TimeUnit(unit))
			if err != nil {
				return nil, err
			}
			time.Sleep(time.Duration(nanos))
			childCtx := rt.ctx.ChildFor(rt.self, false)
			return rt.engine.Run(id, params, nil, childCtx)
		},
		"continueAfterUserInput": func(blocks any) (any, error) {
			childCtx := rt.ctx.ChildFor(rt.self, false)
			inputResult, err := rt.engine.Run(engine.InputIdentifier, blocks, nil, childCtx)
			if err != nil {
				return nil, err
			}
			paramsMap, ok := params.(map[string]any)
			if !ok {
				return nil, connectorerr.New(connectorerr.ErrInvalidRuntimeExpr, id, "task params must be an object to receive input_results")
			}
			merged := make(map[string]any, len(paramsMap)+1)
			for k, v := range paramsMap {
				merged[k] = v
			}
			merged["input_results"] = inputResult
			return rt.engine.Run(id, merged, nil, childCtx)
		},
	}
}
