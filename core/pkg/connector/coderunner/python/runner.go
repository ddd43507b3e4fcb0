// Package python implements the embedded Python code runner:
// function-name discovery, the api/workflow/action/task capability
// object, and boundary value conversion, run on gpython (a pure-Go
// Python implementation).
package python

import (
	"fmt"
	"regexp"
	"time"

	"github.com/go-python/gpython/py"
	_ "github.com/go-python/gpython/stdlib"

	"github.com/madcok-co/conduit/core/pkg/connector/coderunner"
	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/engine"
)

// functionNamePattern extracts the entry point's name from a `def name(x):`
// declaration; defaults to "execute" when absent.
var functionNamePattern = regexp.MustCompile(`def\s*(?P<name>\w+)\s*\(\s*\w+\s*\)\s*:`)

const defaultFunctionName = "execute"

// Dispatcher is the narrow reentrant-call slice of the engine.
type Dispatcher interface {
	Run(identifier string, params, options any, ctx *engine.ExecutionContext) (any, error)
}

// Runner implements engine.CodeRunner for Python.
type Runner struct {
	engine Dispatcher
	logger *coderunner.Logger
}

// New builds a Python code runner.
func New(engine Dispatcher, logger *coderunner.Logger) *Runner {
	if logger == nil {
		logger = coderunner.NewLogger(nil, nil)
	}
	return &Runner{engine: engine, logger: logger}
}

// Run implements engine.CodeRunner.
func (r *Runner) Run(name, operationName, sourceCode string, params any, ctx *engine.ExecutionContext) (any, error) {
	identifier := name + "." + operationName
	funcName := discoverFunctionName(sourceCode)

	pyCtx := py.NewContext(py.DefaultContextOpts())
	defer pyCtx.Close()

	rt := &runtime{engine: r.engine, logger: r.logger, self: name, ctx: ctx, identifier: identifier}

	// The module-level code only defines functions; the capability objects
	// are installed into the module globals afterwards, before the entry
	// point is called, so name resolution finds them at call time.
	module, err := py.RunSrc(pyCtx, sourceCode, identifier, nil)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}

	for binding, build := range map[string]func(py.Context) (*py.Module, error){
		"api":      rt.apiObject,
		"workflow": rt.workflowObject,
		"action":   rt.actionObject,
		"task":     rt.taskObject,
	} {
		obj, err := build(pyCtx)
		if err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
		}
		module.Globals[binding] = obj
	}

	fn, ok := module.Globals[funcName]
	if !ok {
		return nil, connectorerr.New(connectorerr.ErrInvalidRuntimeExpr, identifier, "function "+funcName+" not defined")
	}

	pyParams, err := goToPy(params)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}

	result, err := py.Call(pyCtx, fn, py.Tuple{pyParams}, nil)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, identifier, err)
	}

	fnResult := pyToGo(result)
	return rt.output.Resolve(fnResult), nil
}

// discoverFunctionName extracts the first `def name(x):` match, falling
// back to "execute" when the source declares no such function.
func discoverFunctionName(source string) string {
	match := functionNamePattern.FindStringSubmatch(source)
	if match == nil {
		return defaultFunctionName
	}
	for i, name := range functionNamePattern.SubexpNames() {
		if name == "name" {
			return match[i]
		}
	}
	return defaultFunctionName
}

type runtime struct {
	engine     Dispatcher
	logger     *coderunner.Logger
	self       string
	ctx        *engine.ExecutionContext
	identifier string
	output     *coderunner.WorkflowOutput
	handles    int
}

func goMethod(name string, fn func(args py.Tuple) (py.Object, error)) *py.Method {
	return py.MustNewMethod(name, func(self py.Object, args py.Tuple) (py.Object, error) {
		return fn(args)
	}, 0, "")
}

// newModule builds a per-invocation module in ctx's store; each Run gets a
// fresh context, so the store names never collide across invocations.
func newModule(ctx py.Context, name string, methods []*py.Method, globals py.StringDict) (*py.Module, error) {
	if globals == nil {
		globals = py.StringDict{}
	}
	return ctx.Store().NewModule(ctx, &py.ModuleImpl{
		Info:    py.ModuleInfo{Name: name},
		Methods: methods,
		Globals: globals,
	})
}

func argAt(args py.Tuple, i int) py.Object {
	if i < len(args) {
		return args[i]
	}
	return py.None
}

// apiObject implements `api.run(id, params, options=None)`.
func (rt *runtime) apiObject(ctx py.Context) (*py.Module, error) {
	return newModule(ctx, "api", []*py.Method{
		goMethod("run", func(args py.Tuple) (py.Object, error) {
			id, _ := argAt(args, 0).(py.String)
			params := pyToGo(argAt(args, 1))
			var opts any
			if len(args) > 2 {
				opts = pyToGo(args[2])
			}
			childCtx := rt.ctx.ChildFor(rt.self, false)
			result, err := rt.engine.Run(string(id), params, opts, childCtx)
			if err != nil {
				return nil, err
			}
			return goToPy(result)
		}),
	}, nil)
}

// workflowObject implements workflow.log.{info,warn,fail,done,status}.
func (rt *runtime) workflowObject(ctx py.Context) (*py.Module, error) {
	logMod, err := newModule(ctx, "workflow.log", []*py.Method{
		goMethod("info", func(args py.Tuple) (py.Object, error) {
			msg, _ := argAt(args, 0).(py.String)
			rt.logger.Workflow.Info(string(msg))
			return py.None, nil
		}),
		goMethod("warn", func(args py.Tuple) (py.Object, error) {
			msg, _ := argAt(args, 0).(py.String)
			rt.logger.Workflow.Warn(string(msg))
			return py.None, nil
		}),
		goMethod("status", func(args py.Tuple) (py.Object, error) {
			msg, _ := argAt(args, 0).(py.String)
			rt.logger.Workflow.Info(string(msg))
			return py.None, nil
		}),
		goMethod("fail", func(args py.Tuple) (py.Object, error) {
			msg, _ := argAt(args, 0).(py.String)
			rt.logger.Workflow.Error(string(msg))
			rt.output = &coderunner.WorkflowOutput{
				Standard: pyToGo(argAt(args, 1)),
				Custom:   asStringMap(pyToGo(argAt(args, 2))),
			}
			return py.None, nil
		}),
		goMethod("done", func(args py.Tuple) (py.Object, error) {
			msg, _ := argAt(args, 0).(py.String)
			rt.logger.Workflow.Info(string(msg))
			rt.output = &coderunner.WorkflowOutput{
				Standard: pyToGo(argAt(args, 1)),
				Custom:   asStringMap(pyToGo(argAt(args, 2))),
			}
			return py.None, nil
		}),
	}, nil)
	if err != nil {
		return nil, err
	}
	return newModule(ctx, "workflow", nil, py.StringDict{"log": logMod})
}

// actionObject implements action.log.{info,warn,error,post}.
func (rt *runtime) actionObject(ctx py.Context) (*py.Module, error) {
	levels := map[string]func(string){
		"info":  rt.logger.Action.Info,
		"warn":  rt.logger.Action.Warn,
		"error": rt.logger.Action.Error,
		"post":  rt.logger.Action.Info,
	}
	methods := make([]*py.Method, 0, len(levels))
	for name, level := range levels {
		lvl := level
		methods = append(methods, goMethod(name, func(args py.Tuple) (py.Object, error) {
			msg, _ := argAt(args, 0).(py.String)
			lvl(string(msg))
			return py.None, nil
		}))
	}
	logMod, err := newModule(ctx, "action.log", methods, nil)
	if err != nil {
		return nil, err
	}
	return newModule(ctx, "action", nil, py.StringDict{"log": logMod})
}

// taskObject implements task.create(id, params), returning a handle object
// with continueAfter/continueAfterUserInput bound methods.
func (rt *runtime) taskObject(ctx py.Context) (*py.Module, error) {
	return newModule(ctx, "task", []*py.Method{
		goMethod("create", func(args py.Tuple) (py.Object, error) {
			id, _ := argAt(args, 0).(py.String)
			params := pyToGo(argAt(args, 1))
			return rt.taskHandle(ctx, string(id), params)
		}),
	}, nil)
}

func (rt *runtime) taskHandle(ctx py.Context, id string, params any) (*py.Module, error) {
	rt.handles++
	name := fmt.Sprintf("task.handle.%d", rt.handles)
	return newModule(ctx, name, []*py.Method{
		goMethod("continueAfter", func(args py.Tuple) (py.Object, error) {
			delay := int64(0)
			switch v := argAt(args, 0).(type) {
			case py.Int:
				delay = int64(v)
			case py.Float:
				delay = int64(v)
			}
			unit, _ := argAt(args, 1).(py.String)
			nanos, err := coderunner.DelayNanos(delay, coderunner.TimeUnit(string(unit)))
			if err != nil {
				return nil, err
			}
			time.Sleep(time.Duration(nanos))
			childCtx := rt.ctx.ChildFor(rt.self, false)
			result, err := rt.engine.Run(id, params, nil, childCtx)
			if err != nil {
				return nil, err
			}
			return goToPy(result)
		}),
		goMethod("continueAfterUserInput", func(args py.Tuple) (py.Object, error) {
			blocks := pyToGo(argAt(args, 0))
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
			result, err := rt.engine.Run(id, merged, nil, childCtx)
			if err != nil {
				return nil, err
			}
			return goToPy(result)
		}),
	}, nil)
}

func asStringMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// goToPy converts a Go any (the JSON-ish value space the engine passes
// around) into the nearest gpython object.
func goToPy(value any) (py.Object, error) {
	switch v := value.(type) {
	case nil:
		return py.None, nil
	case bool:
		return py.Bool(v), nil
	case string:
		return py.String(v), nil
	case int:
		return py.Int(v), nil
	case int64:
		return py.Int(v), nil
	case float64:
		return py.Float(v), nil
	case []any:
		list := py.NewListSized(len(v))
		for i, item := range v {
			converted, err := goToPy(item)
			if err != nil {
				return nil, err
			}
			list.Items[i] = converted
		}
		return list, nil
	case map[string]any:
		dict := py.NewStringDict()
		for key, item := range v {
			converted, err := goToPy(item)
			if err != nil {
				return nil, err
			}
			dict[key] = converted
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("python: cannot convert %T to a Python object", value)
	}
}

// pyToGo converts a gpython object back into a plain Go any, the inverse
// of goToPy. Unrecognized types (functions, dates) convert to an empty
// map; non-convertible values become nil.
func pyToGo(obj py.Object) any {
	switch v := obj.(type) {
	case py.NoneType:
		return nil
	case py.Bool:
		return bool(v)
	case py.String:
		return string(v)
	case py.Int:
		return int64(v)
	case py.Float:
		return float64(v)
	case *py.List:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = pyToGo(item)
		}
		return out
	case py.StringDict:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = pyToGo(item)
		}
		return out
	case py.Tuple:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = pyToGo(item)
		}
		return out
	default:
		return map[string]any{}
	}
}
