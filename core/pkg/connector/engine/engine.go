// Package engine implements the dispatch engine: a service/operation
// resolver and polymorphic dispatcher binding an identifier to one of the
// four runner kinds, managing reentrant calls, and enforcing the
// result-shape contract.
package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
	"go.uber.org/zap"
)

// InputIdentifier is the sentinel identifier that routes to the input
// prompter instead of a service.operation pair.
const InputIdentifier = "$input"

// ThisIdentifier substitutes the current ExecutionContext.Parent when used
// as the service-name part of an identifier ("this.op").
const ThisIdentifier = "this"

// ExecutionContext is the per-run record threaded through reentrant calls.
type ExecutionContext struct {
	// Parent is the connector name a child call should substitute for
	// "this", set when a runner invokes the engine reentrantly.
	Parent string

	ExecutionID string

	// RawResponse disables pagination flattening and result-array
	// wrapping. It propagates only into the immediate wrapper call chain,
	// never into child code-runner calls, which force it to false.
	RawResponse bool
}

// ChildFor builds the ExecutionContext a runner passes to a reentrant
// api.run/wrapped-operation call: same execution id, parent set to the
// calling connector, and RawResponse forced per the caller's choice.
func (c *ExecutionContext) ChildFor(connectorName string, rawResponse bool) *ExecutionContext {
	return &ExecutionContext{
		Parent:      connectorName,
		ExecutionID: c.ExecutionID,
		RawResponse: rawResponse,
	}
}

// Lookup is satisfied by the repository store; the engine only ever reads
// through this narrow interface. Holders of the repository lock must
// release it before making engine calls.
type Lookup interface {
	GetService(name string) (*schema.Connector, bool)
	GetCredentials(name string) (*schema.Authentication, bool)
}

// DataConnectorBundle bundles everything the HTTP runner needs for one
// call.
type DataConnectorBundle struct {
	Manifest *schema.HTTPManifest
	API      *schema.CommonAPI
	Creds    *schema.Authentication
}

// DataConnectionRunner executes HTTP/OpenAPI operations.
type DataConnectionRunner interface {
	Run(name, operationName string, bundle *DataConnectorBundle, params, options any, ctx *ExecutionContext) (any, error)
}

// CodeRunner executes an embedded-language code block.
type CodeRunner interface {
	Run(name, operationName, sourceCode string, params any, ctx *ExecutionContext) (any, error)
}

// FilteredRunner executes wrapper ("API-wrapped") operations.
type FilteredRunner interface {
	Run(name, operationName string, manifest *schema.WrapperManifest, params any, ctx *ExecutionContext) (any, error)
}

// ScriptRunner executes ScriptedAction operations. No implementation is
// registered by default; dispatching one without a registration fails
// Unimplemented.
type ScriptRunner interface {
	Run(name, operationName string, manifest *schema.ScriptedActionManifest, params any, ctx *ExecutionContext) (any, error)
}

// InputPrompter parks a call until an external delivery arrives.
type InputPrompter interface {
	Run(params any, ctx *ExecutionContext) (any, error)
}

// RunStatus is the tagged status of a RunResult record.
type RunStatus string

const (
	RunStatusNotFound RunStatus = "NotFound"
	RunStatusRunning  RunStatus = "Running"
	RunStatusWaiting  RunStatus = "Waiting"
	RunStatusCompleted RunStatus = "Completed"
	// RunStatusError distinguishes a failed run from a completed one.
	// Output still mirrors the stringified error so clients can read
	// success and failure through the same path.
	RunStatusError RunStatus = "Error"
)

// RunResult is the per-execution-id record. The Waiting status is not
// stored here: a parked run still reads as Running, and the RPC layer
// composes Waiting from the input prompter's pending-prompt state.
type RunResult struct {
	Status RunStatus
	Output string
}

// Engine is the dispatch engine. All runner invocations take the read
// lock; registration takes the write lock, so reentrant dispatch cannot
// deadlock against ongoing dispatch on other goroutines.
type Engine struct {
	mu sync.RWMutex

	lookup Lookup
	logger *zap.Logger

	httpRunner    DataConnectionRunner
	codeRunners   map[schema.Language]CodeRunner
	wrapperRunner FilteredRunner
	scriptRunner  ScriptRunner
	inputPrompter InputPrompter

	resultsMu sync.Mutex
	results   map[string]*RunResult
}

// New builds an Engine reading through lookup and logging dispatch events
// with logger.
func New(lookup Lookup, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		lookup:      lookup,
		logger:      logger,
		codeRunners: make(map[schema.Language]CodeRunner),
		results:     make(map[string]*RunResult),
	}
}

// RegisterHTTPRunner sets the (set-once, by convention) HTTP connector runner.
func (e *Engine) RegisterHTTPRunner(r DataConnectionRunner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.httpRunner = r
}

// RegisterCodeRunner registers a code runner for lang.
func (e *Engine) RegisterCodeRunner(lang schema.Language, r CodeRunner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.codeRunners[lang] = r
}

// RegisterWrapperRunner sets the wrapper runner.
func (e *Engine) RegisterWrapperRunner(r FilteredRunner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.wrapperRunner = r
}

// RegisterScriptRunner sets the scripted-action runner.
func (e *Engine) RegisterScriptRunner(r ScriptRunner) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scriptRunner = r
}

// RegisterInputPrompter sets the input prompter.
func (e *Engine) RegisterInputPrompter(p InputPrompter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inputPrompter = p
}

// Run resolves identifier to a service and operation, dispatches by
// manifest variant, and shapes the result: every non-raw return is an
// array of results.
func (e *Engine) Run(identifier string, params, options any, ctx *ExecutionContext) (any, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if identifier == InputIdentifier {
		if e.inputPrompter == nil {
			return nil, connectorerr.New(connectorerr.ErrUnimplemented, identifier, "input handler")
		}
		return e.inputPrompter.Run(params, ctx)
	}

	parts := strings.SplitN(identifier, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, connectorerr.New(connectorerr.ErrInvalidIdentifier, identifier, "")
	}
	serviceName, operationName := parts[0], parts[1]
	if serviceName == ThisIdentifier && ctx.Parent != "" {
		serviceName = ctx.Parent
	}

	service, ok := e.lookup.GetService(serviceName)
	if !ok {
		return nil, connectorerr.New(connectorerr.ErrNotFound, identifier, "")
	}
	credentials, _ := e.lookup.GetCredentials(serviceName)

	result, err := e.dispatch(serviceName, operationName, service, credentials, params, options, ctx)
	if err != nil {
		return nil, err
	}

	if ctx.RawResponse {
		return result, nil
	}
	if arr, isArray := result.([]any); isArray {
		return arr, nil
	}
	return []any{result}, nil
}

func (e *Engine) dispatch(serviceName, operationName string, service *schema.Connector, creds *schema.Authentication, params, options any, ctx *ExecutionContext) (any, error) {
	identifier := serviceName + "." + operationName

	switch service.Manifest.Kind {
	case schema.ManifestHTTP:
		if e.httpRunner == nil {
			return nil, connectorerr.New(connectorerr.ErrNotFound, identifier, "data connector runner")
		}
		bundle := &DataConnectorBundle{
			Manifest: service.Manifest.HTTP,
			API:      service.CommonAPI,
			Creds:    creds,
		}
		return e.httpRunner.Run(serviceName, operationName, bundle, params, options, ctx)

	case schema.ManifestAction:
		action := service.Manifest.Action
		op, ok := action.Operations[operationName]
		if !ok {
			return nil, connectorerr.New(connectorerr.ErrNotFound, identifier, "action operation")
		}
		relPath := action.Source + "/" + op.File
		source, ok := service.Sources[relPath]
		if !ok {
			return nil, connectorerr.New(connectorerr.ErrNotFound, identifier, "source file "+relPath)
		}
		runner, ok := e.codeRunners[op.Language]
		if !ok {
			return nil, connectorerr.New(connectorerr.ErrNotFound, identifier, "code runner for "+string(op.Language))
		}
		e.log(identifier, "ACTION", "STARTED")
		result, err := runner.Run(serviceName, operationName, source, params, ctx)
		if err != nil {
			return nil, err
		}
		e.log(identifier, "ACTION", "COMPLETED")
		return result, nil

	case schema.ManifestWrapper:
		if e.wrapperRunner == nil {
			return nil, connectorerr.New(connectorerr.ErrNotFound, identifier, "API wrapper runner")
		}
		e.log(identifier, "API_WRAPPED", "STARTED")
		result, err := e.wrapperRunner.Run(serviceName, operationName, service.Manifest.Wrapper, params, ctx)
		if err != nil {
			return nil, err
		}
		e.log(identifier, "API_WRAPPED", "COMPLETED")
		return result, nil

	case schema.ManifestSimpleCode:
		sc := service.Manifest.SimpleCode
		runner, ok := e.codeRunners[sc.Language]
		if !ok {
			return nil, connectorerr.New(connectorerr.ErrNotFound, identifier, "code runner for "+string(sc.Language))
		}
		e.log(identifier, "SIMPLE_CODE", "STARTED")
		result, err := runner.Run(serviceName, operationName, sc.Source, params, ctx)
		if err != nil {
			return nil, err
		}
		e.log(identifier, "SIMPLE_CODE", "COMPLETED")
		return result, nil

	case schema.ManifestScriptedAction:
		if e.scriptRunner == nil {
			return nil, connectorerr.New(connectorerr.ErrUnimplemented, identifier, "scripted action runner")
		}
		return e.scriptRunner.Run(serviceName, operationName, service.Manifest.ScriptedAction, params, ctx)

	default:
		return nil, connectorerr.New(connectorerr.ErrUnimplemented, identifier, "API runner")
	}
}

func (e *Engine) log(identifier, actionType, status string) {
	e.logger.Info(status,
		zap.String("action", actionType),
		zap.String("identifier", identifier),
		zap.Time("at", time.Now()),
	)
}

// --- RunResult bookkeeping ---

// StartRun records a Running RunResult for executionID.
func (e *Engine) StartRun(executionID string) {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	e.results[executionID] = &RunResult{Status: RunStatusRunning}
}

// CompleteRun marks executionID Completed with a JSON-encoded output.
func (e *Engine) CompleteRun(executionID string, output any) {
	raw, err := json.Marshal(output)
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	if err != nil {
		raw = []byte(fmt.Sprintf("%v", output))
	}
	e.results[executionID] = &RunResult{Status: RunStatusCompleted, Output: string(raw)}
}

// FailRun marks executionID as Error, mirroring the stringified error into
// Output under "error" so clients read success and failure uniformly
// through GetRunResult.
func (e *Engine) FailRun(executionID string, cause error) {
	body, _ := json.Marshal(map[string]string{"error": cause.Error()})
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	e.results[executionID] = &RunResult{Status: RunStatusError, Output: string(body)}
}

// GetRunResult fetches the current record, or NotFound if unknown.
func (e *Engine) GetRunResult(executionID string) *RunResult {
	e.resultsMu.Lock()
	defer e.resultsMu.Unlock()
	r, ok := e.results[executionID]
	if !ok {
		return &RunResult{Status: RunStatusNotFound}
	}
	return r
}
