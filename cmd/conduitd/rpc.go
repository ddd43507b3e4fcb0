package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	httpAdapter "github.com/madcok-co/conduit/core/pkg/adapters/http"
	"github.com/madcok-co/conduit/core/pkg/adapters/security/audit"
	ucontext "github.com/madcok-co/conduit/core/pkg/context"
	"github.com/madcok-co/conduit/core/pkg/contracts"
	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/engine"
	"github.com/madcok-co/conduit/core/pkg/connector/httprunner"
	"github.com/madcok-co/conduit/core/pkg/connector/inputprompter"
	"github.com/madcok-co/conduit/core/pkg/connector/loader"
	"github.com/madcok-co/conduit/core/pkg/connector/repository"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
	"github.com/madcok-co/conduit/core/pkg/connector/watcher"
	"github.com/hashicorp/go-uuid"
)

// implicitOperation names the single operation a Wrapper, SimpleCode, or
// ScriptedAction manifest exposes; these kinds have no named operation
// map of their own, unlike Http and Action.
const implicitOperation = "run"

// server holds everything the RPC handlers dispatch through. It is never
// exposed outside this package; handlers close over it as methods.
type server struct {
	eng *daemonEngine
}

// daemonEngine bundles the pieces rpc.go needs from main.go's wiring:
// the dispatch engine itself, the store it reads through, the input
// prompter it shares with the engine, and where SaveService should write
// a connector's directory.
type daemonEngine struct {
	Engine       *engine.Engine
	Store        *repository.Store
	Prompter     *inputprompter.UserInput
	AuditLogger  contracts.AuditLogger
	RateLimiter  contracts.RateLimiter
	ConnectorDir func(name string) string
	Reload       func(name string) error
}

// --- List ---

// ListResponse carries one formatted entry per connector operation:
// `"(<kind>) <name>.<op>"`.
type ListResponse struct {
	Operations []string `json:"operations"`
}

func (s *server) List(ctx *ucontext.Context, _ struct{}) (*ListResponse, error) {
	names := s.eng.Store.Services.List()
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		connector, ok := s.eng.Store.Services.Get(name)
		if !ok || connector.Manifest == nil {
			continue
		}
		for _, op := range operationNames(connector) {
			out = append(out, fmt.Sprintf("(%s) %s.%s", connector.Manifest.Kind, name, op))
		}
	}
	return &ListResponse{Operations: out}, nil
}

func operationNames(connector *schema.Connector) []string {
	switch connector.Manifest.Kind {
	case schema.ManifestHTTP:
		if connector.CommonAPI == nil {
			return nil
		}
		ops := make([]string, 0, len(connector.CommonAPI.Operations))
		for name := range connector.CommonAPI.Operations {
			ops = append(ops, name)
		}
		sort.Strings(ops)
		return ops
	case schema.ManifestAction:
		ops := make([]string, 0, len(connector.Manifest.Action.Operations))
		for name := range connector.Manifest.Action.Operations {
			ops = append(ops, name)
		}
		sort.Strings(ops)
		return ops
	default:
		return []string{implicitOperation}
	}
}

// --- GetService ---

// GetServiceResponse never populates Credentials: GetService's contract
// is to avoid touching secrets.
type GetServiceResponse struct {
	Service json.RawMessage `json:"service"`
}

func (s *server) GetService(ctx *ucontext.Context, _ struct{}) (*GetServiceResponse, error) {
	name := ctx.Request().Param("name")
	connector, ok := s.eng.Store.Services.Get(name)
	if !ok {
		return nil, httpAdapter.NewHTTPError(404, "service not found: "+name)
	}
	raw, err := json.Marshal(connector)
	if err != nil {
		return nil, httpAdapter.NewHTTPError(500, err.Error())
	}
	return &GetServiceResponse{Service: raw}, nil
}

// --- SaveService ---

type SaveServiceRequest struct {
	Manifest    *schema.Manifest       `json:"manifest" validate:"required"`
	Credentials *schema.Authentication `json:"credentials,omitempty"`
	Sources     map[string]string      `json:"sources,omitempty"`
}

type SaveServiceResponse struct {
	Saved bool `json:"saved"`
}

func (s *server) SaveService(ctx *ucontext.Context, req *SaveServiceRequest) (*SaveServiceResponse, error) {
	name := ctx.Request().Param("name")
	span, end := ctx.StartSpan("rpc.saveService")
	defer end()
	span.SetAttributes(contracts.Attr("service", name))

	event := audit.NewAuditEvent().Action(audit.ActionUpdate).Resource("service").ResourceID(name)
	defer func() { _ = event.Log(ctx.Context(), s.eng.AuditLogger) }()

	if err := ctx.Validate(req); err != nil {
		event.Success(false).Error(err.Error())
		return nil, httpAdapter.NewHTTPError(400, err.Error())
	}
	if err := req.Manifest.Validate(); err != nil {
		event.Success(false).Error(err.Error())
		return nil, httpAdapter.NewHTTPError(400, err.Error())
	}

	dir := s.eng.ConnectorDir(name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		event.Success(false).Error(err.Error())
		return nil, httpAdapter.NewHTTPError(500, err.Error())
	}
	connector := &schema.Connector{Name: name, Manifest: req.Manifest, Sources: req.Sources}

	if err := loader.Write(dir, connector, req.Credentials); err != nil {
		event.Success(false).Error(err.Error())
		return nil, mapErr(err)
	}
	if err := loader.Promote(dir, connector, req.Credentials != nil); err != nil {
		event.Success(false).Error(err.Error())
		return nil, mapErr(err)
	}

	reloaded, creds, err := loader.Load(name, loader.NewDirFetcher(dir), true, false)
	if err != nil {
		event.Success(false).Error(err.Error())
		return nil, mapErr(err)
	}
	s.eng.Store.Services.Save(name, reloaded)
	if creds != nil {
		s.eng.Store.Credentials.Save(name, creds)
	}
	ctx.IncrementCounter("service.saved")
	event.Success(true)
	return &SaveServiceResponse{Saved: true}, nil
}

// --- RunService ---

type RunServiceRequest struct {
	// Name is the dispatch identifier: "service.operation", "this.operation"
	// inside a reentrant call, or "$input" to address the prompter directly.
	Name    string `json:"name"`
	Input   any    `json:"input"`
	Options any    `json:"options,omitempty"`
	Limit   *int   `json:"limit,omitempty"`
}

type RunServiceResponse struct {
	ExecutionID string `json:"executionId"`
}

func (s *server) RunService(ctx *ucontext.Context, req *RunServiceRequest) (*RunServiceResponse, error) {
	if req.Name == "" {
		return nil, httpAdapter.NewHTTPError(400, "name is required")
	}

	allowed, err := s.eng.RateLimiter.Allow(ctx.Context(), "run")
	if err != nil {
		return nil, httpAdapter.NewHTTPError(500, err.Error())
	}
	if !allowed {
		audit.NewAuditEvent().Action(audit.ActionDeny).Resource("run").ResourceID(req.Name).
			Success(false).Error("rate limit exceeded").Log(ctx.Context(), s.eng.AuditLogger)
		return nil, httpAdapter.NewHTTPError(429, "rate limit exceeded")
	}

	span, end := ctx.StartSpan("rpc.runService")
	defer end()
	span.SetAttributes(contracts.Attr("name", req.Name))
	ctx.IncrementCounter("service.run")

	options := req.Options
	if req.Limit != nil {
		opts, _ := options.(map[string]any)
		if opts == nil {
			opts = map[string]any{}
		}
		opts["limit"] = *req.Limit
		options = opts
	} else if options == nil {
		options = map[string]any{"limit": httprunner.DefaultLimit}
	}

	executionID, err := uuid.GenerateUUID()
	if err != nil {
		return nil, httpAdapter.NewHTTPError(500, err.Error())
	}

	s.eng.Engine.StartRun(executionID)
	runCtx := &engine.ExecutionContext{ExecutionID: executionID}

	go func() {
		result, err := s.eng.Engine.Run(req.Name, req.Input, options, runCtx)
		event := audit.NewAuditEvent().Action(audit.ActionAccess).Resource("run").ResourceID(executionID).
			Metadata("name", req.Name)
		if err != nil {
			s.eng.Engine.FailRun(executionID, err)
			event.Success(false).Error(err.Error()).Log(context.Background(), s.eng.AuditLogger)
			return
		}
		s.eng.Engine.CompleteRun(executionID, result)
		event.Success(true).Log(context.Background(), s.eng.AuditLogger)
	}()

	return &RunServiceResponse{ExecutionID: executionID}, nil
}

// --- GetRunResult ---

type GetRunResultResponse struct {
	Status string          `json:"status"`
	Output json.RawMessage `json:"output,omitempty"`
	Prompt any             `json:"prompt,omitempty"`
}

func (s *server) GetRunResult(ctx *ucontext.Context, _ struct{}) (*GetRunResultResponse, error) {
	id := ctx.Request().Param("id")
	result := s.eng.Engine.GetRunResult(id)

	if result.Status == engine.RunStatusNotFound {
		return nil, httpAdapter.NewHTTPError(404, "unknown execution id: "+id)
	}

	// Waiting is composed here rather than stored on the run record: the
	// run goroutine is blocked synchronously inside the prompter while
	// this handler executes concurrently, so the parked state belongs to
	// reading, not to the run itself.
	if result.Status == engine.RunStatusRunning {
		if prompt, waiting := s.eng.Prompter.PendingPrompt(id); waiting {
			return &GetRunResultResponse{Status: string(engine.RunStatusWaiting), Prompt: prompt}, nil
		}
	}

	resp := &GetRunResultResponse{Status: string(result.Status)}
	if result.Output != "" {
		resp.Output = json.RawMessage(result.Output)
	}
	return resp, nil
}

// --- Reload ---

type ReloadServiceRequest struct {
	Name string `json:"name"`
}

type ReloadServiceResponse struct {
	Reloaded bool `json:"reloaded"`
}

// ReloadService is the message-triggered reload path: a connector.reload
// message carries a service name, and the handler reloads it through the
// same loader pipeline the filesystem watcher uses.
func (s *server) ReloadService(ctx *ucontext.Context, req *ReloadServiceRequest) (*ReloadServiceResponse, error) {
	if req.Name == "" {
		return nil, httpAdapter.NewHTTPError(400, "name is required")
	}
	if err := s.eng.Reload(req.Name); err != nil {
		return nil, mapErr(err)
	}
	return &ReloadServiceResponse{Reloaded: true}, nil
}

// TriggerReload publishes a reload message for the named service onto the
// in-process broker, giving operators a manual reload entry point without
// touching the filesystem.
func (s *server) TriggerReload(ctx *ucontext.Context, _ struct{}) (*ReloadServiceResponse, error) {
	name := ctx.Request().Param("name")
	if _, ok := s.eng.Store.Services.Get(name); !ok {
		return nil, httpAdapter.NewHTTPError(404, "service not found: "+name)
	}
	body, err := json.Marshal(ReloadServiceRequest{Name: name})
	if err != nil {
		return nil, httpAdapter.NewHTTPError(500, err.Error())
	}
	if err := ctx.Publish(watcher.ReloadTopic, &contracts.BrokerMessage{
		Topic: watcher.ReloadTopic,
		Body:  body,
	}); err != nil {
		return nil, httpAdapter.NewHTTPError(500, err.Error())
	}
	return &ReloadServiceResponse{Reloaded: true}, nil
}

// --- ProvideInput ---

type ProvideInputRequest struct {
	Input any `json:"input"`
}

type ProvideInputResponse struct {
	Delivered bool `json:"delivered"`
}

func (s *server) ProvideInput(ctx *ucontext.Context, req *ProvideInputRequest) (*ProvideInputResponse, error) {
	id := ctx.Request().Param("id")
	if !s.eng.Prompter.ProvideInput(id, req.Input) {
		return nil, httpAdapter.NewHTTPError(404, "no pending prompt for execution id: "+id)
	}
	return &ProvideInputResponse{Delivered: true}, nil
}

// mapErr converts a connectorerr-tagged error into an HTTP status code.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, connectorerr.ErrNotFound):
		return httpAdapter.NewHTTPError(404, err.Error())
	case errors.Is(err, connectorerr.ErrInvalidIdentifier),
		errors.Is(err, connectorerr.ErrMissingRequiredParam),
		errors.Is(err, connectorerr.ErrInvalidMethod),
		errors.Is(err, connectorerr.ErrInvalidRuntimeExpr),
		errors.Is(err, connectorerr.ErrInvalidAuthParameter):
		return httpAdapter.NewHTTPError(400, err.Error())
	case errors.Is(err, connectorerr.ErrCyclicalReference),
		errors.Is(err, connectorerr.ErrPagingOverflow):
		return httpAdapter.NewHTTPError(422, err.Error())
	case errors.Is(err, connectorerr.ErrUnimplemented):
		return httpAdapter.NewHTTPError(501, err.Error())
	case errors.Is(err, connectorerr.ErrTimeout):
		return httpAdapter.NewHTTPError(504, err.Error())
	case errors.Is(err, connectorerr.ErrPoisonedLock):
		return httpAdapter.NewHTTPError(500, err.Error())
	default:
		return httpAdapter.NewHTTPError(502, err.Error())
	}
}
