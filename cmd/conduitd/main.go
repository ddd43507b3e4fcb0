// Command conduitd runs the connector execution daemon: it loads the
// connector tree from disk, serves the dispatch engine's RPC surface over
// HTTP, and watches the tree for changes so saved or edited connectors take
// effect without a restart.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	brokerMemory "github.com/madcok-co/conduit/core/pkg/adapters/broker/memory"
	httpAdapter "github.com/madcok-co/conduit/core/pkg/adapters/http"
	metricsAdapter "github.com/madcok-co/conduit/core/pkg/adapters/metrics"
	tracerAdapter "github.com/madcok-co/conduit/core/pkg/adapters/tracer"
	validatorAdapter "github.com/madcok-co/conduit/core/pkg/adapters/validator"
	"github.com/madcok-co/conduit/core/pkg/app"
	"github.com/madcok-co/conduit/core/pkg/connector/coderunner"
	"github.com/madcok-co/conduit/core/pkg/connector/coderunner/javascript"
	"github.com/madcok-co/conduit/core/pkg/connector/coderunner/python"
	"github.com/madcok-co/conduit/core/pkg/connector/config"
	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/engine"
	"github.com/madcok-co/conduit/core/pkg/connector/httprunner"
	"github.com/madcok-co/conduit/core/pkg/connector/inputprompter"
	"github.com/madcok-co/conduit/core/pkg/connector/loader"
	"github.com/madcok-co/conduit/core/pkg/connector/repository"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
	"github.com/madcok-co/conduit/core/pkg/connector/wrapper"
	"github.com/madcok-co/conduit/core/pkg/connector/watcher"
	ucontext "github.com/madcok-co/conduit/core/pkg/context"
	"github.com/madcok-co/conduit/core/pkg/handler"
	"github.com/madcok-co/conduit/core/pkg/middleware"
	"github.com/madcok-co/conduit/core/pkg/openapi"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// rpcTimeout bounds each RPC handler. RunService returns immediately with
// an execution id (the run itself continues on its own goroutine), so this
// only guards the synchronous handler work.
const rpcTimeout = 30 * time.Second

// asHandlerMiddleware adapts a context-level middleware to the handler
// registry's executor-middleware shape; the two function types are
// structurally identical chains over *ucontext.Context.
func asHandlerMiddleware(mw ucontext.MiddlewareFunc) handler.Middleware {
	return func(next handler.HandlerExecutor) handler.HandlerExecutor {
		wrapped := mw(ucontext.HandlerFunc(next))
		return handler.HandlerExecutor(wrapped)
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "conduitd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	apiLogger, err := newFileLogger(cfg.Log.APIPath, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("api log: %w", err)
	}
	defer apiLogger.Sync()

	workflowLogger, err := newFileLogger(cfg.Log.WorkflowPath, cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("workflow log: %w", err)
	}
	defer workflowLogger.Sync()

	connectorStore := repository.NewStore()
	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ttl := time.Duration(cfg.Redis.TTLSeconds) * time.Second
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		connectorStore.Services = repository.NewRedisCache[*schema.Connector](
			connectorStore.Services, client, "conduit:svc:", ttl,
			repository.JSONEncode[*schema.Connector], repository.JSONDecode[*schema.Connector])
		connectorStore.Credentials = repository.NewRedisCache[*schema.Authentication](
			connectorStore.Credentials, client, "conduit:creds:", ttl,
			repository.JSONEncode[*schema.Authentication], repository.JSONDecode[*schema.Authentication])
	}
	eng := engine.New(connectorStore, apiLogger)

	eng.RegisterHTTPRunner(httprunner.New(apiLogger))

	codeLogger := coderunner.NewLogger(workflowLogger, workflowLogger)
	eng.RegisterCodeRunner(schema.LanguageJavaScript, javascript.New(eng, codeLogger))
	eng.RegisterCodeRunner(schema.LanguagePython, python.New(eng, codeLogger))

	eng.RegisterWrapperRunner(wrapper.New(eng))

	prompter := inputprompter.New()
	eng.RegisterInputPrompter(prompter)

	paths, err := discoverConnectors(cfg.Connector.Path)
	if err != nil {
		return fmt.Errorf("connector discovery: %w", err)
	}
	for name, dir := range paths {
		connector, creds, err := loader.Load(name, loader.NewDirFetcher(dir), true, false)
		if err != nil {
			apiLogger.Warn("skipping connector at startup", zap.String("service", name), zap.Error(err))
			continue
		}
		connectorStore.Services.Save(name, connector)
		if creds != nil {
			connectorStore.Credentials.Save(name, creds)
		}
	}

	w := watcher.New(paths, connectorStore, apiLogger)
	if err := w.Start(); err != nil {
		return fmt.Errorf("watcher: %w", err)
	}

	if cfg.Kafka.Enabled {
		signal, err := watcher.NewKafkaSignal(cfg.Kafka.Brokers, cfg.Kafka.GroupID, apiLogger)
		if err != nil {
			return fmt.Errorf("kafka reload signal: %w", err)
		}
		w.EnableKafkaSignal(context.Background(), signal)
	}

	srv := &server{eng: &daemonEngine{
		Engine:      eng,
		Store:       connectorStore,
		Prompter:    prompter,
		AuditLogger: newAuditLogger(),
		RateLimiter: newRunRateLimiter(),
		ConnectorDir: func(name string) string {
			return filepath.Join(cfg.Connector.Path, name)
		},
		Reload: func(name string) error {
			dir, ok := paths[name]
			if !ok {
				return connectorerr.New(connectorerr.ErrNotFound, name, "service")
			}
			connector, creds, err := loader.Load(name, loader.NewDirFetcher(dir), true, false)
			if err != nil {
				return err
			}
			connectorStore.Services.Save(name, connector)
			if creds != nil {
				connectorStore.Credentials.Save(name, creds)
			}
			return nil
		},
	}}

	application := app.New(&app.Config{
		Name:         "conduitd",
		EnableHTTP:   true,
		EnableBroker: true,
		HTTP: &httpAdapter.Config{
			Host: cfg.Server.Host,
			Port: cfg.Server.Port,
		},
	})
	application.SetBroker(brokerMemory.New())
	appLogger := contractsLogger(apiLogger, cfg.Log.Level)
	application.SetLogger(appLogger)
	application.SetMetrics(metricsAdapter.New(metricsAdapter.NewMemoryDriver()))
	application.SetTracer(tracerAdapter.New(tracerAdapter.NewMemoryDriver()))
	application.SetValidator(validatorAdapter.New(validatorAdapter.WrapPlayground(newPlaygroundValidator())))
	if mw := authMiddleware(); mw != nil {
		application.UseHTTP(mw)
	}
	application.OnStop(func() error {
		w.Stop()
		return nil
	})

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = appLogger
	rpcMiddleware := []handler.Middleware{
		asHandlerMiddleware(middleware.RecoveryWithConfig(recoveryConfig)),
		asHandlerMiddleware(middleware.Timeout(rpcTimeout)),
	}
	handlers := []struct {
		fn     handler.HandlerFunc
		name   string
		method string
		path   string
	}{
		{srv.List, "list", "GET", "/services"},
		{srv.GetService, "getService", "GET", "/services/:name"},
		{srv.SaveService, "saveService", "PUT", "/services/:name"},
		{srv.RunService, "runService", "POST", "/services/run"},
		{srv.GetRunResult, "getRunResult", "GET", "/runs/:id"},
		{srv.ProvideInput, "provideInput", "POST", "/runs/:id/input"},
		{srv.TriggerReload, "triggerReload", "POST", "/services/:name/reload"},
	}
	for _, h := range handlers {
		err := application.RegisterHandler(h.fn).
			Named(h.name).
			HTTP(h.method, h.path).
			Use(rpcMiddleware...).
			Done()
		if err != nil {
			return err
		}
	}

	// The in-process reload path: POST /services/:name/reload publishes onto
	// the memory broker; this message handler performs the reload.
	err = application.RegisterHandler(srv.ReloadService).
		Named("reloadService").
		Message(watcher.ReloadTopic).
		Done()
	if err != nil {
		return err
	}

	// Self-describing RPC surface: the generator walks the handler registry,
	// so it is registered last and includes itself in the document.
	generator := openapi.NewGenerator(&openapi.Config{
		Title:       "conduitd",
		Description: "Connector execution daemon RPC surface",
		Version:     "1.0.0",
		Servers: []openapi.Server{
			{URL: fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)},
		},
	}, application.Registry())
	err = application.RegisterHandler(func(ctx *ucontext.Context, _ struct{}) (*openapi.OpenAPI, error) {
		return generator.Generate()
	}).Named("openapiDoc").HTTP("GET", "/openapi.json").Use(rpcMiddleware...).Done()
	if err != nil {
		return err
	}

	apiLogger.Info("conduitd starting",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Int("connectors", len(paths)),
	)

	return application.Start()
}

// discoverConnectors lists the immediate subdirectories of root, one per
// connector, mapping its name to its directory.
func discoverConnectors(root string) (map[string]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}
	paths := make(map[string]string, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		paths[entry.Name()] = filepath.Join(root, entry.Name())
	}
	return paths, nil
}
