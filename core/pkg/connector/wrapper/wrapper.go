// Package wrapper implements the wrapper runner: given a wrapped manifest,
// it rewrites input via dotted-path placement, invokes the referenced
// operation with a raw-response reentrant call, and projects outputs via
// jmespath selectors.
package wrapper

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmespath/go-jmespath"
	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/engine"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

// connectorIDPattern matches "group/app:version"; only "app" contributes
// to the wrapped operation id.
var connectorIDPattern = regexp.MustCompile(`^(?P<group>.*)/(?P<app>.*):(?P<version>.*)$`)

// Dispatcher is the narrow slice of the engine the wrapper runner needs:
// a single reentrant call.
type Dispatcher interface {
	Run(identifier string, params, options any, ctx *engine.ExecutionContext) (any, error)
}

// Runner implements engine.FilteredRunner.
type Runner struct {
	engine Dispatcher
}

// New builds a wrapper runner that calls back into engine for the
// referenced operation.
func New(engine Dispatcher) *Runner {
	return &Runner{engine: engine}
}

// Run implements engine.FilteredRunner.
func (r *Runner) Run(name, operationName string, manifest *schema.WrapperManifest, params any, ctx *engine.ExecutionContext) (any, error) {
	app, err := extractConnectorID(manifest.ConnectorID)
	if err != nil {
		return nil, err
	}
	id := app + "." + manifest.ConnectorOperation

	paramsMap, _ := params.(map[string]any)
	input := map[string]any{}
	for _, mapping := range manifest.Inputs {
		value, ok := paramsMap[mapping.SourceName]
		if !ok {
			continue
		}
		path := strings.Split(mapping.APIParamName, ".")
		if err := traverse(input, path, value); err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrInvalidRuntimeExpr, name+"."+operationName, err)
		}
	}

	childCtx := ctx.ChildFor(name, true)
	result, err := r.engine.Run(id, input, nil, childCtx)
	if err != nil {
		return nil, err
	}

	output := map[string]any{}
	for _, selector := range manifest.OutputSelectors {
		value, err := jmespath.Search(selector.JMESPathSelector, result)
		if err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrInvalidRuntimeExpr, name+"."+operationName, err)
		}
		// Round-trip through JSON to normalize jmespath's search result
		// into the same plain-value shape the rest of the engine expects.
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrJSON, name+"."+operationName, err)
		}
		var normalized any
		if err := json.Unmarshal(raw, &normalized); err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrJSON, name+"."+operationName, err)
		}
		output[selector.Name] = normalized
	}

	return output, nil
}

func extractConnectorID(id string) (string, error) {
	match := connectorIDPattern.FindStringSubmatch(id)
	if match == nil {
		return "", connectorerr.New(connectorerr.ErrNotFound, id, "unknown connector id format")
	}
	for i, name := range connectorIDPattern.SubexpNames() {
		if name == "app" {
			return match[i], nil
		}
	}
	return "", connectorerr.New(connectorerr.ErrNotFound, id, "unknown connector id format")
}

// traverse places value into current at the dotted path parts, creating
// intermediate objects as needed. A type conflict on a non-object
// intermediate is fatal.
func traverse(current map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("wrapper: empty path")
	}
	key := parts[0]
	if len(parts) == 1 {
		current[key] = value
		return nil
	}

	child, exists := current[key]
	if !exists {
		childMap := map[string]any{}
		current[key] = childMap
		return traverse(childMap, parts[1:], value)
	}
	childMap, ok := child.(map[string]any)
	if !ok {
		return fmt.Errorf("wrapper: path traversal conflict at %q", strings.Join(parts, "."))
	}
	return traverse(childMap, parts[1:], value)
}
