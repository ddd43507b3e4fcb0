package loader

import (
	"strings"

	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
	"go.yaml.in/yaml/v3"
)

// schemaDictPrefix is the reference keying convention the writer emits
// under components.schemas; dictionary entries under other keys (external
// sources) stay where their $ref already points and are not re-emitted.
const schemaDictPrefix = "#/components/schemas/"

// encodeOpenAPI is the inverse of loadOpenAPI: it rebuilds the generic
// document tree for api and marshals it to YAML, so a load of the written
// document yields a structurally equal CommonAPI.
func encodeOpenAPI(api *schema.CommonAPI) ([]byte, error) {
	root := map[string]any{
		"servers": []any{map[string]any{"url": api.BasePath}},
	}

	paths := map[string]any{}
	for operationID, op := range api.Operations {
		verb, err := methodKey(op.Method)
		if err != nil {
			return nil, err
		}
		item, _ := paths[op.PathTemplate].(map[string]any)
		if item == nil {
			item = map[string]any{}
			paths[op.PathTemplate] = item
		}
		node, err := encodeOperation(operationID, op)
		if err != nil {
			return nil, err
		}
		item[verb] = node
	}
	root["paths"] = paths

	schemas := map[string]any{}
	for key, s := range api.SchemaDict {
		short, ok := strings.CutPrefix(key, schemaDictPrefix)
		if !ok {
			continue
		}
		schemas[short] = encodeSchema(s)
	}
	if len(schemas) > 0 {
		root["components"] = map[string]any{"schemas": schemas}
	}

	raw, err := yaml.Marshal(root)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrYAML, "openapi", err)
	}
	return raw, nil
}

func methodKey(m schema.HTTPMethod) (string, error) {
	switch m {
	case schema.HTTPMethodGet:
		return "get", nil
	case schema.HTTPMethodPost:
		return "post", nil
	case schema.HTTPMethodPut:
		return "put", nil
	case schema.HTTPMethodPatch:
		return "patch", nil
	case schema.HTTPMethodDelete:
		return "delete", nil
	case schema.HTTPMethodHead:
		return "head", nil
	default:
		return "", connectorerr.New(connectorerr.ErrInvalidMethod, string(m), "cannot serialize")
	}
}

func encodeOperation(operationID string, op *schema.Operation) (map[string]any, error) {
	node := map[string]any{"operationId": operationID}

	if len(op.Parameters) > 0 {
		params := make([]any, 0, len(op.Parameters))
		for _, p := range op.Parameters {
			params = append(params, encodeParameter(p))
		}
		node["parameters"] = params
	}

	if len(op.RequestBody) > 0 {
		content := map[string]any{}
		for mediaType, s := range op.RequestBody {
			content[mediaType] = map[string]any{"schema": encodeSchema(s)}
		}
		node["requestBody"] = map[string]any{"content": content}
	}

	if len(op.Responses) > 0 {
		responses := map[string]any{}
		for status, s := range op.Responses {
			responses[status] = map[string]any{
				"content": map[string]any{
					"application/json": map[string]any{"schema": encodeSchema(s)},
				},
			}
		}
		node["responses"] = responses
	}

	if pagination, ok := encodePagination(op.Pagination); ok {
		node["x-pagination"] = pagination
	}

	return node, nil
}

func encodeParameter(p *schema.Parameter) map[string]any {
	node := map[string]any{
		"name":     p.Name,
		"in":       string(p.In),
		"required": p.Required,
	}
	if p.Schema != nil {
		node["schema"] = encodeSchema(p.Schema)
	}
	return node
}

// encodePagination emits the x-pagination extension node, or ok=false when
// the operation is unpaginated with an empty resultsPath (the decoder's
// default for a missing node).
func encodePagination(p schema.Pagination) (map[string]any, bool) {
	switch p.Kind {
	case schema.PaginationKindPageOffset:
		return map[string]any{
			"resultsPath": p.PageOffset.ResultsPath,
			"pageOffset": map[string]any{
				"pageOffsetParam": p.PageOffset.PageParam,
				"startPage":       p.PageOffset.StartPage,
				"limitParam":      p.PageOffset.LimitParam,
				"maxLimit":        p.PageOffset.MaxLimit,
			},
		}, true
	case schema.PaginationKindOffset:
		return map[string]any{
			"resultsPath": p.Offset.ResultsPath,
			"offset": map[string]any{
				"offsetParam": p.Offset.OffsetParam,
				"limitParam":  p.Offset.LimitParam,
				"maxLimit":    p.Offset.MaxLimit,
			},
		}, true
	case schema.PaginationKindNextURL:
		return map[string]any{
			"resultsPath": p.NextURL.ResultsPath,
			"nextUrl": map[string]any{
				"nextUrlPath": p.NextURL.NextURLPath,
				"limitParam":  p.NextURL.LimitParam,
				"maxLimit":    p.NextURL.MaxLimit,
			},
		}, true
	case schema.PaginationKindMultiCursor:
		node := map[string]any{
			"resultsPath": p.MultiCursor.ResultsPath,
			"cursor": map[string]any{
				"limitParam": p.MultiCursor.LimitParam,
				"maxLimit":   p.MultiCursor.MaxLimit,
			},
		}
		cursor := node["cursor"].(map[string]any)
		if len(p.MultiCursor.CursorsPath) > 0 {
			cursor["cursorPath"] = p.MultiCursor.CursorsPath[0]
		}
		if len(p.MultiCursor.CursorsParam) > 0 {
			cursor["cursorParam"] = p.MultiCursor.CursorsParam[0]
		}
		return node, true
	case schema.PaginationKindUnpaginated:
		if p.Unpaginated.ResultsPath == "" {
			return nil, false
		}
		return map[string]any{"resultsPath": p.Unpaginated.ResultsPath}, true
	default:
		return nil, false
	}
}

func encodeSchema(s *schema.Schema) map[string]any {
	if s == nil {
		return map[string]any{}
	}
	switch s.Kind {
	case schema.SchemaKindRef:
		return map[string]any{"$ref": s.Ref}
	case schema.SchemaKindString, schema.SchemaKindNumber, schema.SchemaKindInteger, schema.SchemaKindBoolean:
		return map[string]any{"type": string(s.Kind)}
	case schema.SchemaKindArray:
		node := map[string]any{"type": "array"}
		if s.Items != nil {
			node["items"] = encodeSchema(s.Items)
		}
		return node
	case schema.SchemaKindObject:
		node := map[string]any{"type": "object"}
		if len(s.Properties) > 0 {
			properties := map[string]any{}
			for name, prop := range s.Properties {
				properties[name] = encodeSchema(prop)
			}
			node["properties"] = properties
		}
		if len(s.Required) > 0 {
			node["required"] = s.Required
		}
		return node
	case schema.SchemaKindAllOf:
		return map[string]any{"allOf": encodeSchemaList(s.Of)}
	case schema.SchemaKindOneOf:
		return map[string]any{"oneOf": encodeSchemaList(s.Of)}
	case schema.SchemaKindAnyOf:
		return map[string]any{"anyOf": encodeSchemaList(s.Of)}
	default:
		return map[string]any{}
	}
}

func encodeSchemaList(members []*schema.Schema) []any {
	out := make([]any, 0, len(members))
	for _, member := range members {
		out = append(out, encodeSchema(member))
	}
	return out
}
