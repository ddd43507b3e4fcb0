package loader

import (
	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

// methodsInDocumentOrder lists the HTTP verbs consulted per path item.
var methodsInDocumentOrder = []struct {
	key    string
	method schema.HTTPMethod
}{
	{"get", schema.HTTPMethodGet},
	{"post", schema.HTTPMethodPost},
	{"put", schema.HTTPMethodPut},
	{"patch", schema.HTTPMethodPatch},
	{"delete", schema.HTTPMethodDelete},
	{"head", schema.HTTPMethodHead},
}

// loadOpenAPI parses the YAML document fetched from source into a
// schema.CommonAPI, resolving every $ref encountered along the way.
func loadOpenAPI(fetcher Fetcher, source string) (*schema.CommonAPI, error) {
	rc, err := fetcher.Fetch(source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	root, err := decodeYAML(rc)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrYAML, source, err)
	}

	cache := newRefCache(fetcher)
	schemas := map[string]*schema.Schema{}

	api := &schema.CommonAPI{Operations: map[string]*schema.Operation{}}

	var servers []any
	if err := requiredField(root, "servers", &servers); err != nil {
		return nil, connectorerr.New(connectorerr.ErrNotFound, source, "servers")
	}
	basePath, err := getServer(servers)
	if err != nil {
		return nil, err
	}
	api.BasePath = basePath

	paths, _ := asObject(fieldOrNil(root, "paths"))
	for path, item := range paths {
		ops, err := collectOperations(path, item, root, cache, schemas)
		if err != nil {
			return nil, err
		}
		for operationID, op := range ops {
			api.Operations[operationID] = op
		}
	}

	api.SchemaDict = schemas
	return api, nil
}

func fieldOrNil(current any, field string) any {
	obj, _ := asObject(current)
	return obj[field]
}

func getServer(servers []any) (string, error) {
	if len(servers) == 0 {
		return "", connectorerr.New(connectorerr.ErrNotFound, "servers", "empty servers list")
	}
	server, ok := asObject(servers[0])
	if !ok {
		return "", connectorerr.New(connectorerr.ErrNotFound, "servers[0]", "not an object")
	}
	url, ok := server["url"].(string)
	if !ok {
		return "", connectorerr.New(connectorerr.ErrMissingRequiredParam, "servers[0].url", "")
	}
	return url, nil
}

func collectOperations(path string, item any, root any, cache *refCache, schemas map[string]*schema.Schema) (map[string]*schema.Operation, error) {
	if _, resolved, ok, err := handleReference(item, root, cache, map[string]bool{}); err != nil {
		return nil, err
	} else if ok {
		item = resolved
	}

	var rawParams []any
	_, _ = optionalField(item, "parameters", &rawParams)
	commonParams := make([]*schema.Parameter, 0, len(rawParams))
	for _, p := range rawParams {
		param, err := handleParameter(p, root, cache, schemas)
		if err != nil {
			return nil, err
		}
		commonParams = append(commonParams, param)
	}

	result := map[string]*schema.Operation{}
	for _, m := range methodsInDocumentOrder {
		opNode := fieldOrNil(item, m.key)
		if opNode == nil {
			continue
		}
		op := &schema.Operation{Name: "", Method: m.method, PathTemplate: path}
		if err := handleOperation(opNode, op, root, cache, schemas, commonParams); err != nil {
			return nil, err
		}
		var operationID string
		if err := requiredField(opNode, "operationId", &operationID); err != nil {
			return nil, err
		}
		op.Name = operationID
		result[operationID] = op
	}
	return result, nil
}

func handleOperation(source any, sink *schema.Operation, root any, cache *refCache, schemas map[string]*schema.Schema, commonParams []*schema.Parameter) error {
	sink.Parameters = append(sink.Parameters, commonParams...)

	var rawParams []any
	if ok, err := optionalField(source, "parameters", &rawParams); err != nil {
		return err
	} else if ok {
		for _, p := range rawParams {
			param, err := handleParameter(p, root, cache, schemas)
			if err != nil {
				return err
			}
			sink.Parameters = append(sink.Parameters, param)
		}
	}

	if requestBody := fieldOrNil(source, "requestBody"); requestBody != nil {
		content, err := handleContent(requestBody, root, cache, schemas)
		if err != nil {
			return err
		}
		sink.RequestBody = content
	}

	responses, _ := asObject(fieldOrNil(source, "responses"))
	if len(responses) > 0 {
		sink.Responses = map[string]*schema.Schema{}
		for status, resp := range responses {
			content, err := handleContent(resp, root, cache, schemas)
			if err != nil {
				return err
			}
			// A response may declare multiple content types;
			// Operation.Responses keys by status only, so the first
			// content schema encountered wins.
			for _, s := range content {
				sink.Responses[status] = s
				break
			}
		}
	}

	if pagination := fieldOrNil(source, "x-pagination"); pagination != nil {
		p, err := handlePagination(pagination)
		if err != nil {
			return err
		}
		sink.Pagination = p
	}

	return nil
}

func handleContent(source any, root any, cache *refCache, schemas map[string]*schema.Schema) (map[string]*schema.Schema, error) {
	if _, resolved, ok, err := handleReference(source, root, cache, map[string]bool{}); err != nil {
		return nil, err
	} else if ok {
		source = resolved
	}

	content, _ := asObject(fieldOrNil(source, "content"))
	result := map[string]*schema.Schema{}
	for mediaType, value := range content {
		schemaNode := fieldOrNil(value, "schema")
		if schemaNode == nil {
			continue
		}
		s, err := handleSchema(schemaNode, root, cache, schemas)
		if err != nil {
			return nil, err
		}
		result[mediaType] = s
	}
	return result, nil
}

func handlePagination(source any) (schema.Pagination, error) {
	var resultsPath string
	_, _ = optionalField(source, "resultsPath", &resultsPath)

	if pageOffset := fieldOrNil(source, "pageOffset"); pageOffset != nil {
		p := &schema.PageOffsetPagination{ResultsPath: resultsPath}
		_, _ = optionalField(pageOffset, "pageOffsetParam", &p.PageParam)
		_, _ = optionalField(pageOffset, "startPage", &p.StartPage)
		_, _ = optionalField(pageOffset, "limitParam", &p.LimitParam)
		_, _ = optionalField(pageOffset, "maxLimit", &p.MaxLimit)
		return schema.Pagination{Kind: schema.PaginationKindPageOffset, PageOffset: p}, nil
	}
	if offset := fieldOrNil(source, "offset"); offset != nil {
		p := &schema.OffsetPagination{ResultsPath: resultsPath}
		_, _ = optionalField(offset, "offsetParam", &p.OffsetParam)
		_, _ = optionalField(offset, "limitParam", &p.LimitParam)
		_, _ = optionalField(offset, "maxLimit", &p.MaxLimit)
		return schema.Pagination{Kind: schema.PaginationKindOffset, Offset: p}, nil
	}
	if nextURL := fieldOrNil(source, "nextUrl"); nextURL != nil {
		p := &schema.NextURLPagination{ResultsPath: resultsPath}
		_, _ = optionalField(nextURL, "nextUrlPath", &p.NextURLPath)
		_, _ = optionalField(nextURL, "limitParam", &p.LimitParam)
		_, _ = optionalField(nextURL, "maxLimit", &p.MaxLimit)
		return schema.Pagination{Kind: schema.PaginationKindNextURL, NextURL: p}, nil
	}
	if cursor := fieldOrNil(source, "cursor"); cursor != nil {
		p := &schema.MultiCursorPagination{ResultsPath: resultsPath}
		var cursorPath, cursorParam string
		_, _ = optionalField(cursor, "cursorPath", &cursorPath)
		_, _ = optionalField(cursor, "cursorParam", &cursorParam)
		p.CursorsPath = []string{cursorPath}
		p.CursorsParam = []string{cursorParam}
		_, _ = optionalField(cursor, "limitParam", &p.LimitParam)
		_, _ = optionalField(cursor, "maxLimit", &p.MaxLimit)
		return schema.Pagination{Kind: schema.PaginationKindMultiCursor, MultiCursor: p}, nil
	}

	return schema.Pagination{
		Kind:        schema.PaginationKindUnpaginated,
		Unpaginated: &schema.UnpaginatedPagination{ResultsPath: resultsPath},
	}, nil
}

func handleParameter(source any, root any, cache *refCache, schemas map[string]*schema.Schema) (*schema.Parameter, error) {
	if _, resolved, ok, err := handleReference(source, root, cache, map[string]bool{}); err != nil {
		return nil, err
	} else if ok {
		source = resolved
	}

	var in string
	if err := requiredField(source, "in", &in); err != nil {
		return nil, err
	}
	location := schema.ParameterLocation(in)
	switch location {
	case schema.ParamLocationQuery, schema.ParamLocationPath, schema.ParamLocationHeader, schema.ParamLocationCookie:
	default:
		return nil, connectorerr.New(connectorerr.ErrInvalidAuthParameter, in, "unknown parameter location")
	}

	param := &schema.Parameter{In: location}
	if err := requiredField(source, "name", &param.Name); err != nil {
		return nil, err
	}
	_, _ = optionalField(source, "required", &param.Required)

	if schemaNode := fieldOrNil(source, "schema"); schemaNode != nil {
		s, err := handleSchema(schemaNode, root, cache, schemas)
		if err != nil {
			return nil, err
		}
		param.Schema = s
	}

	return param, nil
}

// handleSchema recursively converts a raw schema node, threading $ref
// resolution through the shared schemas dictionary. A cyclical reference
// is not an error here: it is the signal to stop recursing and leave a
// bare Ref(key) in place.
func handleSchema(source any, root any, cache *refCache, schemas map[string]*schema.Schema) (*schema.Schema, error) {
	key, resolved, ok, err := handleReference(source, root, cache, map[string]bool{})
	if err != nil {
		if cyclical, isCyclical := asCyclicalKey(err); isCyclical {
			return &schema.Schema{Kind: schema.SchemaKindRef, Ref: cyclical}, nil
		}
		return nil, err
	}
	if ok {
		if _, exists := schemas[key]; !exists {
			schemas[key] = &schema.Schema{}
			refType, err := handleSchema(resolved, root, cache, schemas)
			if err != nil {
				return nil, err
			}
			schemas[key] = refType
		}
		return &schema.Schema{Kind: schema.SchemaKindRef, Ref: key}, nil
	}

	var kind string
	if hasKind, _ := optionalField(source, "type", &kind); hasKind {
		switch kind {
		case "string":
			return &schema.Schema{Kind: schema.SchemaKindString}, nil
		case "boolean":
			return &schema.Schema{Kind: schema.SchemaKindBoolean}, nil
		case "integer":
			return &schema.Schema{Kind: schema.SchemaKindInteger}, nil
		case "number":
			return &schema.Schema{Kind: schema.SchemaKindNumber}, nil
		case "array":
			result := &schema.Schema{Kind: schema.SchemaKindArray}
			if items := fieldOrNil(source, "items"); items != nil {
				itemSchema, err := handleSchema(items, root, cache, schemas)
				if err != nil {
					return nil, err
				}
				result.Items = itemSchema
			}
			return result, nil
		case "object":
			properties, _ := asObject(fieldOrNil(source, "properties"))
			result := &schema.Schema{Kind: schema.SchemaKindObject, Properties: map[string]*schema.Schema{}}
			for name, value := range properties {
				propSchema, err := handleSchema(value, root, cache, schemas)
				if err != nil {
					return nil, err
				}
				result.Properties[name] = propSchema
			}
			var required []string
			_, _ = optionalField(source, "required", &required)
			result.Required = required
			return result, nil
		}
		return &schema.Schema{Kind: schema.SchemaKindNone}, nil
	}

	if of, kind, ok := firstComposite(source); ok {
		arr, _ := asArray(of)
		members := make([]*schema.Schema, 0, len(arr))
		for _, member := range arr {
			memberSchema, err := handleSchema(member, root, cache, schemas)
			if err != nil {
				return nil, err
			}
			members = append(members, memberSchema)
		}
		return &schema.Schema{Kind: kind, Of: members}, nil
	}

	return &schema.Schema{Kind: schema.SchemaKindNone}, nil
}

func firstComposite(source any) (any, schema.SchemaKind, bool) {
	if oneOf := fieldOrNil(source, "oneOf"); oneOf != nil {
		return oneOf, schema.SchemaKindOneOf, true
	}
	if anyOf := fieldOrNil(source, "anyOf"); anyOf != nil {
		return anyOf, schema.SchemaKindAnyOf, true
	}
	if allOf := fieldOrNil(source, "allOf"); allOf != nil {
		return allOf, schema.SchemaKindAllOf, true
	}
	return nil, "", false
}

func asCyclicalKey(err error) (string, bool) {
	var cerr *connectorerr.Error
	if ce, ok := err.(*connectorerr.Error); ok {
		cerr = ce
	}
	if cerr == nil || cerr.Kind != connectorerr.ErrCyclicalReference {
		return "", false
	}
	return cerr.Identifier, true
}
