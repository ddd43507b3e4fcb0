package loader

import (
	"strings"

	"github.com/go-openapi/jsonpointer"
	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
)

// reference is a parsed "$ref" string: "[source]#/json/pointer". An empty
// source means internal (resolve against the current root); otherwise the
// source names an external document to fetch and cache.
type reference struct {
	source string
	path   string
}

func (r reference) isExternal() bool { return r.source != "" }

func parseReference(ref string) (reference, error) {
	parts := strings.SplitN(ref, "#", 2)
	if len(parts) != 2 {
		return reference{}, connectorerr.New(connectorerr.ErrNotFound, ref, "missing json pointer fragment")
	}
	return reference{source: parts[0], path: parts[1]}, nil
}

func resolvePointer(path string, document any) (any, error) {
	ptr, err := jsonpointer.New(path)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrYAML, path, err)
	}
	value, _, err := ptr.Get(document)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrNotFound, path, err)
	}
	return value, nil
}

// refCache memoizes one fetch per external source string per load.
type refCache struct {
	fetcher Fetcher
	docs    map[string]any
}

func newRefCache(fetcher Fetcher) *refCache {
	return &refCache{fetcher: fetcher, docs: map[string]any{}}
}

func (c *refCache) fetchAndCache(source string) (any, error) {
	if doc, ok := c.docs[source]; ok {
		return doc, nil
	}
	rc, err := c.fetcher.Fetch(source)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	doc, err := decodeYAML(rc)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrYAML, source, err)
	}
	c.docs[source] = doc
	return doc, nil
}

// handleReference extracts and follows a $ref found on item, if any. It
// returns the ref key and the resolved raw document fragment. seen guards
// against the reference reappearing during this single resolution chain;
// callers that tolerate cycles (schema handling) inspect the returned
// error for connectorerr.ErrCyclicalReference instead of propagating it.
func handleReference(item any, root any, cache *refCache, seen map[string]bool) (string, any, bool, error) {
	obj, ok := item.(map[string]any)
	if !ok {
		return "", nil, false, nil
	}
	refValue, ok := obj["$ref"].(string)
	if !ok {
		return "", nil, false, nil
	}

	if seen[refValue] {
		return "", nil, false, connectorerr.New(connectorerr.ErrCyclicalReference, refValue, "")
	}
	seen[refValue] = true
	defer delete(seen, refValue)

	parsed, err := parseReference(refValue)
	if err != nil {
		return "", nil, false, err
	}

	var resolveRoot any = root
	if parsed.isExternal() {
		resolveRoot, err = cache.fetchAndCache(parsed.source)
		if err != nil {
			return "", nil, false, err
		}
	}

	resolved, err := resolvePointer(parsed.path, resolveRoot)
	if err != nil {
		return "", nil, false, err
	}

	// Follow a chain of refs (a $ref pointing at another $ref),
	// re-seeding `seen` fresh when we've crossed into an external
	// document.
	nextSeen := seen
	if parsed.isExternal() {
		nextSeen = map[string]bool{}
	}
	if key, nested, ok, err := handleReference(resolved, resolveRoot, cache, nextSeen); err != nil {
		return "", nil, false, err
	} else if ok {
		return key, nested, true, nil
	}

	return refValue, resolved, true, nil
}
