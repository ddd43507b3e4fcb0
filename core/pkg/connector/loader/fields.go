package loader

import (
	"encoding/json"
	"io"

	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"go.yaml.in/yaml/v3"
)

// decodeYAML parses r into a generic document tree of
// map[string]any/[]any/scalars.
func decodeYAML(r io.Reader) (any, error) {
	var doc any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func decodeJSON(r io.Reader, out any) error {
	return json.NewDecoder(r).Decode(out)
}

// requiredField extracts field from current (a map[string]any) and JSON
// round-trips it into out (a pointer). Returns
// connectorerr.ErrMissingRequiredParam if absent.
func requiredField(current any, field string, out any) error {
	obj, _ := current.(map[string]any)
	value, ok := obj[field]
	if !ok {
		return connectorerr.New(connectorerr.ErrMissingRequiredParam, field, "")
	}
	return reencode(value, out)
}

// optionalField is requiredField without the missing-field error: ok is
// false when the field is absent.
func optionalField(current any, field string, out any) (ok bool, err error) {
	obj, _ := current.(map[string]any)
	value, present := obj[field]
	if !present {
		return false, nil
	}
	if err := reencode(value, out); err != nil {
		return false, err
	}
	return true, nil
}

// reencode round-trips value (as decoded from YAML, possibly with
// map[string]any/[]any shapes) through JSON into out.
func reencode(value any, out any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return connectorerr.Wrap(connectorerr.ErrJSON, "", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return connectorerr.Wrap(connectorerr.ErrJSON, "", err)
	}
	return nil
}

func asObject(value any) (map[string]any, bool) {
	obj, ok := value.(map[string]any)
	return obj, ok
}

func asArray(value any) ([]any, bool) {
	arr, ok := value.([]any)
	return arr, ok
}
