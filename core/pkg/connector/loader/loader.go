package loader

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

// Overrides is the partial override record materialized from config.json's
// flat dotted keys.
type Overrides struct {
	BaseURL         string              `json:"baseUrl,omitempty"`
	ServerVariables map[string]string   `json:"serverVariables,omitempty"`
	OAuthOverride   *schema.OAuthConfig `json:"oauthConfig,omitempty"`
}

// Load runs the full pipeline for one connector: manifest, then (unless
// onlyManifest) credentials, OpenAPI/source resolution, and overrides
// merge.
func Load(name string, fetcher Fetcher, mergeOverrides, onlyManifest bool) (*schema.Connector, *schema.Authentication, error) {
	connector, err := loadManifest(name, fetcher, onlyManifest)
	if err != nil {
		return nil, nil, err
	}

	var creds *schema.Authentication
	if !onlyManifest && connector.Manifest.Kind == schema.ManifestHTTP {
		if c, err := loadCredentials(fetcher); err == nil {
			creds = c
		}

		if mergeOverrides {
			if overrides, err := loadConfig(fetcher); err == nil {
				if err := Merge(connector, overrides); err != nil {
					return nil, nil, err
				}
			}
		}
	}

	return connector, creds, nil
}

func loadManifest(name string, fetcher Fetcher, onlyManifest bool) (*schema.Connector, error) {
	rc, err := fetcher.Fetch(ManifestLocation)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	manifest := &schema.Manifest{}
	if err := decodeJSON(rc, manifest); err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrJSON, ManifestLocation, err)
	}

	connector := &schema.Connector{Name: name, Manifest: manifest, Sources: map[string]string{}}

	if onlyManifest {
		return connector, nil
	}

	switch manifest.Kind {
	case schema.ManifestAction:
		for _, op := range manifest.Action.Operations {
			path := manifest.Action.Source + "/" + op.File
			if err := loadSource(fetcher, connector, path); err != nil {
				return nil, err
			}
		}
	case schema.ManifestSimpleCode:
		if err := loadSource(fetcher, connector, manifest.SimpleCode.Source); err != nil {
			return nil, err
		}
	case schema.ManifestScriptedAction:
		if manifest.ScriptedAction.Source != "" {
			if err := loadSource(fetcher, connector, manifest.ScriptedAction.Source); err != nil {
				return nil, err
			}
		}
	case schema.ManifestHTTP:
		api, err := loadOpenAPI(fetcher, manifest.HTTP.Source)
		if err != nil {
			return nil, err
		}
		connector.CommonAPI = api
	}

	return connector, nil
}

func loadSource(fetcher Fetcher, connector *schema.Connector, path string) error {
	rc, err := fetcher.Fetch(path)
	if err != nil {
		return err
	}
	defer rc.Close()

	var buf strings.Builder
	if _, err := io.Copy(&buf, rc); err != nil {
		return connectorerr.Wrap(connectorerr.ErrIO, path, err)
	}
	connector.Sources[path] = buf.String()
	return nil
}

func loadCredentials(fetcher Fetcher) (*schema.Authentication, error) {
	rc, err := fetcher.Fetch(CredentialsLocation)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, CredentialsLocation, err)
	}
	raw, err = decryptCredentials(raw)
	if err != nil {
		return nil, err
	}

	creds := &schema.Authentication{}
	if err := json.Unmarshal(raw, creds); err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrJSON, CredentialsLocation, err)
	}
	return creds, nil
}

// loadConfig reads the flat dotted-key config.json and materializes it
// into a nested Overrides record.
func loadConfig(fetcher Fetcher) (*Overrides, error) {
	rc, err := fetcher.Fetch(ConfigLocation)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var flat map[string]string
	if err := decodeJSON(rc, &flat); err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrJSON, ConfigLocation, err)
	}

	root := map[string]any{}
	for key, value := range flat {
		parts := strings.Split(key, ".")
		if err := traverseConfig(root, parts, value); err != nil {
			return nil, err
		}
	}

	overrides := &Overrides{}
	if err := reencode(root, overrides); err != nil {
		return nil, err
	}
	return overrides, nil
}

func traverseConfig(current map[string]any, parts []string, value string) error {
	if len(parts) == 0 {
		return nil
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
		return traverseConfig(childMap, parts[1:], value)
	}
	childMap, ok := child.(map[string]any)
	if !ok {
		return connectorerr.New(connectorerr.ErrInvalidRuntimeExpr, key, "override path traverses a non-object")
	}
	return traverseConfig(childMap, parts[1:], value)
}

// Merge applies overrides to connector's HTTP base path and, when OAuth
// is configured, its OAuth metadata: a non-empty baseUrl replaces a
// {{baseUrl}} placeholder in the base path, else the base path entirely;
// server variables substitute into "{k}" placeholders; OAuth string
// fields overwrite non-empty values.
func Merge(connector *schema.Connector, overrides *Overrides) error {
	if connector.CommonAPI == nil {
		return connectorerr.New(connectorerr.ErrNotFound, connector.Name, "common API")
	}
	if connector.Manifest == nil || connector.Manifest.HTTP == nil {
		return connectorerr.New(connectorerr.ErrNotFound, connector.Name, "HTTP manifest")
	}

	basePath := connector.CommonAPI.BasePath
	if overrides.BaseURL != "" {
		if strings.Contains(basePath, "{{baseUrl}}") {
			basePath = strings.ReplaceAll(basePath, "{{baseUrl}}", overrides.BaseURL)
		} else {
			basePath = overrides.BaseURL
		}
	}
	for key, value := range overrides.ServerVariables {
		basePath = strings.ReplaceAll(basePath, "{"+key+"}", value)
	}
	connector.CommonAPI.BasePath = basePath

	auth := connector.Manifest.HTTP.Auth
	if auth == nil || auth.Type != schema.AuthTypeOAuth || auth.OAuth == nil {
		return nil
	}
	oauth := auth.OAuth

	if o := overrides.OAuthOverride; o != nil {
		applyIfNonEmpty(&oauth.Name, o.Name)
		applyIfNonEmpty(&oauth.AuthURI, o.AuthURI)
		applyIfNonEmpty(&oauth.AccessTokenURI, o.AccessTokenURI)
		applyIfNonEmpty(&oauth.ResponseType, o.ResponseType)
		applyIfNonEmpty(&oauth.Prompt, o.Prompt)
		applyIfNonEmpty(&oauth.OAuthDocumentation, o.OAuthDocumentation)
		applyIfNonEmpty(&oauth.AccessTokenMethod, o.AccessTokenMethod)
		applyIfNonEmpty(&oauth.Scope, o.Scope)
		applyIfNonEmpty(&oauth.AccessTokenPath, o.AccessTokenPath)
		applyIfNonEmpty(&oauth.Audience, o.Audience)
		if o.EnableGroupCredential {
			oauth.EnableGroupCredential = true
		}
	}

	if strings.Contains(oauth.AuthURI, "{{baseUrl}}") {
		oauth.AuthURI = strings.ReplaceAll(oauth.AuthURI, "{{baseUrl}}", overrides.BaseURL)
	}
	if strings.Contains(oauth.AccessTokenURI, "{{baseUrl}}") {
		oauth.AccessTokenURI = strings.ReplaceAll(oauth.AccessTokenURI, "{{baseUrl}}", overrides.BaseURL)
	}

	return nil
}

func applyIfNonEmpty(dst *string, src string) {
	if src != "" {
		*dst = src
	}
}
