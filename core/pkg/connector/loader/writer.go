package loader

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
	"github.com/madcok-co/conduit/core/pkg/connector/schema"
)

// Write is the inverse of Load: it serializes a connector's manifest,
// OpenAPI document, credentials, and any loaded source files into dir. It
// never overwrites a live file directly: it writes "<name>.new" siblings,
// leaving promotion (the rename that makes a save live) to the caller,
// e.g. SaveService.
func Write(dir string, connector *schema.Connector, creds *schema.Authentication) error {
	if connector != nil && connector.Manifest != nil {
		if err := writeJSONFile(filepath.Join(dir, ManifestLocation+".new"), connector.Manifest); err != nil {
			return err
		}
		if connector.Manifest.Kind == schema.ManifestHTTP && connector.CommonAPI != nil {
			source := connector.Manifest.HTTP.Source
			raw, err := encodeOpenAPI(connector.CommonAPI)
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(dir, source+".new"), raw, 0o644); err != nil {
				return connectorerr.Wrap(connectorerr.ErrIO, source, err)
			}
		}
	}
	if creds != nil {
		if err := writeCredentialsFile(filepath.Join(dir, CredentialsLocation+".new"), creds); err != nil {
			return err
		}
	}
	if connector == nil {
		return nil
	}
	for relPath, content := range connector.Sources {
		path := filepath.Join(dir, relPath+".new")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return connectorerr.Wrap(connectorerr.ErrIO, relPath, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return connectorerr.Wrap(connectorerr.ErrIO, relPath, err)
		}
	}
	return nil
}

// Promote renames every "<name>.new" file written by Write into its live
// counterpart. Write itself never promotes; the daemon does it
// synchronously once SaveService's caller has supplied a structurally
// valid manifest.
func Promote(dir string, connector *schema.Connector, hasCreds bool) error {
	renames := []string{ManifestLocation}
	if hasCreds {
		renames = append(renames, CredentialsLocation)
	}
	if connector.Manifest != nil && connector.Manifest.Kind == schema.ManifestHTTP && connector.CommonAPI != nil {
		renames = append(renames, connector.Manifest.HTTP.Source)
	}
	for relPath := range connector.Sources {
		renames = append(renames, relPath)
	}
	for _, name := range renames {
		newPath := filepath.Join(dir, name+".new")
		livePath := filepath.Join(dir, name)
		if _, err := os.Stat(newPath); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return connectorerr.Wrap(connectorerr.ErrIO, name, err)
		}
		if err := os.Rename(newPath, livePath); err != nil {
			return connectorerr.Wrap(connectorerr.ErrIO, name, err)
		}
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return connectorerr.Wrap(connectorerr.ErrJSON, path, err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return connectorerr.Wrap(connectorerr.ErrIO, path, err)
	}
	return nil
}

// writeCredentialsFile is writeJSONFile plus an encryptCredentials pass:
// when CredentialsKeyEnvVar is set the file written to path is a
// credentialsEnvelope, otherwise it is plain JSON exactly as
// writeJSONFile would have produced.
func writeCredentialsFile(path string, creds *schema.Authentication) error {
	raw, err := json.Marshal(creds)
	if err != nil {
		return connectorerr.Wrap(connectorerr.ErrJSON, path, err)
	}
	raw, err = encryptCredentials(raw)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return connectorerr.Wrap(connectorerr.ErrIO, path, err)
	}
	return nil
}
