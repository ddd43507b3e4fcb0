// Package loader implements component C: the connector load pipeline. It
// reads a connector's manifest, credentials, config overrides, and (for
// HTTP manifests) its OpenAPI source from a Fetcher, resolves $ref
// indirection, merges overrides, and produces a populated
// schema.Connector. The inverse direction (Writer) serializes a connector
// back to disk.
package loader

import (
	"io"
	"os"
	"path/filepath"

	"github.com/madcok-co/conduit/core/pkg/connector/connectorerr"
)

// Fixed relative locations consulted by Load. Each is independently
// optional in only-manifest mode.
const (
	ManifestLocation    = "manifest.json"
	CredentialsLocation = "credentials.json"
	ConfigLocation      = "config.json"
)

// Fetcher is a read-only byte source keyed by location string. Locations
// may be relative paths or absolute URLs; the loader never distinguishes
// between them beyond using the string as a cache key for external $ref
// resolution; it never touches the network itself.
type Fetcher interface {
	Fetch(location string) (io.ReadCloser, error)
}

// DirFetcher is the filesystem Fetcher: it joins a root directory with the
// requested location. Locations that parse as absolute URLs are passed to
// an optional HTTPFetch hook instead of being joined to Root, since a
// connector's OpenAPI document may $ref an external https:// source.
type DirFetcher struct {
	Root string

	// HTTPFetch resolves a location that looks like an absolute URL. If
	// nil, absolute-URL locations fail with connectorerr.ErrNetwork;
	// the daemon only wires this when a connector's load explicitly
	// requires external $ref fetching.
	HTTPFetch func(url string) (io.ReadCloser, error)
}

// NewDirFetcher builds a Fetcher rooted at dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{Root: dir}
}

func (f *DirFetcher) Fetch(location string) (io.ReadCloser, error) {
	if isAbsoluteURL(location) {
		if f.HTTPFetch == nil {
			return nil, connectorerr.New(connectorerr.ErrNetwork, location, "external fetch not configured")
		}
		rc, err := f.HTTPFetch(location)
		if err != nil {
			return nil, connectorerr.Wrap(connectorerr.ErrNetwork, location, err)
		}
		return rc, nil
	}

	path := filepath.Join(f.Root, location)
	file, err := os.Open(path)
	if err != nil {
		return nil, connectorerr.Wrap(connectorerr.ErrIO, location, err)
	}
	return file, nil
}

func isAbsoluteURL(location string) bool {
	for i, r := range location {
		switch {
		case r == ':' && i > 0:
			return i+2 < len(location) && location[i+1] == '/' && location[i+2] == '/'
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '+' || r == '-' || r == '.':
			continue
		default:
			return false
		}
	}
	return false
}
