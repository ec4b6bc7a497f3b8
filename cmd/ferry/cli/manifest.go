package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Batch entry kinds.
const (
	entryGet = "get"
	entryPut = "put"
)

// manifest is a batch of transfers read from YAML:
//
//	transfers:
//	  - kind: get
//	    url: https://example.com/a.bin
//	    path: a.bin
//	  - kind: put
//	    url: oci://localhost:5000/acme/b:v1
//	    path: b.bin
//	    credentials: user:password
type manifest struct {
	Transfers []manifestEntry `yaml:"transfers"`
}

type manifestEntry struct {
	Kind        string `yaml:"kind"`
	URL         string `yaml:"url"`
	Path        string `yaml:"path"`
	Credentials string `yaml:"credentials,omitempty"`
}

// label names an entry in output.
func (e manifestEntry) label() string {
	if e.Kind == entryPut {
		return e.Path + " -> " + e.URL
	}
	return e.URL + " -> " + e.Path
}

// loadManifest reads and validates the manifest at path. $VAR and ${VAR}
// references in url and path are expanded from the environment; credentials
// are taken literally. Relative local paths are resolved against the
// manifest's directory.
func loadManifest(path string) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := parseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i := range m.Transfers {
		e := &m.Transfers[i]
		e.URL = os.ExpandEnv(e.URL)
		e.Path = os.ExpandEnv(e.Path)
		if e.URL == "" || e.Path == "" {
			return nil, fmt.Errorf("%s: transfer %d: url or path expands to nothing", path, i)
		}
		if !filepath.IsAbs(e.Path) {
			e.Path = filepath.Join(base, e.Path)
		}
	}
	return m, nil
}

// parseManifest decodes a manifest, rejecting unknown fields.
func parseManifest(data []byte) (*manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Transfers) == 0 {
		return nil, errors.New("manifest lists no transfers")
	}

	for i, e := range m.Transfers {
		switch e.Kind {
		case entryGet:
			if e.Credentials != "" {
				return nil, fmt.Errorf("transfer %d: credentials are only used by put", i)
			}
		case entryPut:
		default:
			return nil, fmt.Errorf("transfer %d: unknown kind %q (expected get or put)", i, e.Kind)
		}
		if e.URL == "" {
			return nil, fmt.Errorf("transfer %d: url is required", i)
		}
		if e.Path == "" {
			return nil, fmt.Errorf("transfer %d: path is required", i)
		}
	}
	return &m, nil
}
