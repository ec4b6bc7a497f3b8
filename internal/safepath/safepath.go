// Package safepath validates transfer URLs and local file paths before a
// transfer is started.
package safepath

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"oras.land/oras-go/v2/registry"

	"github.com/meigma/ferry/core"
)

// Validator checks transfer requests.
type Validator struct{}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateRequest checks the kind, URL and local path of req.
// All failures wrap core.ErrInvalidArgument.
func (v *Validator) ValidateRequest(req *core.Request) error {
	if req == nil {
		return fmt.Errorf("%w: nil request", core.ErrInvalidArgument)
	}
	switch req.Kind {
	case core.KindDownload, core.KindUpload:
	default:
		return fmt.Errorf("%w: unknown transfer kind %d", core.ErrInvalidArgument, req.Kind)
	}
	if req.Kind == core.KindDownload && req.Credentials != nil {
		return fmt.Errorf("%w: credentials are only supported for uploads", core.ErrInvalidArgument)
	}
	u, err := v.ValidateURL(req.URL)
	if err != nil {
		return err
	}
	if u.Scheme == "oci" {
		if err := v.ValidateOCIReference(u, req.Kind); err != nil {
			return err
		}
	}
	return v.ValidatePath(req.LocalPath)
}

// ValidateOCIReference checks that u names host/repository[:tag|@digest].
// Uploads are published under a tag, so a digest reference is rejected for
// them.
func (v *Validator) ValidateOCIReference(u *url.URL, kind core.Kind) error {
	ref, err := registry.ParseReference(u.Host + u.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	if kind == core.KindUpload && ref.Reference != "" {
		if err := ref.ValidateReferenceAsTag(); err != nil {
			return fmt.Errorf("%w: upload needs a tag: %w", core.ErrInvalidArgument, err)
		}
	}
	return nil
}

// ValidateURL checks that raw is an absolute URL with a scheme and host.
// Scheme support is left to the engine.
func (v *Validator) ValidateURL(raw string) (*url.URL, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty url", core.ErrInvalidArgument)
	}
	if containsControl(raw) {
		return nil, fmt.Errorf("%w: url contains control characters", core.ErrInvalidArgument)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed url: %w", core.ErrInvalidArgument, err)
	}
	if u.Scheme == "" {
		return nil, fmt.Errorf("%w: url %q has no scheme", core.ErrInvalidArgument, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: url %q has no host", core.ErrInvalidArgument, raw)
	}
	return u, nil
}

// ValidatePath checks that path names a file: not empty, free of NUL bytes,
// and not a bare directory reference.
func (v *Validator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty local path", core.ErrInvalidArgument)
	}
	if containsNull(path) {
		return fmt.Errorf("%w: local path contains NUL byte", core.ErrInvalidArgument)
	}
	if hasTrailingSeparator(path) {
		return fmt.Errorf("%w: local path %q names a directory", core.ErrInvalidArgument, path)
	}
	switch filepath.Base(filepath.Clean(path)) {
	case ".", "..", string(filepath.Separator):
		return fmt.Errorf("%w: local path %q names a directory", core.ErrInvalidArgument, path)
	}
	return nil
}

func containsNull(s string) bool {
	return strings.IndexByte(s, 0) >= 0
}

func containsControl(s string) bool {
	return strings.ContainsFunc(s, func(r rune) bool {
		return r < 0x20 || r == 0x7f
	})
}

func hasTrailingSeparator(path string) bool {
	return strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator))
}
