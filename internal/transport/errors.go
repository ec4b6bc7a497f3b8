package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/errcode"

	"github.com/meigma/ferry/core"
)

// Sentinel errors for transport operations.
var (
	// ErrMultipleLayers indicates the manifest has multiple layers, which is unexpected for ferry artifacts.
	ErrMultipleLayers = errors.New("manifest has multiple layers; ferry expects exactly one layer")

	// ErrUnsupportedManifest indicates the reference resolved to something other than an image manifest.
	ErrUnsupportedManifest = errors.New("reference does not resolve to an image manifest")
)

// statusError describes a non-success HTTP response using the registry
// error type, so plain HTTP and OCI failures map the same way.
func statusError(resp *http.Response) error {
	return &errcode.ErrorResponse{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL,
		StatusCode: resp.StatusCode,
	}
}

// mapError classifies engine errors under ferry sentinels.
// Errors that are already classified, and context errors, pass through.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, core.ErrLocalIO),
		errors.Is(err, core.ErrTransport),
		errors.Is(err, core.ErrNotInitialized),
		errors.Is(err, core.ErrInvalidArgument),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return err
	}

	// Check for ORAS errdef sentinel errors first.
	if errors.Is(err, errdef.ErrNotFound) {
		return classify(core.ErrNotFound, err)
	}
	if errors.Is(err, auth.ErrBasicCredentialNotFound) {
		return classify(core.ErrUnauthorized, err)
	}

	var errResp *errcode.ErrorResponse
	if errors.As(err, &errResp) {
		// Check HTTP status code first
		switch errResp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return classify(core.ErrUnauthorized, err)
		case http.StatusNotFound:
			return classify(core.ErrNotFound, err)
		}

		// Check specific error codes
		for _, e := range errResp.Errors {
			switch e.Code {
			case errcode.ErrorCodeUnauthorized, errcode.ErrorCodeDenied:
				return classify(core.ErrUnauthorized, err)
			case errcode.ErrorCodeNameUnknown,
				errcode.ErrorCodeManifestUnknown,
				errcode.ErrorCodeBlobUnknown:
				return classify(core.ErrNotFound, err)
			}
		}
	}

	return fmt.Errorf("%w: %w", core.ErrTransport, err)
}

func classify(kind, err error) error {
	return fmt.Errorf("%w: %w: %w", core.ErrTransport, kind, err)
}
