// Package transport implements the transfer engines behind ferry: plain
// HTTP(S) and OCI registry blobs, both sharing one reference-counted HTTP
// transport.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"

	"github.com/meigma/ferry/core"
)

// DefaultProgressStep is the minimum number of bytes between progress reports.
const DefaultProgressStep = 32 << 10

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "ferry/1.0"

// Compile-time interface implementation check.
var _ core.Engine = (*Engine)(nil)

// Option configures an Engine.
type Option func(*Engine)

// Engine routes transfers by URL scheme: http and https go to the HTTP
// engine, oci to the registry engine.
type Engine struct {
	state     *State
	plainHTTP bool
	userAgent string
	credStore credentials.Store
	step      int64
	logger    *slog.Logger
}

// New creates an Engine over the Default state.
func New(opts ...Option) *Engine {
	e := &Engine{
		state:     Default,
		userAgent: DefaultUserAgent,
		step:      DefaultProgressStep,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithState sets the process state the engine draws its HTTP transport from.
func WithState(s *State) Option {
	return func(e *Engine) {
		e.state = s
	}
}

// WithCredentialStore sets the credential store consulted when a transfer
// carries no explicit credentials.
func WithCredentialStore(store credentials.Store) Option {
	return func(e *Engine) {
		e.credStore = store
	}
}

// WithPlainHTTP makes oci:// references use HTTP instead of HTTPS.
func WithPlainHTTP(plainHTTP bool) Option {
	return func(e *Engine) {
		e.plainHTTP = plainHTTP
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(e *Engine) {
		e.userAgent = ua
	}
}

// WithProgressStep sets the minimum number of bytes between progress reports.
func WithProgressStep(step int64) Option {
	return func(e *Engine) {
		e.step = step
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Ready reports whether the engine's process state is initialized.
func (e *Engine) Ready() bool {
	return e.state.Ready()
}

// Get fetches rawURL into dst.
func (e *Engine) Get(ctx context.Context, rawURL string, dst io.Writer, progress core.ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: parse url: %w", core.ErrInvalidArgument, err)
	}

	e.logger.Debug("get", "url", rawURL)
	switch u.Scheme {
	case "http", "https":
		return e.httpGet(ctx, u, dst, progress)
	case "oci":
		return e.ociGet(ctx, u, dst, progress)
	default:
		return fmt.Errorf("%w: %q", core.ErrUnsupportedScheme, u.Scheme)
	}
}

// Put sends size bytes from src to rawURL.
func (e *Engine) Put(ctx context.Context, rawURL string, src io.Reader, size int64, creds *core.Credentials, progress core.ProgressFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: parse url: %w", core.ErrInvalidArgument, err)
	}

	e.logger.Debug("put", "url", rawURL, "size", size, "auth", creds != nil)
	switch u.Scheme {
	case "http", "https":
		return e.httpPut(ctx, u, src, size, creds, progress)
	case "oci":
		return e.ociPut(ctx, u, src, size, creds, progress)
	default:
		return fmt.Errorf("%w: %q", core.ErrUnsupportedScheme, u.Scheme)
	}
}

func (e *Engine) client(host string, creds *core.Credentials) (*auth.Client, error) {
	base, err := e.state.HTTPClient()
	if err != nil {
		return nil, err
	}
	return newAuthClient(base, host, e.userAgent, creds, e.credStore), nil
}
